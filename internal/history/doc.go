// Package history persists a row per compression job in SQLite so past runs
// can be listed with `videocompress history`.
package history
