// Command videocompress compresses a video so that the output file fits a
// target size. The root command runs a job; subcommands inspect sources,
// encoders, and the local environment.
package main
