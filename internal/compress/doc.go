// Package compress orchestrates a single compress-to-target-size job.
//
// A Compressor probes the source, chooses an encoder backend, plans the
// split, budgets bitrates and supervises the ffmpeg processes for the mode
// the backend supports:
//
//	two_pass_split     pass 1 on both segments, then pass 2 on both, then stitch
//	single_pass_split  one pass on both segments concurrently, then stitch
//	single_pass        one unsplit pass straight to the output
//
// Every job runs in its own workspace, which is removed on every exit path.
// A partial output is removed when the job does not succeed.
package compress
