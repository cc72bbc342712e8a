// Package media wraps the ffmpeg and ffprobe command-line tools for clip
// concatenation, looping, overlay, audio muxing, and final packaging.
//
// All operations run through a shared semaphore so concurrent jobs cannot
// oversubscribe the host with parallel ffmpeg processes. Intermediate files
// live in per-operation temp directories that are removed when the operation
// returns.
package media
