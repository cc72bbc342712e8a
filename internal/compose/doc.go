// Package compose assembles the final video during the composing stage.
//
// Rendered clips are concatenated (or looped to cover the narration),
// overlay jobs get their presenter pinned over the screen recording, the
// narration track is muxed in, and the result is packaged for streaming. If
// composition fails outright a placeholder artifact is written so the job
// still completes degraded.
package compose
