// Package narrate synthesizes the narration audio track during the narrating
// stage.
//
// Narration text above the configured ceiling is truncated at a sentence
// boundary and the job is flagged truncated. When synthesis is unavailable
// the stage writes a silent placeholder track and completes degraded.
package narrate
