// Package textutil provides small text helpers shared across the pipeline:
// vendor-ceiling truncation with explicit flagging and filesystem-safe name
// sanitization.
package textutil
