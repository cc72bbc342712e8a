// Package render produces the visual clips for a job during the rendering
// stage.
//
// Three render modes are supported: avatar clips from a hosted avatar vendor
// (HeyGen or D-ID), website screen recordings through an external recorder
// command, and screen recordings with a custom avatar overlay. Vendors are
// polled until the render finishes or the configured timeout elapses. When
// every render path fails and fallback is enabled, placeholder clips keep the
// job moving in degraded form.
package render
