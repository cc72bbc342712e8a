// Package scriptgen turns analyzed content into a narration script during the
// scripting stage.
//
// Scripts come from an OpenRouter-compatible chat completion endpoint. When
// the endpoint is unreachable or unconfigured the stage falls back to a short
// demo script so the rest of the pipeline still produces an artifact.
package scriptgen
