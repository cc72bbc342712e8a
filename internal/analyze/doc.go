// Package analyze resolves a job's source reference into structured content
// the scripting stage can work from.
//
// Repositories are read through the GitHub REST API, websites are fetched and
// reduced to visible text, and documents are read from disk. Oversized
// content is truncated to the configured ceilings and the job is flagged
// rather than failed.
package analyze
