// Package workflow advances queued jobs through the generation pipeline.
//
// The Manager polls the queue for new submissions and walks each claimed job
// through the ordered stages (analyze, script, narrate, render, compose),
// persisting status and progress between stages. A bounded worker pool allows
// several jobs to process concurrently while cancellation requests are honored
// at stage boundaries. The Manager also aggregates queue stats and stage
// health checks for the status endpoint.
package workflow
