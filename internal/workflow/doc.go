// Package workflow drives download jobs from submission to a servable file.
//
// Manager.Submit validates a request, creates the job record and its temp
// directory, and returns the job id immediately. A detached goroutine then
// runs the phases for the requested type (single stream, merged video+audio,
// audio with an optional re-encode) through a process.Driver, folding every
// parsed progress fact back into the registry. Each job ends in completed or
// error; panics are recovered into error.
//
// Concurrency is bounded by a weighted semaphore sized from
// workflow.max_concurrent_jobs. Every job carries its own cancel function so
// callers (the HTTP DELETE route, the retention sweep, daemon shutdown) can
// stop the subprocess group.
package workflow
