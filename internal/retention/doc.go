// Package retention evicts stale job state and files.
//
// Two mechanisms share one Scheduler: a periodic age sweep that removes jobs
// (and orphaned job directories) older than retention.max_age, and a
// per-job post-serve timer that deletes a delivered artifact shortly after it
// was streamed. Eviction calls an optional hook first so the workflow layer
// can stop any subprocess still writing into the directory.
package retention
