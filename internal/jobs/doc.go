// Package jobs holds the in-memory job registry.
//
// Every download request becomes a Job keyed by a UUIDv7 identifier. The
// Registry is the single shared view of in-flight work: workflows write to it
// through Mutate, poll handlers and the delivery server read copies through
// Get, and the retention scheduler deletes entries. Each entry carries its own
// lock so updates to unrelated jobs never contend.
package jobs
