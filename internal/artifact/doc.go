// Package artifact locates finished media files inside a job directory and
// describes them for delivery.
//
// Resolve ranks the media candidates of a single directory using container,
// audio-only and intermediate-prefix heuristics with a modification time
// tie-break. ContentType and ContentDisposition produce the headers used when
// the artifact is streamed back to a caller.
package artifact
