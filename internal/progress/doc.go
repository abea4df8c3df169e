// Package progress turns the human-oriented output of the external downloader
// and encoder into structured facts.
//
// Parse is pure: it classifies a single line as a percentage update, a
// destination announcement, a post-processing phase marker, an error marker,
// or nothing at all. Nothing outside this package looks at raw subprocess text.
package progress
