// Package api defines the JSON payloads exchanged between the daemon's HTTP
// routes and clients such as the mediafetch CLI.
//
// DTOs use camelCase JSON tags for browser consumers. Job statuses and types
// are exposed as their lowercase string values and timestamps use RFC3339
// with milliseconds. Server-side paths are never included.
package api
