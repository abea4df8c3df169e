// Package delivery turns a finished job into a servable artifact.
//
// Server.Prepare validates the job id, checks readiness, and recovers the
// artifact path when the registry entry or the recorded file is gone.
// Server.Served marks the job saved and hands the file to the retention
// scheduler for post-serve cleanup. The HTTP layer streams the bytes.
package delivery
