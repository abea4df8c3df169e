// Package daemon coordinates the long-running mediafetch process.
//
// It wires configuration, the job registry, the workflow manager, the
// retention scheduler and the artifact server into a single lifecycle with
// flock-based locking so that only one daemon owns a temp root. The HTTP API
// lives here too: handlers translate requests into workflow, delivery and
// probe calls and render the api package payloads.
//
// Keep orchestration logic here: individual workflow steps should live in
// their respective packages while the daemon focuses on startup, shutdown and
// request plumbing.
package daemon
