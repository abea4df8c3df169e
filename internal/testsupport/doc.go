// Package testsupport builds isolated configurations and stub executables
// for tests that exercise the daemon end to end.
package testsupport
