// Package preflight provides readiness checks for the filesystem paths and
// external tools mediafetch depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs every failing check.
//   - The CLI "mediafetch deps" command renders the same results as a table.
package preflight
