// Package services defines shared utilities consumed by the download workflow
// and the external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, phase names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures keep a
//     consistent classification from the process layer up to the HTTP layer.
//
// Use these helpers when wiring new phases so operational behaviour (error
// handling, observability) stays uniform across the pipeline.
package services
