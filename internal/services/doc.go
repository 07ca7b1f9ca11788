// Package services defines shared utilities consumed by the pipeline stages,
// the job dispatcher, and the orchestrator.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and workspace paths for
//     logging.
//   - Structured error markers plus the Wrap helper that separate the fatal
//     class (unreadable patch-match config) from recoverable operator errors
//     (invalid workspace, unmet launch preconditions, busy stage).
//
// Use these helpers when wiring new stage logic so error classification and
// observability stay uniform across the pipeline.
package services
