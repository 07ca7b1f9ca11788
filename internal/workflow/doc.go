// Package workflow coordinates the active workspace with the stage jobs that
// change it.
//
// The Orchestrator owns the workspace path. SetWorkspace probes the directory,
// parses dense/patch-match.cfg when the workspace is ready, builds the artifact
// grid, and swaps in the resulting Snapshot in one step. Prepare needs an
// existing directory; run needs a Ready workspace. Accepted requests go to the
// job dispatcher, and when a job finishes, success or failure, the
// orchestrator rebuilds and publishes the new snapshot to subscribers.
//
// An unreadable patch-match config is fatal for the rebuild that hit it: the
// previous snapshot stays published and the error is returned (or recorded as
// LastError when the rebuild followed a job).
package workflow
