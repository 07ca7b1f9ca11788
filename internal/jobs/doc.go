// Package jobs launches pipeline stage jobs in the background.
//
// A Dispatcher checks each stage's preconditions synchronously (prepare needs
// a reconstruction with at least two registered images, run needs a GPU),
// allows at most one job in flight per stage, and signals completion through
// Handle.Done exactly once. Jobs are never queued, retried, or cancelled.
package jobs
