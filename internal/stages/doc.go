// Package stages wraps the two external programs of the pipeline: image
// undistortion (prepare) and patch-match stereo (run).
//
// Both runners shell out to the configured COLMAP binary through an Executor so
// tests can substitute a stub. Failures are tagged services.ErrExternalTool.
package stages
