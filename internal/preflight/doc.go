// Package preflight checks the host before stage jobs run: state and log
// directories, the selected workspace, its patch-match config, the COLMAP
// binary, and GPU availability. `mvspipe doctor` prints the results.
package preflight
