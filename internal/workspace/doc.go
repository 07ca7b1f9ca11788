// Package workspace decides which pipeline stages can run by probing the fixed
// directory layout of a dense reconstruction workspace.
//
// All probes are fail-safe: permission errors and races read as "absent" and
// never surface as errors.
package workspace
