// Package patchmatch reads the dense stereo configuration that the prepare
// stage writes into a workspace and carries the tunable options forwarded to
// the stereo tool.
//
// The configuration's line pairing is load-bearing: only every other surviving
// line names a reference image. Keep ReadReferenceImages in step with the
// producer of that file rather than "fixing" the pairing here.
package patchmatch
