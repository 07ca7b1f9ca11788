// Package deps checks the external programs and host capabilities the
// pipeline stages rely on: the COLMAP binary and a GPU for dense stereo.
package deps
