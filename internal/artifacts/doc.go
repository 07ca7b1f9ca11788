// Package artifacts reports which depth and normal maps the dense stereo stage
// has produced for each reference image, and decodes individual maps for
// inspection.
//
// Grids are built purely from existence probes; a present file is not
// validated.
package artifacts
