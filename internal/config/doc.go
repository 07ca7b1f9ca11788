// Package config loads, normalizes, and validates mvspipe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// MVSPIPE_WORKSPACE and MVSPIPE_COLMAP_BINARY. The Config type centralizes the
// state/log directories, the external COLMAP binary, accelerator detection,
// and the patch-match options forwarded to the dense stereo stage.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
