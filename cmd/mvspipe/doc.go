// Package main hosts the mvspipe CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration (plus an optional .env file),
// selects the workspace, and drives the workflow orchestrator: status prints
// readiness and the artifact grid, prepare and run launch a stage job and wait
// for the rebuild that follows, inspect decodes a single depth or normal map,
// history lists recorded jobs, and doctor runs the preflight checks.
//
// Keep this package thin. Behavior belongs in the internal packages; commands
// only translate flags and render results.
package main
