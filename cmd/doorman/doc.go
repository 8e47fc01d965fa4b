// Package main hosts the doorman CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into IPC
// calls against the daemon: request listing, verdict recording, pause and
// resume, database diagnostics, and configuration scaffolding. It
// centralizes configuration resolution and socket discovery so subcommands
// can focus on user experience instead of wiring.
package main
