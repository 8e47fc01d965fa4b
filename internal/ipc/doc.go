// Package ipc implements the control channel between the doorman CLI and
// the daemon: JSON-RPC over a Unix domain socket. The server wraps the
// daemon's control surface; the client offers one method per RPC.
package ipc
