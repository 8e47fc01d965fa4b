// Package sched decides when the next reconciliation cycle runs.
//
// Cycle spacing is jittered around the configured poll interval so the
// polling rhythm never looks mechanical, gated by a working-hours window,
// and shortened after errors or executed actions. Pause state is owned
// here so both the daemon loop and remote controls see one source of
// truth.
package sched
