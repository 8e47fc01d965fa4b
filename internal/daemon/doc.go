// Package daemon coordinates the doorman background process: the poll
// loop driven by the scheduler, single-instance locking, the HTTP control
// API, and housekeeping between cycles. Inbound operator decisions land
// here and wake the loop so a decided request is actuated promptly rather
// than waiting out the next jittered tick.
package daemon
