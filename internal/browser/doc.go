// Package browser talks to the external page observer/actuator.
//
// The actual browser automation, session handling, and anti-fingerprinting
// live in a separate bridge process; this package only speaks its small
// HTTP API: capture a full-page screenshot, click a page coordinate, and
// navigate to the request list. The Surface interface keeps the pipeline
// testable without a bridge running.
package browser
