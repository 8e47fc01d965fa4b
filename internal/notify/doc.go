// Package notify pushes operator-facing events through ntfy.
//
// New requests go out with the card snapshot attached so the operator can
// decide from the notification alone. When no topic is configured every
// call is a no-op, keeping call sites free of nil checks.
package notify
