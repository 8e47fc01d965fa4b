// Package reconcile drives one poll cycle end to end: capture the page,
// segment it into cards, extract identities, and reconcile what is on
// screen against the decision store.
//
// The cycle is deliberately serial. Actuation order matters because every
// click reflows the list, so remaining cards are re-located by template
// match before the next action rather than processed in parallel.
package reconcile
