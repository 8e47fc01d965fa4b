// Package segment turns full-page screenshots of the request list into an
// ordered sequence of card regions with localized action controls.
//
// The primary detector scans the content area for near-uniform horizontal
// separator bands between cards. When too few separators are visible it
// falls back to locating circular avatar glyphs and inferring card extent
// from their vertical pitch. After an actuation reflows the list, cached
// card crops are re-located by normalized template matching.
package segment
