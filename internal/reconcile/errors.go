package reconcile

import "errors"

// ErrStoreIO indicates the decision store failed at the persistence layer.
// The cycle aborts on it: continuing could half-apply observations that
// the store never saw.
var ErrStoreIO = errors.New("decision store I/O failure")
