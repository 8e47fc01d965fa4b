// Package textutil holds the text normalization rules shared by the OCR
// extractor, the decision store, and the remote decision entry points.
//
// The identity key derived here is the only stable reference for a request
// across poll cycles; card indexes reshuffle on every reflow, so everything
// that dedupes or matches does it through NormalizeKey.
package textutil
