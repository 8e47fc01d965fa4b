// Package ocr extracts the requester name from card crops.
//
// Recognition runs through an external Tesseract binary speaking its TSV
// output format; the Engine interface isolates the rest of the pipeline
// from that dependency. Extraction restricts recognition to the name
// sub-region of the card and applies confidence filtering before a label
// is allowed to become an identity key.
package ocr
