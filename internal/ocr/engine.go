package ocr

import (
	"context"
	"image"
)

// TextLine is one recognized line of text with its confidence in [0, 1].
type TextLine struct {
	Text       string
	Confidence float64
}

// Engine recognizes text in an image.
type Engine interface {
	Recognize(ctx context.Context, img image.Image) ([]TextLine, error)
}
