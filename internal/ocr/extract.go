package ocr

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"strings"
	"unicode/utf8"

	"doorman/internal/logging"
	"doorman/internal/textutil"
)

// The requester name occupies the left part of the card next to the
// avatar; the right side holds the action controls and is excluded so
// their captions never win the name heuristic.
const nameRegionWidthFraction = 0.60

// Minimum rune length for a line to be considered a name candidate.
const minNameRunes = 3

// Label is the extracted name for one card.
type Label struct {
	// Text is the display name as recognized, cleaned of occlusion noise.
	Text string
	// Key is the normalized identity key derived from Text.
	Key string
	// Confidence is the recognition confidence in [0, 1].
	Confidence float64
}

// Extractor turns card crops into name labels.
type Extractor struct {
	engine        Engine
	minConfidence float64
	logger        *slog.Logger
}

// NewExtractor constructs an Extractor with a confidence floor.
func NewExtractor(engine Engine, minConfidence float64, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Extractor{
		engine:        engine,
		minConfidence: minConfidence,
		logger:        logger.With(logging.String(logging.FieldComponent, "ocr")),
	}
}

// Extract recognizes the name label on a card crop. It returns nil with no
// error when no line clears the confidence floor or yields a usable key;
// the caller skips the card this cycle and retries on the next one.
func (e *Extractor) Extract(ctx context.Context, card image.Image) (*Label, error) {
	if card == nil {
		return nil, nil
	}

	lines, err := e.engine.Recognize(ctx, nameRegion(card))
	if err != nil {
		return nil, fmt.Errorf("recognize card: %w", err)
	}

	for _, line := range lines {
		if line.Confidence < e.minConfidence {
			e.logger.Debug("line below confidence floor",
				logging.String("text", line.Text),
				logging.Float64("confidence", line.Confidence))
			continue
		}
		if looksLikeMetadata(line.Text) {
			continue
		}

		name := textutil.LongestAlphabeticRun(line.Text)
		if utf8.RuneCountInString(name) < minNameRunes {
			continue
		}
		key := textutil.NormalizeKey(name)
		if key == "" {
			continue
		}
		return &Label{Text: name, Key: key, Confidence: line.Confidence}, nil
	}

	e.logger.Debug("no usable name line on card", logging.Int("lines", len(lines)))
	return nil, nil
}

// looksLikeMetadata filters card lines that are platform chrome rather
// than the requester name.
func looksLikeMetadata(text string) bool {
	lowered := strings.ToLower(strings.TrimSpace(text))
	for _, prefix := range []string{"membro", "member", "iscritto", "joined", "risposta", "answered"} {
		if strings.HasPrefix(lowered, prefix) {
			return true
		}
	}
	return false
}

// nameRegion crops the left portion of the card where the name lives.
func nameRegion(card image.Image) image.Image {
	bounds := card.Bounds()
	width := int(float64(bounds.Dx()) * nameRegionWidthFraction)
	if width < 1 {
		width = bounds.Dx()
	}
	region := image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Min.X+width, bounds.Max.Y)

	crop := image.NewRGBA(image.Rect(0, 0, region.Dx(), region.Dy()))
	draw.Draw(crop, crop.Bounds(), card, region.Min, draw.Src)
	return crop
}
