package segment

import (
	"image"
	"image/draw"
	"log/slog"

	"doorman/internal/config"
	"doorman/internal/logging"
)

// Segmenter detects card regions in full-page screenshots.
type Segmenter struct {
	page   config.Page
	logger *slog.Logger
}

// New returns a Segmenter using the given page geometry.
func New(page config.Page, logger *slog.Logger) *Segmenter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Segmenter{page: page, logger: logger.With(logging.String(logging.FieldComponent, "segment"))}
}

// Segment detects cards on a full-page screenshot and returns them ordered
// top to bottom. A page with no detectable cards yields an empty slice;
// only a degenerate content area is unusual enough to log.
func (s *Segmenter) Segment(page image.Image) []CardRegion {
	if page == nil {
		return nil
	}

	pageBounds := page.Bounds()
	contentLeft := s.page.SidebarWidth
	contentTop := s.page.HeaderHeight
	if pageBounds.Dx() <= contentLeft || pageBounds.Dy() <= contentTop {
		s.logger.Warn("screenshot smaller than configured crop offsets",
			logging.Int("width", pageBounds.Dx()),
			logging.Int("height", pageBounds.Dy()))
		return nil
	}

	gray := newGrayPlane(page)
	content := gray.subPlane(contentLeft, contentTop, gray.width, gray.height)

	separators := s.findSeparatorBands(content)
	var boundaries []band
	if len(separators) >= 1 {
		// One separator already splits the content into a leading and a
		// trailing card span, so a two-card page needs no fallback.
		boundaries = s.boundariesFromSeparators(separators, content.height)
	} else {
		s.logger.Debug("no separator bands found, trying avatar detection")
		boundaries = s.boundariesFromAvatars(findAvatarCenters(content), content.height)
	}

	cards := make([]CardRegion, 0, len(boundaries))
	for _, boundary := range boundaries {
		height := boundary.end - boundary.start
		if height < s.page.MinCardHeight {
			continue
		}
		bounds := image.Rect(
			pageBounds.Min.X+contentLeft,
			pageBounds.Min.Y+contentTop+boundary.start,
			pageBounds.Max.X,
			pageBounds.Min.Y+contentTop+boundary.end,
		)
		approve, decline := s.localizeControls(page, bounds)
		cards = append(cards, CardRegion{
			Index:          len(cards),
			Bounds:         bounds,
			ApproveControl: approve,
			DeclineControl: decline,
		})
	}

	s.logger.Debug("segmentation complete",
		logging.Int("separators", len(separators)),
		logging.Int("cards", len(cards)))
	return cards
}

// Crop copies a page rectangle into a standalone image, for caching card
// templates and building notification snapshots.
func Crop(page image.Image, bounds image.Rectangle) *image.RGBA {
	bounds = bounds.Intersect(page.Bounds())
	crop := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(crop, crop.Bounds(), page, bounds.Min, draw.Src)
	return crop
}
