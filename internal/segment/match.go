package segment

import (
	"image"
	"math"
)

// Fraction of the card width used as the re-acquisition template. Matching
// only the left side (avatar and name) avoids false positives from the
// identical control row every card carries on the right.
const templateWidthFraction = 0.60

// MatchResult is the outcome of re-locating a cached card crop on a fresh
// screenshot.
type MatchResult struct {
	// Location is the top-left corner of the best match on the screen.
	Location image.Point
	// Score is the normalized correlation of the best match, in [-1, 1].
	Score float64
	// Found reports whether Score cleared the configured threshold.
	Found bool
}

// Reacquire locates a previously captured card crop on a new screenshot.
// A score below the rematch threshold means the card is gone, which after
// an actuation is the expected outcome, not an error.
func (s *Segmenter) Reacquire(screen, cardCrop image.Image) MatchResult {
	screenGray := newGrayPlane(screen)
	cardGray := newGrayPlane(cardCrop)

	templateWidth := int(float64(cardGray.width) * templateWidthFraction)
	if templateWidth < 1 {
		templateWidth = cardGray.width
	}
	template := cardGray.subPlane(0, 0, templateWidth, cardGray.height)

	if template.width > screenGray.width || template.height > screenGray.height {
		return MatchResult{}
	}

	location, score := matchTemplate(screenGray, template)
	return MatchResult{
		Location: location,
		Score:    score,
		Found:    score >= s.page.RematchThreshold,
	}
}

// matchTemplate slides template over screen and returns the offset with the
// highest zero-mean normalized cross correlation.
func matchTemplate(screen, template *grayPlane) (image.Point, float64) {
	templateMean := planeMean(template)
	templateNorm := 0.0
	templateDelta := make([]float64, len(template.pix))
	for i, pixel := range template.pix {
		delta := float64(pixel) - templateMean
		templateDelta[i] = delta
		templateNorm += delta * delta
	}
	if templateNorm == 0 {
		return image.Point{}, 0
	}

	best := image.Point{}
	bestScore := math.Inf(-1)

	maxX := screen.width - template.width
	maxY := screen.height - template.height
	for offsetY := 0; offsetY <= maxY; offsetY++ {
		for offsetX := 0; offsetX <= maxX; offsetX++ {
			score := correlationAt(screen, template, templateDelta, templateNorm, offsetX, offsetY)
			if score > bestScore {
				bestScore = score
				best = image.Point{X: offsetX, Y: offsetY}
			}
		}
	}
	return best, bestScore
}

func correlationAt(screen, template *grayPlane, templateDelta []float64, templateNorm float64, offsetX, offsetY int) float64 {
	var windowSum float64
	for y := 0; y < template.height; y++ {
		row := screen.pix[(offsetY+y)*screen.width+offsetX:]
		for x := 0; x < template.width; x++ {
			windowSum += float64(row[x])
		}
	}
	windowMean := windowSum / float64(template.width*template.height)

	var crossSum, windowNorm float64
	for y := 0; y < template.height; y++ {
		row := screen.pix[(offsetY+y)*screen.width+offsetX:]
		deltaRow := templateDelta[y*template.width:]
		for x := 0; x < template.width; x++ {
			windowDelta := float64(row[x]) - windowMean
			crossSum += windowDelta * deltaRow[x]
			windowNorm += windowDelta * windowDelta
		}
	}
	if windowNorm == 0 {
		return 0
	}
	return crossSum / math.Sqrt(windowNorm*templateNorm)
}

func planeMean(g *grayPlane) float64 {
	var sum float64
	for _, pixel := range g.pix {
		sum += float64(pixel)
	}
	return sum / float64(len(g.pix))
}
