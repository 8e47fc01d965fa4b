package segment

import "image"

// Control filter constants, calibrated on the platform's light theme. The
// approve control is a saturated blue pill, the decline control a light
// gray one barely distinct from the card background.
const (
	controlMinArea     = 1000
	controlMinWidth    = 50
	controlMinHeight   = 25
	controlMinAspect   = 1.5
	controlMaxAspect   = 6.0
	controlMaxYSkew    = 20
	geometricBoxWidth  = 120
	geometricBoxHeight = 32

	blueHueMin        = 100
	blueHueMax        = 120
	blueSaturationMin = 150
	blueValueMin      = 150

	graySaturationMax = 25
	grayValueMin      = 210
	grayValueMax      = 248
)

// localizeControls finds the approve and decline controls inside a card.
// Color detection wins when it produces a plausible pill shape; geometry
// from fixed width fractions fills in whatever color could not find.
func (s *Segmenter) localizeControls(page image.Image, card image.Rectangle) (approve, decline image.Rectangle) {
	approve, decline = s.geometricControls(card)

	colorApprove, approveFound := largestRegion(page, card, isApproveBlue, image.Rectangle{})
	if approveFound {
		approve = colorApprove
	}
	// The gray mask also matches card chrome, so decline candidates must
	// sit on the same row as the approve control when one is known.
	align := image.Rectangle{}
	if approveFound {
		align = colorApprove
	}
	colorDecline, declineFound := largestRegion(page, card, isDeclineGray, align)
	if declineFound {
		decline = colorDecline
	}
	return approve, decline
}

// geometricControls derives control boxes from card width fractions and a
// fixed vertical offset from the card top.
func (s *Segmenter) geometricControls(card image.Rectangle) (approve, decline image.Rectangle) {
	width := card.Dx()
	approveCenter := image.Point{
		X: card.Min.X + int(float64(width)*s.page.ApproveXFraction),
		Y: card.Min.Y + s.page.ControlYOffset,
	}
	declineCenter := image.Point{
		X: card.Min.X + int(float64(width)*s.page.DeclineXFraction),
		Y: card.Min.Y + s.page.ControlYOffset,
	}
	return boxAround(approveCenter), boxAround(declineCenter)
}

func boxAround(center image.Point) image.Rectangle {
	return image.Rect(
		center.X-geometricBoxWidth/2,
		center.Y-geometricBoxHeight/2,
		center.X+geometricBoxWidth/2,
		center.Y+geometricBoxHeight/2,
	)
}

func isApproveBlue(h, s, v float64) bool {
	return h >= blueHueMin && h <= blueHueMax && s >= blueSaturationMin && v >= blueValueMin
}

func isDeclineGray(h, s, v float64) bool {
	return s <= graySaturationMax && v >= grayValueMin && v <= grayValueMax
}

// largestRegion finds the biggest connected component inside card whose
// pixels satisfy match and whose bounding box is control-shaped. When align
// is non-empty, candidates vertically offset from it are discarded.
func largestRegion(page image.Image, card image.Rectangle, match func(h, s, v float64) bool, align image.Rectangle) (image.Rectangle, bool) {
	card = card.Intersect(page.Bounds())
	width, height := card.Dx(), card.Dy()
	if width <= 0 || height <= 0 {
		return image.Rectangle{}, false
	}

	mask := make([]bool, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := page.At(card.Min.X+x, card.Min.Y+y).RGBA()
			h, s, v := rgbToHSV(uint8(r>>8), uint8(g>>8), uint8(b>>8))
			mask[y*width+x] = match(h, s, v)
		}
	}

	visited := make([]bool, width*height)
	var best image.Rectangle
	bestArea := 0

	for startY := 0; startY < height; startY++ {
		for startX := 0; startX < width; startX++ {
			idx := startY*width + startX
			if !mask[idx] || visited[idx] {
				continue
			}
			box := floodBounds(mask, visited, width, height, startX, startY)

			boxWidth, boxHeight := box.Dx(), box.Dy()
			area := boxWidth * boxHeight
			if area < controlMinArea || boxWidth < controlMinWidth || boxHeight < controlMinHeight {
				continue
			}
			aspect := float64(boxWidth) / float64(boxHeight)
			if aspect <= controlMinAspect || aspect >= controlMaxAspect {
				continue
			}
			absolute := box.Add(card.Min)
			if !align.Empty() {
				skew := rectCenter(absolute).Y - rectCenter(align).Y
				if skew < -controlMaxYSkew || skew > controlMaxYSkew {
					continue
				}
			}
			if area > bestArea {
				bestArea = area
				best = absolute
			}
		}
	}
	return best, bestArea > 0
}

// floodBounds walks a 4-connected component and returns its bounding box
// in card-local coordinates.
func floodBounds(mask, visited []bool, width, height, startX, startY int) image.Rectangle {
	stack := []image.Point{{X: startX, Y: startY}}
	visited[startY*width+startX] = true
	box := image.Rect(startX, startY, startX+1, startY+1)

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < box.Min.X {
			box.Min.X = p.X
		}
		if p.Y < box.Min.Y {
			box.Min.Y = p.Y
		}
		if p.X+1 > box.Max.X {
			box.Max.X = p.X + 1
		}
		if p.Y+1 > box.Max.Y {
			box.Max.Y = p.Y + 1
		}

		for _, d := range [4]image.Point{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}} {
			nx, ny := p.X+d.X, p.Y+d.Y
			if nx < 0 || nx >= width || ny < 0 || ny >= height {
				continue
			}
			idx := ny*width + nx
			if mask[idx] && !visited[idx] {
				visited[idx] = true
				stack = append(stack, image.Point{X: nx, Y: ny})
			}
		}
	}
	return box
}

// rgbToHSV converts to HSV with hue on a half-degree scale (0-180) and
// saturation/value on 0-255, matching the calibration constants above.
func rgbToHSV(r, g, b uint8) (h, s, v float64) {
	rf, gf, bf := float64(r), float64(g), float64(b)

	maxC := rf
	if gf > maxC {
		maxC = gf
	}
	if bf > maxC {
		maxC = bf
	}
	minC := rf
	if gf < minC {
		minC = gf
	}
	if bf < minC {
		minC = bf
	}

	v = maxC
	delta := maxC - minC
	if maxC > 0 {
		s = delta / maxC * 255
	}
	if delta == 0 {
		return 0, s, v
	}

	switch maxC {
	case rf:
		h = 30 * (gf - bf) / delta
	case gf:
		h = 60 + 30*(bf-rf)/delta
	default:
		h = 120 + 30*(rf-gf)/delta
	}
	if h < 0 {
		h += 180
	}
	return h, s, v
}
