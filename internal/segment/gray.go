package segment

import (
	"image"
	"math"
)

// grayPlane is a flat 8-bit luma buffer. All detectors work on it so the
// RGB to luma conversion happens once per screenshot.
type grayPlane struct {
	pix    []uint8
	width  int
	height int
}

func newGrayPlane(img image.Image) *grayPlane {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := &grayPlane{
		pix:    make([]uint8, width*height),
		width:  width,
		height: height,
	}

	switch src := img.(type) {
	case *image.RGBA:
		for y := 0; y < height; y++ {
			row := src.Pix[(y+bounds.Min.Y-src.Rect.Min.Y)*src.Stride:]
			for x := 0; x < width; x++ {
				offset := (x + bounds.Min.X - src.Rect.Min.X) * 4
				plane.pix[y*width+x] = lumaFromRGB(row[offset], row[offset+1], row[offset+2])
			}
		}
	case *image.NRGBA:
		for y := 0; y < height; y++ {
			row := src.Pix[(y+bounds.Min.Y-src.Rect.Min.Y)*src.Stride:]
			for x := 0; x < width; x++ {
				offset := (x + bounds.Min.X - src.Rect.Min.X) * 4
				plane.pix[y*width+x] = lumaFromRGB(row[offset], row[offset+1], row[offset+2])
			}
		}
	default:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				plane.pix[y*width+x] = lumaFromRGB(uint8(r>>8), uint8(g>>8), uint8(b>>8))
			}
		}
	}
	return plane
}

func lumaFromRGB(r, g, b uint8) uint8 {
	return uint8((299*uint32(r) + 587*uint32(g) + 114*uint32(b) + 500) / 1000)
}

func (g *grayPlane) at(x, y int) uint8 {
	return g.pix[y*g.width+x]
}

// subPlane returns a view-copy of the rectangle [x0,x1) x [y0,y1).
func (g *grayPlane) subPlane(x0, y0, x1, y1 int) *grayPlane {
	x0 = clampInt(x0, 0, g.width)
	x1 = clampInt(x1, x0, g.width)
	y0 = clampInt(y0, 0, g.height)
	y1 = clampInt(y1, y0, g.height)

	sub := &grayPlane{
		pix:    make([]uint8, (x1-x0)*(y1-y0)),
		width:  x1 - x0,
		height: y1 - y0,
	}
	for y := y0; y < y1; y++ {
		copy(sub.pix[(y-y0)*sub.width:], g.pix[y*g.width+x0:y*g.width+x1])
	}
	return sub
}

// rowStats returns mean and standard deviation of luma across row y.
func (g *grayPlane) rowStats(y int) (mean, stddev float64) {
	if g.width == 0 {
		return 0, 0
	}
	row := g.pix[y*g.width : (y+1)*g.width]

	var sum, sumSq float64
	for _, pixel := range row {
		value := float64(pixel)
		sum += value
		sumSq += value * value
	}
	n := float64(len(row))
	mean = sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}

func clampInt(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
