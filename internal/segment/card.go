package segment

import "image"

// CardRegion is one detected request card in absolute page coordinates.
// Regions are produced fresh each poll cycle and never persisted; only the
// bounds survive into the decision store for later re-location.
type CardRegion struct {
	Index          int
	Bounds         image.Rectangle
	ApproveControl image.Rectangle
	DeclineControl image.Rectangle
}

// Height returns the card height in pixels.
func (c CardRegion) Height() int {
	return c.Bounds.Dy()
}

// ApproveCenter returns the click target for the approve control.
func (c CardRegion) ApproveCenter() image.Point {
	return rectCenter(c.ApproveControl)
}

// DeclineCenter returns the click target for the decline control.
func (c CardRegion) DeclineCenter() image.Point {
	return rectCenter(c.DeclineControl)
}

func rectCenter(r image.Rectangle) image.Point {
	return image.Point{
		X: r.Min.X + r.Dx()/2,
		Y: r.Min.Y + r.Dy()/2,
	}
}
