package browser

import (
	"context"
	"image"
)

// Surface is the page observer/actuator capability the pipeline needs.
type Surface interface {
	// CapturePage returns a full-page screenshot of the request list.
	CapturePage(ctx context.Context) (image.Image, error)
	// Click presses the page at an absolute coordinate.
	Click(ctx context.Context, at image.Point) error
	// Navigate loads a URL, typically the request list before a cycle.
	Navigate(ctx context.Context, url string) error
}
