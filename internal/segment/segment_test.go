package segment

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"doorman/internal/config"
)

func testPage() config.Page {
	return config.Page{
		SidebarWidth:       20,
		HeaderHeight:       10,
		SeparatorMaxStddev: 15.0,
		SeparatorMinLuma:   200,
		SeparatorMaxLuma:   245,
		MinCardHeight:      40,
		MaxCardHeight:      200,
		RematchThreshold:   0.7,
		ApproveXFraction:   0.556,
		DeclineXFraction:   0.671,
		ControlYOffset:     20,
	}
}

func fill(img *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// newListPage builds a synthetic screenshot: sidebar and header filled with
// a dark tone, white cards separated by uniform gray bands.
func newListPage(cardHeights []int, separatorHeight int) (*image.RGBA, config.Page) {
	page := testPage()

	contentHeight := 0
	for i, h := range cardHeights {
		if i > 0 {
			contentHeight += separatorHeight
		}
		contentHeight += h
	}

	width := page.SidebarWidth + 300
	height := page.HeaderHeight + contentHeight
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	separatorGray := color.RGBA{R: 228, G: 230, B: 235, A: 255}
	chrome := color.RGBA{R: 60, G: 70, B: 90, A: 255}

	fill(img, img.Bounds(), chrome)

	y := page.HeaderHeight
	for i, h := range cardHeights {
		if i > 0 {
			fill(img, image.Rect(page.SidebarWidth, y, width, y+separatorHeight), separatorGray)
			y += separatorHeight
		}
		fill(img, image.Rect(page.SidebarWidth, y, width, y+h), white)
		y += h
	}
	return img, page
}

func TestSegmentSeparatedCards(t *testing.T) {
	img, page := newListPage([]int{60, 60, 60}, 6)
	segmenter := New(page, nil)

	cards := segmenter.Segment(img)
	if len(cards) != 3 {
		t.Fatalf("expected 3 cards, got %d", len(cards))
	}

	for i, card := range cards {
		if card.Index != i {
			t.Errorf("card %d has index %d", i, card.Index)
		}
		if i > 0 && card.Bounds.Min.Y <= cards[i-1].Bounds.Min.Y {
			t.Errorf("cards out of top-to-bottom order at %d", i)
		}
		if card.Bounds.Min.X != page.SidebarWidth {
			t.Errorf("card %d starts at x=%d, want sidebar edge %d", i, card.Bounds.Min.X, page.SidebarWidth)
		}
		if h := card.Height(); h < 55 || h > 65 {
			t.Errorf("card %d height %d, expected about 60", i, h)
		}
	}

	if first := cards[0].Bounds.Min.Y; first != page.HeaderHeight {
		t.Errorf("first card top %d, want content top %d", first, page.HeaderHeight)
	}
}

func TestSegmentTwoCardsSingleSeparator(t *testing.T) {
	// A two-card list has exactly one separator band; the spans above and
	// below it must both surface as cards.
	img, page := newListPage([]int{70, 70}, 6)
	cards := New(page, nil).Segment(img)
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(cards))
	}
	if top := cards[0].Bounds.Min.Y; top != page.HeaderHeight {
		t.Errorf("first card top %d, want content top %d", top, page.HeaderHeight)
	}
	if bottom, want := cards[1].Bounds.Max.Y, img.Bounds().Max.Y; bottom != want {
		t.Errorf("second card bottom %d, want page bottom %d", bottom, want)
	}
}

func TestSegmentUniformPageIsEmpty(t *testing.T) {
	page := testPage()
	img := image.NewRGBA(image.Rect(0, 0, 400, 600))
	fill(img, img.Bounds(), color.RGBA{R: 255, G: 255, B: 255, A: 255})

	cards := New(page, nil).Segment(img)
	if len(cards) != 0 {
		t.Fatalf("uniform page must segment to zero cards, got %d", len(cards))
	}
}

func TestSegmentTinyScreenshot(t *testing.T) {
	page := testPage()
	img := image.NewRGBA(image.Rect(0, 0, 10, 5))
	if cards := New(page, nil).Segment(img); len(cards) != 0 {
		t.Fatalf("expected no cards from a screenshot smaller than the crop, got %d", len(cards))
	}
	if cards := New(page, nil).Segment(nil); cards != nil {
		t.Fatal("nil image must yield nil")
	}
}

func TestGeometricControlPlacement(t *testing.T) {
	img, page := newListPage([]int{80, 80}, 6)
	cards := New(page, nil).Segment(img)
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(cards))
	}

	card := cards[0]
	wantApproveX := card.Bounds.Min.X + int(float64(card.Bounds.Dx())*page.ApproveXFraction)
	wantDeclineX := card.Bounds.Min.X + int(float64(card.Bounds.Dx())*page.DeclineXFraction)
	wantY := card.Bounds.Min.Y + page.ControlYOffset

	if got := card.ApproveCenter(); got.X != wantApproveX || got.Y != wantY {
		t.Errorf("approve center %v, want (%d, %d)", got, wantApproveX, wantY)
	}
	if got := card.DeclineCenter(); got.X != wantDeclineX || got.Y != wantY {
		t.Errorf("decline center %v, want (%d, %d)", got, wantDeclineX, wantY)
	}
	if card.ApproveCenter().X >= card.DeclineCenter().X {
		t.Error("approve control must sit left of decline control")
	}
}

func TestColorControlsTakePrecedence(t *testing.T) {
	img, page := newListPage([]int{100, 100}, 6)

	// Paint a blue approve pill and a gray decline pill on the first card,
	// away from where the geometric fallback would place them.
	blue := color.RGBA{B: 255, A: 255}
	gray := color.RGBA{R: 230, G: 230, B: 230, A: 255}
	approvePill := image.Rect(page.SidebarWidth+40, page.HeaderHeight+30, page.SidebarWidth+110, page.HeaderHeight+60)
	declinePill := image.Rect(page.SidebarWidth+130, page.HeaderHeight+30, page.SidebarWidth+200, page.HeaderHeight+60)
	fill(img, approvePill, blue)
	fill(img, declinePill, gray)

	cards := New(page, nil).Segment(img)
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(cards))
	}

	if got := cards[0].ApproveControl; got != approvePill {
		t.Errorf("approve control %v, want painted pill %v", got, approvePill)
	}
	if got := cards[0].DeclineControl; got != declinePill {
		t.Errorf("decline control %v, want painted pill %v", got, declinePill)
	}

	// The second card has no pills and falls back to geometry.
	second := cards[1]
	wantY := second.Bounds.Min.Y + page.ControlYOffset
	if got := second.ApproveCenter().Y; got != wantY {
		t.Errorf("second card approve y %d, want geometric %d", got, wantY)
	}
}

// texturedImage builds a deterministic non-uniform pattern so template
// matching has structure to lock onto.
func texturedImage(r image.Rectangle, seed uint32) *image.RGBA {
	img := image.NewRGBA(r)
	state := seed
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			state = state*1664525 + 1013904223
			v := uint8(state >> 24)
			img.SetRGBA(x, y, color.RGBA{R: v, G: v / 2, B: v / 3, A: 255})
		}
	}
	return img
}

func TestReacquireFindsMovedCard(t *testing.T) {
	pageCfg := testPage()
	segmenter := New(pageCfg, nil)

	cardCrop := texturedImage(image.Rect(0, 0, 80, 40), 7)

	screen := image.NewRGBA(image.Rect(0, 0, 300, 200))
	fill(screen, screen.Bounds(), color.RGBA{R: 255, G: 255, B: 255, A: 255})
	target := image.Pt(90, 120)
	draw.Draw(screen, image.Rectangle{Min: target, Max: target.Add(image.Pt(80, 40))}, cardCrop, image.Point{}, draw.Src)

	result := segmenter.Reacquire(screen, cardCrop)
	if !result.Found {
		t.Fatalf("expected match, score %.3f", result.Score)
	}
	if result.Location != target {
		t.Errorf("match at %v, want %v", result.Location, target)
	}
	if result.Score < 0.95 {
		t.Errorf("exact copy should score near 1.0, got %.3f", result.Score)
	}
}

func TestReacquireMissingCard(t *testing.T) {
	pageCfg := testPage()
	segmenter := New(pageCfg, nil)

	cardCrop := texturedImage(image.Rect(0, 0, 80, 40), 7)
	screen := texturedImage(image.Rect(0, 0, 300, 200), 99)

	result := segmenter.Reacquire(screen, cardCrop)
	if result.Found {
		t.Fatalf("unrelated noise must not clear the threshold, score %.3f", result.Score)
	}
}

func TestReacquireTemplateLargerThanScreen(t *testing.T) {
	segmenter := New(testPage(), nil)
	cardCrop := texturedImage(image.Rect(0, 0, 400, 400), 3)
	screen := texturedImage(image.Rect(0, 0, 100, 100), 5)

	if result := segmenter.Reacquire(screen, cardCrop); result.Found {
		t.Fatal("oversized template cannot match")
	}
}
