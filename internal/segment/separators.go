package segment

// band is a vertical span [start, end] of rows, inclusive.
type band struct {
	start int
	end   int
}

const (
	// Rows further apart than this belong to different separator bands.
	separatorMaxGap = 10
	// Bands thinner than this are text baselines or noise, not separators.
	separatorMinThickness = 5
)

// findSeparatorBands scans every row of the content area for uniform,
// light-gray rows and groups consecutive hits into bands.
func (s *Segmenter) findSeparatorBands(content *grayPlane) []band {
	var hits []int
	for y := 0; y < content.height; y++ {
		mean, stddev := content.rowStats(y)
		uniform := stddev < s.page.SeparatorMaxStddev
		separatorColored := mean > s.page.SeparatorMinLuma && mean < s.page.SeparatorMaxLuma
		if uniform && separatorColored {
			hits = append(hits, y)
		}
	}
	if len(hits) == 0 {
		return nil
	}

	var bands []band
	current := band{start: hits[0], end: hits[0]}
	for _, y := range hits[1:] {
		if y-current.end > separatorMaxGap {
			bands = append(bands, current)
			current = band{start: y, end: y}
			continue
		}
		current.end = y
	}
	bands = append(bands, current)

	significant := bands[:0]
	for _, b := range bands {
		if b.end-b.start >= separatorMinThickness {
			significant = append(significant, b)
		}
	}
	return significant
}

// boundariesFromSeparators converts separator bands into card spans. Cards
// live between consecutive separators, plus a leading span above the first
// separator and a trailing span below the last, when tall enough.
func (s *Segmenter) boundariesFromSeparators(separators []band, contentHeight int) []band {
	var boundaries []band
	for i := 0; i < len(separators)-1; i++ {
		cardStart := separators[i].end + 1
		cardEnd := separators[i+1].start
		if cardEnd-cardStart >= s.page.MinCardHeight {
			boundaries = append(boundaries, band{start: cardStart, end: cardEnd})
		}
	}

	if separators[0].start > s.page.MinCardHeight {
		boundaries = append([]band{{start: 0, end: separators[0].start}}, boundaries...)
	}
	lastEnd := separators[len(separators)-1].end
	if contentHeight-lastEnd > s.page.MinCardHeight {
		boundaries = append(boundaries, band{start: lastEnd + 1, end: contentHeight})
	}
	return boundaries
}
