package segment

import (
	"math"
	"sort"
)

const (
	avatarMinRadius    = 20
	avatarMaxRadius    = 50
	avatarMinDistance  = 100
	avatarEdgeGradient = 50
	avatarMinVotes     = 30
	// Cards start a little above the avatar and end short of the next one.
	avatarTopMargin    = 50
	avatarBottomMargin = 20
)

// findAvatarCenters locates circular avatar glyphs with a gradient-vote
// circle transform: every strong edge pixel votes for the candidate centers
// that lie along its gradient direction at avatar-sized radii.
func findAvatarCenters(content *grayPlane) []int {
	width, height := content.width, content.height
	if width < 3 || height < 3 {
		return nil
	}

	accumulator := make([]int32, width*height)
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			gx, gy := sobelAt(content, x, y)
			magnitude := math.Hypot(gx, gy)
			if magnitude < avatarEdgeGradient {
				continue
			}
			dirX, dirY := gx/magnitude, gy/magnitude
			// Vote both inward and outward; the avatar interior may be
			// lighter or darker than the card background.
			for r := avatarMinRadius; r <= avatarMaxRadius; r++ {
				castVote(accumulator, width, height, x+int(dirX*float64(r)), y+int(dirY*float64(r)))
				castVote(accumulator, width, height, x-int(dirX*float64(r)), y-int(dirY*float64(r)))
			}
		}
	}

	type peak struct {
		x, y  int
		votes int32
	}
	var peaks []peak
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if votes := accumulator[y*width+x]; votes >= avatarMinVotes {
				peaks = append(peaks, peak{x: x, y: y, votes: votes})
			}
		}
	}
	sort.Slice(peaks, func(i, j int) bool { return peaks[i].votes > peaks[j].votes })

	// Greedy non-maximum suppression with a minimum center distance.
	var centers []peak
	for _, candidate := range peaks {
		tooClose := false
		for _, kept := range centers {
			dx, dy := float64(candidate.x-kept.x), float64(candidate.y-kept.y)
			if math.Hypot(dx, dy) < avatarMinDistance {
				tooClose = true
				break
			}
		}
		if !tooClose {
			centers = append(centers, candidate)
		}
	}

	ys := make([]int, len(centers))
	for i, c := range centers {
		ys[i] = c.y
	}
	sort.Ints(ys)
	return ys
}

func sobelAt(g *grayPlane, x, y int) (gx, gy float64) {
	tl, tc, tr := float64(g.at(x-1, y-1)), float64(g.at(x, y-1)), float64(g.at(x+1, y-1))
	ml, mr := float64(g.at(x-1, y)), float64(g.at(x+1, y))
	bl, bc, br := float64(g.at(x-1, y+1)), float64(g.at(x, y+1)), float64(g.at(x+1, y+1))

	gx = (tr + 2*mr + br) - (tl + 2*ml + bl)
	gy = (bl + 2*bc + br) - (tl + 2*tc + tr)
	return gx, gy
}

func castVote(accumulator []int32, width, height, x, y int) {
	if x < 0 || x >= width || y < 0 || y >= height {
		return
	}
	accumulator[y*width+x]++
}

// boundariesFromAvatars infers card spans from avatar vertical pitch.
func (s *Segmenter) boundariesFromAvatars(avatarYs []int, contentHeight int) []band {
	var boundaries []band
	for i, centerY := range avatarYs {
		start := centerY - avatarTopMargin
		if start < 0 {
			start = 0
		}
		var end int
		if i < len(avatarYs)-1 {
			end = avatarYs[i+1] - avatarBottomMargin
			if end < start+s.page.MinCardHeight {
				end = start + s.page.MinCardHeight
			}
		} else {
			end = start + s.page.MaxCardHeight
			if end > contentHeight {
				end = contentHeight
			}
		}
		boundaries = append(boundaries, band{start: start, end: end})
	}
	return boundaries
}
