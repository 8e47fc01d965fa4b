package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeKey derives the identity key for a display name: NFKC
// normalization, whitespace collapse, and lower-casing. OCR noise outside
// letters, digits, spaces, and a few name punctuation marks is dropped.
func NormalizeKey(name string) string {
	name = norm.NFKC.String(name)
	var b strings.Builder
	b.Grow(len(name))
	lastSpace := true
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '-':
			b.WriteRune(unicode.ToLower(r))
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// LongestAlphabeticRun returns the longest contiguous run of letters,
// spaces, apostrophes, and hyphens in the input. OCR on partially occluded
// labels (emoji inside names) yields fragments; the longest run is the
// best candidate for the actual name. Lone letters stranded at the edges
// of the run, typically the tail of an adjacent counter, are dropped.
func LongestAlphabeticRun(text string) string {
	runes := []rune(norm.NFKC.String(text))
	bestStart, bestEnd := 0, 0
	runStart := -1
	flush := func(runEnd int) {
		if runStart < 0 {
			return
		}
		start, end := trimSpaces(runes, runStart, runEnd)
		if end-start > bestEnd-bestStart {
			bestStart, bestEnd = start, end
		}
		runStart = -1
	}
	for i, r := range runes {
		if unicode.IsLetter(r) || r == ' ' || r == '\'' || r == '-' {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		flush(i)
	}
	flush(len(runes))
	return dropStrayEdgeTokens(string(runes[bestStart:bestEnd]))
}

// NamesMatch reports whether two display names refer to the same identity
// once normalized. One-sided containment also counts: OCR occasionally
// truncates a trailing surname fragment between cycles.
func NamesMatch(a, b string) bool {
	ka, kb := NormalizeKey(a), NormalizeKey(b)
	if ka == "" || kb == "" {
		return false
	}
	if ka == kb {
		return true
	}
	shorter, longer := ka, kb
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	return len(shorter) >= 5 && strings.Contains(longer, shorter)
}

func trimSpaces(runes []rune, start, end int) (int, int) {
	for start < end && runes[start] == ' ' {
		start++
	}
	for end > start && runes[end-1] == ' ' {
		end--
	}
	return start, end
}

// dropStrayEdgeTokens removes one-letter tokens at either end of a run.
// Counters like "12x" or "3h" leave a detached letter behind once the
// digits are cut out of the run.
func dropStrayEdgeTokens(run string) string {
	fields := strings.Fields(run)
	for len(fields) > 1 && len([]rune(fields[0])) == 1 {
		fields = fields[1:]
	}
	for len(fields) > 1 && len([]rune(fields[len(fields)-1])) == 1 {
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}
