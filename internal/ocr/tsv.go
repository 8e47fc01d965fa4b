package ocr

import (
	"strconv"
	"strings"
)

// Tesseract TSV columns.
const (
	tsvColumns  = 12
	colPage     = 1
	colBlock    = 2
	colParagrph = 3
	colLine     = 4
	colConf     = 10
	colText     = 11
)

// parseTSV assembles Tesseract word rows into lines. Rows with negative
// confidence are structural (page, block, line markers), not words, and
// are skipped. Line confidence is the mean of its word confidences,
// rescaled from Tesseract's 0-100 range to [0, 1].
func parseTSV(data []byte) []TextLine {
	type lineKey struct {
		page, block, paragraph, line int
	}
	type lineAcc struct {
		words   []string
		confSum float64
		order   int
	}

	accumulators := make(map[lineKey]*lineAcc)
	var keys []lineKey

	rows := strings.Split(string(data), "\n")
	for i, row := range rows {
		if i == 0 || strings.TrimSpace(row) == "" {
			continue // header or trailing blank
		}
		fields := strings.Split(row, "\t")
		if len(fields) < tsvColumns {
			continue
		}

		conf, err := strconv.ParseFloat(fields[colConf], 64)
		if err != nil || conf < 0 {
			continue
		}
		word := strings.TrimSpace(fields[colText])
		if word == "" {
			continue
		}

		key := lineKey{
			page:      atoiOrZero(fields[colPage]),
			block:     atoiOrZero(fields[colBlock]),
			paragraph: atoiOrZero(fields[colParagrph]),
			line:      atoiOrZero(fields[colLine]),
		}
		acc, ok := accumulators[key]
		if !ok {
			acc = &lineAcc{order: len(keys)}
			accumulators[key] = acc
			keys = append(keys, key)
		}
		acc.words = append(acc.words, word)
		acc.confSum += conf
	}

	lines := make([]TextLine, 0, len(keys))
	for _, key := range keys {
		acc := accumulators[key]
		lines = append(lines, TextLine{
			Text:       strings.Join(acc.words, " "),
			Confidence: acc.confSum / float64(len(acc.words)) / 100,
		})
	}
	return lines
}

func atoiOrZero(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return n
}
