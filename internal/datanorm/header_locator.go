package datanorm

import "strings"

// DefaultHeaderScan is how many leading rows LocateHeaderRow inspects.
const DefaultHeaderScan = 5

// maxSampledHeaders caps the headers carried by an unrecognized result.
const maxSampledHeaders = 10

// Markers that identify the metadata row of search-query-performance exports.
var twoRowHeaderMarkers = []string{"Brand=", "Reporting Range="}

// LocateHeaderRow returns the index of the row with the most non-blank
// cells among the first maxScan rows. Ties keep the earlier row.
func LocateHeaderRow(rows [][]Cell, maxScan int) int {
	if maxScan <= 0 {
		maxScan = DefaultHeaderScan
	}
	best, bestCount := 0, -1
	for i := 0; i < len(rows) && i < maxScan; i++ {
		n := 0
		for _, c := range rows[i] {
			if !IsBlank(c) {
				n++
			}
		}
		if n > bestCount {
			best, bestCount = i, n
		}
	}
	return best
}

// SplitSheet separates the header row from the data rows. When the located
// row is itself a Brand=/Reporting Range= metadata row, row 1 is the header
// and data starts at row 2. Fully blank data rows are dropped.
func SplitSheet(rows [][]Cell) (headers []string, data [][]Cell) {
	if len(rows) == 0 {
		return nil, nil
	}
	idx := LocateHeaderRow(rows, DefaultHeaderScan)
	if isMetadataRow(rows[idx]) {
		if len(rows) < 2 {
			return nil, nil
		}
		idx = 1
	}

	headerRow := rows[idx]
	headers = make([]string, len(headerRow))
	for i, c := range headerRow {
		headers[i] = strings.TrimSpace(CellString(c))
	}

	for _, r := range rows[idx+1:] {
		if blankRow(r) {
			continue
		}
		data = append(data, r)
	}
	return headers, data
}

func isMetadataRow(row []Cell) bool {
	for _, c := range row {
		s, ok := c.(string)
		if !ok {
			continue
		}
		for _, m := range twoRowHeaderMarkers {
			if strings.Contains(s, m) {
				return true
			}
		}
	}
	return false
}

func blankRow(r []Cell) bool {
	for _, c := range r {
		if !IsBlank(c) {
			return false
		}
	}
	return true
}

// ClassifySheet locates the header row of a raw sheet and classifies it.
func (r *Registry) ClassifySheet(rows [][]Cell) Classification {
	headers, data := SplitSheet(rows)
	sig := r.Classify(headers)
	if sig == nil {
		return Classification{
			Headers:  sampleHeaders(headers),
			RowCount: len(data),
		}
	}
	return Classification{
		Signature: sig,
		Headers:   headers,
		Rows:      data,
		RowCount:  len(data),
	}
}

// sampleHeaders keeps the first non-blank headers for diagnostics.
func sampleHeaders(headers []string) []string {
	out := make([]string, 0, maxSampledHeaders)
	for _, h := range headers {
		if h == "" {
			continue
		}
		out = append(out, h)
		if len(out) == maxSampledHeaders {
			break
		}
	}
	return out
}
