package ingest

import (
	"sort"

	"github.com/ignite/adreport-ingest/internal/datanorm"
)

// SummaryEntry is one recognized report, flattened for display.
type SummaryEntry struct {
	Type     string            `json:"type"`
	Label    string            `json:"label"`
	Platform datanorm.Platform `json:"platform"`
	Tier     datanorm.Tier     `json:"tier"`
	FileName string            `json:"file_name"`
}

// Summary describes one ProcessFiles call.
type Summary struct {
	RunID             string              `json:"run_id"`
	FilesProcessed    int                 `json:"files_processed"`
	Tier1Count        int                 `json:"tier1_count"`
	Tier2Count        int                 `json:"tier2_count"`
	UnrecognizedCount int                 `json:"unrecognized_count"`
	Platforms         []datanorm.Platform `json:"platforms"`
	Reports           []SummaryEntry      `json:"reports"`
}

func summarize(runID string, files int, r *Result) Summary {
	s := Summary{
		RunID:             runID,
		FilesProcessed:    files,
		Tier1Count:        len(r.Tier1),
		Tier2Count:        len(r.Tier2),
		UnrecognizedCount: len(r.Unrecognized),
		Platforms:         []datanorm.Platform{},
		Reports:           make([]SummaryEntry, 0, len(r.Tier1)+len(r.Tier2)),
	}

	seen := make(map[datanorm.Platform]bool)
	add := func(e SummaryEntry) {
		s.Reports = append(s.Reports, e)
		if !seen[e.Platform] {
			seen[e.Platform] = true
			s.Platforms = append(s.Platforms, e.Platform)
		}
	}
	for _, t := range r.Tier1 {
		add(SummaryEntry{Type: t.Type, Label: t.Label, Platform: t.Platform, Tier: datanorm.TierDaily, FileName: t.FileName})
	}
	for _, t := range r.Tier2 {
		add(SummaryEntry{Type: t.Type, Label: t.Label, Platform: t.Platform, Tier: datanorm.TierDetail, FileName: t.FileName})
	}
	sort.Slice(s.Platforms, func(i, j int) bool { return s.Platforms[i] < s.Platforms[j] })
	return s
}
