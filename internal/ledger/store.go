package ledger

import (
	"sort"
	"time"

	"github.com/ignite/adreport-ingest/internal/datanorm"
	"github.com/ignite/adreport-ingest/internal/report"
)

// Store keeps the latest bundle per platform and report type.
type Store struct {
	Platforms   map[datanorm.Platform]map[string]report.Bundle `json:"platforms"`
	LastUpdated time.Time                                      `json:"last_updated"`
	ReportCount int                                            `json:"report_count"`
}

// NewStore returns an empty store.
func NewStore() Store {
	return Store{Platforms: make(map[datanorm.Platform]map[string]report.Bundle)}
}

// Clone returns a deep copy. Record values are scalars and are shared.
func (s Store) Clone() Store {
	out := Store{
		Platforms:   make(map[datanorm.Platform]map[string]report.Bundle, len(s.Platforms)),
		LastUpdated: s.LastUpdated,
		ReportCount: s.ReportCount,
	}
	for p, byType := range s.Platforms {
		m := make(map[string]report.Bundle, len(byType))
		for rt, b := range byType {
			m[rt] = cloneBundle(b)
		}
		out.Platforms[p] = m
	}
	return out
}

func cloneBundle(b report.Bundle) report.Bundle {
	c := b
	c.Headers = cloneStrings(b.Headers)
	if b.Records != nil {
		c.Records = make([]report.Record, len(b.Records))
		for i, r := range b.Records {
			rec := make(report.Record, len(r))
			for k, v := range r {
				rec[k] = v
			}
			c.Records[i] = rec
		}
	}
	c.Meta.Dates = cloneStrings(b.Meta.Dates)
	if b.Meta.TotalSpend != nil {
		v := *b.Meta.TotalSpend
		c.Meta.TotalSpend = &v
	}
	if b.Meta.DateRange != nil {
		dr := *b.Meta.DateRange
		c.Meta.DateRange = &dr
	}
	return c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append(make([]string, 0, len(s)), s...)
}

// Key identifies one bundle.
type Key struct {
	Platform   datanorm.Platform
	ReportType string
}

// Keys returns every (platform, report type) pair in sorted order.
func (s Store) Keys() []Key {
	var keys []Key
	for p, byType := range s.Platforms {
		for rt := range byType {
			keys = append(keys, Key{Platform: p, ReportType: rt})
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Platform != keys[j].Platform {
			return keys[i].Platform < keys[j].Platform
		}
		return keys[i].ReportType < keys[j].ReportType
	})
	return keys
}

// Bundle looks up one stored bundle.
func (s Store) Bundle(k Key) (report.Bundle, bool) {
	b, ok := s.Platforms[k.Platform][k.ReportType]
	return b, ok
}

// MergeTier2 replaces each result's bundle in a copy of s. Later results
// for the same key win. LastUpdated only moves forward, so merging the
// same results twice gives the same store.
func MergeTier2(s Store, results []report.Tier2Result) Store {
	out := s.Clone()
	for _, r := range results {
		b := cloneBundle(r.Bundle)
		p := b.Platform
		if p == "" {
			p = r.Platform
			b.Platform = p
		}
		rt := b.ReportType
		if rt == "" {
			rt = r.Type
			b.ReportType = rt
		}
		byType := out.Platforms[p]
		if byType == nil {
			byType = make(map[string]report.Bundle)
			out.Platforms[p] = byType
		}
		byType[rt] = b
		if b.Meta.UploadedAt.After(out.LastUpdated) {
			out.LastUpdated = b.Meta.UploadedAt
		}
	}
	out.ReportCount = countReports(out)
	return out
}

func countReports(s Store) int {
	n := 0
	for _, byType := range s.Platforms {
		n += len(byType)
	}
	return n
}
