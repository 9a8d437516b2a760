// Package ledger holds the long-lived daily ledger and tier-2 store and the
// pure functions that fold batch results into them. Merges never modify
// their inputs.
package ledger

import (
	"sort"
	"time"

	"github.com/ignite/adreport-ingest/internal/datanorm"
	"github.com/ignite/adreport-ingest/internal/report"
)

// DefaultExcerptDays is the window handed to the context builder.
const DefaultExcerptDays = 30

// Day is one calendar date across every platform.
type Day struct {
	Date string `json:"date"`
	// Amazon is written only by the single-row daily export.
	Amazon *report.AmazonDay `json:"amazon,omitempty"`
	// Spend per line-item platform, replaced wholesale on each upload.
	Spend map[datanorm.Platform]float64 `json:"spend,omitempty"`
	// AdsMetrics per line-item platform, merged key by key.
	AdsMetrics map[datanorm.Platform]map[string]float64 `json:"ads_metrics,omitempty"`
}

// PlatformSpend returns the day's spend for one platform.
func (d Day) PlatformSpend(p datanorm.Platform) float64 {
	if p == datanorm.PlatformAmazon {
		if d.Amazon == nil {
			return 0
		}
		return d.Amazon.Spend
	}
	return d.Spend[p]
}

// PlatformRevenue returns attributed revenue: Amazon ad sales or the ads
// conversion value.
func (d Day) PlatformRevenue(p datanorm.Platform) float64 {
	if p == datanorm.PlatformAmazon {
		if d.Amazon == nil {
			return 0
		}
		return d.Amazon.Revenue
	}
	return d.AdsMetrics[p][report.MetricConversionValue]
}

// Platforms lists the platforms with data on this day, sorted.
func (d Day) Platforms() []datanorm.Platform {
	set := make(map[datanorm.Platform]bool)
	if d.Amazon != nil {
		set[datanorm.PlatformAmazon] = true
	}
	for p := range d.Spend {
		set[p] = true
	}
	for p := range d.AdsMetrics {
		set[p] = true
	}
	out := make([]datanorm.Platform, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (d Day) clone() Day {
	c := Day{Date: d.Date}
	if d.Amazon != nil {
		a := *d.Amazon
		c.Amazon = &a
	}
	if d.Spend != nil {
		c.Spend = make(map[datanorm.Platform]float64, len(d.Spend))
		for p, v := range d.Spend {
			c.Spend[p] = v
		}
	}
	if d.AdsMetrics != nil {
		c.AdsMetrics = make(map[datanorm.Platform]map[string]float64, len(d.AdsMetrics))
		for p, m := range d.AdsMetrics {
			c.AdsMetrics[p] = cloneMetrics(m)
		}
	}
	return c
}

func cloneMetrics(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Ledger is keyed by ISO date.
type Ledger map[string]Day

// Clone returns a deep copy.
func (l Ledger) Clone() Ledger {
	out := make(Ledger, len(l))
	for k, d := range l {
		out[k] = d.clone()
	}
	return out
}

// Dates returns the ledger's dates in ascending order.
func (l Ledger) Dates() []string {
	dates := make([]string, 0, len(l))
	for d := range l {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// MergeTier1 folds daily results into a copy of l, in order.
func MergeTier1(l Ledger, results []report.Tier1Result) Ledger {
	out := l.Clone()
	for _, r := range results {
		for date, rec := range r.Days {
			day, ok := out[date]
			if !ok {
				day = Day{Date: date}
			}
			switch v := rec.(type) {
			case report.AmazonDay:
				a := v
				day.Amazon = &a
			case *report.AmazonDay:
				if v != nil {
					a := *v
					day.Amazon = &a
				}
			case report.AdsDay:
				mergeAds(&day, v)
			case *report.AdsDay:
				if v != nil {
					mergeAds(&day, *v)
				}
			}
			out[date] = day
		}
	}
	return out
}

func mergeAds(day *Day, v report.AdsDay) {
	if spend, ok := v.Metrics[report.MetricSpend]; ok {
		if day.Spend == nil {
			day.Spend = make(map[datanorm.Platform]float64)
		}
		day.Spend[v.Source] = spend
	}
	if len(v.Metrics) == 0 {
		return
	}
	if day.AdsMetrics == nil {
		day.AdsMetrics = make(map[datanorm.Platform]map[string]float64)
	}
	m := day.AdsMetrics[v.Source]
	if m == nil {
		m = make(map[string]float64, len(v.Metrics))
		day.AdsMetrics[v.Source] = m
	}
	for k, val := range v.Metrics {
		m[k] = val
	}
}

// Excerpt returns the days in (end-days, end]. An empty end means the
// latest date in the ledger; days below 1 means DefaultExcerptDays.
func Excerpt(l Ledger, end string, days int) Ledger {
	if days < 1 {
		days = DefaultExcerptDays
	}
	if end == "" {
		dates := l.Dates()
		if len(dates) == 0 {
			return Ledger{}
		}
		end = dates[len(dates)-1]
	}
	endT, err := time.Parse(time.DateOnly, end)
	if err != nil {
		return Ledger{}
	}
	start := endT.AddDate(0, 0, -(days - 1)).Format(time.DateOnly)

	out := Ledger{}
	for date, d := range l {
		if date >= start && date <= end {
			out[date] = d.clone()
		}
	}
	return out
}
