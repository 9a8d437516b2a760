// Package report turns classified sheets into tier-1 daily records and
// tier-2 tabular bundles.
package report

import (
	"time"

	"github.com/ignite/adreport-ingest/internal/datanorm"
)

// Metric keys used by line-item platforms.
const (
	MetricSpend           = "spend"
	MetricConversionValue = "conversion_value"
	MetricConversions     = "conversions"
	MetricImpressions     = "impressions"
	MetricClicks          = "clicks"
	MetricCPC             = "cpc"
	MetricCTR             = "ctr"
	MetricCPA             = "cpa"
	MetricROAS            = "roas"
)

// DayRecord is one platform's metrics for one calendar day. AmazonDay and
// AdsDay are the only implementations; merge code switches on the type.
type DayRecord interface {
	Platform() datanorm.Platform
	dayRecord()
}

// AmazonDay is a pre-aggregated daily row. Fields map one to one from the
// export.
type AmazonDay struct {
	Spend          float64 `json:"spend"`
	Revenue        float64 `json:"revenue"`
	Orders         float64 `json:"orders"`
	Conversions    float64 `json:"conversions"`
	ROAS           float64 `json:"roas"`
	ACOS           float64 `json:"acos"`
	Impressions    float64 `json:"impressions"`
	Clicks         float64 `json:"clicks"`
	CTR            float64 `json:"ctr"`
	CPC            float64 `json:"cpc"`
	ConversionRate float64 `json:"conversion_rate"`
	TotalACOS      float64 `json:"total_acos"`
	TotalUnits     float64 `json:"total_units"`
	TotalRevenue   float64 `json:"total_revenue"`
}

func (AmazonDay) Platform() datanorm.Platform { return datanorm.PlatformAmazon }
func (AmazonDay) dayRecord()                  {}

// AdsDay is a folded line-item day. Metrics holds only the keys whose
// source columns existed in the upload.
type AdsDay struct {
	Source  datanorm.Platform  `json:"platform"`
	Metrics map[string]float64 `json:"metrics"`
}

func (d AdsDay) Platform() datanorm.Platform { return d.Source }
func (AdsDay) dayRecord()                    {}

// AggregateMeta describes one aggregation pass.
type AggregateMeta struct {
	Rows    int      `json:"rows"`
	Skipped int      `json:"skipped"` // rows without a parseable date
	Dates   []string `json:"dates"`
}

// Daily is the output of an Aggregator.
type Daily struct {
	Days map[string]DayRecord
	Meta AggregateMeta
}

// Tier1Result is one sheet's contribution to the daily ledger.
type Tier1Result struct {
	Type     string               `json:"type"`
	Label    string               `json:"label"`
	Platform datanorm.Platform    `json:"platform"`
	FileName string               `json:"file_name"`
	Sheet    string               `json:"sheet,omitempty"`
	Days     map[string]DayRecord `json:"days"`
	Meta     AggregateMeta        `json:"meta"`
}

// Record is one source row keyed by trimmed header.
type Record map[string]any

// DateRange is the first and last ISO date seen in a bundle.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// BundleMeta summarizes a tier-2 upload.
type BundleMeta struct {
	RowCount    int        `json:"row_count"`
	ColumnCount int        `json:"column_count"`
	SpendColumn string     `json:"spend_column,omitempty"`
	TotalSpend  *float64   `json:"total_spend,omitempty"`
	DateColumn  string     `json:"date_column,omitempty"`
	DateRange   *DateRange `json:"date_range,omitempty"`
	Dates       []string   `json:"dates,omitempty"`
	UploadedAt  time.Time  `json:"uploaded_at"`
	SourceFile  string     `json:"source_file,omitempty"`
}

// Bundle is the most recent full upload of one platform's report type.
type Bundle struct {
	Platform   datanorm.Platform `json:"platform"`
	ReportType string            `json:"report_type"`
	Label      string            `json:"label"`
	Headers    []string          `json:"headers"`
	Records    []Record          `json:"records"`
	Meta       BundleMeta        `json:"meta"`
}

// Tier2Result wraps a bundle with where it came from.
type Tier2Result struct {
	Type     string            `json:"type"`
	Label    string            `json:"label"`
	Platform datanorm.Platform `json:"platform"`
	FileName string            `json:"file_name"`
	Sheet    string            `json:"sheet,omitempty"`
	Detail   bool              `json:"detail,omitempty"` // synthesized from a tier-1 sheet
	Bundle   Bundle            `json:"bundle"`
}

// Unrecognized is a sheet or file that produced no result.
type Unrecognized struct {
	FileName string   `json:"file_name"`
	Sheet    string   `json:"sheet,omitempty"`
	Headers  []string `json:"headers"`
	RowCount int      `json:"row_count"`
	Error    string   `json:"error,omitempty"`
}
