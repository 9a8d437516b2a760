// Package prompt builds the bounded plain-text context handed to an
// analysis model. It never calls one.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ignite/adreport-ingest/internal/config"
	"github.com/ignite/adreport-ingest/internal/datanorm"
	"github.com/ignite/adreport-ingest/internal/ledger"
	"github.com/osteele/liquid"
	"github.com/shopspring/decimal"
)

// Defaults applied to non-positive Options fields.
const (
	DefaultIncludeAllThreshold = 25
	DefaultMaxRowsPerReport    = 20
	DefaultMaxWasteRows        = 12
	DefaultMaxCampaignRows     = 15
	DefaultMaxChars            = 120000

	rollupDays = 30
	// wasteSpendFloor is the spend a zero-revenue row must exceed.
	wasteSpendFloor = 5.0
)

const defaultPreamble = `You are reviewing advertising and sales performance for an online store.
The sections below hold a daily rollup of the last 30 days, the active campaigns,
and the most recent upload of each detailed report. Amounts are in the account currency.
Point out where spend is not producing revenue and where budget should move.`

const truncationNote = "\n[context truncated]\n"

// Options bounds the size of each section.
type Options struct {
	IncludeAllThreshold int `json:"include_all_threshold" yaml:"include_all_threshold"`
	MaxRowsPerReport    int `json:"max_rows_per_report" yaml:"max_rows_per_report"`
	MaxWasteRows        int `json:"max_waste_rows" yaml:"max_waste_rows"`
	MaxCampaignRows     int `json:"max_campaign_rows" yaml:"max_campaign_rows"`
	MaxChars            int `json:"max_chars" yaml:"max_chars"`
	// PreambleTemplate is a Liquid template. Bindings: report_count,
	// platforms and generated_for.
	PreambleTemplate string `json:"preamble_template,omitempty" yaml:"preamble_template"`
	GeneratedFor     string `json:"generated_for,omitempty" yaml:"-"`
}

// WithDefaults returns o with every non-positive cap replaced.
func (o Options) WithDefaults() Options {
	if o.IncludeAllThreshold <= 0 {
		o.IncludeAllThreshold = DefaultIncludeAllThreshold
	}
	if o.MaxRowsPerReport <= 0 {
		o.MaxRowsPerReport = DefaultMaxRowsPerReport
	}
	if o.MaxWasteRows <= 0 {
		o.MaxWasteRows = DefaultMaxWasteRows
	}
	if o.MaxCampaignRows <= 0 {
		o.MaxCampaignRows = DefaultMaxCampaignRows
	}
	if o.MaxChars <= 0 {
		o.MaxChars = DefaultMaxChars
	}
	return o
}

// OptionsFromConfig maps the prompt config section onto Options.
func OptionsFromConfig(cfg config.PromptConfig) Options {
	return Options{
		IncludeAllThreshold: cfg.IncludeAllThreshold,
		MaxRowsPerReport:    cfg.MaxRowsPerReport,
		MaxWasteRows:        cfg.MaxWasteRows,
		MaxCampaignRows:     cfg.MaxCampaignRows,
		MaxChars:            cfg.MaxChars,
		PreambleTemplate:    cfg.PreambleTemplate,
	}.WithDefaults()
}

// Campaign is one row of platform campaign data supplied by the caller.
type Campaign struct {
	Platform datanorm.Platform `json:"platform"`
	Name     string            `json:"name"`
	Status   string            `json:"status,omitempty"`
	Spend    float64           `json:"spend"`
	Revenue  float64           `json:"revenue"`
}

var engine = liquid.NewEngine()

// BuildContext assembles the preamble, the daily rollup, the campaign list
// and one section per stored bundle, then enforces MaxChars.
func BuildContext(store ledger.Store, excerpt ledger.Ledger, campaigns []Campaign, opts Options) string {
	opts = opts.WithDefaults()

	var b strings.Builder
	b.WriteString(preamble(store, opts))
	b.WriteString("\n\n")
	writeRollup(&b, excerpt)
	writeCampaigns(&b, campaigns, opts.MaxCampaignRows)
	for _, k := range store.Keys() {
		bundle, _ := store.Bundle(k)
		writeBundle(&b, k, bundle, opts)
	}
	return truncate(b.String(), opts.MaxChars)
}

func preamble(store ledger.Store, opts Options) string {
	if strings.TrimSpace(opts.PreambleTemplate) == "" {
		return defaultPreamble
	}
	tpl, err := engine.ParseString(opts.PreambleTemplate)
	if err != nil {
		return defaultPreamble
	}

	var platforms []string
	for p := range store.Platforms {
		platforms = append(platforms, string(p))
	}
	sort.Strings(platforms)

	out, err := tpl.RenderString(map[string]interface{}{
		"report_count":  store.ReportCount,
		"platforms":     platforms,
		"generated_for": opts.GeneratedFor,
	})
	if err != nil {
		return defaultPreamble
	}
	return strings.TrimSpace(out)
}

type rollupRow struct {
	spend   decimal.Decimal
	revenue decimal.Decimal
}

func writeRollup(b *strings.Builder, excerpt ledger.Ledger) {
	dates := excerpt.Dates()
	if len(dates) > rollupDays {
		dates = dates[len(dates)-rollupDays:]
	}
	if len(dates) == 0 {
		b.WriteString("## Daily rollup\nNo daily data.\n\n")
		return
	}

	rows := make(map[datanorm.Platform]*rollupRow)
	for _, date := range dates {
		day := excerpt[date]
		for _, p := range day.Platforms() {
			r := rows[p]
			if r == nil {
				r = &rollupRow{}
				rows[p] = r
			}
			r.spend = r.spend.Add(decimal.NewFromFloat(day.PlatformSpend(p)))
			r.revenue = r.revenue.Add(decimal.NewFromFloat(day.PlatformRevenue(p)))
		}
	}

	platforms := make([]datanorm.Platform, 0, len(rows))
	for p := range rows {
		platforms = append(platforms, p)
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i] < platforms[j] })

	fmt.Fprintf(b, "## Daily rollup %s to %s (%d days)\n", dates[0], dates[len(dates)-1], len(dates))
	b.WriteString("platform | spend | revenue | roas\n")
	var total rollupRow
	for _, p := range platforms {
		r := rows[p]
		total.spend = total.spend.Add(r.spend)
		total.revenue = total.revenue.Add(r.revenue)
		fmt.Fprintf(b, "%s | %s | %s | %s\n", p, r.spend.StringFixed(2), r.revenue.StringFixed(2), roas(r.revenue, r.spend))
	}
	fmt.Fprintf(b, "total | %s | %s | %s\n", total.spend.StringFixed(2), total.revenue.StringFixed(2), roas(total.revenue, total.spend))
	fmt.Fprintf(b, "Blended ROAS: %s\n\n", roas(total.revenue, total.spend))
}

func roas(revenue, spend decimal.Decimal) string {
	if spend.IsZero() {
		return "0.00"
	}
	return revenue.DivRound(spend, 4).StringFixed(2)
}

func writeCampaigns(b *strings.Builder, campaigns []Campaign, limit int) {
	if len(campaigns) == 0 {
		return
	}
	fmt.Fprintf(b, "## Campaigns (%d)\n", len(campaigns))
	b.WriteString("platform | name | status | spend | revenue\n")
	for i, c := range campaigns {
		if i == limit {
			break
		}
		fmt.Fprintf(b, "%s | %s | %s | %s | %s\n",
			c.Platform, clean(c.Name), clean(c.Status),
			decimal.NewFromFloat(c.Spend).StringFixed(2),
			decimal.NewFromFloat(c.Revenue).StringFixed(2))
	}
	if omitted := len(campaigns) - limit; omitted > 0 {
		fmt.Fprintf(b, "(%d more campaigns omitted)\n", omitted)
	}
	b.WriteString("\n")
}

// truncate cuts at the last line break that keeps the note within max.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	keep := max - len(truncationNote)
	if keep <= 0 {
		return truncationNote[:max]
	}
	cut := s[:keep]
	if i := strings.LastIndexByte(cut, '\n'); i >= 0 {
		cut = cut[:i]
	}
	return cut + truncationNote
}

func clean(s string) string {
	s = strings.ReplaceAll(s, "|", "/")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

func cellText(c datanorm.Cell) string {
	return clean(datanorm.CellString(c))
}
