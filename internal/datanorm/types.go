package datanorm

// Cell is a raw sheet value as produced by the readers: string, float64,
// time.Time or nil.
type Cell = any

// Tier selects how a classified sheet is parsed.
type Tier int

const (
	TierDaily  Tier = 1 // folded into the daily ledger
	TierDetail Tier = 2 // kept as tabular records
)

// Platform is the advertising or sales source a report comes from.
type Platform string

const (
	PlatformAmazon  Platform = "amazon"
	PlatformGoogle  Platform = "google"
	PlatformMeta    Platform = "meta"
	PlatformShopify Platform = "shopify"
	PlatformTikTok  Platform = "tiktok"
)

// Signature identifies one report type by the header fragments its
// exports carry. Signatures are defined once and never modified.
type Signature struct {
	ID       string   `json:"id"`
	Tier     Tier     `json:"tier"`
	Platform Platform `json:"platform"`
	Label    string   `json:"label"`
	Required []string `json:"required"`
	Optional []string `json:"optional,omitempty"`
}

// Classification is the outcome of locating and classifying one sheet.
// Signature is nil when no signature matched; Headers then holds at most
// the first 10 header strings.
type Classification struct {
	Signature *Signature
	Headers   []string
	Rows      [][]Cell
	RowCount  int
}

// Matched reports whether a signature was found.
func (c Classification) Matched() bool { return c.Signature != nil }
