package datanorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_DefaultCatalog(t *testing.T) {
	reg := DefaultRegistry()

	tests := []struct {
		name    string
		headers []string
		want    string
	}{
		{
			name:    "google daily",
			headers: []string{"Day", "Campaign", "Cost", "Impressions", "Clicks"},
			want:    "google_daily",
		},
		{
			name:    "google daily with abbreviated impressions",
			headers: []string{"Day", "Campaign", "Cost", "Impr.", "Clicks", "Conversions", "Conv. value"},
			want:    "google_daily",
		},
		{
			name: "meta daily with cost and clicks columns",
			headers: []string{"Day", "Campaign name", "Ad set name", "Ad name", "Amount spent (USD)",
				"Impressions", "Reach", "Link clicks", "Clicks (all)", "Cost per result",
				"Purchases", "Purchases conversion value", "Reporting starts", "Reporting ends"},
			want: "meta_daily",
		},
		{
			name: "amazon daily overview",
			headers: []string{"Date", "Ad Spend", "Ad Sales", "Orders", "Conversions", "ROAS", "ACOS",
				"Impressions", "Clicks", "CTR", "CPC", "Conversion Rate", "Total ACOS", "Total Units", "Total Sales"},
			want: "amazon_daily",
		},
		{
			name: "sponsored products search terms",
			headers: []string{"Date", "Portfolio name", "Campaign Name", "Ad Group Name", "Targeting",
				"Match Type", "Customer Search Term", "Impressions", "Clicks", "Click-Thru Rate (CTR)",
				"Cost Per Click (CPC)", "Spend", "7 Day Total Sales", "Total Advertising Cost of Sales (ACOS)",
				"7 Day Total Orders (#)"},
			want: "amazon_sp_search_terms",
		},
		{
			name: "sponsored products campaigns",
			headers: []string{"Start Date", "End Date", "Portfolio name", "Campaign Type", "Campaign Name",
				"Status", "Budget", "Impressions", "Clicks", "Click-Thru Rate (CTR)", "Spend",
				"Cost Per Click (CPC)", "7 Day Total Orders (#)", "7 Day Total Sales",
				"Total Advertising Cost of Sales (ACOS)", "Total Return on Advertising Spend (ROAS)"},
			want: "amazon_sp_campaigns",
		},
		{
			name: "search query performance",
			headers: []string{"Search Query", "Search Query Score", "Search Query Volume",
				"Impressions: Total Count", "Impressions: Brand Count", "Clicks: Total Count",
				"Purchases: Total Count", "Reporting Date"},
			want: "amazon_sqp",
		},
		{
			name: "google search terms",
			headers: []string{"Search term", "Match type", "Added/Excluded", "Campaign", "Ad group",
				"Keyword", "Impr.", "Clicks", "Cost", "Conversions", "Conv. value"},
			want: "google_search_terms",
		},
		{
			name: "google search terms segmented by day",
			headers: []string{"Day", "Search term", "Match type", "Added/Excluded", "Campaign", "Ad group",
				"Keyword", "Impr.", "Clicks", "Cost", "Conversions", "Conv. value"},
			want: "google_search_terms",
		},
		{
			name: "google keywords",
			headers: []string{"Keyword", "Match type", "Campaign", "Ad group", "Status", "Max. CPC",
				"Impr.", "Clicks", "Cost", "Conversions"},
			want: "google_keywords",
		},
		{
			name: "google campaigns",
			headers: []string{"Campaign", "Campaign type", "Campaign status", "Budget", "Bid strategy type",
				"Impr.", "Clicks", "Cost", "Conversions", "Conv. value"},
			want: "google_campaigns",
		},
		{
			name: "shopify orders",
			headers: []string{"Name", "Email", "Financial Status", "Paid at", "Fulfillment Status",
				"Subtotal", "Shipping", "Taxes", "Total", "Created at", "Lineitem quantity",
				"Lineitem name", "Lineitem price"},
			want: "shopify_orders",
		},
		{
			name:    "padded headers are trimmed",
			headers: []string{"  Day ", " Cost", "Impressions  ", "Clicks"},
			want:    "google_daily",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reg.Classify(tt.headers)
			if got == nil {
				t.Fatalf("Classify(%v) = nil, want %s", tt.headers, tt.want)
			}
			if got.ID != tt.want {
				t.Errorf("Classify() = %s, want %s", got.ID, tt.want)
			}
		})
	}
}

func TestClassify_NoMatch(t *testing.T) {
	reg := DefaultRegistry()
	if got := reg.Classify([]string{"Foo", "Bar", "Baz"}); got != nil {
		t.Errorf("Classify() = %s, want nil", got.ID)
	}
	if got := reg.Classify(nil); got != nil {
		t.Errorf("Classify(nil) = %s, want nil", got.ID)
	}
}

func TestClassify_BlankHeadersNeverMatch(t *testing.T) {
	reg := MustRegistry(Signature{ID: "x", Tier: TierDetail, Platform: "p", Required: []string{"Spend"}})
	assert.Nil(t, reg.Classify([]string{"", "  ", ""}))
}

func TestClassify_OptionalScoreBreaksTie(t *testing.T) {
	lean := Signature{
		ID: "lean", Tier: TierDetail, Platform: "p",
		Required: []string{"Campaign", "Cost"},
		Optional: []string{"Impressions"},
	}
	rich := Signature{
		ID: "rich", Tier: TierDetail, Platform: "p",
		Required: []string{"Campaign", "Cost"},
		Optional: []string{"Impressions", "Clicks", "Conversions"},
	}
	headers := []string{"Campaign", "Cost", "Impressions", "Clicks", "Conversions"}

	// Registry order must not beat the score.
	for _, order := range [][]Signature{{lean, rich}, {rich, lean}} {
		reg := MustRegistry(order...)
		got := reg.Classify(headers)
		require.NotNil(t, got)
		assert.Equal(t, "rich", got.ID)
	}
}

func TestClassify_EqualScoreKeepsRegistryOrder(t *testing.T) {
	a := Signature{ID: "a", Tier: TierDetail, Platform: "p", Required: []string{"Cost"}}
	b := Signature{ID: "b", Tier: TierDetail, Platform: "p", Required: []string{"Cost"}}
	got := MustRegistry(a, b).Classify([]string{"Cost"})
	require.NotNil(t, got)
	assert.Equal(t, "a", got.ID)
}

func TestClassify_Deterministic(t *testing.T) {
	reg := DefaultRegistry()
	headers := []string{"Day", "Campaign", "Cost", "Impressions", "Clicks"}
	first := reg.Classify(headers)
	require.NotNil(t, first)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first.ID, reg.Classify(headers).ID)
	}
}

func TestClassify_SubstringContainment(t *testing.T) {
	reg := MustRegistry(Signature{
		ID: "spend", Tier: TierDetail, Platform: "p",
		Required: []string{"Amount spent", "Impressions"},
	})

	// Header longer than the fragment.
	assert.NotNil(t, reg.Classify([]string{"Amount spent (USD)", "Impressions"}))
	// Header shorter than the fragment.
	assert.NotNil(t, reg.Classify([]string{"Amount spent", "Impr"}))
	// Case differs.
	assert.Nil(t, reg.Classify([]string{"amount spent", "Impressions"}))
}

func TestNewRegistry_Validation(t *testing.T) {
	_, err := NewRegistry(
		Signature{ID: "a", Tier: TierDaily, Platform: "p", Required: []string{"x"}},
		Signature{ID: "a", Tier: TierDaily, Platform: "p", Required: []string{"y"}},
	)
	assert.Error(t, err)

	_, err = NewRegistry(Signature{ID: "a", Tier: 3, Platform: "p", Required: []string{"x"}})
	assert.Error(t, err)

	_, err = NewRegistry(Signature{ID: "a", Tier: TierDetail, Platform: "p"})
	assert.Error(t, err)
}

func TestDefaultRegistry_Catalog(t *testing.T) {
	reg := DefaultRegistry()
	assert.GreaterOrEqual(t, reg.Len(), 30)

	tier1 := map[Platform]bool{}
	for _, s := range reg.Signatures() {
		if s.Tier == TierDaily {
			tier1[s.Platform] = true
		}
	}
	assert.Equal(t, map[Platform]bool{PlatformAmazon: true, PlatformGoogle: true, PlatformMeta: true}, tier1)

	sig, ok := reg.Lookup("google_daily")
	require.True(t, ok)
	assert.Equal(t, PlatformGoogle, sig.Platform)
}

func TestExplain(t *testing.T) {
	reg := DefaultRegistry()
	scores := reg.Explain([]string{"Day", "Campaign", "Cost", "Impressions", "Clicks"})
	require.Len(t, scores, reg.Len())

	var found bool
	for _, s := range scores {
		if s.ID == "google_daily" {
			found = true
			assert.True(t, s.Candidate)
			assert.Equal(t, 41, s.Score)
			assert.Empty(t, s.MissingRequired)
		}
	}
	assert.True(t, found)
}
