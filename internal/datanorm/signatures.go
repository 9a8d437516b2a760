package datanorm

// defaultSignatures is the built-in catalog. Fragments are matched
// case-sensitively as exported. Amazon's "7 Day Total Sales" style columns
// also satisfy short fragments like "Day", so Amazon tier-2 reports carry
// enough required fragments to outscore the daily signatures.
var defaultSignatures = []Signature{
	{
		ID: "amazon_sqp", Tier: TierDetail, Platform: PlatformAmazon,
		Label:    "Amazon Search Query Performance",
		Required: []string{"Search Query", "Search Query Volume", "Impressions: Total Count"},
		Optional: []string{"Search Query Score", "Reporting Date", "Clicks: Total Count", "Cart Adds: Total Count", "Purchases: Total Count", "Purchases: Brand Share %"},
	},

	// Tier 1
	{
		ID: "amazon_daily", Tier: TierDaily, Platform: PlatformAmazon,
		Label:    "Amazon Daily Overview",
		Required: []string{"Date", "Ad Spend", "Ad Sales", "Total ACOS"},
		Optional: []string{"Orders", "Conversions", "ROAS", "ACOS", "Impressions", "Clicks", "CTR", "CPC", "Conversion Rate", "Total Units", "Total Sales"},
	},
	{
		ID: "google_daily", Tier: TierDaily, Platform: PlatformGoogle,
		Label:    "Google Ads Daily Performance",
		Required: []string{"Day", "Cost", "Impr", "Clicks"},
		Optional: []string{"Campaign", "Ad group", "Conversions", "Conv. value", "Currency code", "Avg. CPC", "CTR"},
	},
	{
		ID: "meta_daily", Tier: TierDaily, Platform: PlatformMeta,
		Label:    "Meta Ads Daily Performance",
		Required: []string{"Day", "Amount spent", "Reporting starts", "Reporting ends"},
		Optional: []string{"Campaign name", "Ad set name", "Ad name", "Impressions", "Link clicks", "Purchases", "Purchases conversion value", "Results", "Reach"},
	},

	// Amazon advertising console
	{
		ID: "amazon_sp_search_terms", Tier: TierDetail, Platform: PlatformAmazon,
		Label:    "Sponsored Products Search Term Report",
		Required: []string{"Customer Search Term", "Targeting", "Match Type", "Campaign Name", "Spend"},
		Optional: []string{"Ad Group Name", "Impressions", "Clicks", "7 Day Total Sales", "7 Day Total Orders (#)", "Total Advertising Cost of Sales (ACOS)"},
	},
	{
		ID: "amazon_sp_targeting", Tier: TierDetail, Platform: PlatformAmazon,
		Label:    "Sponsored Products Targeting Report",
		Required: []string{"Targeting", "Match Type", "Campaign Name", "Ad Group Name", "Spend"},
		Optional: []string{"Impressions", "Clicks", "7 Day Total Sales", "Top-of-search Impression Share"},
	},
	{
		ID: "amazon_sp_advertised_product", Tier: TierDetail, Platform: PlatformAmazon,
		Label:    "Sponsored Products Advertised Product Report",
		Required: []string{"Advertised ASIN", "Advertised SKU", "Campaign Name", "Ad Group Name", "Spend"},
		Optional: []string{"Impressions", "Clicks", "7 Day Total Sales", "7 Day Total Units (#)", "7 Day Total Orders (#)"},
	},
	{
		ID: "amazon_sp_purchased_product", Tier: TierDetail, Platform: PlatformAmazon,
		Label:    "Sponsored Products Purchased Product Report",
		Required: []string{"Purchased ASIN", "Advertised ASIN", "Other SKU"},
		Optional: []string{"Advertised SKU", "Campaign Name", "Ad Group Name", "Targeting", "Match Type"},
	},
	{
		ID: "amazon_sd_campaigns", Tier: TierDetail, Platform: PlatformAmazon,
		Label:    "Sponsored Display Campaign Report",
		Required: []string{"Campaign Name", "Cost type", "Viewable Impressions", "Spend", "Impressions"},
		Optional: []string{"Bid Optimization", "Budget", "Clicks", "14 Day Total Sales", "14 Day Total Orders (#)"},
	},
	{
		ID: "amazon_sb_campaigns", Tier: TierDetail, Platform: PlatformAmazon,
		Label:    "Sponsored Brands Campaign Report",
		Required: []string{"Campaign Name", "Budget", "Spend", "Impressions", "New-to-brand Orders"},
		Optional: []string{"Clicks", "14 Day Total Sales", "14 Day Total Orders (#)"},
	},
	{
		ID: "amazon_sp_placement", Tier: TierDetail, Platform: PlatformAmazon,
		Label:    "Sponsored Products Placement Report",
		Required: []string{"Placement", "Campaign Name", "Bidding strategy", "Spend", "Impressions"},
		Optional: []string{"Clicks", "7 Day Total Sales", "7 Day Total Orders (#)"},
	},
	{
		ID: "amazon_sp_campaigns", Tier: TierDetail, Platform: PlatformAmazon,
		Label:    "Sponsored Products Campaign Report",
		Required: []string{"Campaign Name", "Campaign Type", "Budget", "Spend", "Impressions"},
		Optional: []string{"Status", "Portfolio name", "Targeting Type", "Clicks", "Orders", "Sales", "ROAS"},
	},

	// Amazon seller central
	{
		ID: "amazon_business_asin", Tier: TierDetail, Platform: PlatformAmazon,
		Label:    "Detail Page Sales and Traffic by Child Item",
		Required: []string{"(Child) ASIN", "Sessions - Total", "Units Ordered"},
		Optional: []string{"(Parent) ASIN", "Title", "Page Views - Total", "Unit Session Percentage", "Ordered Product Sales", "Featured Offer (Buy Box) Percentage", "Total Order Items"},
	},
	{
		ID: "amazon_sales_traffic_date", Tier: TierDetail, Platform: PlatformAmazon,
		Label:    "Sales and Traffic by Date",
		Required: []string{"Date", "Ordered Product Sales", "Sessions - Total"},
		Optional: []string{"Units Ordered", "Page Views - Total", "Total Order Items", "Average Sales per Order Item", "Unit Session Percentage"},
	},
	{
		ID: "amazon_brand_search_terms", Tier: TierDetail, Platform: PlatformAmazon,
		Label:    "Brand Analytics Search Terms",
		Required: []string{"Search Term", "Search Frequency Rank", "#1 Clicked ASIN"},
		Optional: []string{"#1 Product Title", "#1 Click Share", "#1 Conversion Share", "#2 Clicked ASIN", "Reporting Date"},
	},
	{
		ID: "amazon_fba_inventory", Tier: TierDetail, Platform: PlatformAmazon,
		Label:    "FBA Manage Inventory",
		Required: []string{"sku", "asin", "afn-fulfillable-quantity"},
		Optional: []string{"fnsku", "product-name", "afn-warehouse-quantity", "afn-reserved-quantity", "your-price"},
	},
	{
		ID: "amazon_returns", Tier: TierDetail, Platform: PlatformAmazon,
		Label:    "FBA Customer Returns",
		Required: []string{"return-date", "order-id", "asin", "reason"},
		Optional: []string{"sku", "product-name", "quantity", "detailed-disposition", "status"},
	},

	// Google Ads
	{
		ID: "google_search_terms", Tier: TierDetail, Platform: PlatformGoogle,
		Label:    "Google Ads Search Terms",
		Required: []string{"Search term", "Match type", "Cost", "Impr."},
		Optional: []string{"Keyword", "Campaign", "Ad group", "Added/Excluded", "Clicks", "Conversions", "Conv. value"},
	},
	{
		ID: "google_keywords", Tier: TierDetail, Platform: PlatformGoogle,
		Label:    "Google Ads Keywords",
		Required: []string{"Keyword", "Match type", "Cost", "Impr."},
		Optional: []string{"Campaign", "Ad group", "Status", "Max. CPC", "Quality Score", "Clicks", "Conversions"},
	},
	{
		ID: "google_shopping_products", Tier: TierDetail, Platform: PlatformGoogle,
		Label:    "Google Ads Shopping Products",
		Required: []string{"Item ID", "Product title", "Cost"},
		Optional: []string{"Brand", "Product type (1st level)", "Campaign", "Impr.", "Clicks", "Conversions", "Conv. value"},
	},
	{
		ID: "google_devices", Tier: TierDetail, Platform: PlatformGoogle,
		Label:    "Google Ads Devices",
		Required: []string{"Device", "Cost", "Impr."},
		Optional: []string{"Campaign", "Level", "Clicks", "Conversions", "Conv. value"},
	},
	{
		ID: "google_locations", Tier: TierDetail, Platform: PlatformGoogle,
		Label:    "Google Ads Locations",
		Required: []string{"Location", "Cost", "Impr."},
		Optional: []string{"Campaign", "Added/Excluded", "Clicks", "Conversions", "Conv. value"},
	},
	{
		ID: "google_asset_groups", Tier: TierDetail, Platform: PlatformGoogle,
		Label:    "Performance Max Asset Groups",
		Required: []string{"Asset group", "Cost"},
		Optional: []string{"Status", "Campaign", "Impr.", "Clicks", "Conversions", "Conv. value"},
	},
	{
		ID: "google_ad_groups", Tier: TierDetail, Platform: PlatformGoogle,
		Label:    "Google Ads Ad Groups",
		Required: []string{"Ad group", "Default max. CPC", "Cost"},
		Optional: []string{"Campaign", "Status", "Impr.", "Clicks", "Conversions", "Conv. value"},
	},
	{
		ID: "google_campaigns", Tier: TierDetail, Platform: PlatformGoogle,
		Label:    "Google Ads Campaigns",
		Required: []string{"Campaign type", "Cost", "Impr."},
		Optional: []string{"Campaign", "Budget", "Campaign status", "Bid strategy type", "Clicks", "Conversions", "Conv. value"},
	},

	// Meta Ads Manager
	{
		ID: "meta_age_gender", Tier: TierDetail, Platform: PlatformMeta,
		Label:    "Meta Ads Age and Gender",
		Required: []string{"Age", "Gender", "Amount spent"},
		Optional: []string{"Campaign name", "Ad set name", "Impressions", "Reach", "Link clicks", "Results", "Purchases conversion value"},
	},
	{
		ID: "meta_placement", Tier: TierDetail, Platform: PlatformMeta,
		Label:    "Meta Ads Placement",
		Required: []string{"Platform", "Placement", "Amount spent"},
		Optional: []string{"Campaign name", "Impressions", "Reach", "Link clicks", "Results"},
	},
	{
		ID: "meta_region", Tier: TierDetail, Platform: PlatformMeta,
		Label:    "Meta Ads Region",
		Required: []string{"Region", "Amount spent"},
		Optional: []string{"Campaign name", "Impressions", "Reach", "Link clicks", "Results"},
	},
	{
		ID: "meta_ads", Tier: TierDetail, Platform: PlatformMeta,
		Label:    "Meta Ads",
		Required: []string{"Ad name", "Ad delivery", "Amount spent"},
		Optional: []string{"Campaign name", "Ad set name", "Reporting starts", "Reporting ends", "Impressions", "Reach", "Link clicks", "Results", "Cost per result"},
	},
	{
		ID: "meta_ad_sets", Tier: TierDetail, Platform: PlatformMeta,
		Label:    "Meta Ad Sets",
		Required: []string{"Ad set name", "Ad set delivery", "Amount spent"},
		Optional: []string{"Ad set budget", "Campaign name", "Reporting starts", "Reporting ends", "Impressions", "Reach", "Link clicks", "Results"},
	},

	// Shopify
	{
		ID: "shopify_orders", Tier: TierDetail, Platform: PlatformShopify,
		Label:    "Shopify Orders Export",
		Required: []string{"Name", "Financial Status", "Lineitem name"},
		Optional: []string{"Email", "Paid at", "Fulfillment Status", "Subtotal", "Shipping", "Taxes", "Total", "Discount Code", "Created at", "Lineitem quantity", "Lineitem price"},
	},
	{
		ID: "shopify_sales_by_product", Tier: TierDetail, Platform: PlatformShopify,
		Label:    "Shopify Sales by Product",
		Required: []string{"Product title", "Net sales", "Gross sales"},
		Optional: []string{"Product vendor", "Product type", "Net quantity", "Discounts", "Returns", "Total sales"},
	},

	// TikTok Ads
	{
		ID: "tiktok_campaigns", Tier: TierDetail, Platform: PlatformTikTok,
		Label:    "TikTok Ads Campaigns",
		Required: []string{"Campaign name", "Primary status", "Cost"},
		Optional: []string{"CPM", "Impressions", "Clicks (destination)", "CTR (destination)", "Conversions", "Cost per conversion", "Total complete payment ROAS"},
	},
}
