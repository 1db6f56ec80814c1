package verticals

import "strings"

// Vertical is one product area in the static catalog. Structured rule lists
// (jira projects/labels, zendesk tags) feed the high-precision rule stage;
// keywords feed the ensemble stage and the prototype texts.
type Vertical struct {
	Slug         string   `json:"slug"`
	Name         string   `json:"name"`
	Keywords     []string `json:"keywords"`
	JiraProjects []string `json:"jira_projects"`
	JiraLabels   []string `json:"jira_labels"`
	ZendeskTags  []string `json:"zendesk_tags"`
}

// Catalog is read-only at runtime; changes ship with a redeploy. Keyword
// lists are bootstrapped seeds, refined over time.
var Catalog = []Vertical{
	{
		Slug: "multicurrency-accounts-wallets",
		Name: "Multicurrency Accounts and Wallets",
		Keywords: []string{
			"wallet", "virtual account", "multi-currency", "multicurrency", "ledger balance", "iban", "account number",
		},
	},
	{
		Slug: "fee-engine-invoicing",
		Name: "Fee Engine and Invoicing",
		Keywords: []string{
			"fee", "fees", "pricing", "invoice", "invoicing", "surcharge", "rate card",
		},
		JiraLabels:  []string{"invoice", "pricing"},
		ZendeskTags: []string{"invoice", "pricing", "fees"},
	},
	{
		Slug: "payins-direct-debits",
		Name: "Payins and Direct Debits",
		Keywords: []string{
			"pay-in", "payin", "direct debit", "ach debit", "sepa dd", "pull funds", "bank transfer in", "incoming payment",
		},
		JiraLabels:  []string{"direct-debit", "payin"},
		ZendeskTags: []string{"direct_debit", "payin"},
	},
	{
		Slug: "fx-service",
		Name: "FX Service",
		Keywords: []string{
			"fx", "convert", "conversion", "quote", "rate", "swap", "order", "fx rate", "fx quote",
		},
		JiraProjects: []string{"FX"},
		JiraLabels:   []string{"fx", "rates", "quote"},
		ZendeskTags:  []string{"fx", "rate", "quote"},
	},
	{
		Slug: "treasury-management-gl",
		Name: "Treasury Management and GL Spoc",
		Keywords: []string{
			"treasury", "liquidity", "gl", "general ledger", "reconciliation", "nostro", "cash management",
		},
		JiraLabels:  []string{"treasury", "recon", "gl"},
		ZendeskTags: []string{"treasury", "reconciliation"},
	},
	{
		Slug: "payouts-reliability-api",
		Name: "Payouts Reliability and API Experience",
		Keywords: []string{
			"payout", "payouts api", "stp", "webhook", "idempotency", "beneficiary", "transfer api", "payment api",
		},
		JiraLabels:  []string{"payouts_api", "stp"},
		ZendeskTags: []string{"payouts", "api"},
	},
	{
		Slug: "swift-connect",
		Name: "Swift Connect",
		Keywords: []string{
			"swift", "mt103", "bic", "gpi", "mt202",
		},
		JiraProjects: []string{"SWIFT"},
		JiraLabels:   []string{"swift", "mt103", "bic"},
		ZendeskTags:  []string{"swift"},
	},
	{
		Slug: "network-payouts",
		Name: "Network Payouts",
		Keywords: []string{
			"local rails", "upi", "fps", "ach credit", "pix", "domestic payout", "local transfer",
		},
		JiraLabels:  []string{"local-rails", "ach", "pix", "upi", "fps"},
		ZendeskTags: []string{"ach", "pix", "upi", "fps"},
	},
	{
		Slug: "global-wires",
		Name: "Global wires",
		Keywords: []string{
			"wire", "wire transfer", "international wire", "cross-border wire", "swift wire",
		},
		JiraProjects: []string{"WIRES"},
		JiraLabels:   []string{"wire"},
		ZendeskTags:  []string{"wire"},
	},
	{
		Slug: "verify",
		Name: "Verify",
		Keywords: []string{
			"verify", "account verification", "name match", "beneficiary check", "account check",
		},
		JiraProjects: []string{"VERIFY"},
		JiraLabels:   []string{"verify"},
		ZendeskTags:  []string{"verify"},
	},
	{
		Slug: "client-onboarding",
		Name: "Client Onboarding",
		Keywords: []string{
			"kyb", "client onboarding", "entitlements", "go-live", "contracting",
		},
		JiraProjects: []string{"CLIENT"},
		JiraLabels:   []string{"onboarding", "kyb"},
		ZendeskTags:  []string{"kyb"},
	},
	{
		Slug: "customer-onboarding",
		Name: "Customer Onboarding",
		Keywords: []string{
			"kyc", "identity", "customer verification", "level 2", "level 3", "l2", "l3",
		},
		JiraProjects: []string{"CUSTOMER"},
		JiraLabels:   []string{"onboarding", "kyc"},
		ZendeskTags:  []string{"kyc"},
	},
	{
		Slug: "caas",
		Name: "CaaS",
		Keywords: []string{
			"compliance", "screening", "transaction monitoring", "cdd", "aml",
		},
		JiraProjects: []string{"CAAS"},
		JiraLabels:   []string{"compliance", "screening", "monitoring"},
		ZendeskTags:  []string{"compliance"},
	},
	{
		Slug: "data-reporting",
		Name: "Data and Reporting",
		Keywords: []string{
			"report", "bi", "dashboard", "export", "looker", "analytics",
		},
		JiraLabels:  []string{"report", "export"},
		ZendeskTags: []string{"report", "export"},
	},
	{
		Slug: "b2b-travel",
		Name: "B2B Travel",
		Keywords: []string{
			"vcc", "virtual card", "ota", "gds", "settlement", "travel",
		},
		JiraProjects: []string{"TRAVEL"},
		JiraLabels:   []string{"vcc", "travel"},
		ZendeskTags:  []string{"travel"},
	},
	{
		Slug: "platform-issuing",
		Name: "Platform Issuing",
		Keywords: []string{
			"issuing", "cards", "card", "pan", "tokenization", "authorization", "auth", "issuer",
		},
		JiraProjects: []string{"ISSUING"},
		JiraLabels:   []string{"cards", "issuing"},
		ZendeskTags:  []string{"issuing", "card"},
	},
	{
		Slug: "api-docs",
		Name: "API and API Docs",
		Keywords: []string{
			"openapi", "swagger", "docs", "documentation", "api reference", "reference guide",
		},
		JiraProjects: []string{"DOCS"},
		JiraLabels:   []string{"docs", "openapi"},
		ZendeskTags:  []string{"docs"},
	},
	{
		Slug: "client-portal",
		Name: "Client Portal",
		Keywords: []string{
			"portal", "dashboard ui", "non-api", "web app", "client portal",
		},
		JiraProjects: []string{"PORTAL"},
		JiraLabels:   []string{"portal"},
		ZendeskTags:  []string{"portal"},
	},
}

// Cross-cutting verticals lose ties against domain-specific ones.
var horizontalSlugs = map[string]bool{
	"api-docs":       true,
	"client-portal":  true,
	"data-reporting": true,
}

// BySlugOrName resolves a catalog entry by slug (preferred) or display name,
// case-insensitively. Returns nil when nothing matches.
func BySlugOrName(slug, name string) *Vertical {
	slug = strings.ToLower(strings.TrimSpace(slug))
	name = strings.ToLower(strings.TrimSpace(name))
	for i := range Catalog {
		if slug != "" && strings.ToLower(Catalog[i].Slug) == slug {
			return &Catalog[i]
		}
	}
	for i := range Catalog {
		if name != "" && strings.ToLower(Catalog[i].Name) == name {
			return &Catalog[i]
		}
	}
	return nil
}
