package candidates

import "candidate-portal/internal/models"

// demoCandidates is the terminal fallback when no store and no cache can
// serve. It is never mutated; callers receive copies.
var demoCandidates = []models.Candidate{
	{
		ID:                   "1",
		Headline:             "Senior Marketing Executive with 15+ years driving brand growth in consumer goods",
		Sectors:              []string{"Consumer Goods", "Retail"},
		Tags:                 []string{"Brand Strategy", "P&L Ownership", "Team Leadership"},
		Category:             "Executive",
		Title:                "Chief Marketing Officer",
		Summary:              "Built and led a 40-person marketing organization through two acquisitions.",
		Location:             "New York, NY",
		RelocationPreference: "willing",
		NotableEmployers:     "Fortune 500 CPG company",
	},
	{
		ID:                   "2",
		Headline:             "Finance Director specializing in turnaround and restructuring",
		Sectors:              []string{"Manufacturing", "Industrials"},
		Tags:                 []string{"Restructuring", "M&A", "FP&A"},
		Category:             "Finance",
		Title:                "Finance Director",
		Summary:              "Led three operational turnarounds returning business units to profitability.",
		Location:             "Chicago, IL",
		RelocationPreference: "not willing",
		NotableEmployers:     "Global industrial conglomerate",
	},
	{
		ID:                   "3",
		Headline:             "Engineering leader scaling cloud platforms for regulated industries",
		Sectors:              []string{"Technology", "Financial Services"},
		Tags:                 []string{"Cloud", "Platform Engineering", "Compliance"},
		Category:             "Technology",
		Title:                "VP of Engineering",
		Summary:              "Grew platform team from 12 to 90 engineers while achieving SOC 2 and PCI certification.",
		Location:             "Austin, TX",
		RelocationPreference: "open to discussion",
		NotableEmployers:     "Tier-one payments processor",
	},
	{
		ID:                   "4",
		Headline:             "Operations executive with deep supply chain and logistics expertise",
		Sectors:              []string{"Logistics", "E-commerce"},
		Tags:                 []string{"Supply Chain", "Lean", "Vendor Management"},
		Category:             "Operations",
		Title:                "Chief Operating Officer",
		Summary:              "Reduced fulfilment cost per order by 28% across a national warehouse network.",
		Location:             "Atlanta, GA",
		RelocationPreference: "willing",
		NotableEmployers:     "National e-commerce retailer",
	},
}

// DemoCandidates returns a copy of the seed data.
func DemoCandidates() []models.Candidate {
	out := make([]models.Candidate, len(demoCandidates))
	for i, c := range demoCandidates {
		c.Sectors = append([]string{}, c.Sectors...)
		c.Tags = append([]string{}, c.Tags...)
		out[i] = c
	}
	return out
}
