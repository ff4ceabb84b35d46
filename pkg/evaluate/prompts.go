package evaluate

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

// systemMsg frames the model as a local used-car appraiser.
const systemMsg = `You are an expert in the Peruvian used-car market. You evaluate buy-and-resell opportunities considering final asking prices, local demand and resale potential.`

const dealTmpl = `Analyze this marketplace car listing against the market context below.

MARKET CONTEXT:
- Segment average price: S/ {{printf "%.0f" .Context.AveragePrice}}
- Typical price range: S/ {{printf "%.0f" .Context.PriceRange.Min}} - S/ {{printf "%.0f" .Context.PriceRange.Max}}
- Average model year: {{.Context.AverageYear}}
- Popular brands: {{join .Context.TopBrands ", "}}
- Market segment: {{.Context.Segment}}

LISTING:
Title: {{.Listing.Title}}
Price: {{.Listing.PriceText}}
Year: {{if .Listing.Year}}{{deref .Listing.Year}}{{else}}not specified{{end}}
Description: {{if .Listing.Description}}{{.Listing.Description}}{{else}}not available{{end}}

CRITERIA:
1. Is the final price competitive for this market?
2. Is there resale potential with a minimum margin of {{printf "%.0f" .MinProfitMarginPct}}%?
3. Is it a popular brand locally?
4. Is the model year appropriate for the local market?
5. Is it a good investment opportunity overall?

Respond ONLY with a valid JSON object:
{
  "isGoodDeal": boolean,
  "confidence": number (0-1),
  "estimatedMarketPrice": number,
  "profitPotential": number (percent),
  "riskLevel": "low" | "medium" | "high",
  "explanation": string,
  "marketComparison": string,
  "recommendation": string
}`

var dealPrompt = template.Must(template.New("deal").Funcs(template.FuncMap{
	"join":  strings.Join,
	"deref": func(p *int) int { return *p },
}).Parse(dealTmpl))

type promptData struct {
	Listing            domain.Listing
	Context            domain.MarketContext
	MinProfitMarginPct float64
}

// RenderDealPrompt renders the evaluation prompt for one listing.
func RenderDealPrompt(l domain.Listing, mc domain.MarketContext, minProfitMarginPct float64) (string, error) {
	var buf bytes.Buffer
	if err := dealPrompt.Execute(&buf, promptData{
		Listing:            l,
		Context:            mc,
		MinProfitMarginPct: minProfitMarginPct,
	}); err != nil {
		return "", fmt.Errorf("executing deal template: %w", err)
	}
	return buf.String(), nil
}
