package analysis

import (
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
)

// ModelPricing contains pricing per million tokens.
type ModelPricing struct {
	Input  decimal.Decimal // Per million input tokens
	Output decimal.Decimal // Per million output tokens
}

// modelPricingTable contains pricing for the model families the service
// runs analysis with. Source: https://www.anthropic.com/pricing
var modelPricingTable = map[string]ModelPricing{
	"opus-4-5": {
		Input:  decimal.NewFromFloat(5),
		Output: decimal.NewFromFloat(25),
	},
	"sonnet-4-5": {
		Input:  decimal.NewFromFloat(3),
		Output: decimal.NewFromFloat(15),
	},
	"sonnet-4": {
		Input:  decimal.NewFromFloat(3),
		Output: decimal.NewFromFloat(15),
	},
	"haiku-4-5": {
		Input:  decimal.NewFromFloat(1),
		Output: decimal.NewFromFloat(5),
	},
	"haiku-3-5": {
		Input:  decimal.NewFromFloat(0.80),
		Output: decimal.NewFromFloat(4),
	},
}

var million = decimal.NewFromInt(1_000_000)

// pricingFor resolves pricing by substring match on the model id, so full
// ids like "claude-haiku-4-5-20251101" hit the "haiku-4-5" family entry.
func pricingFor(model string) (ModelPricing, bool) {
	for family, pricing := range modelPricingTable {
		if strings.Contains(model, family) {
			return pricing, true
		}
	}
	return ModelPricing{}, false
}

// EstimateCost returns the approximate USD cost of one completion call.
// Unknown models estimate to zero with a logged warning.
func EstimateCost(model string, inputTokens, outputTokens int) decimal.Decimal {
	pricing, ok := pricingFor(model)
	if !ok {
		slog.Warn("no pricing for model, estimating zero cost", "model", model)
		return decimal.Zero
	}

	inputCost := pricing.Input.Mul(decimal.NewFromInt(int64(inputTokens))).Div(million)
	outputCost := pricing.Output.Mul(decimal.NewFromInt(int64(outputTokens))).Div(million)
	return inputCost.Add(outputCost)
}
