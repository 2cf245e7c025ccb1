package service

import (
	"github.com/shopspring/decimal"
)

// ModelPrice is the per-token price for one (vendor, model) pair. Decimals
// keep many small per-span costs from drifting when summed across a trace.
type ModelPrice struct {
	PromptTokenPrice     decimal.Decimal
	CompletionTokenPrice decimal.Decimal
}

// PricingTable maps vendor/model pairs to their per-token prices. It is
// injected into the metric calculator; a missing entry is never an error.
type PricingTable map[string]ModelPrice

func (pt PricingTable) Lookup(vendor string, model string) (ModelPrice, bool) {
	price, ok := pt[vendor+"/"+model]
	return price, ok
}

func price(promptPrice string, completionPrice string) ModelPrice {
	return ModelPrice{
		PromptTokenPrice:     decimal.RequireFromString(promptPrice),
		CompletionTokenPrice: decimal.RequireFromString(completionPrice),
	}
}

// DefaultPricingTable covers the common hosted models. Prices are USD per
// single token.
func DefaultPricingTable() PricingTable {
	return PricingTable{
		"openai/gpt-3.5-turbo":       price("0.0000015", "0.000002"),
		"openai/gpt-3.5-turbo-16k":   price("0.000003", "0.000004"),
		"openai/gpt-4":               price("0.00003", "0.00006"),
		"openai/gpt-4-32k":           price("0.00006", "0.00012"),
		"openai/gpt-4-turbo":         price("0.00001", "0.00003"),
		"azure/gpt-3.5-turbo":        price("0.0000015", "0.000002"),
		"azure/gpt-4":                price("0.00003", "0.00006"),
		"anthropic/claude-instant-1": price("0.00000163", "0.00000551"),
		"anthropic/claude-2":         price("0.00001102", "0.00003268"),
		"cohere/command":             price("0.0000015", "0.000002"),
		"google/text-bison":          price("0.000001", "0.000001"),
	}
}
