package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mandibook/mandibook-backend/pkg/enums"
	"github.com/mandibook/mandibook-backend/pkg/types"
)

// CustomerSnapshot carries the pricing-relevant view of a customer at the
// moment a line is priced. Resolution never reads the store, so concurrent
// customer updates cannot split an order across two pricing regimes.
type CustomerSnapshot struct {
	PricingType      enums.PricingType
	MarkupPercentage decimal.Decimal
	ContractPrices   types.ContractPrices
}

// Quote is the result of resolving one line's rate. The flags tell the caller
// what happened; acting on them (persisting a new contract price) is the
// caller's job, not the resolver's.
type Quote struct {
	Rate                decimal.Decimal
	IsContractPrice     bool
	UsedFallback        bool
	SaveAsContractPrice bool
}

// Resolve computes the rate for one order line. It is the only pricing code
// path; order creation and single-line edits both go through it.
//
// Contract customers get their locked price when one exists, overrides
// ignored. A contract customer with no locked price and a positive override
// establishes that override as the new contract price (flagged, not saved
// here). Markup customers pay marketRate plus their percentage unless staff
// override. Market customers pay the override or the raw market rate.
func Resolve(customer CustomerSnapshot, productID uuid.UUID, marketRate decimal.Decimal, override *decimal.Decimal) Quote {
	switch customer.PricingType {
	case enums.PricingTypeContract:
		if locked, ok := customer.ContractPrices.Get(productID); ok {
			return Quote{Rate: round2(locked), IsContractPrice: true}
		}
		if override != nil && override.IsPositive() {
			return Quote{Rate: round2(*override), IsContractPrice: true, SaveAsContractPrice: true}
		}
		return Quote{Rate: round2(marketRate), UsedFallback: true}

	case enums.PricingTypeMarkup:
		if override != nil {
			return Quote{Rate: round2(*override)}
		}
		multiplier := decimal.NewFromInt(1).Add(customer.MarkupPercentage.Div(decimal.NewFromInt(100)))
		return Quote{Rate: round2(marketRate.Mul(multiplier))}

	default: // market
		if override != nil {
			return Quote{Rate: round2(*override)}
		}
		return Quote{Rate: round2(marketRate)}
	}
}

// LineAmount multiplies an already-resolved rate by quantity and rounds to
// two decimals, the only place line amounts are computed.
func LineAmount(rate, quantity decimal.Decimal) decimal.Decimal {
	return rate.Mul(quantity).Round(2)
}

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
