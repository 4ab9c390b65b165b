package types

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ContractPrices maps a product id to the customer's fixed rate for it. Once a
// product gains an entry through the ordering flow the price is immutable.
// Serialization is deterministic: encoding/json sorts map keys, and both key
// and value types round-trip as text.
type ContractPrices map[uuid.UUID]decimal.Decimal

// Get returns the contract price for a product, if one exists.
func (c ContractPrices) Get(productID uuid.UUID) (decimal.Decimal, bool) {
	if c == nil {
		return decimal.Decimal{}, false
	}
	price, ok := c[productID]
	return price, ok
}

// Has reports whether the product already carries a contract price.
func (c ContractPrices) Has(productID uuid.UUID) bool {
	_, ok := c.Get(productID)
	return ok
}

// With returns a copy of the table including the new product price. The
// receiver is never mutated so snapshots held by in-flight orders stay stable.
func (c ContractPrices) With(productID uuid.UUID, price decimal.Decimal) ContractPrices {
	next := make(ContractPrices, len(c)+1)
	for k, v := range c {
		next[k] = v
	}
	next[productID] = price
	return next
}
