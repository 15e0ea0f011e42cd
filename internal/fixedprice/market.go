// Package fixedprice implements the fixed-price sale strategy: a market holds
// one price in one currency, and a purchase exchanges exactly that price for
// one asset redeemed from the market's inventory.
//
// The package never owns listings, inventories or wallets. It drives them
// through a Session supplied by the registry, inside one atomic unit per call.
package fixedprice

import (
	"time"

	"github.com/google/uuid"

	"github.com/atmx/launchpad-engine/internal/model"
)

// Strategy is the model.Market.Strategy tag for markets created here.
const Strategy = "fixed_price"

// NewMarket allocates a fresh market. Any price is accepted, including zero.
func NewMarket(currency string, price uint64) *model.Market {
	now := time.Now().UTC()
	return &model.Market{
		ID:        uuid.New().String(),
		Strategy:  Strategy,
		Currency:  currency,
		Price:     price,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Price returns the market's price in smallest currency units.
func Price(m *model.Market) uint64 {
	return m.Price
}
