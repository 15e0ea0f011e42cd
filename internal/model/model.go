// Package model defines the core domain types shared across the launchpad engine.
// Monetary values are unsigned integers in the smallest unit of their currency.
package model

import (
	"math"
	"time"
)

// Listing aggregates inventories and their markets. Its admin is the sole
// authority for mutating markets attached through it.
type Listing struct {
	ID        string    `json:"id" db:"id"`
	Admin     string    `json:"admin" db:"admin"`
	Live      bool      `json:"live" db:"live"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Inventory is a pool of sale assets. ListingID is empty while the inventory
// is standalone, in which case Admin authorizes its mutation.
type Inventory struct {
	ID          string    `json:"id" db:"id"`
	ListingID   string    `json:"listing_id,omitempty" db:"listing_id"`
	Admin       string    `json:"admin" db:"admin"`
	Whitelisted bool      `json:"whitelisted" db:"whitelisted"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Market is a pricing strategy instance attached to an inventory.
// A market with no InventoryID is standalone and held by Owner.
type Market struct {
	ID          string    `json:"id" db:"id"`
	InventoryID string    `json:"inventory_id,omitempty" db:"inventory_id"`
	Owner       string    `json:"owner,omitempty" db:"owner"`
	Strategy    string    `json:"strategy" db:"strategy"`
	Currency    string    `json:"currency" db:"currency"`
	Price       uint64    `json:"price" db:"price"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Standalone reports whether the market is still in the custody of its creator.
func (m *Market) Standalone() bool {
	return m.InventoryID == ""
}

// WhitelistCertificate authorizes Holder to buy once from MarketID.
type WhitelistCertificate struct {
	ID        string     `json:"id" db:"id"`
	ListingID string     `json:"listing_id" db:"listing_id"`
	MarketID  string     `json:"market_id" db:"market_id"`
	Holder    string     `json:"holder" db:"holder"`
	Burned    bool       `json:"burned" db:"burned"`
	IssuedAt  time.Time  `json:"issued_at" db:"issued_at"`
	BurnedAt  *time.Time `json:"burned_at,omitempty" db:"burned_at"`
}

// Asset is one unique item deposited into an inventory. Owner is empty until
// the asset is redeemed.
type Asset struct {
	ID          string `json:"id" db:"id"`
	InventoryID string `json:"inventory_id" db:"inventory_id"`
	Owner       string `json:"owner,omitempty" db:"owner"`
	Seq         int64  `json:"seq" db:"seq"`
}

// Wallet holds a balance of a single currency.
type Wallet struct {
	ID       string `json:"id" db:"id"`
	Owner    string `json:"owner" db:"owner"`
	Currency string `json:"currency" db:"currency"`
	Balance  uint64 `json:"balance" db:"balance"`
}

// Funds is an amount withdrawn from a wallet, in flight to the payment ledger.
type Funds struct {
	Currency string `json:"currency"`
	Amount   uint64 `json:"amount"`
}

// Withdraw removes exactly amount from the wallet balance.
func (w *Wallet) Withdraw(amount uint64) (Funds, error) {
	if w.Balance < amount {
		return Funds{}, ErrInsufficientFunds
	}
	w.Balance -= amount
	return Funds{Currency: w.Currency, Amount: amount}, nil
}

// Deposit adds amount to the wallet balance.
func (w *Wallet) Deposit(amount uint64) error {
	if amount > math.MaxUint64-w.Balance {
		return ErrAmountOverflow
	}
	w.Balance += amount
	return nil
}

// Proceeds is the payment collected by a listing in one currency.
type Proceeds struct {
	ListingID string `json:"listing_id" db:"listing_id"`
	Currency  string `json:"currency" db:"currency"`
	Amount    uint64 `json:"amount" db:"amount"`
	Sold      uint64 `json:"sold" db:"sold"`
}

// Purchase is an immutable receipt of a completed sale.
// Once created, these are never modified or deleted.
type Purchase struct {
	ID            string    `json:"id" db:"id"`
	ListingID     string    `json:"listing_id" db:"listing_id"`
	InventoryID   string    `json:"inventory_id" db:"inventory_id"`
	MarketID      string    `json:"market_id" db:"market_id"`
	Buyer         string    `json:"buyer" db:"buyer"`
	WalletID      string    `json:"wallet_id" db:"wallet_id"`
	CertificateID string    `json:"certificate_id,omitempty" db:"certificate_id"`
	AssetID       string    `json:"asset_id" db:"asset_id"`
	Currency      string    `json:"currency" db:"currency"`
	Price         uint64    `json:"price" db:"price"`
	Quantity      uint64    `json:"quantity" db:"quantity"`
	Timestamp     time.Time `json:"timestamp" db:"timestamp"`
}
