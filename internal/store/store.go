// Package store defines the persistence interface for the launchpad engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"

	"github.com/atmx/launchpad-engine/internal/model"
)

// Reader is the read side shared by Store and Tx. Lookups of a missing
// entity return the matching model.Err*NotFound sentinel.
type Reader interface {
	// --- Registry ---

	GetListing(ctx context.Context, id string) (*model.Listing, error)
	GetInventory(ctx context.Context, id string) (*model.Inventory, error)

	// ListInventories returns the inventories attached to a listing.
	ListInventories(ctx context.Context, listingID string) ([]model.Inventory, error)

	// --- Markets ---

	GetMarket(ctx context.Context, id string) (*model.Market, error)

	// ListMarkets returns the markets attached to an inventory.
	ListMarkets(ctx context.Context, inventoryID string) ([]model.Market, error)

	// --- Certificates, wallets, assets ---

	GetCertificate(ctx context.Context, id string) (*model.WhitelistCertificate, error)
	GetWallet(ctx context.Context, id string) (*model.Wallet, error)

	// CountAvailableAssets counts unredeemed assets in an inventory.
	CountAvailableAssets(ctx context.Context, inventoryID string) (int, error)

	// ListAssetsByOwner returns the assets redeemed to owner.
	ListAssetsByOwner(ctx context.Context, owner string) ([]model.Asset, error)

	// --- Payment ledger ---

	// GetProceeds returns collected payment per currency for a listing.
	GetProceeds(ctx context.Context, listingID string) ([]model.Proceeds, error)

	ListPurchasesByMarket(ctx context.Context, marketID string) ([]model.Purchase, error)
	ListPurchasesByBuyer(ctx context.Context, buyer string) ([]model.Purchase, error)
}

// Tx is one atomic unit of work. Writes become visible to other callers only
// when the function passed to Store.Atomic returns nil.
type Tx interface {
	Reader

	UpsertListing(ctx context.Context, l *model.Listing) error
	UpsertInventory(ctx context.Context, inv *model.Inventory) error

	InsertMarket(ctx context.Context, m *model.Market) error

	// UpdateMarket overwrites the mutable fields (attachment, owner, price).
	UpdateMarket(ctx context.Context, m *model.Market) error

	InsertCertificate(ctx context.Context, c *model.WhitelistCertificate) error

	// BurnCertificate invalidates a certificate exactly once. It returns
	// model.ErrCertificateBurned if the certificate was already burned.
	BurnCertificate(ctx context.Context, id string) error

	UpsertWallet(ctx context.Context, w *model.Wallet) error

	// InsertAsset appends an asset to its inventory, assigning Seq.
	InsertAsset(ctx context.Context, a *model.Asset) error

	// NextAsset returns the unredeemed asset with the lowest Seq, or
	// model.ErrInventoryEmpty.
	NextAsset(ctx context.Context, inventoryID string) (*model.Asset, error)

	// TransferAsset records owner as the holder of an asset.
	TransferAsset(ctx context.Context, assetID, owner string) error

	// AddProceeds credits a listing's payment ledger.
	AddProceeds(ctx context.Context, listingID string, funds model.Funds, quantity uint64) error

	// InsertPurchase appends an immutable purchase receipt.
	InsertPurchase(ctx context.Context, p *model.Purchase) error
}

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
type Store interface {
	Reader

	// Atomic runs fn against a consistent snapshot. If fn returns an error,
	// every write made through the Tx is discarded.
	Atomic(ctx context.Context, fn func(tx Tx) error) error
}
