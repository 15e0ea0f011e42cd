package fixedprice

import (
	"context"

	"github.com/atmx/launchpad-engine/internal/model"
)

// Registry opens atomic units against the listing registry.
type Registry interface {
	// Atomic runs fn as one indivisible unit: if fn returns an error, none
	// of the writes made through the Session survive.
	Atomic(ctx context.Context, fn func(Session) error) error
}

// Session is the registry surface a fixed-price call runs against. It is
// only valid inside the Registry.Atomic callback that produced it.
type Session interface {
	// --- Gating ---

	AssertIsLive(ctx context.Context, listingID string) error
	AssertInventoryIsWhitelisted(ctx context.Context, listingID, inventoryID string) error
	AssertInventoryIsNotWhitelisted(ctx context.Context, listingID, inventoryID string) error

	// --- Whitelist certificates ---

	Certificate(ctx context.Context, certificateID string) (*model.WhitelistCertificate, error)
	AssertCertificateMarket(marketID string, cert *model.WhitelistCertificate) error

	// BurnCertificate irreversibly invalidates cert. A certificate that was
	// already burned fails with model.ErrCertificateBurned.
	BurnCertificate(ctx context.Context, cert *model.WhitelistCertificate) error

	// --- Markets ---

	// Market resolves a market attached to inventoryID within listingID.
	Market(ctx context.Context, listingID, inventoryID, marketID string) (*model.Market, error)

	// MarketMut resolves a market for mutation; caller must be an admin of
	// the listing. Only markets resolved this way may be passed to UpdateMarket.
	MarketMut(ctx context.Context, listingID, inventoryID, marketID, caller string) (*model.Market, error)
	UpdateMarket(ctx context.Context, m *model.Market) error

	// KeepMarket persists a standalone market in the custody of owner.
	KeepMarket(ctx context.Context, owner string, m *model.Market) error

	// AddMarket attaches a new market to an inventory the caller may mutate.
	AddMarket(ctx context.Context, inventoryID, caller string, m *model.Market) error

	// AddMarketToListing attaches a new market to an inventory of a listing
	// the caller administers.
	AddMarketToListing(ctx context.Context, listingID, inventoryID, caller string, m *model.Market) error

	// AttachMarket moves a standalone market held by caller into an inventory.
	AttachMarket(ctx context.Context, inventoryID, marketID, caller string) (*model.Market, error)

	// --- Payment and delivery ---

	Wallet(ctx context.Context, walletID string) (*model.Wallet, error)
	UpdateWallet(ctx context.Context, w *model.Wallet) error

	// Pay forwards withdrawn funds for quantity sold items to the listing.
	Pay(ctx context.Context, listingID string, funds model.Funds, quantity uint64) error

	// RedeemAndTransfer hands one asset of the inventory to recipient. The
	// registry decides which asset; it only honours authentic witnesses.
	RedeemAndTransfer(ctx context.Context, w Witness, listingID, inventoryID, recipient string) (*model.Asset, error)

	RecordPurchase(ctx context.Context, p *model.Purchase) error
}
