// Package registry owns listings, inventories, assets and whitelist
// certificates, and exposes them to pricing strategies through
// fixedprice.Session.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/atmx/launchpad-engine/internal/fixedprice"
	"github.com/atmx/launchpad-engine/internal/model"
	"github.com/atmx/launchpad-engine/internal/store"
)

// Registry is the listing registry backed by a store.
type Registry struct {
	store store.Store
	now   func() time.Time
}

var _ fixedprice.Registry = (*Registry)(nil)

// New creates a registry over st.
func New(st store.Store) *Registry {
	return &Registry{
		store: st,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Atomic opens a session over one store transaction.
func (r *Registry) Atomic(ctx context.Context, fn func(fixedprice.Session) error) error {
	return r.store.Atomic(ctx, func(tx store.Tx) error {
		return fn(newSession(tx))
	})
}

// CreateListing creates a listing administered by admin. New listings are
// not live.
func (r *Registry) CreateListing(ctx context.Context, admin string) (*model.Listing, error) {
	if admin == "" {
		return nil, fmt.Errorf("anonymous admin: %w", model.ErrPermissionDenied)
	}
	l := &model.Listing{
		ID:        uuid.New().String(),
		Admin:     admin,
		CreatedAt: r.now(),
	}
	err := r.store.Atomic(ctx, func(tx store.Tx) error {
		return tx.UpsertListing(ctx, l)
	})
	if err != nil {
		return nil, err
	}
	slog.Info("listing created", "listing_id", l.ID, "admin", admin)
	return l, nil
}

// SetLive opens or closes a listing for purchases.
func (r *Registry) SetLive(ctx context.Context, caller, listingID string, live bool) (*model.Listing, error) {
	var l *model.Listing
	err := r.store.Atomic(ctx, func(tx store.Tx) error {
		if err := newSession(tx).assertListingAdmin(ctx, listingID, caller); err != nil {
			return err
		}
		var err error
		if l, err = tx.GetListing(ctx, listingID); err != nil {
			return err
		}
		l.Live = live
		return tx.UpsertListing(ctx, l)
	})
	if err != nil {
		return nil, err
	}
	slog.Info("listing liveness changed", "listing_id", listingID, "live", live)
	return l, nil
}

// CreateInventory creates an inventory. With an empty listingID the
// inventory is standalone and administered by caller; otherwise caller must
// administer the listing.
func (r *Registry) CreateInventory(ctx context.Context, caller, listingID string, whitelisted bool) (*model.Inventory, error) {
	if caller == "" {
		return nil, fmt.Errorf("anonymous admin: %w", model.ErrPermissionDenied)
	}
	inv := &model.Inventory{
		ID:          uuid.New().String(),
		ListingID:   listingID,
		Admin:       caller,
		Whitelisted: whitelisted,
		CreatedAt:   r.now(),
	}
	err := r.store.Atomic(ctx, func(tx store.Tx) error {
		if listingID != "" {
			if err := newSession(tx).assertListingAdmin(ctx, listingID, caller); err != nil {
				return err
			}
		}
		return tx.UpsertInventory(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	slog.Info("inventory created", "inventory_id", inv.ID, "listing_id", listingID, "whitelisted", whitelisted)
	return inv, nil
}

// AttachInventory moves a standalone inventory administered by caller into
// a listing caller also administers. Markets already on the inventory come
// with it.
func (r *Registry) AttachInventory(ctx context.Context, caller, listingID, inventoryID string) (*model.Inventory, error) {
	var inv *model.Inventory
	err := r.store.Atomic(ctx, func(tx store.Tx) error {
		sess := newSession(tx)
		var err error
		if inv, err = tx.GetInventory(ctx, inventoryID); err != nil {
			return err
		}
		if inv.ListingID != "" {
			return fmt.Errorf("inventory %s already in listing %s: %w", inventoryID, inv.ListingID, model.ErrPermissionDenied)
		}
		if err := sess.assertCanMutate(ctx, inv, caller); err != nil {
			return err
		}
		if err := sess.assertListingAdmin(ctx, listingID, caller); err != nil {
			return err
		}
		inv.ListingID = listingID
		return tx.UpsertInventory(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	slog.Info("inventory attached", "inventory_id", inventoryID, "listing_id", listingID)
	return inv, nil
}

// DepositAssets appends assets to an inventory in the given order, which is
// also the order they are redeemed in.
func (r *Registry) DepositAssets(ctx context.Context, caller, inventoryID string, assetIDs []string) ([]model.Asset, error) {
	assets := make([]model.Asset, 0, len(assetIDs))
	err := r.store.Atomic(ctx, func(tx store.Tx) error {
		assets = assets[:0]
		inv, err := tx.GetInventory(ctx, inventoryID)
		if err != nil {
			return err
		}
		if err := newSession(tx).assertCanMutate(ctx, inv, caller); err != nil {
			return err
		}
		for _, id := range assetIDs {
			a := model.Asset{ID: id, InventoryID: inventoryID}
			if err := tx.InsertAsset(ctx, &a); err != nil {
				return err
			}
			assets = append(assets, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("assets deposited", "inventory_id", inventoryID, "count", len(assets))
	return assets, nil
}

// IssueCertificate grants holder one purchase from marketID. The market must
// sit on an inventory of the listing, which caller must administer.
func (r *Registry) IssueCertificate(ctx context.Context, caller, listingID, marketID, holder string) (*model.WhitelistCertificate, error) {
	if holder == "" {
		return nil, fmt.Errorf("certificate without holder: %w", model.ErrPermissionDenied)
	}
	cert := &model.WhitelistCertificate{
		ID:        uuid.New().String(),
		ListingID: listingID,
		MarketID:  marketID,
		Holder:    holder,
		IssuedAt:  r.now(),
	}
	err := r.store.Atomic(ctx, func(tx store.Tx) error {
		sess := newSession(tx)
		if err := sess.assertListingAdmin(ctx, listingID, caller); err != nil {
			return err
		}
		m, err := tx.GetMarket(ctx, marketID)
		if err != nil {
			return err
		}
		if m.Standalone() {
			return fmt.Errorf("market %s is standalone: %w", marketID, model.ErrMarketNotFound)
		}
		if _, err := sess.inventory(ctx, listingID, m.InventoryID); err != nil {
			return err
		}
		return tx.InsertCertificate(ctx, cert)
	})
	if err != nil {
		return nil, err
	}
	slog.Info("certificate issued", "certificate_id", cert.ID, "market_id", marketID, "holder", holder)
	return cert, nil
}

// Listing returns a listing.
func (r *Registry) Listing(ctx context.Context, id string) (*model.Listing, error) {
	return r.store.GetListing(ctx, id)
}

// Market returns a market attached to inventoryID within listingID. It reads
// outside any atomic unit, so a cached store may serve it.
func (r *Registry) Market(ctx context.Context, listingID, inventoryID, marketID string) (*model.Market, error) {
	inv, err := r.store.GetInventory(ctx, inventoryID)
	if err != nil {
		return nil, err
	}
	if inv.ListingID == "" || inv.ListingID != listingID {
		return nil, fmt.Errorf("inventory %s not in listing %s: %w", inventoryID, listingID, model.ErrInventoryNotFound)
	}
	m, err := r.store.GetMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if m.InventoryID != inventoryID {
		return nil, fmt.Errorf("market %s not in inventory %s: %w", marketID, inventoryID, model.ErrMarketNotFound)
	}
	return m, nil
}

// InventoryStatus is an inventory together with its markets and the number
// of assets still available.
type InventoryStatus struct {
	model.Inventory
	Available int            `json:"available"`
	Markets   []model.Market `json:"markets"`
}

// Inventories returns the inventories of a listing.
func (r *Registry) Inventories(ctx context.Context, listingID string) ([]InventoryStatus, error) {
	if _, err := r.store.GetListing(ctx, listingID); err != nil {
		return nil, err
	}
	invs, err := r.store.ListInventories(ctx, listingID)
	if err != nil {
		return nil, err
	}
	out := make([]InventoryStatus, 0, len(invs))
	for _, inv := range invs {
		st, err := r.status(ctx, inv)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// Inventory returns one inventory with its markets and availability.
func (r *Registry) Inventory(ctx context.Context, id string) (*InventoryStatus, error) {
	inv, err := r.store.GetInventory(ctx, id)
	if err != nil {
		return nil, err
	}
	st, err := r.status(ctx, *inv)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *Registry) status(ctx context.Context, inv model.Inventory) (InventoryStatus, error) {
	n, err := r.store.CountAvailableAssets(ctx, inv.ID)
	if err != nil {
		return InventoryStatus{}, err
	}
	markets, err := r.store.ListMarkets(ctx, inv.ID)
	if err != nil {
		return InventoryStatus{}, err
	}
	return InventoryStatus{Inventory: inv, Available: n, Markets: markets}, nil
}

// Certificate returns a whitelist certificate.
func (r *Registry) Certificate(ctx context.Context, id string) (*model.WhitelistCertificate, error) {
	return r.store.GetCertificate(ctx, id)
}

// Proceeds returns the payment collected by a listing, per currency.
func (r *Registry) Proceeds(ctx context.Context, listingID string) ([]model.Proceeds, error) {
	if _, err := r.store.GetListing(ctx, listingID); err != nil {
		return nil, err
	}
	return r.store.GetProceeds(ctx, listingID)
}

// Assets returns the assets redeemed to owner.
func (r *Registry) Assets(ctx context.Context, owner string) ([]model.Asset, error) {
	return r.store.ListAssetsByOwner(ctx, owner)
}

// Purchases returns the receipts of a buyer.
func (r *Registry) Purchases(ctx context.Context, buyer string) ([]model.Purchase, error) {
	return r.store.ListPurchasesByBuyer(ctx, buyer)
}
