package registry

import (
	"context"
	"fmt"

	"github.com/atmx/launchpad-engine/internal/fixedprice"
	"github.com/atmx/launchpad-engine/internal/model"
	"github.com/atmx/launchpad-engine/internal/store"
)

// session implements fixedprice.Session over one store transaction.
type session struct {
	tx store.Tx

	// markets resolved through MarketMut in this unit
	mutable map[string]bool
}

var _ fixedprice.Session = (*session)(nil)

func newSession(tx store.Tx) *session {
	return &session{tx: tx, mutable: make(map[string]bool)}
}

func (s *session) AssertIsLive(ctx context.Context, listingID string) error {
	l, err := s.tx.GetListing(ctx, listingID)
	if err != nil {
		return err
	}
	if !l.Live {
		return fmt.Errorf("listing %s: %w", listingID, model.ErrSaleNotLive)
	}
	return nil
}

func (s *session) AssertInventoryIsWhitelisted(ctx context.Context, listingID, inventoryID string) error {
	inv, err := s.inventory(ctx, listingID, inventoryID)
	if err != nil {
		return err
	}
	if !inv.Whitelisted {
		return fmt.Errorf("inventory %s is public: %w", inventoryID, model.ErrWhitelistMismatch)
	}
	return nil
}

func (s *session) AssertInventoryIsNotWhitelisted(ctx context.Context, listingID, inventoryID string) error {
	inv, err := s.inventory(ctx, listingID, inventoryID)
	if err != nil {
		return err
	}
	if inv.Whitelisted {
		return fmt.Errorf("inventory %s is whitelisted: %w", inventoryID, model.ErrWhitelistMismatch)
	}
	return nil
}

func (s *session) Certificate(ctx context.Context, certificateID string) (*model.WhitelistCertificate, error) {
	return s.tx.GetCertificate(ctx, certificateID)
}

func (s *session) AssertCertificateMarket(marketID string, cert *model.WhitelistCertificate) error {
	if cert.MarketID != marketID {
		return fmt.Errorf("certificate %s is for market %s, not %s: %w",
			cert.ID, cert.MarketID, marketID, model.ErrCertificateMarketMismatch)
	}
	return nil
}

func (s *session) BurnCertificate(ctx context.Context, cert *model.WhitelistCertificate) error {
	if err := s.tx.BurnCertificate(ctx, cert.ID); err != nil {
		return err
	}
	cert.Burned = true
	return nil
}

func (s *session) Market(ctx context.Context, listingID, inventoryID, marketID string) (*model.Market, error) {
	if _, err := s.inventory(ctx, listingID, inventoryID); err != nil {
		return nil, err
	}
	m, err := s.tx.GetMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if m.InventoryID != inventoryID {
		return nil, fmt.Errorf("market %s not in inventory %s: %w", marketID, inventoryID, model.ErrMarketNotFound)
	}
	return m, nil
}

func (s *session) MarketMut(ctx context.Context, listingID, inventoryID, marketID, caller string) (*model.Market, error) {
	if err := s.assertListingAdmin(ctx, listingID, caller); err != nil {
		return nil, err
	}
	m, err := s.Market(ctx, listingID, inventoryID, marketID)
	if err != nil {
		return nil, err
	}
	s.mutable[m.ID] = true
	return m, nil
}

func (s *session) UpdateMarket(ctx context.Context, m *model.Market) error {
	if !s.mutable[m.ID] {
		return fmt.Errorf("market %s was not resolved for mutation: %w", m.ID, model.ErrPermissionDenied)
	}
	return s.tx.UpdateMarket(ctx, m)
}

func (s *session) KeepMarket(ctx context.Context, owner string, m *model.Market) error {
	m.InventoryID = ""
	m.Owner = owner
	return s.tx.InsertMarket(ctx, m)
}

func (s *session) AddMarket(ctx context.Context, inventoryID, caller string, m *model.Market) error {
	inv, err := s.tx.GetInventory(ctx, inventoryID)
	if err != nil {
		return err
	}
	if err := s.assertCanMutate(ctx, inv, caller); err != nil {
		return err
	}
	m.InventoryID = inv.ID
	m.Owner = ""
	return s.tx.InsertMarket(ctx, m)
}

func (s *session) AddMarketToListing(ctx context.Context, listingID, inventoryID, caller string, m *model.Market) error {
	if err := s.assertListingAdmin(ctx, listingID, caller); err != nil {
		return err
	}
	inv, err := s.inventory(ctx, listingID, inventoryID)
	if err != nil {
		return err
	}
	m.InventoryID = inv.ID
	m.Owner = ""
	return s.tx.InsertMarket(ctx, m)
}

func (s *session) AttachMarket(ctx context.Context, inventoryID, marketID, caller string) (*model.Market, error) {
	m, err := s.tx.GetMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if !m.Standalone() || m.Owner != caller {
		return nil, fmt.Errorf("market %s is not held by %s: %w", marketID, caller, model.ErrPermissionDenied)
	}
	inv, err := s.tx.GetInventory(ctx, inventoryID)
	if err != nil {
		return nil, err
	}
	if err := s.assertCanMutate(ctx, inv, caller); err != nil {
		return nil, err
	}
	m.InventoryID = inv.ID
	m.Owner = ""
	if err := s.tx.UpdateMarket(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *session) Wallet(ctx context.Context, walletID string) (*model.Wallet, error) {
	return s.tx.GetWallet(ctx, walletID)
}

func (s *session) UpdateWallet(ctx context.Context, w *model.Wallet) error {
	return s.tx.UpsertWallet(ctx, w)
}

func (s *session) Pay(ctx context.Context, listingID string, funds model.Funds, quantity uint64) error {
	return s.tx.AddProceeds(ctx, listingID, funds, quantity)
}

func (s *session) RedeemAndTransfer(ctx context.Context, w fixedprice.Witness, listingID, inventoryID, recipient string) (*model.Asset, error) {
	if !w.Authentic() {
		return nil, fmt.Errorf("redemption without strategy witness: %w", model.ErrPermissionDenied)
	}
	if _, err := s.inventory(ctx, listingID, inventoryID); err != nil {
		return nil, err
	}
	a, err := s.tx.NextAsset(ctx, inventoryID)
	if err != nil {
		return nil, err
	}
	if err := s.tx.TransferAsset(ctx, a.ID, recipient); err != nil {
		return nil, err
	}
	a.Owner = recipient
	return a, nil
}

func (s *session) RecordPurchase(ctx context.Context, p *model.Purchase) error {
	return s.tx.InsertPurchase(ctx, p)
}

// inventory resolves an inventory that belongs to listingID.
func (s *session) inventory(ctx context.Context, listingID, inventoryID string) (*model.Inventory, error) {
	inv, err := s.tx.GetInventory(ctx, inventoryID)
	if err != nil {
		return nil, err
	}
	if inv.ListingID == "" || inv.ListingID != listingID {
		return nil, fmt.Errorf("inventory %s not in listing %s: %w", inventoryID, listingID, model.ErrInventoryNotFound)
	}
	return inv, nil
}

func (s *session) assertListingAdmin(ctx context.Context, listingID, caller string) error {
	l, err := s.tx.GetListing(ctx, listingID)
	if err != nil {
		return err
	}
	if caller == "" || l.Admin != caller {
		return fmt.Errorf("%q does not administer listing %s: %w", caller, listingID, model.ErrPermissionDenied)
	}
	return nil
}

// assertCanMutate checks caller against the inventory admin, or the listing
// admin once the inventory has been attached to a listing.
func (s *session) assertCanMutate(ctx context.Context, inv *model.Inventory, caller string) error {
	if inv.ListingID != "" {
		return s.assertListingAdmin(ctx, inv.ListingID, caller)
	}
	if caller == "" || inv.Admin != caller {
		return fmt.Errorf("%q does not administer inventory %s: %w", caller, inv.ID, model.ErrPermissionDenied)
	}
	return nil
}
