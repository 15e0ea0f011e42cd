package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/atmx/launchpad-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
//
// Atomic serializes units of work and runs each one against a private copy
// of the state, which replaces the shared state only on success.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memState
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

func (s *MemoryStore) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&memTx{memState: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

// --- Reader (snapshot reads under RLock) ---

func (s *MemoryStore) GetListing(ctx context.Context, id string) (*model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.GetListing(ctx, id)
}

func (s *MemoryStore) GetInventory(ctx context.Context, id string) (*model.Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.GetInventory(ctx, id)
}

func (s *MemoryStore) ListInventories(ctx context.Context, listingID string) ([]model.Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ListInventories(ctx, listingID)
}

func (s *MemoryStore) GetMarket(ctx context.Context, id string) (*model.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.GetMarket(ctx, id)
}

func (s *MemoryStore) ListMarkets(ctx context.Context, inventoryID string) ([]model.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ListMarkets(ctx, inventoryID)
}

func (s *MemoryStore) GetCertificate(ctx context.Context, id string) (*model.WhitelistCertificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.GetCertificate(ctx, id)
}

func (s *MemoryStore) GetWallet(ctx context.Context, id string) (*model.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.GetWallet(ctx, id)
}

func (s *MemoryStore) CountAvailableAssets(ctx context.Context, inventoryID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.CountAvailableAssets(ctx, inventoryID)
}

func (s *MemoryStore) ListAssetsByOwner(ctx context.Context, owner string) ([]model.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ListAssetsByOwner(ctx, owner)
}

func (s *MemoryStore) GetProceeds(ctx context.Context, listingID string) ([]model.Proceeds, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.GetProceeds(ctx, listingID)
}

func (s *MemoryStore) ListPurchasesByMarket(ctx context.Context, marketID string) ([]model.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ListPurchasesByMarket(ctx, marketID)
}

func (s *MemoryStore) ListPurchasesByBuyer(ctx context.Context, buyer string) ([]model.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ListPurchasesByBuyer(ctx, buyer)
}

// --- State ---

type proceedsKey struct {
	listingID string
	currency  string
}

// memState holds values, not pointers, so clone is a shallow map copy.
type memState struct {
	listings     map[string]model.Listing
	inventories  map[string]model.Inventory
	markets      map[string]model.Market
	certificates map[string]model.WhitelistCertificate
	wallets      map[string]model.Wallet
	assets       map[string]model.Asset
	assetSeq     int64
	proceeds     map[proceedsKey]model.Proceeds
	purchases    []model.Purchase
}

func newMemState() *memState {
	return &memState{
		listings:     make(map[string]model.Listing),
		inventories:  make(map[string]model.Inventory),
		markets:      make(map[string]model.Market),
		certificates: make(map[string]model.WhitelistCertificate),
		wallets:      make(map[string]model.Wallet),
		assets:       make(map[string]model.Asset),
		proceeds:     make(map[proceedsKey]model.Proceeds),
	}
}

func (st *memState) clone() *memState {
	return &memState{
		listings:     maps.Clone(st.listings),
		inventories:  maps.Clone(st.inventories),
		markets:      maps.Clone(st.markets),
		certificates: maps.Clone(st.certificates),
		wallets:      maps.Clone(st.wallets),
		assets:       maps.Clone(st.assets),
		assetSeq:     st.assetSeq,
		proceeds:     maps.Clone(st.proceeds),
		purchases:    slices.Clone(st.purchases),
	}
}

func (st *memState) GetListing(_ context.Context, id string) (*model.Listing, error) {
	l, ok := st.listings[id]
	if !ok {
		return nil, fmt.Errorf("listing %s: %w", id, model.ErrListingNotFound)
	}
	return &l, nil
}

func (st *memState) GetInventory(_ context.Context, id string) (*model.Inventory, error) {
	inv, ok := st.inventories[id]
	if !ok {
		return nil, fmt.Errorf("inventory %s: %w", id, model.ErrInventoryNotFound)
	}
	return &inv, nil
}

func (st *memState) ListInventories(_ context.Context, listingID string) ([]model.Inventory, error) {
	var result []model.Inventory
	for _, inv := range st.inventories {
		if inv.ListingID == listingID {
			result = append(result, inv)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (st *memState) GetMarket(_ context.Context, id string) (*model.Market, error) {
	m, ok := st.markets[id]
	if !ok {
		return nil, fmt.Errorf("market %s: %w", id, model.ErrMarketNotFound)
	}
	return &m, nil
}

func (st *memState) ListMarkets(_ context.Context, inventoryID string) ([]model.Market, error) {
	var result []model.Market
	for _, m := range st.markets {
		if m.InventoryID == inventoryID {
			result = append(result, m)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (st *memState) GetCertificate(_ context.Context, id string) (*model.WhitelistCertificate, error) {
	c, ok := st.certificates[id]
	if !ok {
		return nil, fmt.Errorf("certificate %s: %w", id, model.ErrCertificateNotFound)
	}
	return &c, nil
}

func (st *memState) GetWallet(_ context.Context, id string) (*model.Wallet, error) {
	w, ok := st.wallets[id]
	if !ok {
		return nil, fmt.Errorf("wallet %s: %w", id, model.ErrWalletNotFound)
	}
	return &w, nil
}

func (st *memState) CountAvailableAssets(_ context.Context, inventoryID string) (int, error) {
	n := 0
	for _, a := range st.assets {
		if a.InventoryID == inventoryID && a.Owner == "" {
			n++
		}
	}
	return n, nil
}

func (st *memState) ListAssetsByOwner(_ context.Context, owner string) ([]model.Asset, error) {
	var result []model.Asset
	for _, a := range st.assets {
		if a.Owner == owner {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Seq < result[j].Seq })
	return result, nil
}

func (st *memState) GetProceeds(_ context.Context, listingID string) ([]model.Proceeds, error) {
	var result []model.Proceeds
	for k, p := range st.proceeds {
		if k.listingID == listingID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Currency < result[j].Currency })
	return result, nil
}

func (st *memState) ListPurchasesByMarket(_ context.Context, marketID string) ([]model.Purchase, error) {
	var result []model.Purchase
	for _, p := range st.purchases {
		if p.MarketID == marketID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (st *memState) ListPurchasesByBuyer(_ context.Context, buyer string) ([]model.Purchase, error) {
	var result []model.Purchase
	for _, p := range st.purchases {
		if p.Buyer == buyer {
			result = append(result, p)
		}
	}
	return result, nil
}

// memTx writes into a private memState owned by one Atomic call.
type memTx struct {
	*memState
}

func (tx *memTx) UpsertListing(_ context.Context, l *model.Listing) error {
	tx.listings[l.ID] = *l
	return nil
}

func (tx *memTx) UpsertInventory(_ context.Context, inv *model.Inventory) error {
	tx.inventories[inv.ID] = *inv
	return nil
}

func (tx *memTx) InsertMarket(_ context.Context, m *model.Market) error {
	if _, exists := tx.markets[m.ID]; exists {
		return fmt.Errorf("market %s already exists", m.ID)
	}
	tx.markets[m.ID] = *m
	return nil
}

func (tx *memTx) UpdateMarket(_ context.Context, m *model.Market) error {
	existing, ok := tx.markets[m.ID]
	if !ok {
		return fmt.Errorf("market %s: %w", m.ID, model.ErrMarketNotFound)
	}
	existing.InventoryID = m.InventoryID
	existing.Owner = m.Owner
	existing.Price = m.Price
	existing.UpdatedAt = m.UpdatedAt
	tx.markets[m.ID] = existing
	return nil
}

func (tx *memTx) InsertCertificate(_ context.Context, c *model.WhitelistCertificate) error {
	if _, exists := tx.certificates[c.ID]; exists {
		return fmt.Errorf("certificate %s already exists", c.ID)
	}
	tx.certificates[c.ID] = *c
	return nil
}

func (tx *memTx) BurnCertificate(_ context.Context, id string) error {
	c, ok := tx.certificates[id]
	if !ok {
		return fmt.Errorf("certificate %s: %w", id, model.ErrCertificateNotFound)
	}
	if c.Burned {
		return fmt.Errorf("certificate %s: %w", id, model.ErrCertificateBurned)
	}
	now := time.Now().UTC()
	c.Burned = true
	c.BurnedAt = &now
	tx.certificates[id] = c
	return nil
}

func (tx *memTx) UpsertWallet(_ context.Context, w *model.Wallet) error {
	tx.wallets[w.ID] = *w
	return nil
}

func (tx *memTx) InsertAsset(_ context.Context, a *model.Asset) error {
	if _, exists := tx.assets[a.ID]; exists {
		return fmt.Errorf("asset %s: %w", a.ID, model.ErrAssetExists)
	}
	tx.assetSeq++
	a.Seq = tx.assetSeq
	tx.assets[a.ID] = *a
	return nil
}

func (tx *memTx) NextAsset(_ context.Context, inventoryID string) (*model.Asset, error) {
	var next *model.Asset
	for _, a := range tx.assets {
		if a.InventoryID != inventoryID || a.Owner != "" {
			continue
		}
		if next == nil || a.Seq < next.Seq {
			candidate := a
			next = &candidate
		}
	}
	if next == nil {
		return nil, fmt.Errorf("inventory %s: %w", inventoryID, model.ErrInventoryEmpty)
	}
	return next, nil
}

func (tx *memTx) TransferAsset(_ context.Context, assetID, owner string) error {
	a, ok := tx.assets[assetID]
	if !ok {
		return fmt.Errorf("asset %s not found", assetID)
	}
	a.Owner = owner
	tx.assets[assetID] = a
	return nil
}

func (tx *memTx) AddProceeds(_ context.Context, listingID string, funds model.Funds, quantity uint64) error {
	k := proceedsKey{listingID: listingID, currency: funds.Currency}
	p := tx.proceeds[k]
	if funds.Amount > ^uint64(0)-p.Amount {
		return model.ErrAmountOverflow
	}
	p.ListingID = listingID
	p.Currency = funds.Currency
	p.Amount += funds.Amount
	p.Sold += quantity
	tx.proceeds[k] = p
	return nil
}

func (tx *memTx) InsertPurchase(_ context.Context, p *model.Purchase) error {
	tx.purchases = append(tx.purchases, *p)
	return nil
}
