package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atmx/launchpad-engine/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// PostgresStore implements Store using PostgreSQL as the source of truth.
// Amounts are stored as NUMERIC and exchanged as text so the whole uint64
// range survives the round trip.
//
// Inside Atomic, entity reads take row locks (SELECT ... FOR UPDATE), which
// gives each unit exclusive access to the rows it touches.
type PostgresStore struct {
	pool *pgxpool.Pool
	pgReader
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, pgReader: pgReader{q: pool}}
}

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{pgReader: pgReader{q: tx, forUpdate: true}}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgReader struct {
	q         querier
	forUpdate bool
}

func (r pgReader) lock() string {
	if r.forUpdate {
		return " FOR UPDATE"
	}
	return ""
}

func (r pgReader) GetListing(ctx context.Context, id string) (*model.Listing, error) {
	var l model.Listing
	err := r.q.QueryRow(ctx,
		`SELECT id, admin, live, created_at FROM listings WHERE id = $1`+r.lock(), id).
		Scan(&l.ID, &l.Admin, &l.Live, &l.CreatedAt)
	if err != nil {
		return nil, notFound(err, model.ErrListingNotFound, "listing", id)
	}
	return &l, nil
}

func (r pgReader) GetInventory(ctx context.Context, id string) (*model.Inventory, error) {
	var inv model.Inventory
	err := r.q.QueryRow(ctx,
		`SELECT id, listing_id, admin, whitelisted, created_at FROM inventories WHERE id = $1`+r.lock(), id).
		Scan(&inv.ID, &inv.ListingID, &inv.Admin, &inv.Whitelisted, &inv.CreatedAt)
	if err != nil {
		return nil, notFound(err, model.ErrInventoryNotFound, "inventory", id)
	}
	return &inv, nil
}

func (r pgReader) ListInventories(ctx context.Context, listingID string) ([]model.Inventory, error) {
	rows, err := r.q.Query(ctx,
		`SELECT id, listing_id, admin, whitelisted, created_at
		 FROM inventories WHERE listing_id = $1 ORDER BY created_at`, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Inventory
	for rows.Next() {
		var inv model.Inventory
		if err := rows.Scan(&inv.ID, &inv.ListingID, &inv.Admin, &inv.Whitelisted, &inv.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, inv)
	}
	return result, rows.Err()
}

const marketColumns = `id, inventory_id, owner, strategy, currency, price::TEXT, created_at, updated_at`

func (r pgReader) GetMarket(ctx context.Context, id string) (*model.Market, error) {
	m, err := scanMarket(r.q.QueryRow(ctx,
		`SELECT `+marketColumns+` FROM markets WHERE id = $1`+r.lock(), id))
	if err != nil {
		return nil, notFound(err, model.ErrMarketNotFound, "market", id)
	}
	return m, nil
}

func (r pgReader) ListMarkets(ctx context.Context, inventoryID string) ([]model.Market, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+marketColumns+` FROM markets WHERE inventory_id = $1 ORDER BY created_at`, inventoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var markets []model.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, err
		}
		markets = append(markets, *m)
	}
	return markets, rows.Err()
}

func (r pgReader) GetCertificate(ctx context.Context, id string) (*model.WhitelistCertificate, error) {
	var c model.WhitelistCertificate
	err := r.q.QueryRow(ctx,
		`SELECT id, listing_id, market_id, holder, burned, issued_at, burned_at
		 FROM whitelist_certificates WHERE id = $1`+r.lock(), id).
		Scan(&c.ID, &c.ListingID, &c.MarketID, &c.Holder, &c.Burned, &c.IssuedAt, &c.BurnedAt)
	if err != nil {
		return nil, notFound(err, model.ErrCertificateNotFound, "certificate", id)
	}
	return &c, nil
}

func (r pgReader) GetWallet(ctx context.Context, id string) (*model.Wallet, error) {
	var w model.Wallet
	var balance string
	err := r.q.QueryRow(ctx,
		`SELECT id, owner, currency, balance::TEXT FROM wallets WHERE id = $1`+r.lock(), id).
		Scan(&w.ID, &w.Owner, &w.Currency, &balance)
	if err != nil {
		return nil, notFound(err, model.ErrWalletNotFound, "wallet", id)
	}
	if w.Balance, err = parseAmount(balance); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r pgReader) CountAvailableAssets(ctx context.Context, inventoryID string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM assets WHERE inventory_id = $1 AND owner = ''`, inventoryID).Scan(&n)
	return n, err
}

func (r pgReader) ListAssetsByOwner(ctx context.Context, owner string) ([]model.Asset, error) {
	rows, err := r.q.Query(ctx,
		`SELECT id, inventory_id, owner, seq FROM assets WHERE owner = $1 ORDER BY seq`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []model.Asset
	for rows.Next() {
		var a model.Asset
		if err := rows.Scan(&a.ID, &a.InventoryID, &a.Owner, &a.Seq); err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func (r pgReader) GetProceeds(ctx context.Context, listingID string) ([]model.Proceeds, error) {
	rows, err := r.q.Query(ctx,
		`SELECT listing_id, currency, amount::TEXT, sold::TEXT
		 FROM proceeds WHERE listing_id = $1 ORDER BY currency`, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Proceeds
	for rows.Next() {
		var p model.Proceeds
		var amountS, soldS string
		if err := rows.Scan(&p.ListingID, &p.Currency, &amountS, &soldS); err != nil {
			return nil, err
		}
		if p.Amount, err = parseAmount(amountS); err != nil {
			return nil, err
		}
		if p.Sold, err = parseAmount(soldS); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

const purchaseColumns = `id, listing_id, inventory_id, market_id, buyer, wallet_id, certificate_id,
	asset_id, currency, price::TEXT, quantity::TEXT, timestamp`

func (r pgReader) ListPurchasesByMarket(ctx context.Context, marketID string) ([]model.Purchase, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+purchaseColumns+` FROM purchases WHERE market_id = $1 ORDER BY timestamp`, marketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPurchases(rows)
}

func (r pgReader) ListPurchasesByBuyer(ctx context.Context, buyer string) ([]model.Purchase, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+purchaseColumns+` FROM purchases WHERE buyer = $1 ORDER BY timestamp`, buyer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPurchases(rows)
}

// pgTx is the write side of one transaction.
type pgTx struct {
	pgReader
}

func (tx *pgTx) UpsertListing(ctx context.Context, l *model.Listing) error {
	_, err := tx.q.Exec(ctx,
		`INSERT INTO listings (id, admin, live, created_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET admin = EXCLUDED.admin, live = EXCLUDED.live`,
		l.ID, l.Admin, l.Live, l.CreatedAt)
	return err
}

func (tx *pgTx) UpsertInventory(ctx context.Context, inv *model.Inventory) error {
	_, err := tx.q.Exec(ctx,
		`INSERT INTO inventories (id, listing_id, admin, whitelisted, created_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		 SET listing_id = EXCLUDED.listing_id, admin = EXCLUDED.admin, whitelisted = EXCLUDED.whitelisted`,
		inv.ID, inv.ListingID, inv.Admin, inv.Whitelisted, inv.CreatedAt)
	return err
}

func (tx *pgTx) InsertMarket(ctx context.Context, m *model.Market) error {
	_, err := tx.q.Exec(ctx,
		`INSERT INTO markets (id, inventory_id, owner, strategy, currency, price, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7, $8)`,
		m.ID, m.InventoryID, m.Owner, m.Strategy, m.Currency,
		formatAmount(m.Price), m.CreatedAt, m.UpdatedAt)
	return err
}

func (tx *pgTx) UpdateMarket(ctx context.Context, m *model.Market) error {
	tag, err := tx.q.Exec(ctx,
		`UPDATE markets SET inventory_id = $2, owner = $3, price = $4::NUMERIC, updated_at = $5
		 WHERE id = $1`,
		m.ID, m.InventoryID, m.Owner, formatAmount(m.Price), m.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("market %s: %w", m.ID, model.ErrMarketNotFound)
	}
	return nil
}

func (tx *pgTx) InsertCertificate(ctx context.Context, c *model.WhitelistCertificate) error {
	_, err := tx.q.Exec(ctx,
		`INSERT INTO whitelist_certificates (id, listing_id, market_id, holder, burned, issued_at)
		 VALUES ($1, $2, $3, $4, FALSE, $5)`,
		c.ID, c.ListingID, c.MarketID, c.Holder, c.IssuedAt)
	return err
}

func (tx *pgTx) BurnCertificate(ctx context.Context, id string) error {
	tag, err := tx.q.Exec(ctx,
		`UPDATE whitelist_certificates SET burned = TRUE, burned_at = $2
		 WHERE id = $1 AND burned = FALSE`,
		id, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := tx.GetCertificate(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("certificate %s: %w", id, model.ErrCertificateBurned)
}

func (tx *pgTx) UpsertWallet(ctx context.Context, w *model.Wallet) error {
	_, err := tx.q.Exec(ctx,
		`INSERT INTO wallets (id, owner, currency, balance) VALUES ($1, $2, $3, $4::NUMERIC)
		 ON CONFLICT (id) DO UPDATE SET balance = EXCLUDED.balance`,
		w.ID, w.Owner, w.Currency, formatAmount(w.Balance))
	return err
}

func (tx *pgTx) InsertAsset(ctx context.Context, a *model.Asset) error {
	err := tx.q.QueryRow(ctx,
		`INSERT INTO assets (id, inventory_id, owner) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO NOTHING
		 RETURNING seq`,
		a.ID, a.InventoryID, a.Owner).Scan(&a.Seq)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("asset %s: %w", a.ID, model.ErrAssetExists)
	}
	return err
}

func (tx *pgTx) NextAsset(ctx context.Context, inventoryID string) (*model.Asset, error) {
	var a model.Asset
	err := tx.q.QueryRow(ctx,
		`SELECT id, inventory_id, owner, seq FROM assets
		 WHERE inventory_id = $1 AND owner = ''
		 ORDER BY seq LIMIT 1
		 FOR UPDATE SKIP LOCKED`, inventoryID).
		Scan(&a.ID, &a.InventoryID, &a.Owner, &a.Seq)
	if err != nil {
		return nil, notFound(err, model.ErrInventoryEmpty, "inventory", inventoryID)
	}
	return &a, nil
}

func (tx *pgTx) TransferAsset(ctx context.Context, assetID, owner string) error {
	tag, err := tx.q.Exec(ctx, `UPDATE assets SET owner = $2 WHERE id = $1`, assetID, owner)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("asset %s not found", assetID)
	}
	return nil
}

func (tx *pgTx) AddProceeds(ctx context.Context, listingID string, funds model.Funds, quantity uint64) error {
	var total string
	err := tx.q.QueryRow(ctx,
		`INSERT INTO proceeds (listing_id, currency, amount, sold) VALUES ($1, $2, $3::NUMERIC, $4::NUMERIC)
		 ON CONFLICT (listing_id, currency) DO UPDATE
		 SET amount = proceeds.amount + EXCLUDED.amount, sold = proceeds.sold + EXCLUDED.sold
		 RETURNING amount::TEXT`,
		listingID, funds.Currency, formatAmount(funds.Amount), formatAmount(quantity)).Scan(&total)
	if err != nil {
		return err
	}
	if _, err := parseAmount(total); err != nil {
		return model.ErrAmountOverflow
	}
	return nil
}

func (tx *pgTx) InsertPurchase(ctx context.Context, p *model.Purchase) error {
	_, err := tx.q.Exec(ctx,
		`INSERT INTO purchases (id, listing_id, inventory_id, market_id, buyer, wallet_id, certificate_id,
		                        asset_id, currency, price, quantity, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::NUMERIC, $11::NUMERIC, $12)`,
		p.ID, p.ListingID, p.InventoryID, p.MarketID, p.Buyer, p.WalletID, p.CertificateID,
		p.AssetID, p.Currency, formatAmount(p.Price), formatAmount(p.Quantity), p.Timestamp)
	return err
}

// --- Scan helpers ---

func scanMarket(row pgx.Row) (*model.Market, error) {
	var m model.Market
	var price string
	if err := row.Scan(&m.ID, &m.InventoryID, &m.Owner, &m.Strategy, &m.Currency,
		&price, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if m.Price, err = parseAmount(price); err != nil {
		return nil, err
	}
	return &m, nil
}

func scanPurchases(rows pgx.Rows) ([]model.Purchase, error) {
	var purchases []model.Purchase
	for rows.Next() {
		var p model.Purchase
		var priceS, qtyS string
		if err := rows.Scan(&p.ID, &p.ListingID, &p.InventoryID, &p.MarketID, &p.Buyer, &p.WalletID,
			&p.CertificateID, &p.AssetID, &p.Currency, &priceS, &qtyS, &p.Timestamp); err != nil {
			return nil, err
		}
		var err error
		if p.Price, err = parseAmount(priceS); err != nil {
			return nil, err
		}
		if p.Quantity, err = parseAmount(qtyS); err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}

func notFound(err, sentinel error, kind, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, sentinel)
	}
	return fmt.Errorf("get %s %s: %w", kind, id, err)
}

func formatAmount(v uint64) string { return strconv.FormatUint(v, 10) }

func parseAmount(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("postgres: amount %q: %w", s, err)
	}
	return v, nil
}
