package fixedprice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/atmx/launchpad-engine/internal/metrics"
	"github.com/atmx/launchpad-engine/internal/model"
)

const (
	pathPublic      = "public"
	pathWhitelisted = "whitelisted"
)

// BuyRequest identifies the market being bought from and the paying wallet.
type BuyRequest struct {
	Buyer       string `json:"buyer"`
	ListingID   string `json:"listing_id"`
	InventoryID string `json:"inventory_id"`
	MarketID    string `json:"market_id"`
	WalletID    string `json:"wallet_id"`
}

// Buy purchases one asset from a market on a non-whitelisted inventory.
func (s *Service) Buy(ctx context.Context, req BuyRequest) (*model.Purchase, error) {
	return s.execute(ctx, pathPublic, req, "", func(ctx context.Context, sess Session) error {
		if err := sess.AssertIsLive(ctx, req.ListingID); err != nil {
			return err
		}
		return sess.AssertInventoryIsNotWhitelisted(ctx, req.ListingID, req.InventoryID)
	})
}

// BuyWhitelisted purchases one asset from a market on a whitelisted
// inventory, consuming certificateID. The certificate is only spent if the
// whole purchase succeeds.
func (s *Service) BuyWhitelisted(ctx context.Context, req BuyRequest, certificateID string) (*model.Purchase, error) {
	return s.execute(ctx, pathWhitelisted, req, certificateID, func(ctx context.Context, sess Session) error {
		if err := sess.AssertIsLive(ctx, req.ListingID); err != nil {
			return err
		}
		if err := sess.AssertInventoryIsWhitelisted(ctx, req.ListingID, req.InventoryID); err != nil {
			return err
		}
		cert, err := sess.Certificate(ctx, certificateID)
		if err != nil {
			return err
		}
		if err := sess.AssertCertificateMarket(req.MarketID, cert); err != nil {
			return err
		}
		if cert.Holder != req.Buyer {
			return fmt.Errorf("certificate %s is not held by %s: %w", certificateID, req.Buyer, model.ErrPermissionDenied)
		}
		return sess.BurnCertificate(ctx, cert)
	})
}

func (s *Service) execute(ctx context.Context, path string, req BuyRequest, certificateID string, gate func(context.Context, Session) error) (*model.Purchase, error) {
	start := time.Now()
	receipt, err := s.purchase(ctx, req, certificateID, gate)
	metrics.PurchaseLatency.WithLabelValues(path).Observe(time.Since(start).Seconds())

	if err != nil {
		reason := model.Kind(err)
		metrics.PurchaseRejections.WithLabelValues(path, reason).Inc()
		slog.Info("purchase rejected",
			"path", path,
			"reason", reason,
			"market_id", req.MarketID,
			"buyer", req.Buyer,
			"error", err,
		)
		return nil, err
	}

	metrics.PurchasesTotal.WithLabelValues(path).Inc()
	metrics.ProceedsTotal.WithLabelValues(receipt.Currency).Add(float64(receipt.Price))
	if certificateID != "" {
		metrics.CertificatesBurned.Inc()
	}
	slog.Info("purchase completed",
		"purchase_id", receipt.ID,
		"path", path,
		"market_id", receipt.MarketID,
		"buyer", receipt.Buyer,
		"asset_id", receipt.AssetID,
		"price", receipt.Price,
		"currency", receipt.Currency,
	)
	return receipt, nil
}

// purchase runs gate, then payment and redemption, in one atomic unit.
func (s *Service) purchase(ctx context.Context, req BuyRequest, certificateID string, gate func(context.Context, Session) error) (*model.Purchase, error) {
	if req.Buyer == "" {
		return nil, fmt.Errorf("anonymous buyer: %w", model.ErrPermissionDenied)
	}

	keys := []string{marketKey(req.MarketID), walletKey(req.WalletID)}
	if certificateID != "" {
		keys = append(keys, certificateKey(certificateID))
	}
	unlock, err := s.locker.Lock(ctx, keys...)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var receipt *model.Purchase
	err = s.registry.Atomic(ctx, func(sess Session) error {
		if err := gate(ctx, sess); err != nil {
			return err
		}

		wallet, err := sess.Wallet(ctx, req.WalletID)
		if err != nil {
			return err
		}
		if wallet.Owner != req.Buyer {
			return fmt.Errorf("wallet %s is not owned by %s: %w", req.WalletID, req.Buyer, model.ErrPermissionDenied)
		}

		m, err := s.lookup(ctx, sess, req, wallet.Currency)
		if err != nil {
			return err
		}

		funds, err := wallet.Withdraw(Price(m))
		if err != nil {
			return fmt.Errorf("wallet %s holds %d, price %d: %w", wallet.ID, wallet.Balance, m.Price, err)
		}
		if err := sess.UpdateWallet(ctx, wallet); err != nil {
			return err
		}
		if err := sess.Pay(ctx, req.ListingID, funds, 1); err != nil {
			return err
		}

		asset, err := sess.RedeemAndTransfer(ctx, witness(), req.ListingID, req.InventoryID, req.Buyer)
		if err != nil {
			return err
		}

		receipt = &model.Purchase{
			ID:            uuid.New().String(),
			ListingID:     req.ListingID,
			InventoryID:   req.InventoryID,
			MarketID:      m.ID,
			Buyer:         req.Buyer,
			WalletID:      wallet.ID,
			CertificateID: certificateID,
			AssetID:       asset.ID,
			Currency:      funds.Currency,
			Price:         funds.Amount,
			Quantity:      1,
			Timestamp:     s.now(),
		}
		return sess.RecordPurchase(ctx, receipt)
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// lookup resolves the market and checks it is a fixed-price market priced in
// the paying currency. Anything else is treated as absent.
func (s *Service) lookup(ctx context.Context, sess Session, req BuyRequest, currency string) (*model.Market, error) {
	m, err := sess.Market(ctx, req.ListingID, req.InventoryID, req.MarketID)
	if err != nil {
		return nil, err
	}
	if m.Strategy != Strategy || m.Currency != currency {
		return nil, fmt.Errorf("market %s is %s/%s, want %s/%s: %w",
			m.ID, m.Strategy, m.Currency, Strategy, currency, model.ErrMarketNotFound)
	}
	return m, nil
}
