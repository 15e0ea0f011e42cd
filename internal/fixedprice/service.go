package fixedprice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/atmx/launchpad-engine/internal/lock"
	"github.com/atmx/launchpad-engine/internal/metrics"
	"github.com/atmx/launchpad-engine/internal/model"
)

// Service runs fixed-price operations against a registry. Calls touching the
// same market, wallet or certificate are serialized through the locker; the
// registry's atomic unit provides all-or-nothing semantics within a call.
type Service struct {
	registry Registry
	locker   lock.Locker
	now      func() time.Time
}

// NewService creates a fixed-price service.
func NewService(registry Registry, locker lock.Locker) *Service {
	return &Service{
		registry: registry,
		locker:   locker,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Market returns the fixed-price market attached to inventoryID within
// listingID. Markets of other strategies are reported as not found.
func (s *Service) Market(ctx context.Context, listingID, inventoryID, marketID string) (*model.Market, error) {
	var m *model.Market
	err := s.registry.Atomic(ctx, func(sess Session) error {
		var err error
		m, err = sess.Market(ctx, listingID, inventoryID, marketID)
		if err != nil {
			return err
		}
		if m.Strategy != Strategy {
			return fmt.Errorf("market %s: %w", marketID, model.ErrMarketNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Price reads the current price of a market.
func (s *Service) Price(ctx context.Context, listingID, inventoryID, marketID string) (uint64, error) {
	m, err := s.Market(ctx, listingID, inventoryID, marketID)
	if err != nil {
		return 0, err
	}
	return Price(m), nil
}

// SetPrice replaces the price of a market. The caller must administer the
// listing; markets of other strategies are reported as not found.
func (s *Service) SetPrice(ctx context.Context, caller, listingID, inventoryID, marketID string, price uint64) (*model.Market, error) {
	unlock, err := s.locker.Lock(ctx, marketKey(marketID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		updated  *model.Market
		oldPrice uint64
	)
	err = s.registry.Atomic(ctx, func(sess Session) error {
		m, err := sess.MarketMut(ctx, listingID, inventoryID, marketID, caller)
		if err != nil {
			return err
		}
		if m.Strategy != Strategy {
			return fmt.Errorf("market %s: %w", marketID, model.ErrMarketNotFound)
		}
		oldPrice = m.Price
		m.Price = price
		m.UpdatedAt = s.now()
		if err := sess.UpdateMarket(ctx, m); err != nil {
			return err
		}
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.PriceUpdates.Inc()
	slog.Info("price updated",
		"market_id", marketID,
		"listing_id", listingID,
		"caller", caller,
		"old_price", oldPrice,
		"new_price", price,
	)
	return updated, nil
}

func marketKey(id string) string      { return "market:" + id }
func walletKey(id string) string      { return "wallet:" + id }
func certificateKey(id string) string { return "certificate:" + id }
