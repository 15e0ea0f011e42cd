package fixedprice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/atmx/launchpad-engine/internal/currency"
	"github.com/atmx/launchpad-engine/internal/metrics"
	"github.com/atmx/launchpad-engine/internal/model"
)

// CreateMarketStandalone creates a market that belongs to no inventory and
// hands custody of it to caller.
func (s *Service) CreateMarketStandalone(ctx context.Context, caller, currencyCode string, price uint64) (*model.Market, error) {
	if caller == "" {
		return nil, fmt.Errorf("anonymous caller: %w", model.ErrPermissionDenied)
	}
	return s.register(ctx, "standalone", currencyCode, price, func(sess Session, m *model.Market) error {
		return sess.KeepMarket(ctx, caller, m)
	})
}

// CreateMarketOnInventory creates a market and attaches it to an inventory
// the caller is allowed to mutate.
func (s *Service) CreateMarketOnInventory(ctx context.Context, caller, inventoryID, currencyCode string, price uint64) (*model.Market, error) {
	return s.register(ctx, "inventory", currencyCode, price, func(sess Session, m *model.Market) error {
		return sess.AddMarket(ctx, inventoryID, caller, m)
	})
}

// CreateMarketOnListing creates a market and attaches it to an inventory of
// a listing the caller administers.
func (s *Service) CreateMarketOnListing(ctx context.Context, caller, listingID, inventoryID, currencyCode string, price uint64) (*model.Market, error) {
	return s.register(ctx, "listing", currencyCode, price, func(sess Session, m *model.Market) error {
		return sess.AddMarketToListing(ctx, listingID, inventoryID, caller, m)
	})
}

// AttachMarket moves a standalone market held by caller into an inventory.
func (s *Service) AttachMarket(ctx context.Context, caller, inventoryID, marketID string) (*model.Market, error) {
	unlock, err := s.locker.Lock(ctx, marketKey(marketID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var m *model.Market
	err = s.registry.Atomic(ctx, func(sess Session) error {
		var err error
		m, err = sess.AttachMarket(ctx, inventoryID, marketID, caller)
		return err
	})
	if err != nil {
		return nil, err
	}
	slog.Info("market attached", "market_id", marketID, "inventory_id", inventoryID, "caller", caller)
	return m, nil
}

func (s *Service) register(ctx context.Context, path, currencyCode string, price uint64, attach func(Session, *model.Market) error) (*model.Market, error) {
	c, err := currency.Parse(currencyCode)
	if err != nil {
		return nil, err
	}
	m := NewMarket(c.Code, price)

	err = s.registry.Atomic(ctx, func(sess Session) error {
		return attach(sess, m)
	})
	if err != nil {
		return nil, err
	}

	metrics.MarketsCreated.WithLabelValues(path).Inc()
	slog.Info("market created",
		"market_id", m.ID,
		"path", path,
		"inventory_id", m.InventoryID,
		"currency", m.Currency,
		"price", m.Price,
	)
	return m, nil
}
