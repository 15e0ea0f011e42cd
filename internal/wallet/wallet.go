// Package wallet manages single-currency buyer balances.
package wallet

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/atmx/launchpad-engine/internal/currency"
	"github.com/atmx/launchpad-engine/internal/model"
	"github.com/atmx/launchpad-engine/internal/store"
)

// Service creates and funds wallets.
type Service struct {
	store store.Store
}

// NewService creates a wallet service.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Create opens an empty wallet for owner in the given currency.
func (s *Service) Create(ctx context.Context, owner, currencyCode string) (*model.Wallet, error) {
	if owner == "" {
		return nil, fmt.Errorf("anonymous owner: %w", model.ErrPermissionDenied)
	}
	c, err := currency.Parse(currencyCode)
	if err != nil {
		return nil, err
	}
	w := &model.Wallet{
		ID:       uuid.New().String(),
		Owner:    owner,
		Currency: c.Code,
	}
	if err := s.store.Atomic(ctx, func(tx store.Tx) error {
		return tx.UpsertWallet(ctx, w)
	}); err != nil {
		return nil, err
	}
	slog.Info("wallet created", "wallet_id", w.ID, "owner", owner, "currency", c.Code)
	return w, nil
}

// Deposit credits amount smallest units to a wallet owned by caller.
func (s *Service) Deposit(ctx context.Context, caller, walletID string, amount uint64) (*model.Wallet, error) {
	var w *model.Wallet
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		var err error
		if w, err = tx.GetWallet(ctx, walletID); err != nil {
			return err
		}
		if w.Owner != caller {
			return fmt.Errorf("wallet %s is not owned by %q: %w", walletID, caller, model.ErrPermissionDenied)
		}
		if err := w.Deposit(amount); err != nil {
			return fmt.Errorf("wallet %s: %w", walletID, err)
		}
		return tx.UpsertWallet(ctx, w)
	})
	if err != nil {
		return nil, err
	}
	slog.Info("wallet funded", "wallet_id", walletID, "amount", amount, "balance", w.Balance)
	return w, nil
}

// Get returns a wallet.
func (s *Service) Get(ctx context.Context, walletID string) (*model.Wallet, error) {
	return s.store.GetWallet(ctx, walletID)
}
