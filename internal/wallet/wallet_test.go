package wallet

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/atmx/launchpad-engine/internal/currency"
	"github.com/atmx/launchpad-engine/internal/model"
	"github.com/atmx/launchpad-engine/internal/store"
)

func TestCreateAndDeposit(t *testing.T) {
	ctx := context.Background()
	svc := NewService(store.NewMemoryStore())

	w, err := svc.Create(ctx, "alice", "SUI")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if w.Balance != 0 || w.Currency != "SUI" {
		t.Errorf("unexpected wallet %+v", w)
	}

	if _, err := svc.Deposit(ctx, "alice", w.ID, 150); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	got, err := svc.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Balance != 150 {
		t.Errorf("expected balance=150, got %d", got.Balance)
	}
}

func TestCreate_UnsupportedCurrency(t *testing.T) {
	_, err := NewService(store.NewMemoryStore()).Create(context.Background(), "alice", "DOGE")
	if !errors.Is(err, currency.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestDeposit_NotOwner(t *testing.T) {
	ctx := context.Background()
	svc := NewService(store.NewMemoryStore())
	w, _ := svc.Create(ctx, "alice", "USDC")

	if _, err := svc.Deposit(ctx, "bob", w.ID, 1); !errors.Is(err, model.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestDeposit_Overflow(t *testing.T) {
	ctx := context.Background()
	svc := NewService(store.NewMemoryStore())
	w, _ := svc.Create(ctx, "alice", "SUI")

	if _, err := svc.Deposit(ctx, "alice", w.ID, math.MaxUint64); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := svc.Deposit(ctx, "alice", w.ID, 1); !errors.Is(err, model.ErrAmountOverflow) {
		t.Fatalf("expected ErrAmountOverflow, got %v", err)
	}
	got, _ := svc.Get(ctx, w.ID)
	if got.Balance != math.MaxUint64 {
		t.Errorf("balance changed after failed deposit: %d", got.Balance)
	}
}

func TestGet_NotFound(t *testing.T) {
	_, err := NewService(store.NewMemoryStore()).Get(context.Background(), "missing")
	if !errors.Is(err, model.ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
}
