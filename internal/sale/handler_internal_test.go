package sale

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/atmx/launchpad-engine/internal/currency"
	"github.com/atmx/launchpad-engine/internal/lock"
	"github.com/atmx/launchpad-engine/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		kind   string
		status int
	}{
		{model.ErrSaleNotLive, "sale_not_live", http.StatusConflict},
		{model.ErrWhitelistMismatch, "whitelist_mismatch", http.StatusForbidden},
		{model.ErrCertificateMarketMismatch, "certificate_market_mismatch", http.StatusConflict},
		{fmt.Errorf("market m1: %w", model.ErrMarketNotFound), "market_not_found", http.StatusNotFound},
		{model.ErrInsufficientFunds, "insufficient_funds", http.StatusPaymentRequired},
		{model.ErrPermissionDenied, "permission_denied", http.StatusForbidden},
		{model.ErrInventoryEmpty, "inventory_empty", http.StatusConflict},
		{model.ErrAmountOverflow, "amount_overflow", http.StatusUnprocessableEntity},
		{currency.ErrUnsupported, "invalid_currency", http.StatusBadRequest},
		{currency.ErrAmountTooLarge, "invalid_amount", http.StatusBadRequest},
		{errors.Join(lock.ErrLockHeld, errors.New("deadline")), "busy", http.StatusServiceUnavailable},
		{errors.New("pgx: connection reset"), "internal error", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		kind, status := classify(tt.err)
		if kind != tt.kind || status != tt.status {
			t.Errorf("classify(%v) = %s/%d, want %s/%d", tt.err, kind, status, tt.kind, tt.status)
		}
	}
}
