package sale

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atmx/launchpad-engine/internal/currency"
	"github.com/atmx/launchpad-engine/internal/model"
)

// CreateWalletRequest is the JSON body for POST /wallets.
type CreateWalletRequest struct {
	Currency string `json:"currency"`
}

// DepositRequest is the JSON body for POST /wallets/{walletID}/deposit.
type DepositRequest struct {
	Amount string `json:"amount"` // whole units, e.g. "150"
}

// WalletResponse is a wallet with its balance rendered in whole units.
type WalletResponse struct {
	*model.Wallet
	BalanceDisplay string `json:"balance_display"`
}

// ListCurrencies handles GET /api/v1/currencies
func (h *Handler) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currency.Supported())
}

// CreateWallet handles POST /api/v1/wallets
func (h *Handler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	var req CreateWalletRequest
	if err := decode(r, &req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	wal, err := h.wallets.Create(r.Context(), caller(r), req.Currency)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, walletResponse(wal))
}

// GetWallet handles GET /api/v1/wallets/{walletID}
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	wal, err := h.wallets.Get(r.Context(), chi.URLParam(r, "walletID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, walletResponse(wal))
}

// Deposit handles POST /api/v1/wallets/{walletID}/deposit
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if err := decode(r, &req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	walletID := chi.URLParam(r, "walletID")

	wal, err := h.wallets.Get(ctx, walletID)
	if err != nil {
		fail(w, r, err)
		return
	}
	c, err := currency.Parse(wal.Currency)
	if err != nil {
		fail(w, r, err)
		return
	}
	amount, err := c.ParseAmount(req.Amount)
	if err != nil {
		fail(w, r, err)
		return
	}

	wal, err = h.wallets.Deposit(ctx, caller(r), walletID, amount)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, walletResponse(wal))
}

func walletResponse(wal *model.Wallet) WalletResponse {
	return WalletResponse{Wallet: wal, BalanceDisplay: display(wal.Currency, wal.Balance)}
}
