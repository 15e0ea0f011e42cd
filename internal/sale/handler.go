// Package sale provides the HTTP API for the launchpad: listing and
// inventory administration, fixed-price markets, purchases and wallets.
//
// Amounts cross the API as decimal strings in whole currency units ("1.5")
// and are stored as smallest-unit integers.
package sale

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atmx/launchpad-engine/internal/currency"
	"github.com/atmx/launchpad-engine/internal/fixedprice"
	"github.com/atmx/launchpad-engine/internal/lock"
	"github.com/atmx/launchpad-engine/internal/model"
	"github.com/atmx/launchpad-engine/internal/registry"
	"github.com/atmx/launchpad-engine/internal/wallet"
)

// CallerHeader carries the address of the account making a request.
// Authentication happens upstream of this service.
const CallerHeader = "X-Caller"

// Handler serves the sale API.
type Handler struct {
	prices   *fixedprice.Service
	registry *registry.Registry
	wallets  *wallet.Service
	wsHub    *WSHub // optional
}

// NewHandler creates a sale API handler. Pass nil for hub if WebSocket
// broadcasting is not needed.
func NewHandler(prices *fixedprice.Service, reg *registry.Registry, wallets *wallet.Service, hub *WSHub) *Handler {
	return &Handler{prices: prices, registry: reg, wallets: wallets, wsHub: hub}
}

// Mount registers the API routes on r.
func (h *Handler) Mount(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/listings", h.CreateListing)
		r.Get("/listings/{listingID}", h.GetListing)
		r.Put("/listings/{listingID}/live", h.SetLive)
		r.Get("/listings/{listingID}/proceeds", h.GetProceeds)
		r.Post("/listings/{listingID}/certificates", h.IssueCertificate)
		r.Post("/listings/{listingID}/inventories", h.CreateInventory)
		r.Get("/listings/{listingID}/inventories", h.ListInventories)

		r.Route("/listings/{listingID}/inventories/{inventoryID}/markets", func(r chi.Router) {
			r.Post("/", h.CreateMarketOnListing)
			r.Get("/{marketID}", h.GetMarket)
			r.Put("/{marketID}/price", h.SetPrice)
			r.Post("/{marketID}/buy", h.Buy)
			r.Post("/{marketID}/buy-whitelisted", h.BuyWhitelisted)
		})

		r.Post("/inventories", h.CreateInventory)
		r.Get("/inventories/{inventoryID}", h.GetInventory)
		r.Put("/inventories/{inventoryID}/listing", h.AttachInventory)
		r.Post("/inventories/{inventoryID}/assets", h.DepositAssets)
		r.Post("/inventories/{inventoryID}/markets", h.CreateMarketOnInventory)

		r.Post("/markets", h.CreateMarketStandalone)
		r.Post("/markets/{marketID}/attach", h.AttachMarket)

		r.Get("/certificates/{certificateID}", h.GetCertificate)

		r.Get("/currencies", h.ListCurrencies)

		r.Post("/wallets", h.CreateWallet)
		r.Get("/wallets/{walletID}", h.GetWallet)
		r.Post("/wallets/{walletID}/deposit", h.Deposit)

		r.Get("/accounts/{owner}/assets", h.GetAssets)
		r.Get("/accounts/{owner}/purchases", h.GetPurchases)

		if h.wsHub != nil {
			r.Get("/ws", h.wsHub.HandleWS)
		}
	})
}

func caller(r *http.Request) string {
	return r.Header.Get(CallerHeader)
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// fail maps a service error to its status code and error kind.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	kind, status := classify(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeError(w, kind, status)
}

func classify(err error) (string, int) {
	switch {
	case errors.Is(err, currency.ErrInvalidCode), errors.Is(err, currency.ErrUnsupported):
		return "invalid_currency", http.StatusBadRequest
	case errors.Is(err, currency.ErrInvalidAmount), errors.Is(err, currency.ErrAmountTooLarge):
		return "invalid_amount", http.StatusBadRequest
	case errors.Is(err, lock.ErrLockHeld):
		return "busy", http.StatusServiceUnavailable
	}

	kind := model.Kind(err)
	switch {
	case errors.Is(err, model.ErrSaleNotLive),
		errors.Is(err, model.ErrCertificateMarketMismatch),
		errors.Is(err, model.ErrCertificateBurned),
		errors.Is(err, model.ErrInventoryEmpty),
		errors.Is(err, model.ErrAssetExists):
		return kind, http.StatusConflict
	case errors.Is(err, model.ErrWhitelistMismatch),
		errors.Is(err, model.ErrPermissionDenied):
		return kind, http.StatusForbidden
	case errors.Is(err, model.ErrMarketNotFound),
		errors.Is(err, model.ErrListingNotFound),
		errors.Is(err, model.ErrInventoryNotFound),
		errors.Is(err, model.ErrCertificateNotFound),
		errors.Is(err, model.ErrWalletNotFound):
		return kind, http.StatusNotFound
	case errors.Is(err, model.ErrInsufficientFunds):
		return kind, http.StatusPaymentRequired
	case errors.Is(err, model.ErrAmountOverflow):
		return kind, http.StatusUnprocessableEntity
	}
	return "internal error", http.StatusInternalServerError
}
