package sale

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atmx/launchpad-engine/internal/currency"
	"github.com/atmx/launchpad-engine/internal/fixedprice"
	"github.com/atmx/launchpad-engine/internal/model"
)

// CreateMarketRequest is the JSON body for market creation.
type CreateMarketRequest struct {
	Currency string `json:"currency"` // e.g. SUI
	Price    string `json:"price"`    // whole units, e.g. "1.25"
}

// AttachMarketRequest is the JSON body for POST /markets/{marketID}/attach.
type AttachMarketRequest struct {
	InventoryID string `json:"inventory_id"`
}

// SetPriceRequest is the JSON body for PUT .../markets/{marketID}/price.
type SetPriceRequest struct {
	Price string `json:"price"`
}

// BuyRequest is the JSON body for POST .../buy and .../buy-whitelisted.
type BuyRequest struct {
	WalletID      string `json:"wallet_id"`
	CertificateID string `json:"certificate_id,omitempty"`
}

// MarketResponse is a market with its price rendered in whole units.
type MarketResponse struct {
	*model.Market
	PriceDisplay string `json:"price_display"`
}

// PurchaseResponse is a purchase receipt with its price rendered in whole units.
type PurchaseResponse struct {
	*model.Purchase
	PriceDisplay string `json:"price_display"`
}

// CreateMarketStandalone handles POST /api/v1/markets
func (h *Handler) CreateMarketStandalone(w http.ResponseWriter, r *http.Request) {
	h.createMarket(w, r, func(c currency.Currency, price uint64) (*model.Market, error) {
		return h.prices.CreateMarketStandalone(r.Context(), caller(r), c.Code, price)
	})
}

// CreateMarketOnInventory handles POST /api/v1/inventories/{inventoryID}/markets
func (h *Handler) CreateMarketOnInventory(w http.ResponseWriter, r *http.Request) {
	inventoryID := chi.URLParam(r, "inventoryID")
	h.createMarket(w, r, func(c currency.Currency, price uint64) (*model.Market, error) {
		return h.prices.CreateMarketOnInventory(r.Context(), caller(r), inventoryID, c.Code, price)
	})
}

// CreateMarketOnListing handles POST /api/v1/listings/{listingID}/inventories/{inventoryID}/markets
func (h *Handler) CreateMarketOnListing(w http.ResponseWriter, r *http.Request) {
	listingID := chi.URLParam(r, "listingID")
	inventoryID := chi.URLParam(r, "inventoryID")
	h.createMarket(w, r, func(c currency.Currency, price uint64) (*model.Market, error) {
		return h.prices.CreateMarketOnListing(r.Context(), caller(r), listingID, inventoryID, c.Code, price)
	})
}

func (h *Handler) createMarket(w http.ResponseWriter, r *http.Request, create func(currency.Currency, uint64) (*model.Market, error)) {
	var req CreateMarketRequest
	if err := decode(r, &req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	c, err := currency.Parse(req.Currency)
	if err != nil {
		fail(w, r, err)
		return
	}
	price, err := c.ParseAmount(req.Price)
	if err != nil {
		fail(w, r, err)
		return
	}
	m, err := create(c, price)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, marketResponse(m))
}

// AttachMarket handles POST /api/v1/markets/{marketID}/attach
func (h *Handler) AttachMarket(w http.ResponseWriter, r *http.Request) {
	var req AttachMarketRequest
	if err := decode(r, &req); err != nil || req.InventoryID == "" {
		writeError(w, "inventory_id is required", http.StatusBadRequest)
		return
	}
	m, err := h.prices.AttachMarket(r.Context(), caller(r), req.InventoryID, chi.URLParam(r, "marketID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, marketResponse(m))
}

// GetMarket handles GET /api/v1/listings/{listingID}/inventories/{inventoryID}/markets/{marketID}
func (h *Handler) GetMarket(w http.ResponseWriter, r *http.Request) {
	marketID := chi.URLParam(r, "marketID")
	m, err := h.registry.Market(r.Context(),
		chi.URLParam(r, "listingID"),
		chi.URLParam(r, "inventoryID"),
		marketID,
	)
	if err == nil && m.Strategy != fixedprice.Strategy {
		err = fmt.Errorf("market %s: %w", marketID, model.ErrMarketNotFound)
	}
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, marketResponse(m))
}

// SetPrice handles PUT /api/v1/listings/{listingID}/inventories/{inventoryID}/markets/{marketID}/price
func (h *Handler) SetPrice(w http.ResponseWriter, r *http.Request) {
	var req SetPriceRequest
	if err := decode(r, &req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	listingID := chi.URLParam(r, "listingID")
	inventoryID := chi.URLParam(r, "inventoryID")
	marketID := chi.URLParam(r, "marketID")

	// The price is denominated in the market's currency.
	current, err := h.prices.Market(ctx, listingID, inventoryID, marketID)
	if err != nil {
		fail(w, r, err)
		return
	}
	c, err := currency.Parse(current.Currency)
	if err != nil {
		fail(w, r, err)
		return
	}
	price, err := c.ParseAmount(req.Price)
	if err != nil {
		fail(w, r, err)
		return
	}

	m, err := h.prices.SetPrice(ctx, caller(r), listingID, inventoryID, marketID, price)
	if err != nil {
		fail(w, r, err)
		return
	}

	resp := marketResponse(m)
	if h.wsHub != nil {
		h.wsHub.Broadcast(WSMessage{
			Type:        "price_updated",
			ListingID:   listingID,
			InventoryID: inventoryID,
			MarketID:    marketID,
			Currency:    m.Currency,
			Price:       resp.PriceDisplay,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Buy handles POST /api/v1/listings/{listingID}/inventories/{inventoryID}/markets/{marketID}/buy
func (h *Handler) Buy(w http.ResponseWriter, r *http.Request) {
	h.buy(w, r, false)
}

// BuyWhitelisted handles POST /api/v1/listings/{listingID}/inventories/{inventoryID}/markets/{marketID}/buy-whitelisted
func (h *Handler) BuyWhitelisted(w http.ResponseWriter, r *http.Request) {
	h.buy(w, r, true)
}

func (h *Handler) buy(w http.ResponseWriter, r *http.Request, whitelisted bool) {
	var body BuyRequest
	if err := decode(r, &body); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if body.WalletID == "" {
		writeError(w, "wallet_id is required", http.StatusBadRequest)
		return
	}
	if whitelisted && body.CertificateID == "" {
		writeError(w, "certificate_id is required", http.StatusBadRequest)
		return
	}

	req := fixedprice.BuyRequest{
		Buyer:       caller(r),
		ListingID:   chi.URLParam(r, "listingID"),
		InventoryID: chi.URLParam(r, "inventoryID"),
		MarketID:    chi.URLParam(r, "marketID"),
		WalletID:    body.WalletID,
	}

	var (
		p   *model.Purchase
		err error
	)
	if whitelisted {
		p, err = h.prices.BuyWhitelisted(r.Context(), req, body.CertificateID)
	} else {
		p, err = h.prices.Buy(r.Context(), req)
	}
	if err != nil {
		fail(w, r, err)
		return
	}

	resp := PurchaseResponse{Purchase: p, PriceDisplay: display(p.Currency, p.Price)}
	if h.wsHub != nil {
		h.wsHub.Broadcast(WSMessage{
			Type:        "purchase",
			ListingID:   p.ListingID,
			InventoryID: p.InventoryID,
			MarketID:    p.MarketID,
			Buyer:       p.Buyer,
			AssetID:     p.AssetID,
			Currency:    p.Currency,
			Price:       resp.PriceDisplay,
		})
	}
	writeJSON(w, http.StatusCreated, resp)
}

func marketResponse(m *model.Market) MarketResponse {
	return MarketResponse{Market: m, PriceDisplay: display(m.Currency, m.Price)}
}

// display renders amount in whole units, falling back to the raw integer
// for currencies no longer in the supported table.
func display(code string, amount uint64) string {
	c, err := currency.Parse(code)
	if err != nil {
		return currency.Currency{Code: code}.Format(amount)
	}
	return c.Format(amount)
}
