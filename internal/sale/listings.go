package sale

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atmx/launchpad-engine/internal/model"
)

// SetLiveRequest is the JSON body for PUT /listings/{listingID}/live.
type SetLiveRequest struct {
	Live bool `json:"live"`
}

// CreateInventoryRequest is the JSON body for inventory creation.
type CreateInventoryRequest struct {
	Whitelisted bool `json:"whitelisted"`
}

// AttachInventoryRequest is the JSON body for PUT /inventories/{inventoryID}/listing.
type AttachInventoryRequest struct {
	ListingID string `json:"listing_id"`
}

// DepositAssetsRequest is the JSON body for POST /inventories/{inventoryID}/assets.
type DepositAssetsRequest struct {
	AssetIDs []string `json:"asset_ids"`
}

// IssueCertificateRequest is the JSON body for POST /listings/{listingID}/certificates.
type IssueCertificateRequest struct {
	MarketID string `json:"market_id"`
	Holder   string `json:"holder"`
}

// CreateListing handles POST /api/v1/listings
func (h *Handler) CreateListing(w http.ResponseWriter, r *http.Request) {
	l, err := h.registry.CreateListing(r.Context(), caller(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

// GetListing handles GET /api/v1/listings/{listingID}
func (h *Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	l, err := h.registry.Listing(r.Context(), chi.URLParam(r, "listingID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// SetLive handles PUT /api/v1/listings/{listingID}/live
func (h *Handler) SetLive(w http.ResponseWriter, r *http.Request) {
	var req SetLiveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	l, err := h.registry.SetLive(r.Context(), caller(r), chi.URLParam(r, "listingID"), req.Live)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// CreateInventory handles POST /api/v1/inventories (standalone) and
// POST /api/v1/listings/{listingID}/inventories.
func (h *Handler) CreateInventory(w http.ResponseWriter, r *http.Request) {
	var req CreateInventoryRequest
	if err := decode(r, &req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	inv, err := h.registry.CreateInventory(r.Context(), caller(r), chi.URLParam(r, "listingID"), req.Whitelisted)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

// ListInventories handles GET /api/v1/listings/{listingID}/inventories
func (h *Handler) ListInventories(w http.ResponseWriter, r *http.Request) {
	invs, err := h.registry.Inventories(r.Context(), chi.URLParam(r, "listingID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invs)
}

// GetInventory handles GET /api/v1/inventories/{inventoryID}
func (h *Handler) GetInventory(w http.ResponseWriter, r *http.Request) {
	inv, err := h.registry.Inventory(r.Context(), chi.URLParam(r, "inventoryID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// AttachInventory handles PUT /api/v1/inventories/{inventoryID}/listing
func (h *Handler) AttachInventory(w http.ResponseWriter, r *http.Request) {
	var req AttachInventoryRequest
	if err := decode(r, &req); err != nil || req.ListingID == "" {
		writeError(w, "listing_id is required", http.StatusBadRequest)
		return
	}
	inv, err := h.registry.AttachInventory(r.Context(), caller(r), req.ListingID, chi.URLParam(r, "inventoryID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// DepositAssets handles POST /api/v1/inventories/{inventoryID}/assets
func (h *Handler) DepositAssets(w http.ResponseWriter, r *http.Request) {
	var req DepositAssetsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.AssetIDs) == 0 {
		writeError(w, "asset_ids is required", http.StatusBadRequest)
		return
	}
	for _, id := range req.AssetIDs {
		if id == "" {
			writeError(w, "asset ids must be non-empty", http.StatusBadRequest)
			return
		}
	}
	assets, err := h.registry.DepositAssets(r.Context(), caller(r), chi.URLParam(r, "inventoryID"), req.AssetIDs)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, assets)
}

// IssueCertificate handles POST /api/v1/listings/{listingID}/certificates
func (h *Handler) IssueCertificate(w http.ResponseWriter, r *http.Request) {
	var req IssueCertificateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.MarketID == "" || req.Holder == "" {
		writeError(w, "market_id and holder are required", http.StatusBadRequest)
		return
	}
	cert, err := h.registry.IssueCertificate(r.Context(), caller(r), chi.URLParam(r, "listingID"), req.MarketID, req.Holder)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cert)
}

// GetCertificate handles GET /api/v1/certificates/{certificateID}
func (h *Handler) GetCertificate(w http.ResponseWriter, r *http.Request) {
	cert, err := h.registry.Certificate(r.Context(), chi.URLParam(r, "certificateID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cert)
}

// GetProceeds handles GET /api/v1/listings/{listingID}/proceeds
func (h *Handler) GetProceeds(w http.ResponseWriter, r *http.Request) {
	ps, err := h.registry.Proceeds(r.Context(), chi.URLParam(r, "listingID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	if ps == nil {
		ps = []model.Proceeds{}
	}
	writeJSON(w, http.StatusOK, ps)
}

// GetAssets handles GET /api/v1/accounts/{owner}/assets
func (h *Handler) GetAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.registry.Assets(r.Context(), chi.URLParam(r, "owner"))
	if err != nil {
		fail(w, r, err)
		return
	}
	if assets == nil {
		assets = []model.Asset{}
	}
	writeJSON(w, http.StatusOK, assets)
}

// GetPurchases handles GET /api/v1/accounts/{owner}/purchases
func (h *Handler) GetPurchases(w http.ResponseWriter, r *http.Request) {
	ps, err := h.registry.Purchases(r.Context(), chi.URLParam(r, "owner"))
	if err != nil {
		fail(w, r, err)
		return
	}
	if ps == nil {
		ps = []model.Purchase{}
	}
	writeJSON(w, http.StatusOK, ps)
}
