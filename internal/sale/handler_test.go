package sale_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/atmx/launchpad-engine/internal/fixedprice"
	"github.com/atmx/launchpad-engine/internal/lock"
	"github.com/atmx/launchpad-engine/internal/registry"
	"github.com/atmx/launchpad-engine/internal/sale"
	"github.com/atmx/launchpad-engine/internal/store"
	"github.com/atmx/launchpad-engine/internal/wallet"
)

const admin = "0xadmin"

// newTestEnv creates the sale API over an in-memory store.
func newTestEnv(t *testing.T, hub *sale.WSHub) chi.Router {
	t.Helper()
	ms := store.NewMemoryStore()
	reg := registry.New(ms)
	h := sale.NewHandler(
		fixedprice.NewService(reg, lock.NewKeyed()),
		reg,
		wallet.NewService(ms),
		hub,
	)
	r := chi.NewRouter()
	h.Mount(r)
	return r
}

func do(t *testing.T, router http.Handler, method, path, caller string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set(sale.CallerHeader, caller)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, status int) map[string]any {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, w.Code, w.Body.String())
	}
	return decodeBody(t, w)
}

func expectList(t *testing.T, w *httptest.ResponseRecorder, status int) []map[string]any {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, w.Code, w.Body.String())
	}
	var out []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode list %q: %v", w.Body.String(), err)
	}
	return out
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, kind string) {
	t.Helper()
	body := expectStatus(t, w, status)
	if body["error"] != kind {
		t.Errorf("expected error %q, got %v", kind, body["error"])
	}
}

// saleFixture is one live listing with one inventory, one SUI market priced at
// 1 SUI, and a buyer wallet holding 1.5 SUI.
type saleFixture struct {
	listingID   string
	inventoryID string
	marketID    string
	walletID    string
}

func (f saleFixture) marketPath() string {
	return fmt.Sprintf("/api/v1/listings/%s/inventories/%s/markets/%s", f.listingID, f.inventoryID, f.marketID)
}

func seedSale(t *testing.T, router http.Handler, whitelisted bool) saleFixture {
	t.Helper()
	var f saleFixture

	f.listingID = expectStatus(t, do(t, router, "POST", "/api/v1/listings", admin, nil), http.StatusCreated)["id"].(string)

	inv := expectStatus(t, do(t, router, "POST", "/api/v1/listings/"+f.listingID+"/inventories", admin,
		sale.CreateInventoryRequest{Whitelisted: whitelisted}), http.StatusCreated)
	f.inventoryID = inv["id"].(string)

	assets := expectList(t, do(t, router, "POST", "/api/v1/inventories/"+f.inventoryID+"/assets", admin,
		sale.DepositAssetsRequest{AssetIDs: []string{"nft-1", "nft-2"}}), http.StatusCreated)
	if len(assets) != 2 {
		t.Fatalf("expected 2 deposited assets, got %d", len(assets))
	}

	m := expectStatus(t, do(t, router, "POST",
		fmt.Sprintf("/api/v1/listings/%s/inventories/%s/markets", f.listingID, f.inventoryID), admin,
		sale.CreateMarketRequest{Currency: "SUI", Price: "1"}), http.StatusCreated)
	f.marketID = m["id"].(string)

	expectStatus(t, do(t, router, "PUT", "/api/v1/listings/"+f.listingID+"/live", admin,
		sale.SetLiveRequest{Live: true}), http.StatusOK)

	wal := expectStatus(t, do(t, router, "POST", "/api/v1/wallets", "alice",
		sale.CreateWalletRequest{Currency: "SUI"}), http.StatusCreated)
	f.walletID = wal["id"].(string)
	expectStatus(t, do(t, router, "POST", "/api/v1/wallets/"+f.walletID+"/deposit", "alice",
		sale.DepositRequest{Amount: "1.5"}), http.StatusOK)

	return f
}

// --- Purchase ---

func TestBuy_Success(t *testing.T) {
	router := newTestEnv(t, nil)
	f := seedSale(t, router, false)

	resp := expectStatus(t, do(t, router, "POST", f.marketPath()+"/buy", "alice",
		sale.BuyRequest{WalletID: f.walletID}), http.StatusCreated)

	if resp["asset_id"] != "nft-1" {
		t.Errorf("expected nft-1, got %v", resp["asset_id"])
	}
	if resp["price_display"] != "1.000000000" {
		t.Errorf("expected price_display=1.000000000, got %v", resp["price_display"])
	}

	wal := expectStatus(t, do(t, router, "GET", "/api/v1/wallets/"+f.walletID, "", nil), http.StatusOK)
	if wal["balance_display"] != "0.500000000" {
		t.Errorf("expected balance 0.5, got %v", wal["balance_display"])
	}

	proceeds := do(t, router, "GET", "/api/v1/listings/"+f.listingID+"/proceeds", "", nil)
	var ps []map[string]any
	json.NewDecoder(proceeds.Body).Decode(&ps)
	if len(ps) != 1 || ps[0]["amount"] != float64(1_000_000_000) {
		t.Errorf("unexpected proceeds %v", ps)
	}

	assets := do(t, router, "GET", "/api/v1/accounts/alice/assets", "", nil)
	var owned []map[string]any
	json.NewDecoder(assets.Body).Decode(&owned)
	if len(owned) != 1 {
		t.Errorf("expected alice to own 1 asset, got %d", len(owned))
	}
}

func TestBuy_InsufficientFunds(t *testing.T) {
	router := newTestEnv(t, nil)
	f := seedSale(t, router, false)

	expectStatus(t, do(t, router, "POST", f.marketPath()+"/buy", "alice",
		sale.BuyRequest{WalletID: f.walletID}), http.StatusCreated)

	expectError(t, do(t, router, "POST", f.marketPath()+"/buy", "alice",
		sale.BuyRequest{WalletID: f.walletID}), http.StatusPaymentRequired, "insufficient_funds")
}

func TestBuy_NotLive(t *testing.T) {
	router := newTestEnv(t, nil)
	f := seedSale(t, router, false)
	expectStatus(t, do(t, router, "PUT", "/api/v1/listings/"+f.listingID+"/live", admin,
		sale.SetLiveRequest{Live: false}), http.StatusOK)

	expectError(t, do(t, router, "POST", f.marketPath()+"/buy", "alice",
		sale.BuyRequest{WalletID: f.walletID}), http.StatusConflict, "sale_not_live")
}

func TestBuy_WhitelistedInventory(t *testing.T) {
	router := newTestEnv(t, nil)
	f := seedSale(t, router, true)

	expectError(t, do(t, router, "POST", f.marketPath()+"/buy", "alice",
		sale.BuyRequest{WalletID: f.walletID}), http.StatusForbidden, "whitelist_mismatch")
}

func TestBuy_MissingWallet(t *testing.T) {
	router := newTestEnv(t, nil)
	f := seedSale(t, router, false)

	w := do(t, router, "POST", f.marketPath()+"/buy", "alice", sale.BuyRequest{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestBuyWhitelisted_BurnsOnce(t *testing.T) {
	router := newTestEnv(t, nil)
	f := seedSale(t, router, true)

	cert := expectStatus(t, do(t, router, "POST", "/api/v1/listings/"+f.listingID+"/certificates", admin,
		sale.IssueCertificateRequest{MarketID: f.marketID, Holder: "alice"}), http.StatusCreated)
	certID := cert["id"].(string)

	expectStatus(t, do(t, router, "POST", f.marketPath()+"/buy-whitelisted", "alice",
		sale.BuyRequest{WalletID: f.walletID, CertificateID: certID}), http.StatusCreated)

	got := expectStatus(t, do(t, router, "GET", "/api/v1/certificates/"+certID, "", nil), http.StatusOK)
	if got["burned"] != true {
		t.Errorf("expected certificate to be burned, got %v", got["burned"])
	}

	expectError(t, do(t, router, "POST", f.marketPath()+"/buy-whitelisted", "alice",
		sale.BuyRequest{WalletID: f.walletID, CertificateID: certID}), http.StatusConflict, "certificate_burned")
}

func TestBuyWhitelisted_WrongMarket(t *testing.T) {
	router := newTestEnv(t, nil)
	f := seedSale(t, router, true)

	other := expectStatus(t, do(t, router, "POST",
		fmt.Sprintf("/api/v1/listings/%s/inventories/%s/markets", f.listingID, f.inventoryID), admin,
		sale.CreateMarketRequest{Currency: "SUI", Price: "0.1"}), http.StatusCreated)

	cert := expectStatus(t, do(t, router, "POST", "/api/v1/listings/"+f.listingID+"/certificates", admin,
		sale.IssueCertificateRequest{MarketID: other["id"].(string), Holder: "alice"}), http.StatusCreated)

	expectError(t, do(t, router, "POST", f.marketPath()+"/buy-whitelisted", "alice",
		sale.BuyRequest{WalletID: f.walletID, CertificateID: cert["id"].(string)}),
		http.StatusConflict, "certificate_market_mismatch")
}

// --- Pricing ---

func TestSetPrice(t *testing.T) {
	router := newTestEnv(t, nil)
	f := seedSale(t, router, false)

	expectError(t, do(t, router, "PUT", f.marketPath()+"/price", "mallory",
		sale.SetPriceRequest{Price: "0.000000001"}), http.StatusForbidden, "permission_denied")

	expectStatus(t, do(t, router, "PUT", f.marketPath()+"/price", admin,
		sale.SetPriceRequest{Price: "1.25"}), http.StatusOK)

	m := expectStatus(t, do(t, router, "GET", f.marketPath(), "", nil), http.StatusOK)
	if m["price"] != float64(1_250_000_000) {
		t.Errorf("expected price=1250000000, got %v", m["price"])
	}
	if m["price_display"] != "1.250000000" {
		t.Errorf("expected price_display=1.250000000, got %v", m["price_display"])
	}
}

func TestSetPrice_TooPrecise(t *testing.T) {
	router := newTestEnv(t, nil)
	f := seedSale(t, router, false)

	expectError(t, do(t, router, "PUT", f.marketPath()+"/price", admin,
		sale.SetPriceRequest{Price: "0.0000000001"}), http.StatusBadRequest, "invalid_amount")
}

func TestGetMarket_NotFound(t *testing.T) {
	router := newTestEnv(t, nil)
	f := seedSale(t, router, false)
	f.marketID = "missing"

	expectError(t, do(t, router, "GET", f.marketPath(), "", nil), http.StatusNotFound, "market_not_found")
}

// --- Registration ---

func TestCreateMarket_InvalidCurrency(t *testing.T) {
	router := newTestEnv(t, nil)

	expectError(t, do(t, router, "POST", "/api/v1/markets", "creator",
		sale.CreateMarketRequest{Currency: "doge", Price: "1"}), http.StatusBadRequest, "invalid_currency")
}

func TestStandaloneMarketAttach(t *testing.T) {
	router := newTestEnv(t, nil)

	m := expectStatus(t, do(t, router, "POST", "/api/v1/markets", "creator",
		sale.CreateMarketRequest{Currency: "USDC", Price: "2.5"}), http.StatusCreated)
	if m["owner"] != "creator" || m["price"] != float64(2_500_000) {
		t.Fatalf("unexpected market %v", m)
	}

	inv := expectStatus(t, do(t, router, "POST", "/api/v1/inventories", "creator",
		sale.CreateInventoryRequest{}), http.StatusCreated)

	attached := expectStatus(t, do(t, router, "POST", "/api/v1/markets/"+m["id"].(string)+"/attach", "creator",
		sale.AttachMarketRequest{InventoryID: inv["id"].(string)}), http.StatusOK)
	if attached["inventory_id"] != inv["id"] {
		t.Errorf("expected market on inventory %v, got %v", inv["id"], attached["inventory_id"])
	}
}

func TestDeposit_NotOwner(t *testing.T) {
	router := newTestEnv(t, nil)
	f := seedSale(t, router, false)

	expectError(t, do(t, router, "POST", "/api/v1/wallets/"+f.walletID+"/deposit", "mallory",
		sale.DepositRequest{Amount: "1"}), http.StatusForbidden, "permission_denied")
}

// --- WebSocket ---

func TestWebSocket_PurchaseBroadcast(t *testing.T) {
	hub := sale.NewWSHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	router := newTestEnv(t, hub)
	srv := httptest.NewServer(router)
	defer srv.Close()

	f := seedSale(t, router, false)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Registration completes after the handshake.
	time.Sleep(50 * time.Millisecond)

	expectStatus(t, do(t, router, "POST", f.marketPath()+"/buy", "alice",
		sale.BuyRequest{WalletID: f.walletID}), http.StatusCreated)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg sale.WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "purchase" || msg.MarketID != f.marketID || msg.Buyer != "alice" {
		t.Errorf("unexpected message %+v", msg)
	}
	if msg.Price != "1.000000000" {
		t.Errorf("expected price 1.000000000, got %s", msg.Price)
	}
}

func TestWebSocket_ClosedAfterHubStops(t *testing.T) {
	hub := sale.NewWSHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- hub.Run(ctx) }()
	cancel()
	if err := <-stopped; err != nil {
		t.Fatalf("run: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	var netErr net.Error
	if err == nil || (errors.As(err, &netErr) && netErr.Timeout()) {
		t.Fatalf("expected the server to close the connection, got %v", err)
	}
}

func TestListCurrencies(t *testing.T) {
	router := newTestEnv(t, nil)

	list := expectList(t, do(t, router, "GET", "/api/v1/currencies", "", nil), http.StatusOK)
	if len(list) != 4 {
		t.Fatalf("expected 4 currencies, got %d", len(list))
	}
	if list[1]["code"] != "SUI" || list[1]["decimals"] != float64(9) {
		t.Errorf("unexpected SUI entry %v", list[1])
	}
}
