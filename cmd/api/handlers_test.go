package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redismock/v8"
	"github.com/shopspring/decimal"
	"github.com/stellarcompass/compass/pkg/config"
	"github.com/stellarcompass/compass/pkg/horizon"
	"github.com/stellarcompass/compass/pkg/logger"
	"github.com/stellarcompass/compass/pkg/models"
	"github.com/stellarcompass/compass/pkg/redisclient"
)

const testAddr = "GBRPYHIL2CI3FNQ4BXLFMNDLFJUNPU2HY3ZMFSHONUCEOASW7QC7OX2H"

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fakePortfolio struct {
	p   models.Portfolio
	err error
}

func (f *fakePortfolio) Fetch(ctx context.Context, address string) (models.Portfolio, error) {
	return f.p, f.err
}

func (f *fakePortfolio) Snapshot(ctx context.Context, address string) (models.Portfolio, error) {
	return f.p, f.err
}

func testPortfolio() models.Portfolio {
	xlm := models.AssetBalance{
		Asset:   "XLM",
		Balance: decimal.NewFromInt(1000),
		Value:   decimal.RequireFromString("120.00"),
	}
	return models.Portfolio{
		PublicKey:  testAddr,
		TotalValue: xlm.Value,
		Assets:     []models.AssetBalance{xlm},
		IdleAssets: []models.AssetBalance{},
	}
}

// newTestServer wires a Server around a redis mock. Alert emissions hit
// unexpected commands on the mock and fail, which exercises the
// best-effort path.
func newTestServer(t *testing.T, pf portfolioService) (*Server, redismock.ClientMock, *chi.Mux) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	s := &Server{
		cfg:       &config.Config{Network: "testnet", RiskTolerance: "moderate"},
		redis:     redisclient.NewFromClient(db),
		portfolio: pf,
	}
	router := chi.NewRouter()
	s.routes(router)
	return s, mock, router
}

func TestHealthHandler(t *testing.T) {
	_, mock, router := newTestServer(t, &fakePortfolio{})
	mock.ExpectPing().SetVal("PONG")

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["message"] == "" || body["network"] != "testnet" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestHealthHandler_RedisDown(t *testing.T) {
	_, mock, router := newTestServer(t, &fakePortfolio{})
	mock.ExpectPing().SetErr(context.DeadlineExceeded)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d; want 503", rec.Code)
	}
}

func TestConnectWallet_Valid(t *testing.T) {
	_, mock, router := newTestServer(t, &fakePortfolio{})
	mock.ExpectSAdd(models.ConnectedWallets, testAddr).SetVal(1)

	body := strings.NewReader(`{"public_key": "` + testAddr + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/wallet/connected", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200, body %s", rec.Code, rec.Body.String())
	}
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !resp.Success {
		t.Errorf("Success = false; want true")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("redis expectations: %v", err)
	}
}

func TestConnectWallet_InvalidAddresses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"too short", `{"public_key": "GSHORT"}`},
		{"wrong prefix", `{"public_key": "S` + testAddr[1:] + `"}`},
		{"lowercase", `{"public_key": "` + strings.ToLower(testAddr) + `"}`},
		{"non-base32 chars", `{"public_key": "` + testAddr[:55] + `1"}`},
		{"missing key", `{}`},
		{"not json", `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, router := newTestServer(t, &fakePortfolio{})
			req := httptest.NewRequest(http.MethodPost, "/api/wallet/connected", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d; want 400", rec.Code)
			}
		})
	}
}

func TestPortfolioHandler(t *testing.T) {
	_, _, router := newTestServer(t, &fakePortfolio{p: testPortfolio()})

	req := httptest.NewRequest(http.MethodGet, "/api/portfolio/"+testAddr, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	// Dashboard contract: bare numbers, fixed field names
	if string(body["total_value"]) != "120" {
		t.Errorf("total_value = %s; want 120", body["total_value"])
	}
	for _, field := range []string{"public_key", "assets", "idle_assets"} {
		if _, ok := body[field]; !ok {
			t.Errorf("response missing %q", field)
		}
	}
}

func TestPortfolioHandler_AccountNotFound(t *testing.T) {
	_, _, router := newTestServer(t, &fakePortfolio{err: horizon.ErrAccountNotFound})

	req := httptest.NewRequest(http.MethodGet, "/api/portfolio/"+testAddr, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d; want 404", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["public_key"] != testAddr {
		t.Errorf("public_key = %q; want %q", body["public_key"], testAddr)
	}
}

func TestPortfolioHandler_InvalidAddress(t *testing.T) {
	_, _, router := newTestServer(t, &fakePortfolio{p: testPortfolio()})

	req := httptest.NewRequest(http.MethodGet, "/api/portfolio/nonsense", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d; want 400", rec.Code)
	}
}

func TestOpportunitiesHandler(t *testing.T) {
	_, _, router := newTestServer(t, &fakePortfolio{p: testPortfolio()})

	req := httptest.NewRequest(http.MethodGet, "/api/opportunities/"+testAddr, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	var opps []models.Opportunity
	if err := json.Unmarshal(rec.Body.Bytes(), &opps); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(opps) == 0 {
		t.Fatal("expected opportunities for an XLM holder")
	}
	for i := 1; i < len(opps); i++ {
		if opps[i].APY > opps[i-1].APY {
			t.Errorf("APY order violated at index %d", i)
		}
	}
	for _, o := range opps {
		if o.Asset != "XLM" {
			t.Errorf("matched unheld asset %s", o.Asset)
		}
	}
}

func TestAllocationHandler(t *testing.T) {
	_, _, router := newTestServer(t, &fakePortfolio{p: testPortfolio()})

	req := httptest.NewRequest(http.MethodGet, "/api/allocation/"+testAddr, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !resp.Success || resp.Data == nil {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestAlertHistoryHandler(t *testing.T) {
	_, mock, router := newTestServer(t, &fakePortfolio{})

	alert := models.NewAlert(models.AlertIdleAsset, models.PriorityMedium, testAddr,
		"Idle assets", "XLM idle for 31 days", "")
	payload, _ := alert.ToJSON()
	mock.ExpectLRange(models.AlertHistoryKey(testAddr), 0, models.AlertHistoryMax-1).
		SetVal([]string{payload, "corrupt entry"})

	req := httptest.NewRequest(http.MethodGet, "/api/alerts/"+testAddr, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Success bool           `json:"success"`
		Data    []models.Alert `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	// Corrupt entries are skipped, not fatal
	if len(resp.Data) != 1 {
		t.Fatalf("alerts = %d; want 1", len(resp.Data))
	}
	if resp.Data[0].Type != models.AlertIdleAsset {
		t.Errorf("Type = %q", resp.Data[0].Type)
	}
}

func TestAdminRoutes_NotMountedWithoutSecret(t *testing.T) {
	_, _, router := newTestServer(t, &fakePortfolio{})

	req := httptest.NewRequest(http.MethodPut, "/api/admin/settings", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code == http.StatusOK {
		t.Error("admin route reachable without auth configured")
	}
}

func TestShortAddr(t *testing.T) {
	if got := shortAddr(testAddr); got != "GBRP...OX2H" {
		t.Errorf("shortAddr = %q", got)
	}
	if got := shortAddr("short"); got != "short" {
		t.Errorf("shortAddr(short) = %q", got)
	}
}
