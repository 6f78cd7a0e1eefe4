package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"brokerage/internal/ledger"
	"brokerage/internal/models"
)

func TestHealthRoute(t *testing.T) {
	router := SetupRoutes(nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("GET /health status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "OK" {
		t.Errorf("GET /health body = %q", rec.Body.String())
	}
}

func TestMetricsRoute(t *testing.T) {
	router := SetupRoutes(nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("GET /metrics status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("metrics output missing runtime collectors")
	}
}

func TestTradeRouteWired(t *testing.T) {
	book := ledger.New([]int64{10})
	if _, err := book.CreateUser("alice", 500000); err != nil {
		t.Fatal(err)
	}
	book.SetQuote(models.Quote{Symbol: "BTC", AskPrice: 450000000, BidPrice: 449910000})

	router := SetupRoutes(&Dependencies{Ledger: book})

	body := strings.NewReader(`{"user_id":"alice","asset":"BTC","side":"long","margin":10000,"leverage":10}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/trade", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Errorf("POST /api/v1/trade status = %d, body %s", rec.Code, rec.Body)
	}
}

func TestUnknownRoute(t *testing.T) {
	router := SetupRoutes(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
