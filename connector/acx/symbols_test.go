package acx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResolveMarket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"ethusd","base_unit":"eth","quote_unit":"usd","price_precision":2},{"id":"btcusd","base_unit":"btc","quote_unit":"usd","price_precision":1}]`))
	}))
	defer srv.Close()

	tr := testTransport(srv.URL)
	market, err := ResolveMarket(context.Background(), tr, "BTC", "USD")
	if err != nil {
		t.Fatalf("ResolveMarket returned error: %v", err)
	}
	if market.Symbol != "btcusd" {
		t.Errorf("symbol = %q, want btcusd", market.Symbol)
	}
	if market.PricePrecision != 1 {
		t.Errorf("price precision = %d, want 1", market.PricePrecision)
	}
}

func TestResolveMarketNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"ethusd","base_unit":"eth","quote_unit":"usd","price_precision":2}]`))
	}))
	defer srv.Close()

	tr := testTransport(srv.URL)
	_, err := ResolveMarket(context.Background(), tr, "btc", "usd")
	if err == nil {
		t.Fatal("expected resolution failure")
	}
	var sre *SymbolResolutionError
	if !errors.As(err, &sre) {
		t.Fatalf("expected *SymbolResolutionError, got %T", err)
	}
	if sre.Base != "btc" || sre.Quote != "usd" {
		t.Errorf("error pair = %s/%s", sre.Base, sre.Quote)
	}
}
