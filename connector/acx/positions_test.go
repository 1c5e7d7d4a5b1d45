package acx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"orderflow/internal/channel"
	"orderflow/models"
)

func TestFetchBalancesEmitsOneSnapshotPerCurrency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/members/me.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("signature") == "" {
			t.Error("balance poll not signed")
		}
		w.Write([]byte(`{"accounts":[{"currency":"btc","balance":"1.5","locked":"0.5"},{"currency":"usd","balance":"1000","locked":"0"}]}`))
	}))
	defer srv.Close()

	positions := channel.NewHub[models.PositionSnapshot]("position", 8)
	sub := positions.Subscribe()
	p := NewPositionPoller(testConfig(srv.URL), testTransport(srv.URL), positions)
	p.ctx = context.Background()

	p.fetchBalances()

	btc := <-sub
	if btc.Currency != "btc" {
		t.Fatalf("first snapshot currency = %q", btc.Currency)
	}
	if btc.Total.String() != "2" {
		t.Errorf("btc total = %s, want 2 (balance plus locked)", btc.Total)
	}
	if btc.Held.String() != "0.5" {
		t.Errorf("btc held = %s", btc.Held)
	}

	usd := <-sub
	if usd.Currency != "usd" {
		t.Fatalf("second snapshot currency = %q", usd.Currency)
	}
	if usd.Total.String() != "1000" || usd.Held.String() != "0" {
		t.Errorf("usd snapshot = total %s held %s", usd.Total, usd.Held)
	}

	select {
	case extra := <-sub:
		t.Errorf("unexpected extra snapshot: %+v", extra)
	default:
	}
}

func TestFetchBalancesFailureIsSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	positions := channel.NewHub[models.PositionSnapshot]("position", 8)
	sub := positions.Subscribe()
	p := NewPositionPoller(testConfig(srv.URL), testTransport(srv.URL), positions)
	p.ctx = context.Background()

	p.fetchBalances()

	select {
	case snap := <-sub:
		t.Errorf("unexpected snapshot after failed poll: %+v", snap)
	default:
	}
}
