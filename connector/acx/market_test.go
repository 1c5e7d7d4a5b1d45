package acx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"orderflow/internal/channel"
	"orderflow/models"
)

func testMarketPoller(baseURL string, bookBuf, tradeBuf int) (*MarketPoller, <-chan models.OrderBook, <-chan models.Trade) {
	books := channel.NewHub[models.OrderBook]("book", bookBuf)
	trades := channel.NewHub[models.Trade]("trade", tradeBuf)
	p := NewMarketPoller(testConfig(baseURL), testTransport(baseURL), Market{Symbol: "btcusd", PricePrecision: 2}, books, trades)
	p.ctx = context.Background()
	return p, books.Subscribe(), trades.Subscribe()
}

func TestFetchOrderBookConvertsLevels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("market"); got != "btcusd" {
			t.Errorf("market = %q", got)
		}
		if r.URL.Query().Get("bids_limit") == "" || r.URL.Query().Get("asks_limit") == "" {
			t.Error("depth limits missing from request")
		}
		w.Write([]byte(`{"bids":[{"price":"100.5","volume":"2"}],"asks":[{"price":"101.0","volume":"1"}]}`))
	}))
	defer srv.Close()

	p, books, _ := testMarketPoller(srv.URL, 4, 4)
	before := time.Now()
	p.fetchOrderBook()

	select {
	case book := <-books:
		if len(book.Bids) != 1 || len(book.Asks) != 1 {
			t.Fatalf("expected 1x1 book, got %dx%d", len(book.Bids), len(book.Asks))
		}
		if book.Bids[0].Price.String() != "100.5" || book.Bids[0].Size.String() != "2" {
			t.Errorf("bid level = %s @ %s", book.Bids[0].Size, book.Bids[0].Price)
		}
		if book.Asks[0].Price.String() != "101" || book.Asks[0].Size.String() != "1" {
			t.Errorf("ask level = %s @ %s", book.Asks[0].Size, book.Asks[0].Price)
		}
		if book.ObservedAt.Before(before) {
			t.Error("snapshot not timestamped at receipt time")
		}
	default:
		t.Fatal("no book snapshot published")
	}
}

func TestOrderBookSnapshotsAreFullReplacements(t *testing.T) {
	responses := []string{
		`{"bids":[{"price":"100","volume":"1"},{"price":"99","volume":"2"}],"asks":[]}`,
		`{"bids":[{"price":"98","volume":"3"}],"asks":[]}`,
	}
	call := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(responses[call]))
		call++
	}))
	defer srv.Close()

	p, books, _ := testMarketPoller(srv.URL, 4, 4)
	p.fetchOrderBook()
	p.fetchOrderBook()

	first := <-books
	second := <-books
	if len(first.Bids) != 2 {
		t.Fatalf("first snapshot has %d bids", len(first.Bids))
	}
	// The second snapshot must not carry any level from the first.
	if len(second.Bids) != 1 {
		t.Fatalf("second snapshot has %d bids, levels were merged", len(second.Bids))
	}
	if second.Bids[0].Price.String() != "98" {
		t.Errorf("second snapshot bid price = %s", second.Bids[0].Price)
	}
}

func TestFetchTradesColdStartAndCursor(t *testing.T) {
	var timestamps []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timestamps = append(timestamps, r.URL.Query().Get("timestamp"))
		w.Write([]byte(`[{"id":1,"price":"50","volume":"0.1","created_at":"2024-01-01T00:00:00Z","side":"buy"}]`))
	}))
	defer srv.Close()

	p, _, trades := testMarketPoller(srv.URL, 4, 8)

	p.fetchTrades()
	first := <-trades
	if !first.FirstBatch {
		t.Error("cold-start trade not flagged as first batch")
	}
	if first.Price.String() != "50" || first.Size.String() != "0.1" {
		t.Errorf("trade = %s @ %s", first.Size, first.Price)
	}
	if first.Side != models.TradeSideBid {
		t.Errorf("side = %q, want bid", first.Side)
	}
	if !first.OccurredAt.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("occurred_at = %v", first.OccurredAt)
	}

	if p.tradeCursor.IsZero() {
		t.Fatal("cursor not advanced after successful batch")
	}

	p.fetchTrades()
	second := <-trades
	if second.FirstBatch {
		t.Error("second batch still flagged as first")
	}

	if len(timestamps) != 2 {
		t.Fatalf("expected 2 trade polls, got %d", len(timestamps))
	}
	if timestamps[1] <= timestamps[0] {
		t.Errorf("cursor did not move forward: %s -> %s", timestamps[0], timestamps[1])
	}
}

func TestFetchTradesFailureDoesNotAdvanceCursor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	p, _, trades := testMarketPoller(srv.URL, 4, 4)
	p.fetchTrades()

	if !p.tradeCursor.IsZero() {
		t.Error("cursor advanced despite failed tick")
	}
	select {
	case tr := <-trades:
		t.Errorf("unexpected trade published: %+v", tr)
	default:
	}
}

func TestConvertTradeUnknownSide(t *testing.T) {
	p, _, _ := testMarketPoller("http://localhost:0", 1, 1)
	trade, err := p.convertTrade(models.AcxTrade{ID: 7, Price: "1", Volume: "1", CreatedAt: "2024-01-01T00:00:00Z", Side: "weird"}, false)
	if err != nil {
		t.Fatalf("convertTrade returned error: %v", err)
	}
	if trade.Side != models.TradeSideUnknown {
		t.Errorf("side = %q, want unknown", trade.Side)
	}
}
