package acx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"orderflow/config"
	"orderflow/internal/channel"
	"orderflow/logger"
	"orderflow/models"

	"github.com/shopspring/decimal"
)

// MarketPoller periodically fetches depth snapshots and incremental
// trade batches for one instrument and publishes canonical events.
type MarketPoller struct {
	config    *config.Config
	transport *Transport
	market    Market
	books     *channel.Hub[models.OrderBook]
	trades    *channel.Hub[models.Trade]

	// tradeCursor stays zero until the first trade batch has been fully
	// processed; it only ever moves forward and is owned by the trade
	// worker goroutine.
	tradeCursor time.Time

	ctx     context.Context
	wg      *sync.WaitGroup
	mu      sync.RWMutex
	running bool
	log     *logger.Log
}

// NewMarketPoller creates a poller for the resolved market.
func NewMarketPoller(cfg *config.Config, t *Transport, market Market, books *channel.Hub[models.OrderBook], trades *channel.Hub[models.Trade]) *MarketPoller {
	return &MarketPoller{
		config:    cfg,
		transport: t,
		market:    market,
		books:     books,
		trades:    trades,
		wg:        &sync.WaitGroup{},
		log:       logger.GetLogger(),
	}
}

// Start launches the book and trade workers. Each worker serializes its
// own ticks, so cursor updates never race.
func (p *MarketPoller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("market poller already running")
	}
	p.running = true
	p.ctx = ctx
	p.mu.Unlock()

	log := p.log.WithComponent("acx_market_poller").WithFields(logger.Fields{"symbol": p.market.Symbol})
	log.WithFields(logger.Fields{
		"book_interval_ms":  p.config.Poller.Orderbook.IntervalMs,
		"trade_interval_ms": p.config.Poller.Trades.IntervalMs,
	}).Info("starting market poller")

	p.wg.Add(2)
	go p.runWorker("book_fetcher", p.config.Poller.Orderbook.IntervalMs, p.fetchOrderBook)
	go p.runWorker("trade_fetcher", p.config.Poller.Trades.IntervalMs, p.fetchTrades)

	return nil
}

// Stop waits for in-flight ticks to finish.
func (p *MarketPoller) Stop() {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	p.log.WithComponent("acx_market_poller").Info("stopping market poller")
	p.wg.Wait()
	p.log.WithComponent("acx_market_poller").Info("market poller stopped")
}

// runWorker drives one fetch function on a fixed interval until the
// context is cancelled.
func (p *MarketPoller) runWorker(name string, intervalMs int, fetch func()) {
	defer p.wg.Done()
	log := p.log.WithComponent("acx_market_poller").WithFields(logger.Fields{"symbol": p.market.Symbol, "worker": name})
	interval := time.Duration(intervalMs) * time.Millisecond
	now := time.Now()
	next := now.Truncate(interval).Add(interval)
	timer := time.NewTimer(next.Sub(now))
	defer timer.Stop()
	for {
		select {
		case <-p.ctx.Done():
			log.Info("worker stopped due to context cancellation")
			return
		case <-timer.C:
			start := time.Now()
			fetch()
			duration := time.Since(start)
			if duration > interval {
				log.WithFields(logger.Fields{"duration": duration.Milliseconds(), "interval_ms": intervalMs}).Warn("fetch took longer than interval")
			}
			next = start.Truncate(interval).Add(interval)
			timer.Reset(time.Until(next))
		}
	}
}

// fetchOrderBook pulls one depth snapshot and publishes it as a full
// replacement of the previous one.
func (p *MarketPoller) fetchOrderBook() {
	log := p.log.WithComponent("acx_market_poller").WithFields(logger.Fields{"symbol": p.market.Symbol, "operation": "fetch_orderbook"})

	query := url.Values{}
	query.Set("market", p.market.Symbol)
	query.Set("bids_limit", strconv.Itoa(p.config.Poller.Orderbook.BidsLimit))
	query.Set("asks_limit", strconv.Itoa(p.config.Poller.Orderbook.AsksLimit))

	raw, err := p.transport.Get(p.ctx, "/order_book.json", query)
	if err != nil {
		log.WithError(err).Warn("failed to fetch orderbook")
		return
	}

	var resp models.AcxOrderBookResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		log.WithError(err).Warn("failed to decode orderbook")
		return
	}

	book := models.OrderBook{
		Market:     p.market.Symbol,
		Bids:       p.convertBookSide(resp.Bids, log),
		Asks:       p.convertBookSide(resp.Asks, log),
		ObservedAt: time.Now().UTC(),
	}

	p.books.Publish(book)
	logger.IncrementMarketPoll(len(raw))
	logger.LogDataFlowEntry(log, "acx_api", "book_hub", len(book.Bids)+len(book.Asks), "book_levels")
}

// convertBookSide converts venue levels to canonical ones preserving the
// venue-returned ordering. Unparseable levels are dropped with a warning.
func (p *MarketPoller) convertBookSide(levels []models.AcxBookLevel, log *logger.Entry) []models.BookLevel {
	out := make([]models.BookLevel, 0, len(levels))
	for _, lvl := range levels {
		price, err := decimal.NewFromString(lvl.Price)
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{"price": lvl.Price}).Warn("skipping level with bad price")
			continue
		}
		size, err := decimal.NewFromString(lvl.Volume)
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{"volume": lvl.Volume}).Warn("skipping level with bad volume")
			continue
		}
		out = append(out, models.BookLevel{Price: price, Size: size})
	}
	return out
}

// fetchTrades pulls trades since the cursor and publishes each one. The
// cursor advances to wall-clock now only after the whole batch has been
// processed, so a failed tick is retried with the same cursor and may
// re-deliver trades; consumers de-duplicate by trade id.
func (p *MarketPoller) fetchTrades() {
	log := p.log.WithComponent("acx_market_poller").WithFields(logger.Fields{"symbol": p.market.Symbol, "operation": "fetch_trades"})

	firstBatch := p.tradeCursor.IsZero()
	since := p.tradeCursor
	if firstBatch {
		// Cold start: look back far enough to cover trades between
		// process start and first tick, accepting duplicates.
		since = time.Now().Add(-time.Duration(p.config.Poller.Trades.LookbackMs) * time.Millisecond)
	}

	query := url.Values{}
	query.Set("market", p.market.Symbol)
	query.Set("timestamp", strconv.FormatInt(since.Unix(), 10))

	raw, err := p.transport.Get(p.ctx, "/trades.json", query)
	if err != nil {
		log.WithError(err).Warn("failed to fetch trades")
		return
	}

	var venueTrades []models.AcxTrade
	if err := json.Unmarshal(raw, &venueTrades); err != nil {
		log.WithError(err).Warn("failed to decode trades")
		return
	}

	published := 0
	for _, vt := range venueTrades {
		trade, err := p.convertTrade(vt, firstBatch)
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{"trade_id": vt.ID}).Warn("skipping unparseable trade")
			continue
		}
		p.trades.Publish(trade)
		published++
	}

	p.tradeCursor = time.Now()
	logger.IncrementMarketPoll(len(raw))
	if published > 0 {
		logger.LogDataFlowEntry(log, "acx_api", "trade_hub", published, "trades")
	}
}

// convertTrade maps one venue trade into the canonical form.
func (p *MarketPoller) convertTrade(vt models.AcxTrade, firstBatch bool) (models.Trade, error) {
	price, err := decimal.NewFromString(vt.Price)
	if err != nil {
		return models.Trade{}, fmt.Errorf("bad trade price %q: %w", vt.Price, err)
	}
	size, err := decimal.NewFromString(vt.Volume)
	if err != nil {
		return models.Trade{}, fmt.Errorf("bad trade volume %q: %w", vt.Volume, err)
	}
	occurredAt, err := time.Parse(time.RFC3339, vt.CreatedAt)
	if err != nil {
		return models.Trade{}, fmt.Errorf("bad trade timestamp %q: %w", vt.CreatedAt, err)
	}

	var side models.TradeSide
	switch vt.Side {
	case "buy", "bid", "up":
		side = models.TradeSideBid
	case "sell", "ask", "down":
		side = models.TradeSideAsk
	default:
		side = models.TradeSideUnknown
	}

	return models.Trade{
		TradeID:    vt.ID,
		Market:     p.market.Symbol,
		Price:      price,
		Size:       size,
		Side:       side,
		OccurredAt: occurredAt,
		FirstBatch: firstBatch,
	}, nil
}
