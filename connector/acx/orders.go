package acx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"orderflow/config"
	"orderflow/internal/channel"
	"orderflow/logger"
	"orderflow/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderManager submits, cancels and replaces orders and reconciles venue
// order state into canonical status updates. Submission and cancellation
// failures are always surfaced as updates on the order stream, never as
// returned errors, so the trading engine gets a terminal signal for every
// intent.
type OrderManager struct {
	config    *config.Config
	transport *Transport
	market    Market
	orders    *channel.Hub[models.OrderStatusUpdate]

	// reconcileCursor is owned by the reconcile worker goroutine.
	reconcileCursor time.Time

	idsMu            sync.Mutex
	clientByExchange map[int64]string

	ctx     context.Context
	wg      *sync.WaitGroup
	mu      sync.RWMutex
	running bool
	log     *logger.Log
}

// NewOrderManager creates a manager for the resolved market.
func NewOrderManager(cfg *config.Config, t *Transport, market Market, orders *channel.Hub[models.OrderStatusUpdate]) *OrderManager {
	return &OrderManager{
		config:           cfg,
		transport:        t,
		market:           market,
		orders:           orders,
		clientByExchange: make(map[int64]string),
		wg:               &sync.WaitGroup{},
		log:              logger.GetLogger(),
	}
}

// Start launches the reconciliation worker.
func (m *OrderManager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("order manager already running")
	}
	m.running = true
	m.ctx = ctx
	m.reconcileCursor = time.Now()
	m.mu.Unlock()

	m.log.WithComponent("acx_order_manager").WithFields(logger.Fields{
		"symbol":                m.market.Symbol,
		"reconcile_interval_ms": m.config.Poller.Reconcile.IntervalMs,
	}).Info("starting order manager")

	m.wg.Add(1)
	go m.reconcileWorker()

	return nil
}

// Stop waits for the reconcile worker and in-flight submissions.
func (m *OrderManager) Stop() {
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
	m.log.WithComponent("acx_order_manager").Info("stopping order manager")
	m.wg.Wait()
	m.log.WithComponent("acx_order_manager").Info("order manager stopped")
}

// CanCancelByClientID reports whether the venue can cancel by the
// caller-generated id. It cannot; cancellation needs the venue-assigned
// order id.
func (m *OrderManager) CanCancelByClientID() bool {
	return false
}

// Submit places the order described by the intent. A latency-only update
// is published before the network call is dispatched; the outcome is
// published once the venue responds. The (possibly generated) client
// order id is returned so callers can correlate updates.
func (m *OrderManager) Submit(intent models.OrderIntent) string {
	if intent.ClientOrderID == "" {
		intent.ClientOrderID = uuid.NewString()
	}
	if intent.CreatedAt.IsZero() {
		intent.CreatedAt = time.Now()
	}
	if intent.Market == "" {
		intent.Market = m.market.Symbol
	}

	m.orders.Publish(models.OrderStatusUpdate{
		OrderID:    intent.ClientOrderID,
		Latency:    time.Since(intent.CreatedAt),
		ObservedAt: time.Now().UTC(),
	})

	m.wg.Add(1)
	go m.placeOrder(intent)

	return intent.ClientOrderID
}

func (m *OrderManager) placeOrder(intent models.OrderIntent) {
	defer m.wg.Done()
	log := m.log.WithComponent("acx_order_manager").WithFields(logger.Fields{"order_id": intent.ClientOrderID, "operation": "place_order"})

	params := url.Values{}
	params.Set("market", intent.Market)
	params.Set("side", string(intent.Side))
	params.Set("volume", intent.Size.String())
	params.Set("ord_type", string(intent.Type))
	if intent.Type == models.OrderTypeLimit {
		params.Set("price", intent.Price.Round(m.market.PricePrecision).String())
	}

	logger.IncrementOrderSubmitted()

	raw, err := m.transport.SignedCall(m.ctx, http.MethodPost, "/orders.json", params)
	if err != nil {
		log.WithError(err).Warn("order submission failed")
		m.orders.Publish(models.OrderStatusUpdate{
			OrderID:      intent.ClientOrderID,
			Status:       models.OrderStatusRejected,
			RejectReason: err.Error(),
			ObservedAt:   time.Now().UTC(),
		})
		return
	}

	var ack models.AcxOrder
	if err := json.Unmarshal(raw, &ack); err != nil {
		log.WithError(err).Warn("failed to decode order ack")
		m.orders.Publish(models.OrderStatusUpdate{
			OrderID:      intent.ClientOrderID,
			Status:       models.OrderStatusRejected,
			RejectReason: fmt.Sprintf("unreadable order ack: %v", err),
			ObservedAt:   time.Now().UTC(),
		})
		return
	}

	if ack.Message != "" {
		log.WithFields(logger.Fields{"reason": ack.Message}).Warn("venue rejected order")
		m.orders.Publish(models.OrderStatusUpdate{
			OrderID:      intent.ClientOrderID,
			Status:       models.OrderStatusRejected,
			RejectReason: ack.Message,
			ObservedAt:   time.Now().UTC(),
		})
		return
	}

	m.idsMu.Lock()
	m.clientByExchange[ack.ID] = intent.ClientOrderID
	m.idsMu.Unlock()

	m.orders.Publish(models.OrderStatusUpdate{
		OrderID:         intent.ClientOrderID,
		ExchangeOrderID: ack.ID,
		Status:          models.OrderStatusWorking,
		ObservedAt:      time.Now().UTC(),
	})
	log.WithFields(logger.Fields{"exchange_order_id": ack.ID}).Info("order working")
}

// Cancel asks the venue to cancel the order identified by the report's
// exchange order id. The latency update measures from the report's
// ObservedAt, the moment the caller decided to cancel. A report without
// an exchange id never reaches the venue: the order was never
// acknowledged, so it is reported cancelled terminally right away.
func (m *OrderManager) Cancel(report models.OrderStatusUpdate) {
	requested := report.ObservedAt
	if requested.IsZero() {
		requested = time.Now()
	}

	m.orders.Publish(models.OrderStatusUpdate{
		OrderID:    report.OrderID,
		Latency:    time.Since(requested),
		ObservedAt: time.Now().UTC(),
	})

	if report.ExchangeOrderID == 0 {
		m.orders.Publish(models.OrderStatusUpdate{
			OrderID:      report.OrderID,
			Status:       models.OrderStatusCancelled,
			RejectReason: "order has no exchange id",
			ObservedAt:   time.Now().UTC(),
		})
		return
	}

	m.wg.Add(1)
	go m.cancelOrder(report)
}

func (m *OrderManager) cancelOrder(report models.OrderStatusUpdate) {
	defer m.wg.Done()
	log := m.log.WithComponent("acx_order_manager").WithFields(logger.Fields{"order_id": report.OrderID, "exchange_order_id": report.ExchangeOrderID, "operation": "cancel_order"})

	params := url.Values{}
	params.Set("id", strconv.FormatInt(report.ExchangeOrderID, 10))

	logger.IncrementOrderCancelled()

	raw, err := m.transport.SignedCall(m.ctx, http.MethodPost, "/order/delete.json", params)
	if err != nil {
		log.WithError(err).Warn("order cancellation failed")
		m.orders.Publish(models.OrderStatusUpdate{
			OrderID:         report.OrderID,
			ExchangeOrderID: report.ExchangeOrderID,
			Status:          models.OrderStatusRejected,
			CancelRejected:  true,
			RejectReason:    err.Error(),
			ObservedAt:      time.Now().UTC(),
		})
		return
	}

	var ack models.AcxOrder
	if err := json.Unmarshal(raw, &ack); err == nil && ack.Message != "" {
		log.WithFields(logger.Fields{"reason": ack.Message}).Warn("venue rejected cancellation")
		m.orders.Publish(models.OrderStatusUpdate{
			OrderID:         report.OrderID,
			ExchangeOrderID: report.ExchangeOrderID,
			Status:          models.OrderStatusRejected,
			CancelRejected:  true,
			RejectReason:    ack.Message,
			ObservedAt:      time.Now().UTC(),
		})
		return
	}

	m.orders.Publish(models.OrderStatusUpdate{
		OrderID:         report.OrderID,
		ExchangeOrderID: report.ExchangeOrderID,
		Status:          models.OrderStatusCancelled,
		ObservedAt:      time.Now().UTC(),
	})
	log.Info("order cancelled")
}

// Replace is cancel-then-submit. It is not atomic: between the cancel
// acknowledgement and the new order's acknowledgement both orders may be
// live, or neither. Callers must tolerate that window.
func (m *OrderManager) Replace(report models.OrderStatusUpdate, intent models.OrderIntent) string {
	m.Cancel(report)
	return m.Submit(intent)
}

// CancelAll is not supported by the venue; it reports zero orders
// cancelled.
func (m *OrderManager) CancelAll() int {
	m.log.WithComponent("acx_order_manager").Warn("cancel-all is not supported by the venue")
	return 0
}

func (m *OrderManager) reconcileWorker() {
	defer m.wg.Done()
	log := m.log.WithComponent("acx_order_manager").WithFields(logger.Fields{"worker": "reconciler"})
	interval := time.Duration(m.config.Poller.Reconcile.IntervalMs) * time.Millisecond
	now := time.Now()
	next := now.Truncate(interval).Add(interval)
	timer := time.NewTimer(next.Sub(now))
	defer timer.Stop()
	for {
		select {
		case <-m.ctx.Done():
			log.Info("worker stopped due to context cancellation")
			return
		case <-timer.C:
			start := time.Now()
			m.reconcile()
			next = start.Truncate(interval).Add(interval)
			timer.Reset(time.Until(next))
		}
	}
}

// reconcile polls fills since the cursor and, per fill, the order's full
// detail, emitting one consolidated update per fill. The cursor advances
// once the fills batch has decoded, before the detail polls, so a crash
// mid-cycle can reconcile the same fill twice; consumers must be
// idempotent by trade id.
func (m *OrderManager) reconcile() {
	log := m.log.WithComponent("acx_order_manager").WithFields(logger.Fields{"operation": "reconcile"})

	params := url.Values{}
	params.Set("market", m.market.Symbol)
	params.Set("timestamp", strconv.FormatInt(m.reconcileCursor.Unix(), 10))

	raw, err := m.transport.SignedCall(m.ctx, http.MethodGet, "/trades/my.json", params)
	if err != nil {
		log.WithError(err).Warn("failed to fetch fills")
		return
	}

	// A venue business error is valid JSON and passes the transport, so
	// the cursor must not move until the fills batch has decoded; a
	// rejected window is retried with the same cursor.
	var fills []models.AcxTrade
	if err := json.Unmarshal(raw, &fills); err != nil {
		log.WithError(err).Warn("failed to decode fills")
		return
	}
	m.reconcileCursor = time.Now()

	logger.IncrementOrderPoll(len(raw))

	for _, fill := range fills {
		if fill.OrderID == 0 {
			log.WithFields(logger.Fields{"trade_id": fill.ID}).Warn("fill carries no order id, skipping")
			continue
		}
		m.reconcileFill(fill, log)
	}
}

func (m *OrderManager) reconcileFill(fill models.AcxTrade, log *logger.Entry) {
	params := url.Values{}
	params.Set("id", strconv.FormatInt(fill.OrderID, 10))

	raw, err := m.transport.SignedCall(m.ctx, http.MethodGet, "/order.json", params)
	if err != nil {
		log.WithError(err).WithFields(logger.Fields{"exchange_order_id": fill.OrderID}).Warn("failed to fetch order detail")
		return
	}

	var detail models.AcxOrder
	if err := json.Unmarshal(raw, &detail); err != nil {
		log.WithError(err).WithFields(logger.Fields{"exchange_order_id": fill.OrderID}).Warn("failed to decode order detail")
		return
	}

	update := models.OrderStatusUpdate{
		OrderID:         m.clientID(fill.OrderID),
		ExchangeOrderID: fill.OrderID,
		Status:          mapOrderState(detail.State),
		LastPrice:       parseDecimal(fill.Price),
		LastSize:        parseDecimal(fill.Volume),
		FilledSize:      parseDecimal(detail.ExecutedVolume),
		RemainingSize:   parseDecimal(detail.RemainingVolume),
		AveragePrice:    parseDecimal(detail.AvgPrice),
		ObservedAt:      time.Now().UTC(),
	}

	m.orders.Publish(update)
	log.WithFields(logger.Fields{
		"exchange_order_id": fill.OrderID,
		"state":             detail.State,
		"trade_id":          fill.ID,
	}).Info("reconciled fill")
}

func (m *OrderManager) clientID(exchangeOrderID int64) string {
	m.idsMu.Lock()
	defer m.idsMu.Unlock()
	return m.clientByExchange[exchangeOrderID]
}

// mapOrderState translates venue order states into canonical statuses.
// Unknown states map to Other rather than failing.
func mapOrderState(state string) models.OrderStatus {
	switch state {
	case "wait":
		return models.OrderStatusWorking
	case "cancel":
		return models.OrderStatusCancelled
	case "done":
		return models.OrderStatusComplete
	default:
		return models.OrderStatusOther
	}
}

// parseDecimal converts a venue string value, treating anything
// unparseable (empty fields included) as zero.
func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
