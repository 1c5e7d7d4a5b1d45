package acx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"orderflow/config"
	"orderflow/internal/channel"
	"orderflow/logger"
	"orderflow/models"

	"github.com/shopspring/decimal"
)

// PositionPoller periodically fetches account balances and publishes one
// snapshot per currency.
type PositionPoller struct {
	config    *config.Config
	transport *Transport
	positions *channel.Hub[models.PositionSnapshot]

	ctx     context.Context
	wg      *sync.WaitGroup
	mu      sync.RWMutex
	running bool
	log     *logger.Log
}

// NewPositionPoller creates a balance poller.
func NewPositionPoller(cfg *config.Config, t *Transport, positions *channel.Hub[models.PositionSnapshot]) *PositionPoller {
	return &PositionPoller{
		config:    cfg,
		transport: t,
		positions: positions,
		wg:        &sync.WaitGroup{},
		log:       logger.GetLogger(),
	}
}

// Start launches the balance worker.
func (p *PositionPoller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("position poller already running")
	}
	p.running = true
	p.ctx = ctx
	p.mu.Unlock()

	p.log.WithComponent("acx_position_poller").WithFields(logger.Fields{
		"interval_ms": p.config.Poller.Positions.IntervalMs,
	}).Info("starting position poller")

	p.wg.Add(1)
	go p.worker()

	return nil
}

// Stop waits for the in-flight tick to finish.
func (p *PositionPoller) Stop() {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	p.log.WithComponent("acx_position_poller").Info("stopping position poller")
	p.wg.Wait()
	p.log.WithComponent("acx_position_poller").Info("position poller stopped")
}

func (p *PositionPoller) worker() {
	defer p.wg.Done()
	log := p.log.WithComponent("acx_position_poller").WithFields(logger.Fields{"worker": "balance_fetcher"})
	interval := time.Duration(p.config.Poller.Positions.IntervalMs) * time.Millisecond
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
			p.fetchBalances()
			next = start.Truncate(interval).Add(interval)
			timer.Reset(time.Until(next))
		}
	}
}

// fetchBalances pulls all account balances in one signed call and
// publishes each as an independent snapshot. Failures are logged and the
// next tick is unaffected.
func (p *PositionPoller) fetchBalances() {
	log := p.log.WithComponent("acx_position_poller").WithFields(logger.Fields{"operation": "fetch_balances"})

	raw, err := p.transport.SignedCall(p.ctx, http.MethodGet, "/members/me.json", url.Values{})
	if err != nil {
		log.WithError(err).Warn("failed to fetch balances")
		return
	}

	var member models.AcxMember
	if err := json.Unmarshal(raw, &member); err != nil {
		log.WithError(err).Warn("failed to decode balances")
		return
	}

	observedAt := time.Now().UTC()
	published := 0
	for _, account := range member.Accounts {
		balance, err := decimal.NewFromString(account.Balance)
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{"currency": account.Currency}).Warn("skipping account with bad balance")
			continue
		}
		locked, err := decimal.NewFromString(account.Locked)
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{"currency": account.Currency}).Warn("skipping account with bad locked amount")
			continue
		}

		p.positions.Publish(models.PositionSnapshot{
			Currency:   account.Currency,
			Total:      balance.Add(locked),
			Held:       locked,
			ObservedAt: observedAt,
		})
		published++
	}

	logger.IncrementPositionPoll(len(raw))
	if published > 0 {
		logger.LogDataFlowEntry(log, "acx_api", "position_hub", published, "balances")
	}
}
