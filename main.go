package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"orderflow/config"
	"orderflow/connector/acx"
	"orderflow/internal/channel"
	"orderflow/logger"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Orderflow.Name,
		"version": cfg.Orderflow.Version,
	}).Info("starting orderflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.CloudWatch.Enabled {
		logger.InitCloudWatch(cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace, cfg.Metrics.CloudWatch.Dashboard)
		logger.StartReport(ctx, log, 30*time.Second)
	}

	channels := channel.NewChannels(
		cfg.Channels.MarketBuffer,
		cfg.Channels.OrderBuffer,
		cfg.Channels.PositionBuffer,
	)
	defer channels.Close()

	transport := acx.NewTransport(cfg, channels.Connectivity)

	// Symbol resolution is the only fatal startup step: without a venue
	// market there is nothing to poll or trade.
	market, err := acx.ResolveMarket(ctx, transport, cfg.Venue.Pair.Base, cfg.Venue.Pair.Quote)
	if err != nil {
		log.WithError(err).Error("failed to resolve venue market")
		os.Exit(1)
	}

	marketPoller := acx.NewMarketPoller(cfg, transport, market, channels.Books, channels.Trades)
	orderManager := acx.NewOrderManager(cfg, transport, market, channels.Orders)
	positionPoller := acx.NewPositionPoller(cfg, transport, channels.Positions)

	if err := marketPoller.Start(ctx); err != nil {
		log.WithError(err).Error("failed to start market poller")
		os.Exit(1)
	}
	if err := orderManager.Start(ctx); err != nil {
		log.WithError(err).Error("failed to start order manager")
		os.Exit(1)
	}
	if err := positionPoller.Start(ctx); err != nil {
		log.WithError(err).Error("failed to start position poller")
		os.Exit(1)
	}

	// Debug taps so the connector is observable when run standalone,
	// without a trading engine attached.
	go drainDebug(ctx, channels)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")

	cancel()
	marketPoller.Stop()
	orderManager.Stop()
	positionPoller.Stop()

	log.Info("orderflow stopped")
}

func drainDebug(ctx context.Context, channels *channel.Channels) {
	log := logger.GetLogger().WithComponent("debug_tap")

	books := channels.Books.Subscribe()
	trades := channels.Trades.Subscribe()
	orders := channels.Orders.Subscribe()
	positions := channels.Positions.Subscribe()
	connectivity := channels.Connectivity.Subscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case book := <-books:
			log.WithFields(logger.Fields{"bids": len(book.Bids), "asks": len(book.Asks)}).Debug("book snapshot")
		case trade := <-trades:
			log.WithFields(logger.Fields{"trade_id": trade.TradeID, "price": trade.Price.String(), "first_batch": trade.FirstBatch}).Debug("trade")
		case update := <-orders:
			log.WithFields(logger.Fields{"order_id": update.OrderID, "status": string(update.Status)}).Debug("order update")
		case position := <-positions:
			log.WithFields(logger.Fields{"currency": position.Currency, "total": position.Total.String()}).Debug("position")
		case status := <-connectivity:
			log.WithFields(logger.Fields{"status": string(status)}).Info("connectivity")
		}
	}
}
