package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dzpay/bankcore/internal/aggregator"
	"github.com/dzpay/bankcore/internal/alerts"
	"github.com/dzpay/bankcore/internal/config"
	"github.com/dzpay/bankcore/internal/connector"
	"github.com/dzpay/bankcore/internal/feed"
	"github.com/dzpay/bankcore/internal/ledger"
	"github.com/dzpay/bankcore/internal/registry"
	"github.com/dzpay/bankcore/internal/risk"
	"github.com/dzpay/bankcore/internal/router"
	"github.com/dzpay/bankcore/internal/server"
	"github.com/dzpay/bankcore/pkg/logger"
)

func main() {
	// Load .env file if present (development convenience).
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting bankcore engine",
		zap.String("log_level", cfg.LogLevel),
		zap.Int("port", cfg.Server.Port))

	store, err := ledger.NewStore(log, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatal("failed to open ledger store", zap.Error(err))
	}
	simulator := ledger.NewSimulator(store, time.Now().UnixNano())

	reg := registry.NewRegistry(nil)

	connections := connector.NewManager(log, reg, connector.NewSimulatedProber(), connector.Config{
		ProbeTimeout:  cfg.Connector.ProbeTimeout,
		RetryAttempts: cfg.Connector.RetryAttempts,
		RetryBackoff:  cfg.Connector.RetryBackoff,
	})

	bus := alerts.NewBus(log, cfg.Alerts.BufferCapacity, cfg.Alerts.SubscriberBuffer)

	feedSvc, err := feed.NewService(log, feed.NewSimulatedProvider(), bus, feed.Config{
		BaseCurrency:        cfg.Feed.BaseCurrency,
		RateInterval:        cfg.Feed.RateInterval,
		RateChangeThreshold: cfg.Feed.RateChangeThreshold,
		PolicyRateThreshold: cfg.Feed.PolicyRateThreshold,
	})
	if err != nil {
		log.Fatal("failed to create market feed", zap.Error(err))
	}

	scorer := risk.NewScorer(log, risk.Config{
		GeoDistanceKm:   cfg.Risk.GeoDistanceKm,
		AmountMultiple:  cfg.Risk.AmountMultiple,
		ActiveHourStart: cfg.Risk.ActiveHourStart,
		ActiveHourEnd:   cfg.Risk.ActiveHourEnd,
	}, risk.NewSimulatedCrossBankChecker())

	routerSvc, err := router.NewService(log, router.Config{
		HardCeiling: decimal.NewFromFloat(cfg.Fees.HardCeiling),
		Fees: router.FeeSchedule{
			Currency:           cfg.Fees.Currency,
			BaseFee:            decimal.NewFromFloat(cfg.Fees.BaseFee),
			CrossBankSurcharge: decimal.NewFromFloat(cfg.Fees.CrossBankSurcharge),
			BasisPointRate:     decimal.NewFromFloat(cfg.Fees.BasisPointRate),
			BasisPointFloor:    decimal.NewFromFloat(cfg.Fees.BasisPointFloor),
		},
		ClearingTimeout: 5 * time.Second,
	}, reg, connections, scorer, store, bus, router.NewSimulatedClearing())
	if err != nil {
		log.Fatal("failed to create transaction router", zap.Error(err))
	}

	metricsSvc, err := aggregator.NewService(log, store, connections, bus, aggregator.Config{
		Interval:       cfg.Feed.MetricsInterval,
		FraudRateAlarm: cfg.Alerts.FraudRateAlarm,
		UptimeAlarm:    cfg.Alerts.UptimeAlarm,
	})
	if err != nil {
		log.Fatal("failed to create metrics aggregator", zap.Error(err))
	}

	if err := feedSvc.Start(); err != nil {
		log.Fatal("failed to start market feed", zap.Error(err))
	}
	if err := metricsSvc.Start(); err != nil {
		log.Fatal("failed to start metrics aggregator", zap.Error(err))
	}

	srv := server.NewServer(log, reg, connections, feedSvc, routerSvc, metricsSvc, bus, store, simulator)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("http shutdown failed", zap.Error(err))
	}

	if err := metricsSvc.Stop(); err != nil {
		log.Error("metrics aggregator stop failed", zap.Error(err))
	}
	if err := feedSvc.Stop(); err != nil {
		log.Error("market feed stop failed", zap.Error(err))
	}

	log.Info("shutdown complete")
}
