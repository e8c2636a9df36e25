package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"golang.org/x/sync/errgroup"

	"wallet_monitor/internal/app/port"
	"wallet_monitor/internal/app/service"
	"wallet_monitor/internal/config"
	"wallet_monitor/internal/domain/entity"
	"wallet_monitor/internal/infrastructure/endpointpool"
	"wallet_monitor/internal/infrastructure/kvstore"
	"wallet_monitor/internal/infrastructure/ledgerclient"
	"wallet_monitor/internal/infrastructure/mockledger"
	"wallet_monitor/internal/infrastructure/pricefeed"
	"wallet_monitor/internal/infrastructure/restapi"
	localsigner "wallet_monitor/internal/infrastructure/signer"
	"wallet_monitor/internal/pkg/logger"
	"wallet_monitor/pkg/metrics"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// Bootstrap logging before config is available.
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)

	cfgPath := getEnv("CONFIG_PATH", "config/config.yml")
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		logrus.Fatalf("Failed to initialize zap logger: %v", err)
	}
	defer zapLogger.Sync()

	logger.InitSlog(cfg.Logging.Level)
	portLogger := logger.NewSlogAdapter()

	slogHandler := zapslog.NewHandler(zapLogger.Core())
	slog.SetDefault(slog.New(slogHandler))

	zapLogger.Info("Configuration loaded", zap.String("path", cfgPath))

	metrics.MustRegisterMetrics()

	// Mock ledger backed by a file store so simulated balances survive
	// restarts.
	store, err := kvstore.NewFileStore(cfg.MockLedger.DataDir, "mock_ledger.json")
	if err != nil {
		zapLogger.Fatal("Failed to open mock ledger store", zap.Error(err))
	}
	mock := mockledger.New(store, portLogger)

	// Endpoint pool: explicit config wins, otherwise the cluster's static
	// definitions.
	endpoints := make([]entity.Endpoint, 0, len(cfg.Network.Endpoints))
	for _, e := range cfg.Network.Endpoints {
		endpoints = append(endpoints, entity.Endpoint{URL: e.URL, Priority: e.Priority})
	}
	if len(endpoints) == 0 {
		endpoints = endpointpool.ForCluster(cfg.Network.Cluster)
		zapLogger.Info("Using predefined endpoint set", zap.String("cluster", cfg.Network.Cluster))
	}
	pool := endpointpool.New(endpoints, portLogger)

	reader := ledgerclient.NewReader(pool, ledgerclient.Options{
		CallTimeout:   time.Duration(cfg.Network.RPCCallTimeoutSeconds) * time.Second,
		Commitment:    ledgerclient.CommitmentFromString(cfg.Network.Commitment),
		RatePerSecond: cfg.Network.RateLimitPerSecond,
		Burst:         cfg.Network.RateLimitBurst,
	}, zapLogger)

	// Price feed with cached rates and a static fallback.
	fallbackRate, err := decimal.NewFromString(cfg.PriceFeed.StaticFallbackRate)
	if err != nil {
		zapLogger.Warn("Invalid static fallback rate, defaulting to 150",
			zap.String("value", cfg.PriceFeed.StaticFallbackRate))
		fallbackRate = decimal.NewFromInt(150)
	}
	feedClient := pricefeed.NewClient(
		cfg.PriceFeed.BaseURL,
		time.Duration(cfg.PriceFeed.RequestTimeoutMillis)*time.Millisecond,
		zapLogger,
	)
	oracle := pricefeed.NewService(
		feedClient,
		time.Duration(cfg.PriceFeed.CacheTTLMinutes)*time.Minute,
		fallbackRate,
		zapLogger,
	)

	feeService := service.NewFeeService(oracle, zapLogger)
	monitor := service.NewMonitorService(
		reader,
		mock,
		oracle,
		zapLogger,
		time.Duration(cfg.Monitor.PollIntervalSeconds)*time.Second,
		time.Duration(cfg.Monitor.ReadTimeoutSeconds)*time.Second,
	)

	var txSigner port.Signer
	switch {
	case cfg.Signer.PrivateKey != "":
		s, err := localsigner.NewLocalKeySigner(cfg.Signer.PrivateKey, zapLogger)
		if err != nil {
			zapLogger.Fatal("Failed to load signer key", zap.Error(err))
		}
		txSigner = s
	case cfg.Signer.PrivateKeyFile != "":
		s, err := localsigner.NewLocalKeySignerFromFile(cfg.Signer.PrivateKeyFile, zapLogger)
		if err != nil {
			zapLogger.Fatal("Failed to load signer key file", zap.Error(err))
		}
		txSigner = s
	default:
		zapLogger.Info("No signer configured; payments will be rejected")
	}

	payments := service.NewPaymentService(
		reader,
		reader,
		feeService,
		txSigner,
		monitor,
		mock,
		zapLogger,
		time.Duration(cfg.Network.ConfirmTimeoutSeconds)*time.Second,
	)

	handler := restapi.NewWalletHandler(monitor, payments, mock, cfg, portLogger)
	router := restapi.NewRouter(handler)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zapLogger.Info(fmt.Sprintf("Server starting on port %s", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		zapLogger.Info("Shutting down...")
		monitor.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zapLogger.Fatal("Service terminated", zap.Error(err))
	}
	zapLogger.Info("Service exited")
}
