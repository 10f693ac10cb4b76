package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/efreitasn/papertrade/internal/config"
	"github.com/efreitasn/papertrade/internal/engine"
	"github.com/efreitasn/papertrade/internal/handler"
	"github.com/efreitasn/papertrade/internal/marketdata"
	"github.com/efreitasn/papertrade/internal/service"
	"github.com/efreitasn/papertrade/internal/store"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Offline book used when MARKET_SOURCE=static.
var (
	staticMid    = decimal.NewFromInt(60000)
	staticSpread = decimal.NewFromInt(2)
	staticAmount = decimal.RequireFromString("0.5")
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	symbol := cfg.Symbol()

	// Market data.
	var feed marketdata.Feed
	switch cfg.MarketSource {
	case config.SourceStatic:
		feed = marketdata.NewStaticFeed(symbol, staticMid, staticSpread, staticAmount)
	default:
		feed = marketdata.NewBinanceFeed(cfg.BinanceBaseURL, cfg.QuoteTimeout)
	}
	poller := marketdata.NewPoller(feed, marketdata.PollerConfig{
		Symbol:      symbol,
		Interval:    cfg.RefreshInterval,
		BookDepth:   cfg.BookDepth,
		TradesLimit: cfg.TradesLimit,
	}, logger)

	// Engine.
	book := engine.NewOrderBook(symbol, store.NewTradeStore())
	account := engine.NewTraderAccount(cfg.TraderID, cfg.Pair, cfg.InitialBase, cfg.InitialQuote)
	exchange := engine.NewExchange(book, account, feed, logger)

	// Services.
	orderSvc := service.NewOrderService(exchange, logger)
	marketSvc := service.NewMarketService(exchange, poller, cfg.InitialBase, cfg.InitialQuote)

	router := handler.NewRouter(orderSvc, marketSvc, handler.RouterOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		BookDepth:      cfg.BookDepth,
		TradesLimit:    cfg.TradesLimit,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poller.Start(ctx)

	// Portfolio PnL is measured from the value at startup. When the market is
	// unreachable it is captured on the first successful valuation instead.
	if err := marketSvc.CaptureInitialValue(ctx); err != nil {
		logger.Warn("initial portfolio value not captured", slog.String("error", err.Error()))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("server starting",
			slog.String("addr", addr),
			slog.String("symbol", symbol),
			slog.String("trader_id", cfg.TraderID),
			slog.String("market_source", cfg.MarketSource),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Stop the HTTP server first, then the poller.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()

	logger.Info("server stopped")
}
