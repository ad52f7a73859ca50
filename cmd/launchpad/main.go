// Package main runs the launchpad service: the market ledger behind an HTTP
// API, a websocket event feed, Prometheus metrics and pluggable persistence
// (in-memory, PostgreSQL, ClickHouse analytics).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"rabbit-launchpad/internal/account"
	"rabbit-launchpad/internal/api"
	"rabbit-launchpad/internal/curve"
	"rabbit-launchpad/internal/ledger"
	"rabbit-launchpad/internal/storage"
	chstore "rabbit-launchpad/internal/storage/clickhouse"
	"rabbit-launchpad/internal/storage/memory"
	"rabbit-launchpad/internal/storage/migrations"
	pgstore "rabbit-launchpad/internal/storage/postgres"
	"rabbit-launchpad/internal/stream"
	"rabbit-launchpad/internal/timelock"
	"rabbit-launchpad/internal/vault"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	listenAddr := flag.String("listen-addr", envOr("LISTEN_ADDR", ":8080"), "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for trade analytics")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	treasuryAddr := flag.String("treasury", os.Getenv("TREASURY_ADDRESS"), "Treasury address (base58)")
	routerAddr := flag.String("router", os.Getenv("ROUTER_ADDRESS"), "Liquidity router address (base58)")
	hookTimeout := flag.Duration("hook-timeout", time.Second, "Receiver hook timeout")

	flag.Parse()

	logger := log.New(os.Stdout, "[launchpad] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required unless --use-memory is set")
	}

	treasury, err := resolveAddress(*treasuryAddr, "treasury")
	if err != nil {
		logger.Fatalf("bad --treasury: %v", err)
	}
	router, err := resolveAddress(*routerAddr, "router")
	if err != nil {
		logger.Fatalf("bad --router: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage
	var (
		assets storage.AssetStore
		events storage.EventStore
		trades storage.TradePointStore
	)
	if *useMemory {
		logger.Println("using in-memory storage")
		assets = memory.NewAssetStore()
		events = memory.NewEventStore()
		trades = memory.NewTradePointStore()
	} else {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("postgres: %v", err)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("postgres migrations: %v", err)
		}
		assets = pgstore.NewAssetStore(pool)
		events = pgstore.NewEventStore(pool)

		if *clickhouseDSN != "" {
			conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
			if err != nil {
				logger.Fatalf("clickhouse: %v", err)
			}
			defer conn.Close()
			trades = chstore.NewTradePointStore(conn)
		} else {
			logger.Println("no clickhouse DSN, trade analytics kept in memory")
			trades = memory.NewTradePointStore()
		}
	}

	// Settlement layer
	bank := vault.NewBank(*hookTimeout, logger)
	tokens := vault.NewTokenBook()

	// The pool account matches the ledger's derivation so the admin
	// controller can drain it in an emergency.
	pool := account.Derive("curve-pool")
	admin := timelock.New(bank, pool, treasury, router, logger)

	hub := stream.NewHub(logger)
	defer hub.Close()

	eng, err := ledger.New(ledger.Config{
		Params: curve.DefaultParams(),
		Assets: assets,
		Bank:   bank,
		Tokens: tokens,
		Admin:  admin,
		Sink:   ledger.NewMultiSink(logger, ledger.NewStoreSink(events), hub),
		Trades: trades,
		Logger: logger,
	})
	if err != nil {
		logger.Fatalf("ledger: %v", err)
	}

	srv := &http.Server{
		Addr: *listenAddr,
		Handler: api.NewServer(api.Config{
			Ledger: eng,
			Events: events,
			Bank:   bank,
			Tokens: tokens,
			Admin:  admin,
			Feed:   hub,
			Logger: logger,
		}).Routes(),
	}

	go func() {
		logger.Printf("listening on %s", *listenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("shutdown: %v", err)
	}
}

// resolveAddress parses a base58 address or derives a stable internal one
// when the flag is unset.
func resolveAddress(s, fallbackLabel string) (account.Address, error) {
	if s == "" {
		return account.Derive(fallbackLabel), nil
	}
	addr, err := account.Parse(s)
	if err != nil {
		return account.Address{}, fmt.Errorf("%q: %w", s, err)
	}
	return addr, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
