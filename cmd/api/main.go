package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/hostkita/panelstore/internal/client"
	"github.com/hostkita/panelstore/internal/config"
	"github.com/hostkita/panelstore/internal/http"
	"github.com/hostkita/panelstore/internal/orders"
	"github.com/hostkita/panelstore/internal/repository"
	"github.com/hostkita/panelstore/internal/service"
	"github.com/hostkita/panelstore/internal/settings"
	"github.com/hostkita/panelstore/internal/store"
)

func main() {
	log.Println("Starting panelstore...")

	if err := godotenv.Load(); err == nil {
		log.Println("[config] Loaded .env")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Document store backend
	docStore, cleanup, err := newDocumentStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize document store: %v", err)
	}
	defer cleanup()

	repo := repository.NewSubscriptionRepository(docStore)
	settingsCache := settings.NewCache(repo, cfg.Settings.CacheTTL)

	// External clients
	panelClient := client.NewPanelClient(cfg.Panel.URL, cfg.Panel.APIKey)
	paymentClient := client.NewPaymentClient(cfg.Payment.URL, cfg.Payment.APIKey)

	// Order cache, swept on a timer
	orderStore := orders.NewMemoryStore()
	stopOrderSweep := make(chan struct{})
	go orders.StartSweep(orderStore, cfg.Orders.SweepInterval, cfg.Orders.MaxPendingAge, stopOrderSweep)
	defer close(stopOrderSweep)

	// Services
	provisionService := service.NewProvisionService(cfg, panelClient)
	renewalService := service.NewRenewalService(repo, panelClient)
	reconcileService := service.NewReconcileService(repo, panelClient)
	subscriptionService := service.NewSubscriptionService(repo, panelClient, provisionService)
	settingsService := service.NewSettingsService(repo, settingsCache)
	orderService := service.NewOrderService(orderStore, paymentClient, provisionService, renewalService, repo, settingsCache)

	// Expiration sweeper
	sweeper := service.NewSweeper(repo, panelClient, provisionService, cfg.Sweep.Interval, cfg.Sweep.GraceDays)
	go sweeper.Start(ctx)

	// HTTP server
	handler := http.NewHandler(orderService, reconcileService, renewalService, subscriptionService, settingsService)
	server := http.NewServer(cfg, handler)

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		log.Printf("Server starting on %s", addr)
		if err := server.Run(addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	cancel()
	log.Println("Server exited")
}

// newDocumentStore builds the configured store backend and its cleanup.
func newDocumentStore(ctx context.Context, cfg *config.Config) (store.DocumentStore, func(), error) {
	switch cfg.Store.Backend {
	case "http":
		return store.NewBinStore(cfg.Store.BinURL, cfg.Store.BinID, cfg.Store.APIKey), func() {}, nil

	case "postgres":
		pool, err := store.NewPool(ctx, cfg.Store.Database.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		pg := store.NewPGStore(pool, cfg.Store.DocID)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		log.Printf("[store] Using postgres document store (doc %s)", cfg.Store.DocID)
		return pg, pool.Close, nil

	case "memory":
		log.Printf("[store] Using in-memory document store (data is not durable)")
		return store.NewMemStore(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
