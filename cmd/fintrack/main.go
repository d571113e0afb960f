package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ktezcan/fintrack/internal/api"
	"github.com/ktezcan/fintrack/internal/auth"
	"github.com/ktezcan/fintrack/internal/config"
	"github.com/ktezcan/fintrack/internal/events"
	"github.com/ktezcan/fintrack/internal/market"
	"github.com/ktezcan/fintrack/internal/portfolio"
	"github.com/ktezcan/fintrack/internal/store"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

func main() {
	cfg := config.Load()

	db, err := store.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations("db/migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	var producer *events.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		log.Printf("Change events enabled (topic: %s)", cfg.Kafka.Topic)
	}

	var quoteCache market.QuoteCache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		quoteCache = market.NewRedisQuoteCache(rdb, cfg.Redis.QuoteTTL)
		log.Printf("Quote cache: redis (%s)", cfg.Redis.Addr)
	} else {
		quoteCache = market.NewMemoryQuoteCache(cfg.Redis.QuoteTTL)
		log.Println("Quote cache: in-process")
	}

	resolver := market.NewResolver(
		market.NewHTTPFxSource(cfg.Market.FxURL, cfg.Market.FxCacheTTL),
		market.NewStockClient(cfg.Market.StockQuoteURL),
		market.NewFundClient(cfg.Market.FundPageURL),
		quoteCache,
		rate.NewLimiter(rate.Limit(cfg.Market.RequestsPerSec), 1),
	)

	var trackerEvents portfolio.Publisher
	if producer != nil {
		trackerEvents = producer
	}
	tracker := portfolio.NewTracker(db, resolver, trackerEvents)
	authService := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	handler := api.NewHandler(tracker, db, authService)
	router := api.SetupRoutes(handler, authService)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	refresher := market.NewRefresher(db, tracker, cfg.Market.RefreshInterval)
	go refresher.Start(ctx)

	srv := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}
	log.Println("Shutdown complete")
}
