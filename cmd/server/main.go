package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockflow/config"
	"stockflow/internal/api"
	"stockflow/internal/broker"
	"stockflow/internal/catalog"
	"stockflow/internal/lookup"
	"stockflow/internal/redisclient"
	"stockflow/internal/scanner"
	"stockflow/internal/service"
	"stockflow/internal/util"
	"stockflow/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting stockflow")

	tp, err := util.InitTracer("stockflow", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	cat, err := newCatalog(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize catalog (%s): %v", cfg.Catalog.Backend, err)
	}
	defer cat.Close()
	logger.Info("Catalog connected", zap.String("backend", cfg.Catalog.Backend))

	// Redis is a cache; running without it just disables prefill caching
	// and commit idempotency.
	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn("Redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicSales)
	defer producer.Close()
	eventPublisher := broker.NewEventPublisher(producer)

	var lookupCache lookup.Cache
	var receiptCache service.ReceiptCache
	if redisClient != nil {
		lookupCache = redisClient
		receiptCache = redisClient
	}
	lookupClient := lookup.NewClient(
		cfg.Lookup.BaseURL,
		time.Duration(cfg.Lookup.TimeoutSeconds)*time.Second,
		lookupCache,
		time.Duration(cfg.Lookup.CacheTTLSeconds)*time.Second,
	)

	view := service.NewCatalogView(cat)
	defer view.Close()

	productService := service.NewProductService(cat, view, lookupClient, eventPublisher)
	saleService := service.NewSaleService(cat, view, eventPublisher, receiptCache)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	saleConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicSales, cfg.Kafka.ConsumerGroup)
	lowStockWorker := worker.NewLowStockWorker(saleConsumer, cat, eventPublisher)
	go func() {
		if err := lowStockWorker.Start(workerCtx); err != nil && err != context.Canceled {
			logger.Warn("Low-stock worker stopped", zap.Error(err))
		}
	}()

	if cfg.Scanner.Enabled {
		registerCart := saleService.OpenCart()
		logger.Info("Register scanner enabled", zap.String("cart_id", registerCart.ID))
		src := scanner.NewLineSource(os.Stdin)
		go func() {
			if err := src.Run(workerCtx, func(code string) {
				saleService.HandleScan(workerCtx, registerCart.ID, code)
			}); err != nil && err != context.Canceled {
				logger.Warn("Scanner source stopped", zap.Error(err))
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(productService, saleService)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	lowStockWorker.Stop()

	logger.Info("Server exited")
}

// newCatalog selects the product catalog backend from config.
func newCatalog(cfg *config.Config) (catalog.Catalog, error) {
	switch cfg.Catalog.Backend {
	case "postgres":
		return catalog.NewPostgresCatalog(cfg.Database.URL)
	case "firestore":
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return catalog.NewFirestoreCatalog(ctx, cfg.Firestore.ProjectID, cfg.Firestore.Collection, cfg.Firestore.CredentialsFile)
	case "memory":
		return catalog.NewMemoryCatalog(), nil
	default:
		return nil, fmt.Errorf("unknown catalog backend: %s", cfg.Catalog.Backend)
	}
}
