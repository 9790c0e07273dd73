package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/freshveggie/veggie-api/internal/cache"
	"github.com/freshveggie/veggie-api/internal/config"
	"github.com/freshveggie/veggie-api/internal/grpcserver"
	httpapi "github.com/freshveggie/veggie-api/internal/http"
	"github.com/freshveggie/veggie-api/internal/logger"
	"github.com/freshveggie/veggie-api/internal/media"
	"github.com/freshveggie/veggie-api/internal/poller"
	"github.com/freshveggie/veggie-api/internal/pricing"
	"github.com/freshveggie/veggie-api/internal/publisher"
	"github.com/freshveggie/veggie-api/internal/repository"
	"github.com/freshveggie/veggie-api/internal/service"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// pingFunc adapts a probe function to the health check interfaces.
type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	log.Info("veggie-api starting", zap.String("db_driver", cfg.DB.Driver), zap.String("cart_store", cfg.CartStore))
	var wg sync.WaitGroup

	// Relational store
	repo, err := openRepository(cfg.DB)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer repo.Close()

	if err := repo.RunMigrations(cfg.DB.MigrationsPath); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}
	log.Info("database migrations completed")

	// Cart store
	var (
		cartRepo  repository.CartRepository
		mongoPing pingFunc
	)
	switch cfg.CartStore {
	case "memory":
		cartRepo = repository.NewMemoryCartRepository(cfg.GuestCartTTL)
		log.Warn("carts are kept in memory and lost on restart")
	default:
		connectCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		mongoDB, err := repository.ConnectMongoDB(connectCtx, cfg.MongoURI, cfg.MongoDBName)
		cancel()
		if err != nil {
			log.Fatal("failed to connect to mongo", zap.Error(err))
		}
		defer disconnectMongo(mongoDB.Client(), log)

		mongoRepo := repository.NewMongoCartRepository(mongoDB)
		indexCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err = mongoRepo.CreateIndexes(indexCtx, cfg.GuestCartTTL)
		cancel()
		if err != nil {
			log.Fatal("failed to create cart indexes", zap.Error(err))
		}
		cartRepo = mongoRepo
		mongoPing = func(ctx context.Context) error { return mongoDB.Client().Ping(ctx, nil) }
	}

	// Cache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()
	cartCache := cache.NewRedisCache(redisClient)

	// Image storage
	local, err := media.NewLocalStore(cfg.Media.UploadsDir)
	if err != nil {
		log.Fatal("failed to prepare uploads dir", zap.Error(err))
	}
	var primary media.Backend
	if cfg.Media.AccessKey != "" {
		objectStore, err := media.NewObjectStore(media.ObjectStoreConfig{
			Endpoint:      cfg.Media.Endpoint,
			AccessKey:     cfg.Media.AccessKey,
			SecretKey:     cfg.Media.SecretKey,
			Bucket:        cfg.Media.Bucket,
			UseSSL:        cfg.Media.UseSSL,
			PublicBaseURL: cfg.Media.PublicBaseURL,
		})
		if err != nil {
			log.Warn("object storage unavailable, using local uploads", zap.Error(err))
		} else {
			primary = objectStore
		}
	}
	images := media.NewFallbackStore(primary, local, log)

	// Services
	policy := pricing.Policy{
		FreeDeliveryThreshold: cfg.FreeDeliveryThreshold,
		DeliveryFee:           cfg.DeliveryCharge,
	}
	cartSvc := service.NewCartService(cartRepo, repo, cartCache, policy, log)
	orderSvc := service.NewOrderService(repo, repo, cartSvc, policy, cfg.StrictStatusTransitions, log)
	mediaSvc := service.NewMediaService(images, repo, repo, log)
	catalogSvc := service.NewCatalogService(repo, repo, cartSvc, mediaSvc, log)
	customerSvc := service.NewCustomerService(repo, repo, log)
	reportSvc := service.NewReportService(repo, repo, repo, log)

	// Health probes
	httpDeps := map[string]httpapi.Pinger{"database": repo, "redis": cartCache}
	grpcDeps := map[string]grpcserver.Pinger{"database": repo, "redis": cartCache}
	if mongoPing != nil {
		httpDeps["mongo"] = mongoPing
		grpcDeps["mongo"] = mongoPing
	}

	// Background workers
	workerCtx, workerCancel := context.WithCancel(context.Background())

	outbox := publisher.NewOutboxPoller(repo, cfg.OrderEventsTopic, log, cfg.KafkaBrokers...)
	wg.Add(1)
	go func() {
		defer wg.Done()
		outbox.Run(workerCtx)
	}()

	cartPoller := poller.NewPoller(cartRepo, cartCache, cfg.OrderEventsTopic, log, cfg.KafkaBrokers...)
	wg.Add(1)
	go func() {
		defer wg.Done()
		cartPoller.Run(workerCtx)
	}()

	// gRPC health
	grpcLis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		log.Fatal("failed to listen", zap.String("port", cfg.GRPCPort), zap.Error(err))
	}
	grpcSrv := grpcserver.New(grpcDeps, 10*time.Second, log)
	go func() {
		log.Info("grpc health listening", zap.String("port", cfg.GRPCPort))
		if err := grpcSrv.Serve(workerCtx, grpcLis); err != nil {
			log.Error("grpc server stopped", zap.Error(err))
		}
	}()

	// HTTP
	router := httpapi.NewRouter(httpapi.RouterConfig{
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		UploadsDir:         cfg.Media.UploadsDir,
	}, httpapi.Handlers{
		Cart:      httpapi.NewCartHandler(cartSvc, cfg.RequestTimeout, log),
		Orders:    httpapi.NewOrdersHandler(orderSvc, cfg.RequestTimeout, log),
		Catalog:   httpapi.NewCatalogHandler(catalogSvc, policy, cfg.RequestTimeout, log),
		Customers: httpapi.NewCustomerHandler(customerSvc, policy, cfg.RequestTimeout, log),
		Admin:     httpapi.NewAdminHandler(reportSvc, policy, cfg.RequestTimeout, log),
		Media:     httpapi.NewMediaHandler(mediaSvc, images, cfg.RequestTimeout, log),
		Health:    httpDeps,
	}, log)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("http listening", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down veggie-api")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", zap.Error(err))
	}
	grpcSrv.Stop()
	workerCancel()

	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		log.Info("workers stopped cleanly")
	case <-shutdownCtx.Done():
		log.Warn("workers didn't stop in time")
	}

	if err := outbox.Close(); err != nil {
		log.Warn("close kafka writer failed", zap.Error(err))
	}
	cartPoller.Close()
	log.Info("veggie-api stopped")
}

func openRepository(db config.DBConfig) (*repository.Repository, error) {
	if db.Driver == repository.DriverSQLite {
		return repository.NewSQLiteRepository(db.SQLitePath)
	}
	return repository.NewPostgresRepository(&repository.Credentials{
		Host:              db.Host,
		Port:              db.Port,
		User:              db.User,
		Password:          db.Password,
		DBName:            db.Name,
		MigrationsDirPath: db.MigrationsPath,
	})
}

func disconnectMongo(client *mongo.Client, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		log.Warn("mongo disconnect failed", zap.Error(err))
	}
}
