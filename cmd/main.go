package main

import (
	"context"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	adapp "github.com/johnshimelis/outlier-commerce/application/ad"
	categoryapp "github.com/johnshimelis/outlier-commerce/application/category"
	orderapp "github.com/johnshimelis/outlier-commerce/application/order"
	productapp "github.com/johnshimelis/outlier-commerce/application/product"
	"github.com/johnshimelis/outlier-commerce/cmd/config"
	redisclient "github.com/johnshimelis/outlier-commerce/cmd/redis"
	_ "github.com/johnshimelis/outlier-commerce/docs"
	adRepo "github.com/johnshimelis/outlier-commerce/repository/ad"
	categoryRepo "github.com/johnshimelis/outlier-commerce/repository/category"
	orderRepo "github.com/johnshimelis/outlier-commerce/repository/order"
	productRepo "github.com/johnshimelis/outlier-commerce/repository/product"
	redisRepo "github.com/johnshimelis/outlier-commerce/repository/redis"
	txRepo "github.com/johnshimelis/outlier-commerce/repository/tx"
	"github.com/johnshimelis/outlier-commerce/thirdparty/rabbitmq"
	"github.com/johnshimelis/outlier-commerce/thirdparty/s3"
	"github.com/johnshimelis/outlier-commerce/transport"
	"github.com/johnshimelis/outlier-commerce/utils/logger"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// @title Outlier Commerce API
// @version 1.0
// @description Order intake and catalog API
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey InternalAuth
// @in header
// @name Authorization
func main() {
	// Load configuration from environment variables
	cfg := config.Load()

	// Initialize global logger
	if err := logger.Init(cfg.Environment); err != nil {
		// fallback to standard log if zap init fails
		panic(err)
	}
	defer logger.Close()

	logger.Info("Starting server", zap.String("env", cfg.Environment))

	// Connect to database
	db, err := sqlx.Connect("mysql", cfg.GetDSN())
	if err != nil {
		logger.Fatal("err connect db", zap.Error(err))
	}

	// Set database connection pool settings
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	// Run schema migrations
	if err := goose.SetDialect("mysql"); err != nil {
		logger.Fatal("err set goose dialect", zap.Error(err))
	}
	if err := goose.Up(db.DB, cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("err run migrations", zap.Error(err))
	}

	// Initialize Redis client
	if err := redisclient.New(cfg); err != nil {
		logger.Fatal("err connect redis", zap.Error(err))
	}
	defer func() {
		_ = redisclient.Close()
	}()

	// Initialize blob storage
	ctx := context.Background()
	storage, err := s3.New(ctx, cfg.Storage.Region, cfg.Storage.Bucket, cfg.Storage.AccessKeyID, cfg.Storage.SecretAccessKey)
	if err != nil {
		logger.Fatal("err init storage", zap.Error(err))
	}

	// Initialize RabbitMQ publisher and the blob cleanup consumer
	publisher, err := rabbitmq.NewPublisher(cfg.RabbitMQ.Host, cfg.RabbitMQ.Port, cfg.RabbitMQ.User, cfg.RabbitMQ.Password)
	if err != nil {
		logger.Fatal("err connect rabbitmq", zap.Error(err))
	}
	defer publisher.Close()

	consumer, err := rabbitmq.NewConsumer(cfg.RabbitMQ.Host, cfg.RabbitMQ.Port, cfg.RabbitMQ.User, cfg.RabbitMQ.Password, storage, cfg.Order.CleanupMaxAttempts)
	if err != nil {
		logger.Fatal("err connect rabbitmq consumer", zap.Error(err))
	}
	defer consumer.Close()
	if err := consumer.Start(ctx); err != nil {
		logger.Fatal("err start cleanup consumer", zap.Error(err))
	}

	// Initialize repositories
	TxRepo := txRepo.NewTxRepository(db)
	OrderRepo := orderRepo.NewOrderRepository(db)
	RedisRepo := redisRepo.NewRepository()
	ProductRepo := productRepo.NewProductRepository(db, RedisRepo, cfg.Redis.ProductCacheTTL)
	CategoryRepo := categoryRepo.NewCategoryRepository(db)
	AdRepo := adRepo.NewAdRepository(db)

	// Initialize application layers
	OrderApp := orderapp.NewOrderApp(cfg, TxRepo, OrderRepo, ProductRepo, storage, publisher)
	ProductApp := productapp.NewProductApp(ProductRepo, storage)
	CategoryApp := categoryapp.NewCategoryApp(CategoryRepo)
	AdApp := adapp.NewAdApp(AdRepo, storage)

	httpTransport := transport.NewTransport(cfg, OrderApp, ProductApp, CategoryApp, AdApp)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      httpTransport,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	logger.Info("HTTP server running", zap.String("port", cfg.Server.Port))
	err = server.ListenAndServe()
	if err != nil {
		logger.Fatal("failed server", zap.Error(err))
	}
}
