package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	httpapi "github.com/shestoi/stockkeeper/internal/api/http"
	rediscache "github.com/shestoi/stockkeeper/internal/cache/redis"
	mongoclient "github.com/shestoi/stockkeeper/internal/client/mongo"
	pgclient "github.com/shestoi/stockkeeper/internal/client/postgres"
	"github.com/shestoi/stockkeeper/internal/config"
	"github.com/shestoi/stockkeeper/internal/event"
	kafkaevent "github.com/shestoi/stockkeeper/internal/event/kafka"
	"github.com/shestoi/stockkeeper/internal/presentation"
	"github.com/shestoi/stockkeeper/internal/repository"
	"github.com/shestoi/stockkeeper/internal/repository/memory"
	mongorepo "github.com/shestoi/stockkeeper/internal/repository/mongo"
	pgrepo "github.com/shestoi/stockkeeper/internal/repository/postgres"
	"github.com/shestoi/stockkeeper/internal/service"
	"github.com/shestoi/stockkeeper/migrations"
	platformhealth "github.com/shestoi/stockkeeper/platform/health/grpc"
	platformhealthhttp "github.com/shestoi/stockkeeper/platform/health/http"
	platformlogging "github.com/shestoi/stockkeeper/platform/logging"
	platformobservability "github.com/shestoi/stockkeeper/platform/observability"
	platformshutdown "github.com/shestoi/stockkeeper/platform/shutdown"
)

const (
	serviceName    = "inventory"
	connectTimeout = 10 * time.Second
)

// App содержит все зависимости для запуска и корректного shutdown Inventory Service
type App struct {
	logger       *zap.Logger
	httpServer   *http.Server
	httpListener net.Listener
	grpcServer   *grpc.Server
	grpcListener net.Listener
	shutdownMgr  *platformshutdown.Manager
	wg           sync.WaitGroup
}

// Build создаёт и настраивает все зависимости Inventory Service
// При ошибке уже открытые соединения закрываются
func Build(cfg config.Config) (*App, error) {
	logger, err := platformlogging.New(platformlogging.Config{
		ServiceName: serviceName,
		Env:         string(cfg.AppEnv),
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
	})
	if err != nil {
		return nil, err
	}
	cfg.Log(logger)

	shutdownMgr := platformshutdown.New(cfg.ShutdownTimeout, logger)
	a, err := build(cfg, logger, shutdownMgr)
	if err != nil {
		logger.Error("Failed to build Inventory service", zap.Error(err))
		shutdownMgr.Shutdown()
		return nil, err
	}
	return a, nil
}

func build(cfg config.Config, logger *zap.Logger, shutdownMgr *platformshutdown.Manager) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	otelShutdown, err := platformobservability.Init(ctx, platformobservability.Config{
		Enabled:               cfg.OTelEnabled,
		OTLPEndpoint:          cfg.OTelEndpoint,
		SamplingRatio:         cfg.OTelSamplingRatio,
		ServiceName:           serviceName,
		DeploymentEnvironment: string(cfg.AppEnv),
	})
	if err != nil {
		return nil, err
	}
	shutdownMgr.Add("otel", otelShutdown)

	// Health с начальным статусом NOT_SERVING до проверки хранилищ
	health := platformhealth.New(grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	repo, checks, err := buildStore(ctx, cfg, logger, shutdownMgr)
	if err != nil {
		return nil, err
	}

	var cache service.StockCache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		shutdownMgr.Add("redis", platformshutdown.Close(redisClient))
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		cache = rediscache.NewStockCache(redisClient, logger, cfg.StockCacheTTL)
		checks = append(checks, platformhealthhttp.Check{Name: "redis", Probe: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
		logger.Info("Redis stock cache enabled", zap.String("addr", cfg.RedisAddr))
	}

	var publisher service.EventPublisher
	if cfg.Kafka.Enabled() {
		kafkaPublisher := kafkaevent.NewStockEventPublisher(logger, cfg.Kafka.Brokers, cfg.Kafka.TopicPrefix)
		shutdownMgr.Add("kafka_writer", platformshutdown.Close(kafkaPublisher))
		publisher = kafkaPublisher
		logger.Info("Kafka event publisher enabled", zap.Strings("brokers", cfg.Kafka.Brokers))
	} else {
		publisher = event.NewLogPublisher(logger)
		logger.Info("KAFKA_BROKERS is empty, stock events are only logged")
	}

	stockService := service.NewStockService(logger, repo, publisher, cache, service.Options{
		LocationCode:      cfg.LocationCode,
		LowStockThreshold: cfg.LowStockThreshold,
	})
	queryService := service.NewQueryService(logger, repo, cache, cfg.LocationCode)

	products, err := buildComposer(ctx, cfg, logger, shutdownMgr, queryService)
	if err != nil {
		return nil, err
	}

	health.SetServing("")
	logger.Info("Readiness status set to SERVING")

	handler := httpapi.NewHandler(logger, stockService, queryService, products)
	router := httpapi.NewRouter(handler, checks, logger)

	httpListener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listen http %s: %w", cfg.HTTPAddr, err)
	}
	httpServer := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcListener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		_ = httpListener.Close()
		return nil, fmt.Errorf("listen grpc %s: %w", cfg.GRPCAddr, err)
	}
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(platformobservability.GRPCUnaryServerInterceptor(serviceName, logger)),
	)
	if cfg.EnableGRPCReflection {
		reflection.Register(grpcServer)
		logger.Info("gRPC reflection enabled")
	}
	health.Register(grpcServer)

	// Выполняются в обратном порядке: сначала readiness, потом серверы, потом writer и хранилища
	shutdownMgr.Add("grpc_server", platformshutdown.ShutdownGRPCServer(grpcServer))
	shutdownMgr.Add("http_server", platformshutdown.ShutdownHTTPServer(httpServer))
	shutdownMgr.Add("health_readiness", platformshutdown.SetHealthNotServing(health))

	logger.Info("Inventory service configured",
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("grpc_addr", cfg.GRPCAddr),
		zap.String("store", string(cfg.Store)),
		zap.String("location_code", cfg.LocationCode),
	)

	return &App{
		logger:       logger,
		httpServer:   httpServer,
		httpListener: httpListener,
		grpcServer:   grpcServer,
		grpcListener: grpcListener,
		shutdownMgr:  shutdownMgr,
	}, nil
}

// buildStore подключает хранилище складских записей согласно INVENTORY_STORE
func buildStore(ctx context.Context, cfg config.Config, logger *zap.Logger, shutdownMgr *platformshutdown.Manager) (repository.StockRepository, []platformhealthhttp.Check, error) {
	switch cfg.Store {
	case config.StoreMongo:
		logger.Info("Connecting to MongoDB")
		client, err := connectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		shutdownMgr.Add("mongodb", platformshutdown.DisconnectMongo(client))
		logger.Info("MongoDB connection established")
		return mongorepo.NewRepository(client, cfg.MongoDBName), []platformhealthhttp.Check{{
			Name:  "mongodb",
			Probe: func(ctx context.Context) error { return client.Ping(ctx, nil) },
		}}, nil

	case config.StorePostgres:
		logger.Info("Applying migrations")
		if err := migrations.Up(ctx, cfg.PostgresDSN); err != nil {
			return nil, nil, fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info("Connecting to PostgreSQL")
		pool, err := connectPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		shutdownMgr.Add("postgres", platformshutdown.ClosePool(pool))
		logger.Info("PostgreSQL connection established")
		return pgrepo.NewRepository(pool), []platformhealthhttp.Check{{
			Name:  "postgres",
			Probe: pool.Ping,
		}}, nil

	case config.StoreMemory:
		logger.Warn("Using in-memory stock store, data is lost on restart")
		return memory.NewMemoryRepository(nil), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown store: %s", cfg.Store)
	}
}

// buildComposer подключает каталог и цены для /api/products
// Без CATALOG_MONGO_URI возвращает nil: без каталога представление товара не собрать
func buildComposer(ctx context.Context, cfg config.Config, logger *zap.Logger, shutdownMgr *platformshutdown.Manager, stock presentation.StockReader) (httpapi.ProductViewer, error) {
	if cfg.CatalogMongoURI == "" {
		logger.Info("CATALOG_MONGO_URI is empty, product view is disabled")
		return nil, nil
	}

	catalogClient, err := connectMongo(ctx, cfg.CatalogMongoURI)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	shutdownMgr.Add("catalog_mongodb", platformshutdown.DisconnectMongo(catalogClient))
	catalog := mongoclient.NewCatalogClient(catalogClient, cfg.CatalogMongoDB)

	var pricing presentation.PricingReader
	if cfg.PricingPostgresDSN != "" {
		pool, err := connectPostgres(ctx, cfg.PricingPostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("pricing: %w", err)
		}
		shutdownMgr.Add("pricing_postgres", platformshutdown.ClosePool(pool))
		pricing = pgclient.NewPricingClient(pool)
	} else {
		logger.Info("PRICING_POSTGRES_DSN is empty, prices are omitted from product view")
	}

	return presentation.NewComposer(logger, catalog, catalog, pricing, stock), nil
}

func connectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

func connectPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// Run запускает HTTP и gRPC серверы и блокируется до получения сигнала shutdown
func (a *App) Run() error {
	defer platformlogging.Sync(a.logger)

	a.logger.Info("Starting Inventory service",
		zap.String("http_addr", a.httpListener.Addr().String()),
		zap.String("grpc_addr", a.grpcListener.Addr().String()),
	)

	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		if err := a.httpServer.Serve(a.httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	go func() {
		defer a.wg.Done()
		if err := a.grpcServer.Serve(a.grpcListener); err != nil {
			a.logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	a.shutdownMgr.Wait()

	a.wg.Wait()
	a.logger.Info("Inventory service stopped")
	return nil
}
