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
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Aidin1998/finalex-console/api"
	"github.com/Aidin1998/finalex-console/internal/database"
	"github.com/Aidin1998/finalex-console/internal/infrastructure/config"
	"github.com/Aidin1998/finalex-console/internal/infrastructure/ratelimit"
	"github.com/Aidin1998/finalex-console/internal/marketdata/pricing"
	"github.com/Aidin1998/finalex-console/internal/userauth/twofa"
	"github.com/Aidin1998/finalex-console/internal/wallet/address"
	"github.com/Aidin1998/finalex-console/internal/wallet/blockchain"
	"github.com/Aidin1998/finalex-console/internal/wallet/cache"
	"github.com/Aidin1998/finalex-console/internal/wallet/events"
	"github.com/Aidin1998/finalex-console/internal/wallet/gateway"
	"github.com/Aidin1998/finalex-console/internal/wallet/repository"
	"github.com/Aidin1998/finalex-console/internal/withdrawal"
	"github.com/Aidin1998/finalex-console/pkg/logger"
	"github.com/Aidin1998/finalex-console/pkg/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (defaults to the standard search paths)")
	flag.Parse()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	zapLogger, level := logger.NewAtomicLogger(os.Getenv("CONSOLE_LOG_LEVEL"))
	defer zapLogger.Sync()

	var paths []string
	if *configPath != "" {
		paths = append(paths, *configPath)
	}
	loader := config.NewLoader(zapLogger)
	cfg, err := loader.Load(paths...)
	if err != nil {
		zapLogger.Fatal("Failed to load configuration", zap.Error(err))
	}
	level.SetLevel(logger.ParseLevel(cfg.LogLevel))
	loader.Watch(func(old, updated *config.Config) {
		level.SetLevel(logger.ParseLevel(updated.LogLevel))
		zapLogger.Info("Log level reloaded; other settings apply on restart",
			zap.String("log_level", updated.LogLevel))
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: cfg.Tracing.ServiceName,
		Tracing:     cfg.Tracing.Enabled,
	})
	if err != nil {
		zapLogger.Fatal("Failed to set up tracing", zap.Error(err))
	}

	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN, database.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	go database.CollectPoolStats(ctx, db, cfg.Database.Driver, 30*time.Second, zapLogger)

	repo := repository.NewWalletRepository(db, zapLogger)
	if cfg.Database.AutoMigrate {
		if err := repo.AutoMigrate(); err != nil {
			zapLogger.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = database.NewRedisClient(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
	}

	gas, err := newGasManager(ctx, cfg.Blockchain, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to set up gas estimation", zap.Error(err))
	}

	publisher, closePublishers := newEventPublisher(cfg, redisClient, zapLogger)
	defer closePublishers()

	deps := withdrawal.Dependencies{
		Fees:      repo,
		Limits:    repo,
		Gas:       gas,
		Gateway:   newGateway(cfg, redisClient, zapLogger),
		Addresses: address.NewRegistry(),
	}
	if prices := newPriceSource(cfg, redisClient, zapLogger); prices != nil {
		deps.Prices = prices
	}
	if publisher != nil {
		deps.Events = publisher
	}

	opts := cfg.Wizard.Options()
	sessions := api.NewSessionStore(func() (*withdrawal.Wizard, error) {
		return withdrawal.NewWizard(deps, opts, zapLogger)
	}, cfg.Server.SessionTTL, zapLogger)
	go sessions.Run(ctx, time.Minute)

	apiOpts := api.Options{
		ServiceName:    cfg.Tracing.ServiceName,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}
	if cfg.Server.CodeAttempts > 0 {
		if redisClient != nil {
			apiOpts.CodeLimiter = ratelimit.NewRedisLimiter(redisClient, cfg.Redis.Prefix, cfg.Server.CodeAttempts, cfg.Server.CodeWindow)
		} else {
			apiOpts.CodeLimiter = ratelimit.NewMemoryLimiter(cfg.Server.CodeAttempts, cfg.Server.CodeWindow)
		}
	}
	apiServer := api.NewServer(zapLogger, repo, sessions, repo, apiOpts)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      apiServer.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		zapLogger.Info("Starting API server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start API server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shut down API server", zap.Error(err))
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		zapLogger.Error("Failed to flush traces", zap.Error(err))
	}
	closeDB(db, zapLogger)

	zapLogger.Info("Server exited properly")
}

// newGasManager registers a live estimator for every network with an RPC
// endpoint and a flat fee for the others.
func newGasManager(ctx context.Context, cfg blockchain.Config, log *zap.Logger) (*blockchain.Manager, error) {
	manager := blockchain.NewManager(log)
	for name, network := range cfg.Networks {
		if network.RPC != "" {
			client, err := ethclient.DialContext(ctx, network.RPC)
			if err != nil {
				return nil, fmt.Errorf("failed to dial %s: %w", name, err)
			}
			manager.Register(name, blockchain.NewEVMEstimator(client, name, cfg.GasPriceMultiplier, log))
			log.Info("Registered EVM gas estimator", zap.String("network", name), zap.Int("chain_id", network.ChainID))
			continue
		}
		static, err := blockchain.NewStaticEstimator(network.StaticFee)
		if err != nil {
			return nil, fmt.Errorf("network %s: %w", name, err)
		}
		manager.Register(name, static)
	}
	return manager, nil
}

func newGateway(cfg *config.Config, client *redis.Client, log *zap.Logger) withdrawal.Gateway {
	remote := gateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.Token, cfg.Gateway.Timeout, log)
	if !cfg.Gateway.VerifyCodes {
		return remote
	}
	verifier := twofa.NewVerifier(twofa.StaticSecrets(cfg.TwoFA.Secrets), client, cfg.Redis.Prefix, log)
	return gateway.NewVerified(verifier, remote)
}

func newPriceSource(cfg *config.Config, client *redis.Client, log *zap.Logger) withdrawal.PriceSource {
	if len(cfg.Pricing.IDs) == 0 {
		return nil
	}
	provider := pricing.NewCoinGeckoProvider(cfg.Pricing.BaseURL, cfg.Pricing.APIKey, cfg.Pricing.IDs, log)
	if client == nil {
		return provider
	}
	return cache.NewRedisPriceCache(client, provider, log, cfg.Redis.Prefix, cfg.Redis.PriceTTL)
}

// newEventPublisher fans out to every configured sink. It returns nil when
// none is configured.
func newEventPublisher(cfg *config.Config, client *redis.Client, log *zap.Logger) (*events.EventPublisher, func()) {
	var publishers []events.Publisher
	var kafka *events.KafkaPublisher

	if len(cfg.Kafka.Brokers) > 0 {
		kafka = events.NewKafkaPublisher(cfg.Kafka.Brokers, log)
		publishers = append(publishers, kafka)
	}
	if client != nil {
		publishers = append(publishers, events.NewRedisPublisher(client, cfg.Redis.Prefix, log))
	}
	if cfg.Webhook.URL != "" {
		publishers = append(publishers, events.NewWebhookPublisher(cfg.Webhook.URL, log))
	}

	closeFn := func() {
		if kafka != nil {
			if err := kafka.Close(); err != nil {
				log.Error("Failed to close Kafka writer", zap.Error(err))
			}
		}
	}
	if len(publishers) == 0 {
		return nil, closeFn
	}
	return events.NewEventPublisher(publishers, log), closeFn
}

func closeDB(db *gorm.DB, log *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Error("Failed to close database", zap.Error(err))
	}
}
