package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	goredis "github.com/redis/go-redis/v9"

	"github.com/cornjacket/commerce-events/internal/client/ims"
	"github.com/cornjacket/commerce-events/internal/client/ioevents"
	"github.com/cornjacket/commerce-events/internal/services/catalog"
	"github.com/cornjacket/commerce-events/internal/services/delivery"
	"github.com/cornjacket/commerce-events/internal/services/filter"
	"github.com/cornjacket/commerce-events/internal/services/metadata"
	"github.com/cornjacket/commerce-events/internal/services/rules"
	"github.com/cornjacket/commerce-events/internal/services/storage"
	"github.com/cornjacket/commerce-events/internal/services/validator"
	"github.com/cornjacket/commerce-events/internal/shared/config"
	"github.com/cornjacket/commerce-events/internal/shared/deployment"
	"github.com/cornjacket/commerce-events/internal/shared/infra/postgres"
	redisinfra "github.com/cornjacket/commerce-events/internal/shared/infra/redis"
)

const (
	tokenCachePrefix = "commerce_events:"
	sendLockKey      = "commerce_events:send_lock"
)

// app holds the components shared by the commands. Components are built on
// first use so commands only touch the dependencies they need.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	redis     *goredis.Client
	store     *deployment.Store
	catalog   *catalog.EventList
	supported *catalog.SupportedList
	operators *rules.Registry
	console   *ioevents.ConsoleFile
	tokens    *ims.Provider
}

// newApp connects to Redis when an address is configured.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	if cfg.RedisAddr != "" {
		client, err := redisinfra.NewClient(ctx, redisinfra.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		a.redis = client
	}

	a.store = deployment.NewStore(cfg.DeploymentFile)
	a.catalog = catalog.NewEventList(catalog.NewFileSource(cfg.CatalogFile), a.store)
	a.supported = catalog.NewSupportedList(cfg.SupportedEventsFile)
	a.operators = rules.NewRegistry()
	a.console = ioevents.NewConsoleFile(cfg.WorkspaceFile)
	return a, nil
}

func (a *app) close() {
	if a.redis != nil {
		a.redis.Close()
	}
}

func (a *app) openDatabase(ctx context.Context) (*postgres.Client, error) {
	return postgres.NewClient(ctx, a.cfg.DatabaseURL, postgres.PoolConfig{
		MaxConns:         int32(a.cfg.DBMaxConns),
		StatementTimeout: a.cfg.DBStatementTimeout,
	}, a.logger)
}

func (a *app) tokenProvider() (*ims.Provider, error) {
	if a.tokens != nil {
		return a.tokens, nil
	}

	var key []byte
	if a.cfg.PrivateKeyFile != "" {
		data, err := os.ReadFile(a.cfg.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key: %w", err)
		}
		key = data
	}

	var cache ims.TokenCache = ims.NewMemoryCache()
	if a.redis != nil {
		cache = redisinfra.NewTokenCache(a.redis, tokenCachePrefix)
	}

	a.tokens = ims.NewProvider(a.console, cache, ims.Config{
		Environment:   a.cfg.IOEnvironment,
		PrivateKey:    key,
		JWTExpiration: a.cfg.JWTExpiration,
	}, a.logger)
	return a.tokens, nil
}

func (a *app) managementAPI() (*ioevents.API, error) {
	tokens, err := a.tokenProvider()
	if err != nil {
		return nil, err
	}
	return ioevents.NewAPI(tokens, a.console, ioevents.APIConfig{
		BaseURL:          ioevents.APIURL(a.cfg.IOEnvironment),
		ProviderMetadata: a.cfg.ProviderMetadata,
	}, a.logger), nil
}

func (a *app) publishClient() (*ioevents.Client, error) {
	tokens, err := a.tokenProvider()
	if err != nil {
		return nil, err
	}
	return ioevents.NewClient(tokens, a.console, ioevents.Config{
		EndpointURL:   a.cfg.EndpointURL,
		MerchantID:    a.cfg.MerchantID,
		EnvironmentID: a.cfg.EnvironmentID,
		InstanceID:    a.cfg.InstanceID,
	}, a.logger), nil
}

// subscribeValidator checks definitions before they are subscribed.
func (a *app) subscribeValidator() validator.Chain {
	return validator.Chain{
		validator.NewEventCodeSupported(a.supported),
		validator.NewEventRule(a.operators),
	}
}

func (a *app) writer(repo storage.EventRepository) *storage.Writer {
	create := validator.NewCreateEvent(
		func() bool { return a.cfg.EventingEnabled },
		validator.NewEventCodeSupported(a.supported),
		rules.NewChecker(a.operators),
	)

	collector := metadata.NewCollector(metadata.Platform{
		Edition:       a.cfg.CommerceEdition,
		Version:       a.cfg.CommerceVersion,
		ClientVersion: a.cfg.ClientVersion,
	}, metadata.StaticStore{
		ID:        a.cfg.StoreID,
		WebsiteID: a.cfg.WebsiteID,
		GroupID:   a.cfg.StoreGroupID,
	}, a.logger)

	return storage.NewWriter(a.catalog, create, repo, filter.NewFieldsFilter(a.catalog), collector, a.logger)
}

func (a *app) sender(repo *postgres.EventRepo) (*delivery.Sender, error) {
	client, err := a.publishClient()
	if err != nil {
		return nil, err
	}
	return delivery.NewSender(
		delivery.NewRetriever(repo),
		delivery.NewBatchGenerator(),
		a.writer(repo),
		client,
		delivery.SenderConfig{MaxRetries: a.cfg.MaxRetries},
		a.logger,
	), nil
}

// locker is shared through Redis when configured, otherwise it only guards
// this process.
func (a *app) locker() delivery.Locker {
	if a.redis != nil {
		return redisinfra.NewLocker(a.redis, sendLockKey, a.cfg.LockTTL, a.logger)
	}
	return &delivery.LocalLocker{}
}
