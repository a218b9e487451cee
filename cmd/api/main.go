package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/events"
	"storefront/internal/httpserver"
	cartrepo "storefront/internal/repository/cart"
	catalogrepo "storefront/internal/repository/catalog"
	tokenrepo "storefront/internal/repository/token"
	userrepo "storefront/internal/repository/user"
	cartsvc "storefront/internal/service/cart"
	usersvc "storefront/internal/service/user"
	"storefront/internal/snapshot"
)

const tokenPruneInterval = time.Hour

func main() {
	cfg := config.Load()
	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer dbpool.Close()

	readiness := []httpserver.ReadinessCheck{{Name: "postgres", Check: dbpool.Ping}}

	cartStore, storeCheck, closeStore, err := openCartStore(ctx, cfg, dbpool, logger)
	if err != nil {
		logger.Fatal("open cart store", zap.String("store", cfg.CartStore), zap.Error(err))
	}
	defer closeStore()
	if storeCheck != nil {
		readiness = append(readiness, *storeCheck)
	}

	codec, err := snapshot.NewJWTCodec(cfg.CartCookieSecret, cfg.CartCookieTTL)
	if err != nil {
		logger.Fatal("init cart codec", zap.Error(err))
	}

	publisher, closePublisher, err := openPublisher(cfg, logger)
	if err != nil {
		logger.Fatal("connect rabbit", zap.Error(err))
	}
	defer closePublisher()

	catalogRepo := catalogrepo.NewPostgres(dbpool, logger, cfg.DefaultLocale)
	cartService := cartsvc.New(cartStore, catalogRepo, codec, publisher, logger)
	userService := usersvc.New(userrepo.NewPostgres(dbpool, logger), tokenrepo.NewPostgres(dbpool), logger, cfg.AccessTokenTTL)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, httpserver.Deps{
		CartSvc:   cartService,
		UserSvc:   userService,
		Readiness: readiness,
	}, httpserver.Options{
		CookieName:       cfg.CartCookieName,
		CookieMaxAge:     cfg.CartCookieTTL,
		CookieSecure:     cfg.CartCookieSecure,
		CookieDomain:     cfg.CookieDomain,
		DefaultLocale:    cfg.DefaultLocale,
		SupportedLocales: cfg.SupportedLocales,
		CORSOrigins:      cfg.CORSOrigins,
	})
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}

	go pruneTokens(ctx, userService, logger)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("server stopped")
	}
}

// openCartStore selects the cart backend. The Redis store also returns a
// readiness check for its client.
func openCartStore(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, logger *zap.Logger) (cartrepo.Repository, *httpserver.ReadinessCheck, func(), error) {
	switch cfg.CartStore {
	case config.CartStorePostgres:
		return cartrepo.NewPostgres(pool, logger), nil, func() {}, nil
	case config.CartStoreRedis:
		client, err := db.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, nil, err
		}
		check := &httpserver.ReadinessCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return client.Ping(ctx).Err() },
		}
		return cartrepo.NewRedis(client, logger), check, func() { _ = client.Close() }, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown cart store %q", cfg.CartStore)
	}
}

// openPublisher returns a nil Publisher when RABBIT_URL is unset so the cart
// service skips building events.
func openPublisher(cfg config.Config, logger *zap.Logger) (events.Publisher, func(), error) {
	if cfg.RabbitURL == "" {
		logger.Info("RABBIT_URL not set, cart events disabled")
		return nil, func() {}, nil
	}
	rabbit, err := events.NewRabbit(cfg.RabbitURL, cfg.RabbitExchange, logger)
	if err != nil {
		return nil, nil, err
	}
	return rabbit, rabbit.Close, nil
}

func pruneTokens(ctx context.Context, users *usersvc.Service, logger *zap.Logger) {
	ticker := time.NewTicker(tokenPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := users.PruneExpiredTokens(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("prune expired tokens", zap.Error(err))
			}
		}
	}
}
