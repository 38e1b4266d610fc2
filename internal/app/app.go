package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-identity-service/internal/config"
	"go-identity-service/internal/database"
	"go-identity-service/internal/handler"
	"go-identity-service/internal/metrics"
	"go-identity-service/internal/middleware"
	"go-identity-service/internal/model"
	"go-identity-service/internal/repository"
	"go-identity-service/internal/router"
	"go-identity-service/internal/service"
)

const shutdownTimeout = 10 * time.Second

type accountStore interface {
	service.AccountStore
	Ping(ctx context.Context) error
}

type auditStore interface {
	Log(ctx context.Context, entry model.AuditEntry) error
	Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, error)
}

type stores struct {
	accounts accountStore
	audit    auditStore
	kind     string
	close    func()
}

type App struct {
	server       *http.Server
	handler      http.Handler
	cleanupFuncs []func()
}

func New(cfg *config.Config) (*App, error) {
	if cfg.WeakSecret() {
		slog.Warn("JWT_SECRET is shorter than recommended", "recommended_bytes", config.RecommendedSecretLength)
	}

	st, err := openStores(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	tokens, err := service.NewTokenService(cfg.JWTSecret, service.WithIssuer(cfg.JWTIssuer))
	if err != nil {
		st.close()
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	identity, err := service.NewIdentityService(st.accounts, service.NewBcryptHasher(cfg.BcryptCost), tokens, service.IdentityOptions{
		TokenValidityMinutes: cfg.TokenValidityMinutes,
		DefaultRole:          cfg.DefaultRole,
		SelfRegisterRoles:    cfg.SelfRegisterRoles,
	})
	if err != nil {
		st.close()
		return nil, fmt.Errorf("failed to initialize identity service: %w", err)
	}

	auditService := service.NewAuditService(st.audit)
	m := metrics.New()

	authMiddleware := middleware.NewAuthMiddleware(tokens, m)
	appRouter := router.New(cfg, authMiddleware, router.Handlers{
		Auth:   handler.NewAuthHandler(identity, auditService, m),
		Audit:  handler.NewAuditHandler(auditService),
		Health: handler.NewHealthHandler(st.accounts, st.kind),
	}, m)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	slog.Info("identity service configured",
		"storage", st.kind,
		"issuer", cfg.JWTIssuer,
		"token_validity", cfg.TokenValidity().String(),
		"default_role", cfg.DefaultRole,
		"upsert_required_role", cfg.UpsertRequiredRole,
	)

	return &App{
		server:       server,
		handler:      appRouter,
		cleanupFuncs: []func(){st.close},
	}, nil
}

// Handler exposes the fully wired router, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Close releases the storage backend. Run calls it after shutdown.
func (a *App) Close() {
	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}
	a.cleanupFuncs = nil
}

func openStores(ctx context.Context, cfg *config.Config) (stores, error) {
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL is empty; accounts are kept in memory and lost on restart")
		return stores{
			accounts: repository.NewMemoryAccountRepository(),
			audit:    repository.NewMemoryAuditRepository(),
			kind:     "memory",
			close:    func() {},
		}, nil
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return stores{}, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return stores{}, fmt.Errorf("failed to ensure database schema: %w", err)
	}
	slog.Info("database ready")

	return stores{
		accounts: repository.NewAccountRepository(db.SQL()),
		audit:    repository.NewAuditRepository(db.SQL()),
		kind:     "postgres",
		close:    db.Close,
	}, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)
	a.Close()

	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}
