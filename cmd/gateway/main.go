// Command gateway runs the OpenAI-compatible API gateway.
//
// Configuration is loaded from a YAML file (discovered via OAIGW_CONFIG,
// ./config.yaml, or /etc/oaigw/config.yaml) layered with a handful of
// environment variable overrides; see pkg/config for the full precedence
// order.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oaigw/gateway/pkg/auth"
	"github.com/oaigw/gateway/pkg/auth/apikey"
	"github.com/oaigw/gateway/pkg/auth/jwt"
	"github.com/oaigw/gateway/pkg/backend"
	"github.com/oaigw/gateway/pkg/config"
	"github.com/oaigw/gateway/pkg/credentials"
	"github.com/oaigw/gateway/pkg/observability"
	"github.com/oaigw/gateway/pkg/server"
	"github.com/oaigw/gateway/pkg/settings"
	memsettings "github.com/oaigw/gateway/pkg/settings/memory"
	pgsettings "github.com/oaigw/gateway/pkg/settings/postgres"
	"github.com/oaigw/gateway/pkg/transport"
)

func main() {
	if err := run(); err != nil {
		slog.Error("gateway failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("OAIGW_CONFIG"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("building settings store: %w", err)
	}
	if closeStore != nil {
		defer closeStore()
	}

	directPool := credentials.NewAPIKeyPool(cfg.Direct.APIKeys)
	direct := backend.NewDirectHTTPProxy(cfg.Direct.BaseURL, directPool, nil)

	alternate, err := buildAlternate(ctx, cfg)
	if err != nil {
		return fmt.Errorf("building alternate backend: %w", err)
	}

	chain, err := buildAuthChain(cfg)
	if err != nil {
		return fmt.Errorf("building auth chain: %w", err)
	}

	srvCfg := server.DefaultConfig()
	srvCfg.AlternatePrefix = cfg.Alternate.ModelPrefix
	srvCfg.SearchEnabledDefault = cfg.Catalog.SearchEnabled
	gw := server.New(store, direct, alternate, srvCfg, logger)

	protected := transport.Chain(
		transport.RequestID(),
		transport.Recovery(logger),
		transport.Logging(logger),
		observability.MetricsMiddleware,
		auth.Middleware(chain),
	)(gw.Handler())

	mux := http.NewServeMux()
	mux.Handle("/", protected)
	mux.HandleFunc("GET /healthz", handleHealthz)
	if cfg.Observability.Metrics.Enabled {
		mux.Handle(cfg.Observability.Metrics.Path, promhttp.Handler())
	}

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway starting", "port", cfg.Server.Port, "auth", cfg.Auth.Type, "storage", cfg.Storage.Type)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("gateway shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// buildStore constructs the settings.Store named by cfg.Storage.Type,
// seeding the in-memory store from the catalog's configured model list when
// no Postgres DSN is in play. The returned close func is nil for the memory
// store.
func buildStore(ctx context.Context, cfg *config.Config) (settings.Store, func(), error) {
	switch cfg.Storage.Type {
	case "postgres":
		st, err := pgsettings.New(ctx, pgsettings.Config{
			DSN:            cfg.Storage.Postgres.DSN,
			MaxConns:       cfg.Storage.Postgres.MaxConns,
			MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	default:
		models := make(map[string]settings.ModelSetting, len(cfg.Catalog.Models))
		for _, m := range cfg.Catalog.Models {
			models[m.ID] = settings.ModelSetting{ID: m.ID, Category: m.Category}
		}
		globals := map[string]string{
			"search_enabled": boolString(cfg.Catalog.SearchEnabled),
		}
		return memsettings.New(models, globals), nil, nil
	}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// buildAlternate constructs the alternate, service-account authenticated
// backend proxy. When disabled, it still returns a usable AlternateProxy
// whose IsEnabled reports false, so the catalog never offers its virtual
// ids and the chat handler rejects a request that asks for them anyway.
func buildAlternate(ctx context.Context, cfg *config.Config) (backend.AlternateProxy, error) {
	if !cfg.Alternate.Enabled {
		return &backend.AlternateHTTPProxy{Enabled: false}, nil
	}

	accounts := make(map[string][]byte, len(cfg.Alternate.ServiceAccounts))
	for id, path := range cfg.Alternate.ServiceAccounts {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading service account %q: %w", id, err)
		}
		accounts[id] = data
	}

	saPool, err := credentials.NewServiceAccountPool(ctx, accounts, cfg.Alternate.Scopes)
	if err != nil {
		return nil, err
	}

	return &backend.AlternateHTTPProxy{
		BaseURL: cfg.Alternate.BaseURL,
		Client:  http.DefaultClient,
		SAPool:  saPool,
		Models:  cfg.Alternate.Models,
		Enabled: true,
	}, nil
}

// buildAuthChain assembles the client-authentication chain named by
// cfg.Auth.Type. "none" accepts every caller as anonymous; "apikey" and
// "jwt" each run a single authenticator that either decides the request or
// abstains, falling through to the chain's default rejection.
func buildAuthChain(cfg *config.Config) (*auth.Chain, error) {
	switch cfg.Auth.Type {
	case "apikey":
		entries := make([]apikey.Entry, 0, len(cfg.Auth.APIKeys))
		for _, k := range cfg.Auth.APIKeys {
			entries = append(entries, apikey.Entry{
				Key: k.Key,
				Identity: auth.Identity{
					Subject:     k.Subject,
					ServiceTier: k.ServiceTier,
				},
				SafetyFilteringOff: k.SafetyFilteringOff,
				KeepAliveEnabled:   k.KeepAliveEnabled,
			})
		}
		return &auth.Chain{Authenticators: []auth.Authenticator{apikey.New(entries)}}, nil
	case "jwt":
		a := jwt.New(jwt.Config{
			Issuer:   cfg.Auth.JWT.Issuer,
			Audience: cfg.Auth.JWT.Audience,
			JWKSURL:  cfg.Auth.JWT.JWKSURL,
			CacheTTL: cfg.Auth.JWT.CacheTTL,
		})
		return &auth.Chain{Authenticators: []auth.Authenticator{a}}, nil
	case "none", "":
		return &auth.Chain{DefaultDecision: auth.Yes}, nil
	default:
		return nil, fmt.Errorf("unknown auth.type %q", cfg.Auth.Type)
	}
}
