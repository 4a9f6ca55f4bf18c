package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	adapthttp "healthtrack/internal/adapter/http"
	"healthtrack/internal/adapter/instrument"
	"healthtrack/internal/app"
	"healthtrack/internal/config"
)

const janitorInterval = 15 * time.Minute

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web UI and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides ADDR)")
	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = b.close() }()
	if cfg.Store == config.StoreMemory {
		log.Printf("store %s: records and accounts are lost on exit", cfg.Store)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	store := instrument.Wrap(b.records, instrument.NewMetrics(reg))

	authSvc := app.NewAuthService(b.users, b.sessions).WithSessionTTL(cfg.SessionTTL)

	opts := []adapthttp.Option{adapthttp.WithMetrics(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))}
	if cfg.OIDC.Enabled() {
		oidcCfg, err := adapthttp.NewOIDCConfig(ctx, cfg.OIDC.Issuer, cfg.OIDC.ClientID, cfg.OIDC.ClientSecret, cfg.OIDC.RedirectURL)
		if err != nil {
			return err
		}
		opts = append(opts, adapthttp.WithOIDC(oidcCfg))
		log.Printf("sso enabled via %s", cfg.OIDC.Issuer)
	}
	if cfg.ForwardAuth {
		opts = append(opts, adapthttp.WithForwardAuth())
	}
	srv := adapthttp.New(authSvc, store, cfg.WebDir, opts...)

	go janitor(ctx, authSvc, srv)

	hs := &http.Server{Addr: cfg.Addr, Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdownCtx)
	}()

	log.Printf("listening on %s (store=%s)", cfg.Addr, cfg.Store)
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// janitor purges expired sessions and their trackers until ctx ends.
func janitor(ctx context.Context, authSvc *app.AuthService, srv *adapthttp.Server) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := authSvc.PurgeExpired(ctx); err != nil {
				log.Printf("purge sessions: %v", err)
			}
			if n := srv.Sweep(); n > 0 {
				log.Printf("dropped %d expired sessions", n)
			}
		}
	}
}
