package cli

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

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	adminauth "github.com/hallgate/adminauth"
	"github.com/hallgate/adminauth/metrics/export/prometheus"
	"github.com/hallgate/adminauth/middleware"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the admin authentication HTTP server",
		Long:  "Start the HTTP server that exposes login, logout, two-factor enrollment, and session validation endpoints.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(host, port)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8086, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(host string, port int) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	backend, err := openBackend()
	if err != nil {
		return err
	}
	defer backend.close()

	engine, err := adminauth.New().
		WithConfig(engineConfig()).
		WithStore(backend.store).
		Build()
	if err != nil {
		return fmt.Errorf("build auth engine: %w", err)
	}
	defer engine.Close()
	logger.Info("auth engine initialized", "driver", viper.GetString("store.driver"))

	// Sweep expired sessions in the background. The Redis backend reaps
	// through key TTLs, so the sweep is effectively free there.
	purgeCtx, stopPurge := context.WithCancel(context.Background())
	defer stopPurge()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-purgeCtx.Done():
				return
			case <-ticker.C:
				if removed, err := engine.PurgeExpiredSessions(purgeCtx); err == nil && removed > 0 {
					logger.Info("purged expired sessions", "count", removed)
				}
			}
		}
	}()

	h := &handlers{engine: engine, logger: logger}
	guard := middleware.RequireAdmin(engine)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/metrics", prometheus.NewExporter(engine).Handler().ServeHTTP)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", h.login)

		r.Group(func(r chi.Router) {
			r.Use(guard)
			r.Post("/logout", h.logout)
			r.Get("/session", h.whoami)
			r.Post("/2fa/setup", h.setupTwoFactor)
			r.Post("/2fa/enable", h.enableTwoFactor)
			r.Post("/2fa/disable", h.disableTwoFactor)
			r.Post("/2fa/backup-codes", h.regenerateBackupCodes)
		})
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
