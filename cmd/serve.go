package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shivanand-hulikatti/volunteer-enrollment/internal/config"
	"github.com/Shivanand-hulikatti/volunteer-enrollment/internal/database"
	"github.com/Shivanand-hulikatti/volunteer-enrollment/internal/handler"
	"github.com/Shivanand-hulikatti/volunteer-enrollment/internal/metrics"
	"github.com/Shivanand-hulikatti/volunteer-enrollment/internal/repository"
	"github.com/Shivanand-hulikatti/volunteer-enrollment/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the enrollment HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, app.cfg, app.logger)
		},
	}
}

type stores struct {
	enrollments service.EnrollmentStore
	events      service.EventSource
	close       func()
}

// openStores selects the storage backend named in the config.
func openStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*stores, error) {
	switch cfg.Store {
	case config.StoreMemory:
		mem := repository.NewMemoryStore(cfg.Enrollment.LockTimeout)
		for _, f := range cfg.Events {
			mem.PutEvent(f.Event())
		}
		log.Warn("using in-memory store, enrollments are lost on restart",
			zap.Int("events", len(cfg.Events)),
		)
		return &stores{enrollments: mem, events: mem, close: func() {}}, nil

	case config.StorePostgres:
		pool, err := database.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		if err := database.RunMigrations(ctx, pool, log); err != nil {
			pool.Close()
			return nil, err
		}
		return &stores{
			enrollments: repository.NewEnrollmentRepository(pool, cfg.Enrollment.LockTimeout),
			events:      repository.NewEventRepository(pool),
			close:       pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	// ── 1. Metrics registry ──────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// ── 2. Storage ───────────────────────────────────────────────────────
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	// ── 3. Wire up layers ────────────────────────────────────────────────
	enrollments := service.NewEnrollmentService(st.enrollments, st.events, m, log)
	ledger := service.NewLedger(st.enrollments)
	h := handler.NewEnrollmentHandler(
		enrollments,
		service.NewGroupRegistrar(enrollments, m, log),
		ledger,
		service.NewImpactService(ledger, st.enrollments, st.events),
		log,
	)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler.NewRouter(h, log, reg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// ── 4. Start server with graceful shutdown ───────────────────────────
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", cfg.Server.Addr), zap.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}
