// Command server exposes pedigree storage and inference over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"heredity/internal/blob"
	"heredity/internal/config"
	"heredity/internal/handler"
	"heredity/internal/hub"
	"heredity/internal/inference"
	"heredity/internal/loader"
	"heredity/internal/logging"
	"heredity/internal/model"
	"heredity/internal/repository/sqlstore"
	"heredity/internal/service"
	"heredity/internal/watcher"
)

const shutdownTimeout = 10 * time.Second

func main() {
	addr := flag.String("addr", "", "HTTP listen address (default: from config)")
	configPath := flag.String("config", "", "config file (default: search standard locations)")
	seedDir := flag.String("seed", "", "directory of pedigree files to import at startup")
	watch := flag.Bool("watch", false, "re-import seed files when they change")
	flag.Parse()

	cfg, path, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	log, err := logging.Configure(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
	if path != "" {
		log.WithField("path", path).Info("Loaded config")
	}
	log.Info(cfg.Summary())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, *seedDir, *watch); err != nil {
		log.WithError(err).Fatal("Server failed")
	}
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger, seedDir string, watch bool) error {
	repo, err := sqlstore.Open(ctx, cfg.Database.Driver, cfg.Database.Path, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer repo.Close()
	log.WithField("driver", cfg.Database.Driver).Info("Database opened")

	reports, err := blob.Open(ctx, cfg.Reports)
	if err != nil {
		return fmt.Errorf("failed to open report store: %w", err)
	}

	params, err := cfg.Model.Params()
	if err != nil {
		return err
	}
	m, err := model.New(params)
	if err != nil {
		return err
	}
	engine := inference.NewEngine(m, inference.Options{
		Workers:        cfg.Inference.Workers,
		MaxIndividuals: cfg.Inference.MaxIndividuals,
		Logger:         log,
		Metrics:        inference.NewMetrics(prometheus.DefaultRegisterer),
	})

	eventBus := service.NewEventBus()

	sseHub := hub.New(log)
	go sseHub.Run(ctx)

	eventChan := make(chan service.Event, 100)
	eventBus.Subscribe(eventChan)
	go hub.Forward(sseHub, eventChan)

	svc := service.NewInferenceService(repo, engine, eventBus, service.Options{
		Reports: reports,
		Timeout: cfg.InferenceTimeout(),
		Logger:  log,
	})

	if seedDir != "" {
		paths, err := seed(ctx, svc, seedDir, log)
		if err != nil {
			return err
		}
		if watch && len(paths) > 0 {
			w := watcher.New(paths, func(path string) {
				if err := importFile(ctx, svc, path); err != nil {
					log.WithError(err).WithField("path", path).Warn("Failed to re-import pedigree")
				}
			}).WithLogger(log)
			go func() {
				if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.WithError(err).Error("Seed watcher stopped")
				}
			}()
		}
	}

	mux := http.NewServeMux()
	handler.NewPedigreeHandler(svc, log).Register(mux)
	mux.Handle("GET /events", sseHub)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: handler.Chain(mux,
			handler.Recover(log),
			handler.CORS,
			handler.Logger(log),
		),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("Server listening")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Info("Server stopped")
	return nil
}

// seed imports every pedigree file in dir and returns their paths
func seed(ctx context.Context, svc *service.InferenceService, dir string, log logrus.FieldLogger) ([]string, error) {
	sources, err := loader.LoadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to seed pedigrees: %w", err)
	}

	paths := make([]string, 0, len(sources))
	for _, src := range sources {
		if _, err := svc.StorePedigree(ctx, src.ID, src.Name, src.Individuals); err != nil {
			return nil, fmt.Errorf("failed to seed %s: %w", src.Path, err)
		}
		paths = append(paths, src.Path)
	}
	log.WithFields(logrus.Fields{"dir": dir, "pedigrees": len(sources)}).Info("Seeded pedigrees")
	return paths, nil
}

func importFile(ctx context.Context, svc *service.InferenceService, path string) error {
	src, err := loader.LoadFile(path)
	if err != nil {
		return err
	}
	_, err = svc.StorePedigree(ctx, src.ID, src.Name, src.Individuals)
	return err
}
