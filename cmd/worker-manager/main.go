// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"inquiry-sync-workers/internal/alerts"
	"inquiry-sync-workers/internal/common/camunda"
	"inquiry-sync-workers/internal/common/config"
	"inquiry-sync-workers/internal/common/insightly"
	"inquiry-sync-workers/internal/common/logger"
	"inquiry-sync-workers/internal/common/observability"
	"inquiry-sync-workers/internal/inquiries"
	"inquiry-sync-workers/internal/synclog"

	ils "inquiry-sync-workers/internal/workers/crm/inquiry-lead-sync"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("%s cancelled: %w", operationName, ctx.Err())
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.Build(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})

	zapLog.Info("Starting worker manager...", zap.String("environment", cfg.App.Environment))

	crmCfg, err := config.ResolveCRM(config.NewViperSource(viper.GetViper(), cfg.App.SecretsDir), config.EnvSource{})
	if err != nil {
		zapLog.Fatal("crm configuration invalid", zap.Error(err))
	}

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	if cfg.Tracing.Enabled {
		if err := obs.EnableTracing(cfg.App.Name, cfg.Tracing.JaegerEndpoint, cfg.Tracing.SampleRatio); err != nil {
			zapLog.Fatal("tracing setup failed", zap.Error(err))
		}
		zapLog.Info("Tracing enabled", zap.String("endpoint", cfg.Tracing.JaegerEndpoint))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Init Zeebe Client with retry ---
	var camundaClient *camunda.Client
	err = retryWithBackoff(ctx, func() error {
		var err error
		camundaClient, err = camunda.NewClientWithConfig(ctx, &camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer camundaClient.Close()
	zapLog.Info("Zeebe client connected successfully")

	// --- Init inquiry store with retry ---
	var (
		store      inquiries.Store
		closeStore func() error
	)
	err = retryWithBackoff(ctx, func() error {
		var err error
		store, closeStore, err = inquiries.Open(ctx, cfg)
		return err
	}, 15, 2*time.Second, zapLog, "Inquiry store connection")
	if err != nil {
		zapLog.Fatal("inquiry store failed after retries", zap.Error(err))
	}
	defer closeStore()
	zapLog.Info("Inquiry store connected successfully", zap.String("store", cfg.Sync.Store))

	// --- Init sync history ---
	var recorder synclog.Recorder
	err = retryWithBackoff(ctx, func() error {
		var err error
		recorder, err = synclog.Open(ctx, cfg.Database.Elasticsearch, cfg.Sync.HistoryIndex)
		return err
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	if cfg.Database.Elasticsearch.Enabled() {
		zapLog.Info("Sync history enabled", zap.String("index", cfg.Sync.HistoryIndex))
	}

	// --- Init failure alerts ---
	notifier, err := alerts.FromConfig(ctx, cfg)
	if err != nil {
		zapLog.Fatal("alert channels failed", zap.Error(err))
	}

	// --- Register workers ---
	service := ils.NewService(ils.ServiceDependencies{
		CRM:           crmCfg,
		Creator:       insightly.NewClient(crmCfg, nil, log),
		Recorder:      recorder,
		Notifier:      notifier,
		Observability: obs,
		Logger:        log,
	})

	handler, err := ils.NewHandler(ils.HandlerOptions{
		AppConfig:     cfg,
		Camunda:       camundaClient,
		Store:         store,
		Service:       service,
		Logger:        log,
		Observability: obs,
	})
	if err != nil {
		zapLog.Fatal("failed to create inquiry-lead-sync handler", zap.Error(err))
	}

	workers := camunda.NewWorkerSet(log, handler)
	if err := workers.Start(); err != nil {
		zapLog.Fatal("worker registration failed", zap.Error(err))
	}
	zapLog.Info("All workers registered successfully", zap.Strings("taskTypes", workers.TaskTypes()))

	// --- Health & Metrics Server ---
	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.App.HealthPort),
		Handler:           healthMux(workers),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	workers.Stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func healthMux(workers *camunda.WorkerSet) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy", "")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := workers.HealthCheck(ctx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "not ready", err.Error())
			return
		}
		writeStatus(w, http.StatusOK, "ready", "")
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeStatus(w http.ResponseWriter, code int, status, reason string) {
	body := map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	}
	if reason != "" {
		body["reason"] = reason
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
