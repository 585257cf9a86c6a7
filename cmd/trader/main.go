package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/exchange-trader/internal/api"
	"github.com/rickgao/exchange-trader/internal/auth"
	"github.com/rickgao/exchange-trader/internal/config"
	"github.com/rickgao/exchange-trader/internal/controllog"
	"github.com/rickgao/exchange-trader/internal/database"
	"github.com/rickgao/exchange-trader/internal/execution"
	"github.com/rickgao/exchange-trader/internal/metrics"
	"github.com/rickgao/exchange-trader/internal/stream"
	"github.com/rickgao/exchange-trader/internal/trader"
	"github.com/rickgao/exchange-trader/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/trader.local.yaml", "path to config file")
	flag.Parse()

	// Bootstrap logger until the configured one is available
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err, "config", *configPath)
		os.Exit(1)
	}

	logger = newLogger(os.Stdout, cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting trader", append(version.Attrs(), "config", *configPath)...)
	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"betting_url", cfg.API.BettingURL,
		"control_log", cfg.ControlLog.Enabled,
		"stream", cfg.Stream.Enabled,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Exchange client
	creds, err := auth.LoadCredentials(
		cfg.API.Username,
		cfg.API.Password,
		cfg.API.AppKey,
		cfg.API.CertFile,
		cfg.API.KeyFile,
	)
	if err != nil {
		logger.Error("failed to load credentials", "error", err)
		os.Exit(1)
	}

	client := api.NewClient(creds,
		api.WithEndpoints(api.Endpoints{
			Login:     cfg.API.LoginURL,
			CertLogin: cfg.API.CertLoginURL,
			KeepAlive: cfg.API.KeepAliveURL,
			Betting:   cfg.API.BettingURL,
			Account:   cfg.API.AccountURL,
		}),
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, time.Second),
		api.WithRateLimit(cfg.API.RateLimit, cfg.API.RateBurst),
		api.WithSessionTimeout(cfg.API.SessionTimeout),
	)

	// Control log
	var (
		sink controllog.Sink = controllog.NewLogSink(logger)
		pool *pgxpool.Pool
	)
	if cfg.ControlLog.Enabled {
		logger.Info("connecting to database",
			"host", cfg.Database.Postgres.Host,
			"port", cfg.Database.Postgres.Port,
			"database", cfg.Database.Postgres.Name,
		)

		pool, err = database.Connect(ctx, cfg.Database.Postgres)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := controllog.EnsureSchema(ctx, pool); err != nil {
			logger.Error("failed to prepare control log", "error", err)
			os.Exit(1)
		}

		writer := controllog.NewWriter(controllog.WriterConfig{
			InstanceID:    cfg.Instance.ID,
			BatchSize:     cfg.ControlLog.BatchSize,
			FlushInterval: cfg.ControlLog.FlushInterval,
			BufferSize:    cfg.ControlLog.BufferSize,
			MaxPending:    cfg.ControlLog.MaxPending,
		}, pool, logger, m)
		if err := writer.Start(ctx); err != nil {
			logger.Error("failed to start control log writer", "error", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			writer.Stop(shutdownCtx)
		}()

		sink = writer
		logger.Info("database connected")
	}

	// Trader and workers
	tr := trader.New(trader.Config{
		Identifier:    cfg.Instance.ID,
		QueueCapacity: cfg.Queue.InitialCapacity,
	}, client, sink, logger, m)

	exec := execution.New(execution.DefaultConfig(cfg.Instance.ID), client, logger, m)
	if err := tr.AddDefaultWorkers(scheduleFromConfig(cfg.Workers), exec); err != nil {
		logger.Error("failed to create workers", "error", err)
		os.Exit(1)
	}

	if cfg.Stream.Enabled {
		tr.AddRunner(stream.NewClient(streamConfig(cfg), client, tr.HandlerQueue(), logger, m))
	}

	// Health and metrics server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: createHandler(cfg.Metrics.Path, reg, tr, client, pool),
	}

	go func() {
		logger.Info("starting health server", "port", cfg.Metrics.Port)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	logger.Info("trader running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)

	if err := tr.Run(ctx); err != nil {
		logger.Error("trader failed", "error", err)
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	logger.Info("trader stopped")
}

// newLogger builds the configured slog logger.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func scheduleFromConfig(w config.WorkersConfig) trader.Schedule {
	timing := func(c config.WorkerConfig) trader.Timing {
		return trader.Timing{Disabled: c.Disabled, Interval: c.Interval, StartDelay: c.StartDelay}
	}
	return trader.Schedule{
		KeepAlive:       timing(w.KeepAlive),
		MarketCatalogue: timing(w.MarketCatalogue),
		AccountBalance:  timing(w.AccountBalance),
		ClearedOrders:   timing(w.ClearedOrders),
		ProcessOrders:   timing(w.ProcessOrders),
	}
}

func streamConfig(cfg *config.Config) stream.Config {
	sc := stream.DefaultConfig()
	sc.URL = cfg.Stream.URL
	sc.AppKey = cfg.API.AppKey
	sc.MarketFilter = stream.MarketFilter{
		MarketIDs:    cfg.Stream.MarketIDs,
		EventTypeIDs: cfg.Stream.EventTypeIDs,
		MarketTypes:  cfg.Stream.MarketTypes,
		CountryCodes: cfg.Stream.CountryCodes,
	}
	if cfg.Stream.HeartbeatMs > 0 {
		sc.HeartbeatMs = cfg.Stream.HeartbeatMs
	}
	sc.ConflateMs = cfg.Stream.ConflateMs
	sc.BufferSize = cfg.Stream.BufferSize
	sc.PingTimeout = cfg.Stream.PingTimeout
	sc.ReconnectBaseDelay = cfg.Stream.ReconnectBaseDelay
	sc.ReconnectMaxDelay = cfg.Stream.ReconnectMaxDelay
	return sc
}

// createHandler creates the HTTP handler for health checks and metrics.
func createHandler(metricsPath string, reg *prometheus.Registry, tr *trader.Trader, client *api.Client, pool *pgxpool.Pool) http.Handler {
	mux := http.NewServeMux()

	mux.Handle(metricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		// Exchange session
		switch {
		case client.SessionToken() == "":
			health.Status = "degraded"
			health.Components["session"] = "logged_out"
		case client.SessionExpired():
			health.Status = "degraded"
			health.Components["session"] = "expired"
		default:
			health.Components["session"] = "active"
		}

		// Control log database
		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				health.Status = "unhealthy"
				health.Components["postgres"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["postgres"] = "connected"
			}
		}

		health.Components["markets"] = map[string]any{
			"total": tr.Markets().Len(),
			"open":  len(tr.Markets().OpenMarketIDs()),
		}
		health.Components["handler_queue"] = tr.Queue().Stats()

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
