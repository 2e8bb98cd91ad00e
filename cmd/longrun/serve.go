package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/longrun/internal/config"
	"github.com/loykin/longrun/internal/history"
	histfactory "github.com/loykin/longrun/internal/history/factory"
	"github.com/loykin/longrun/internal/metrics"
	"github.com/loykin/longrun/internal/server"
	storefactory "github.com/loykin/longrun/internal/store/factory"
	"github.com/loykin/longrun/internal/supervisor"
)

func runServeCommand(flags *ServeFlags, args []string) error {
	configPath := flags.ConfigPath
	if len(args) > 0 {
		configPath = args[0]
	}
	if configPath == "" {
		return fmt.Errorf("config file required for serve command. Use --config=config.toml or provide as argument")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	log, logCloser, err := cfg.Log.NewLogger()
	if err != nil {
		return fmt.Errorf("error setting up logging: %w", err)
	}
	if logCloser != nil {
		defer func() { _ = logCloser.Close() }()
	}
	slog.SetDefault(log)

	st, err := storefactory.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("error opening store: %w", err)
	}
	defer func() { _ = st.Close() }()

	sinks, closers, err := buildSinks(cfg.History)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	if cfg.Metrics.Enabled {
		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			return fmt.Errorf("error registering metrics: %w", err)
		}
	}

	sup, err := supervisor.New(supervisor.Options{
		Store:        st,
		StepInterval: cfg.Supervisor.StepInterval,
		PollInterval: cfg.Supervisor.PollInterval,
		StaleAfter:   cfg.Supervisor.StaleAfter,
		Logger:       log,
		Sinks:        sinks,
	})
	if err != nil {
		return err
	}
	sup.StartReconciler(cfg.Supervisor.ReconcileInterval)

	httpServer, err := server.NewServer(cfg.Server.Listen, cfg.Server.BasePath, sup, func() error {
		return st.Ping(context.Background())
	})
	if err != nil {
		return fmt.Errorf("error starting server: %w", err)
	}
	log.Info("longrun daemon listening", "addr", cfg.Server.Listen, "base_path", cfg.Server.BasePath, "store", cfg.Store.Type)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	sup.Shutdown(shutdownCtx)
	return nil
}

// buildSinks opens every configured history sink. A Table set on a
// ClickHouse entry is folded into the DSN query.
func buildSinks(hcs []config.HistoryConfig) ([]history.Sink, []io.Closer, error) {
	var sinks []history.Sink
	var closers []io.Closer
	for _, hc := range hcs {
		dsn := hc.DSN
		if hc.Table != "" && strings.HasPrefix(strings.ToLower(dsn), "clickhouse://") &&
			!strings.Contains(dsn, "table=") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "table=" + hc.Table
		}
		sink, err := histfactory.NewSinkFromDSN(dsn)
		if err != nil {
			for _, c := range closers {
				_ = c.Close()
			}
			return nil, nil, fmt.Errorf("error opening history sink %q: %w", hc.DSN, err)
		}
		sinks = append(sinks, sink)
		if c, ok := sink.(io.Closer); ok {
			closers = append(closers, c)
		}
	}
	return sinks, closers, nil
}
