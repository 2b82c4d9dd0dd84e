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

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/mohit83k/honeypot/internal/config"
	"github.com/mohit83k/honeypot/internal/journal"
	"github.com/mohit83k/honeypot/internal/logger"
	"github.com/mohit83k/honeypot/internal/metrics"
	"github.com/mohit83k/honeypot/internal/radiusacct"
	"github.com/mohit83k/honeypot/internal/redisclient"
	"github.com/mohit83k/honeypot/internal/server"
	"github.com/mohit83k/honeypot/internal/store"
)

func main() {
	cfg := config.Load()

	pflag.StringVarP(&cfg.Host, "host", "H", cfg.Host, "Listen `address`")
	pflag.StringVarP(&cfg.Port, "port", "p", cfg.Port, "Listen `port`")
	pflag.StringVarP(&cfg.Banner, "banner", "b", cfg.Banner, "SSH server version `string` sent on connect")
	pflag.StringVar(&cfg.LogFilePath, "log-file", cfg.LogFilePath, "Event log `file`")
	pflag.StringVar(&cfg.SessionLogPath, "session-log", cfg.SessionLogPath, "Session journal `file` (JSON Lines)")
	pflag.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus listen `address`; empty disables")
	pflag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	log, err := logger.NewLogrusLogger(cfg.LogFilePath, cfg.LogLevel)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log logger.Logger) error {
	sessions, err := journal.Open(cfg.SessionLogPath)
	if err != nil {
		return err
	}
	defer sessions.Close()

	stores := store.Multi{sessions}
	if cfg.RedisAddr != "" {
		rs := redisclient.NewRedisStore(redisclient.NewClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB), cfg.RedisTTL)
		defer rs.Close()
		stores = append(stores, rs)
		log.Info("Mirroring sessions to Redis at " + cfg.RedisAddr)
	}
	if cfg.RadiusAcctAddr != "" {
		stores = append(stores, radiusacct.NewExporter(cfg.RadiusAcctAddr, cfg.RadiusSecret))
		log.Info("Exporting sessions as RADIUS accounting to " + cfg.RadiusAcctAddr)
	}

	var m *metrics.Metrics
	if cfg.MetricsAddr != "" {
		m = metrics.New()
	}

	honeypot := server.NewServer(cfg, stores, log, m)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return honeypot.ListenAndServe(ctx)
	})

	if m != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			log.Info("Metrics listening on " + cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
