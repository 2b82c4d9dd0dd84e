package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"github.com/mohit83k/honeypot/internal/config"
	"github.com/mohit83k/honeypot/internal/logger"
	"github.com/mohit83k/honeypot/internal/redisclient"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	cfg := config.Load()
	log, err := logger.NewLogrusLogger(cfg.LogFilePath, cfg.LogLevel)
	if err != nil {
		panic("failed to init logger: " + err.Error())
	}
	if cfg.RedisAddr == "" {
		panic("REDIS_ADDR is required")
	}

	rdb := redisclient.NewClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer rdb.Close()

	// requires notify-keyspace-events to include "E$"
	pubsub := rdb.PSubscribe(ctx, "__keyevent@*__:set")
	log.Info("Started Redis subscriber for honeypot session events")

	for {
		select {
		case <-ctx.Done():
			log.Info("Shutting down Redis subscriber")
			_ = pubsub.Close()
			return

		case msg := <-pubsub.Channel():
			if !strings.HasPrefix(msg.Payload, redisclient.KeyPrefix) {
				continue
			}

			rec, err := redisclient.Load(ctx, rdb, msg.Payload)
			if err != nil {
				log.Error(err)
				continue
			}
			log.WithFields(map[string]any{
				"key":         msg.Payload,
				"source_ip":   rec.SourceIP,
				"outcome":     rec.Outcome,
				"credentials": len(rec.CredentialsAttempted),
				"duration":    rec.Duration.String(),
				"bytes":       rec.BytesReceived,
			}).Info("Received honeypot session")
		}
	}
}
