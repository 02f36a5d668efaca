package main

import (
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskboard/client"
	"taskboard/config"
	"taskboard/controller"
	"taskboard/store"
	"taskboard/ui"
)

func main() {
	cfgPath := config.DefaultConfigFileName
	if v := os.Getenv("TASKBOARD_CONFIG"); v != "" {
		cfgPath = v
	}
	cfg, err := config.LoadOrCreate(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	logger := log.New()
	logger.SetLevel(log.StandardLogger().GetLevel())
	logger.SetOutput(os.Stderr)

	httpClient := &http.Client{Timeout: cfg.RequestTimeout()}
	base := client.New(cfg.APIBaseURL, httpClient, logger)

	var syncer controller.Syncer = base
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("invalid redis url: %v", err)
		}
		syncer = client.NewCache(base, redis.NewClient(opts), cfg.CacheTTL())
		logger.WithField("ttl", cfg.CacheTTL()).Info("read-through cache enabled")
	}

	st := store.New()
	ctrl := controller.New(syncer, st, logger)
	ctrl.OnError(func(err error) {
		logger.WithField("error", err.Error()).Warn("operation failed")
	})

	if err := ui.Run(ctrl); err != nil {
		log.Fatalf("ui: %v", err)
	}
}
