package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/chatmesh/chatmesh/internal/api"
	"github.com/chatmesh/chatmesh/internal/core/conversation"
	"github.com/chatmesh/chatmesh/pkg/cache"
	"github.com/chatmesh/chatmesh/pkg/common/config"
	"github.com/chatmesh/chatmesh/pkg/observability"
)

func main() {
	// Load .env if present, mostly for local development
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLoggerWithLevel("server", observability.LogLevel(cfg.Logging.Level))

	metricsClient := observability.NewMetricsClient()
	defer func() {
		if err := metricsClient.Close(); err != nil {
			logger.Warn("Failed to close metrics client", map[string]interface{}{"error": err.Error()})
		}
	}()

	durableCache := initCache(cfg, logger)
	if durableCache != nil {
		defer func() {
			if err := durableCache.Close(); err != nil {
				logger.Warn("Failed to close cache", map[string]interface{}{"error": err.Error()})
			}
		}()
	}

	manager := conversation.NewManager(
		conversation.Config{
			MaxTurns:             cfg.Conversation.MaxTurns,
			MaxShortTermMemory:   cfg.Conversation.MaxShortTermMemory,
			MaxLongTermMemory:    cfg.Conversation.MaxLongTermMemory,
			SentimentHistorySize: cfg.Conversation.SentimentHistorySize,
			MaxPreviousIntents:   cfg.Conversation.MaxPreviousIntents,
			MaxEntityContext:     cfg.Conversation.MaxEntityContext,
			PromotionThreshold:   cfg.Conversation.PromotionThreshold,
			ContextTTL:           cfg.Conversation.ContextTTL,
			MemoryItemTTL:        cfg.Conversation.MemoryItemTTL,
		},
		durableCache,
		nil, // default rule-based classifier
		logger.WithPrefix("conversation_manager"),
		metricsClient,
	)

	// The manager keeps no timers of its own; the sweep loop is a host
	// concern so tests and embedders control time-driven behavior
	stopSweep := make(chan struct{})
	if interval := cfg.Conversation.SweepInterval; interval > 0 {
		go sweepLoop(manager, interval, stopSweep)
	}

	server := api.NewServer(cfg.API, manager, logger.WithPrefix("api_server"), metricsClient)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Shutting down", map[string]interface{}{"signal": sig.String()})
	case err := <-errCh:
		logger.Error("API server failed", map[string]interface{}{"error": err.Error()})
	}

	close(stopSweep)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", map[string]interface{}{"error": err.Error()})
	}
}

// initCache connects to the durable cache. Misconfiguration or connection
// failure is logged once and degrades to in-process-only mode; it never
// fails startup.
func initCache(cfg *config.Config, logger observability.Logger) cache.Cache {
	if cfg.Cache.Address == "" {
		logger.Info("No cache address configured, running in-process only", nil)
		return nil
	}

	c, err := cache.NewRedisCache(cfg.Cache)
	if err != nil {
		logger.Warn("Durable cache unavailable, running in-process only", map[string]interface{}{
			"error":   err.Error(),
			"address": cfg.Cache.Address,
		})
		return nil
	}

	logger.Info("Connected to durable cache", map[string]interface{}{
		"address": cfg.Cache.Address,
	})
	return c
}

// sweepLoop periodically evicts expired contexts from the in-process store
func sweepLoop(manager *conversation.Manager, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			manager.ClearExpiredContexts()
		case <-stop:
			return
		}
	}
}
