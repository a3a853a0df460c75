package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asynkron/protoactor-go/actor"

	"pawchat/internal/auth"
	"pawchat/internal/client"
	"pawchat/internal/config"
	"pawchat/internal/database"
	"pawchat/internal/engine"
	"pawchat/internal/utils"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	session, err := auth.ParseSession(cfg.Token)
	if err != nil {
		log.Fatalf("No usable session token (set PAWCHAT_TOKEN): %v", err)
	}

	var cache *database.Cache
	if cfg.Cache.Enabled {
		cache, err = database.NewCache(cfg.Cache.MongoURI)
		if err != nil {
			log.Printf("History cache unavailable, continuing without it: %v", err)
			cache = nil
		}
	}

	metrics := utils.NewMetricsCollector()
	system := actor.NewActorSystem()
	rest := client.NewRestClient(cfg.Transport.ServerURL, cfg.Token)
	core := engine.NewEngine(system, session, rest, cache, metrics, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := core.Run(ctx); err != nil {
			log.Printf("Connection gave up: %v", err)
		}
	}()

	// Give the transport a moment before the first fetch.
	time.Sleep(200 * time.Millisecond)

	conversations, err := core.LoadConversations(ctx)
	if err != nil {
		log.Printf("Failed to load conversations: %v", err)
		if cached, cacheErr := core.CachedConversations(ctx); cacheErr == nil {
			log.Printf("Serving %d conversations from the local cache", len(cached))
			conversations = cached
		}
	}
	for _, conv := range conversations {
		log.Printf("Conversation %s (%s): %s, %d unread",
			conv.ID, conv.Kind, conv.DisplayName(session.UserID), conv.UnreadCount)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("Shutting down")

	cancel()
	if cache != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		cache.Close(shutdownCtx)
	}

	requests, errors := metrics.Counts()
	log.Printf("Session stats: %d requests, %d errors, uptime %v", requests, errors, metrics.Uptime().Round(time.Second))
}
