package main

import (
	"context"
	"log"
	"os"
	"time"

	"pawchat/simulator"
)

func main() {
	serverURL := os.Getenv("PAWCHAT_SERVER_URL")
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}
	secret := os.Getenv("PAWCHAT_SECRET")
	if secret == "" {
		secret = "pawchat_dev_secret"
	}

	cfg := simulator.SimConfig{
		NumUsers:         10,
		SimulationTime:   2 * time.Minute,
		MessageFrequency: 30.0,
		ServerURL:        serverURL,
		Secret:           secret,
	}

	log.Printf("Starting simulation:")
	log.Printf("- Server URL: %s", cfg.ServerURL)
	log.Printf("- Number of users: %d", cfg.NumUsers)
	log.Printf("- Simulation time: %v", cfg.SimulationTime)
	log.Printf("- Message frequency: %.1f messages/user/minute", cfg.MessageFrequency)

	sim := simulator.NewSimulator(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.SimulationTime+30*time.Second)
	defer cancel()

	if err := sim.Run(ctx); err != nil {
		log.Fatalf("Simulation failed: %v", err)
	}

	stats := sim.GetStats()
	log.Printf("\nSimulation completed. Final stats:")
	log.Printf("- Send attempts: %d", stats.SendAttempts)
	log.Printf("- Send successes: %d", stats.SendSuccesses)
	log.Printf("- Send failures: %d", stats.SendFailures)
	log.Printf("- Average send latency: %v", stats.AverageSendLatency())
	log.Printf("- Unread messages observed: %d", stats.UnreadObserved)
}
