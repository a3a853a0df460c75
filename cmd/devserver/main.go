package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/google/uuid"

	"pawchat/internal/devserver"
)

const defaultSecret = "pawchat_dev_secret"

func main() {
	secret := os.Getenv("PAWCHAT_SECRET")
	if secret == "" {
		secret = defaultSecret
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := devserver.NewServer(secret)
	go server.Run()

	// Print a ready-to-use token when an operator wants to poke around.
	if os.Getenv("PAWCHAT_PRINT_TOKEN") == "true" {
		userID := uuid.New()
		token, err := server.IssueToken(userID)
		if err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Printf("user: %s\ntoken: %s\n", userID, token)
	}

	addr := "0.0.0.0:" + port
	log.Printf("Devserver listening on %s", addr)
	if err := http.ListenAndServe(addr, server.Handler()); err != nil {
		log.Fatalf("Devserver failed: %v", err)
	}
}
