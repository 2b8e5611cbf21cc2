package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trailhub/trailhub/internal/server"
	"github.com/trailhub/trailhub/internal/store"
	"github.com/trailhub/trailhub/internal/store/memory"
	"github.com/trailhub/trailhub/internal/store/postgres"
)

const shutdownTimeout = 10 * time.Second

func main() {
	fmt.Println("Starting TrailHub server...")

	config := server.NewConfigFromEnv()
	server.SetConfig(config)

	st, cleanup, err := openStore(config.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer cleanup()

	hub := server.NewHub()
	go hub.Run()

	registry := server.NewSessionRegistry()
	presence := server.NewPresence(registry, st, hub, config.ResendLastLocation)
	gateway := server.NewGateway(hub, presence, st)

	httpServer := server.CreateServer(config.Port, server.SetupRoutes(gateway))

	errs := make(chan error, 1)
	go func() {
		errs <- server.StartServer(httpServer)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errs:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-quit:
		log.Printf("Received signal %s, shutting down", sig)
	}

	if err := server.ShutdownServer(httpServer, shutdownTimeout); err != nil {
		log.Printf("HTTP shutdown did not complete cleanly: %v", err)
	}
	if err := hub.Shutdown(shutdownTimeout); err != nil {
		log.Printf("Hub shutdown did not complete cleanly: %v", err)
	}
}

// openStore selects the durable store: PostgreSQL when DATABASE_URL is set,
// the in-memory store otherwise (local development).
func openStore(databaseURL string) (store.Store, func(), error) {
	if databaseURL == "" {
		log.Println("DATABASE_URL not set; using in-memory store")
		return memory.New(), func() {}, nil
	}

	pg, err := postgres.Open(databaseURL)
	if err != nil {
		return nil, nil, err
	}
	log.Println("Connected to PostgreSQL")
	return pg, func() {
		if err := pg.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}, nil
}
