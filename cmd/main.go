/*
Package main is the entry point for the keychat server.

It is responsible for loading configuration, initializing the global logging system,
connecting to the document store, setting up the HTTP server, and gracefully handling
operating system interrupt signals (SIGINT, SIGTERM) to ensure a smooth shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"keychat/internal/app/conversation"
	"keychat/internal/app/db"
	"keychat/internal/app/group"
	"keychat/internal/app/identity"
	"keychat/internal/configs"
	"keychat/internal/handler"
	"keychat/internal/pkg/logx"
	"keychat/internal/store/mongostore"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("mongo_db", cfg.MongoDBName).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect the document store and bootstrap the unique indexes backing
	// the canonical identity keys.
	client, err := db.Connect(cfg.MongoURL)
	if err != nil {
		logx.Fatal(err, "Failed to connect to the document store")
	}

	docStore := mongostore.New(client, cfg.MongoDBName)

	indexCtx, cancelIndex := context.WithTimeout(ctx, 15*time.Second)
	if err := docStore.EnsureIndexes(indexCtx); err != nil {
		cancelIndex()
		logx.Fatal(err, "Failed to create document store indexes")
	}
	cancelIndex()

	deps := &handler.AppDeps{
		Config:        cfg,
		Store:         docStore,
		Identity:      identity.NewDirectory(docStore),
		Conversations: conversation.NewRegistry(docStore),
		Groups:        group.NewRegistry(docStore),
	}

	// Setup HTTP server and routes
	router := handler.Router(deps)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("keychat server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	if err := db.Disconnect(client); err != nil {
		logx.Error(err, "Failed to disconnect the document store cleanly")
	}

	logx.Info("Server gracefully stopped.")
}
