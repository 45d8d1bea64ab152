package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mlukasik/deckard/internal/config"
	"github.com/mlukasik/deckard/internal/database"
	http_controllers "github.com/mlukasik/deckard/internal/http"
	"github.com/mlukasik/deckard/internal/importer"
	"github.com/mlukasik/deckard/internal/settingsstore"
)

// Serve runs the HTTP server until an interrupt, then shuts down
// gracefully within the configured timeout.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown func()) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if onShutdown != nil {
		onShutdown()
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// Run wires the store, settings, importer and router together and
// serves the API.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting Deckard v%s", version)

	if err := os.MkdirAll(cfg.Media.Root, 0755); err != nil {
		log.Fatalf("Media root %s is not usable: %v", cfg.Media.Root, err)
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}

	settings := settingsstore.New(db)
	imp := importer.New(db, settings, cfg.Media.Root)

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Decks:          db,
		Importer:       imp,
		Review:         db,
		Mappings:       settings,
		RandomTieBreak: cfg.Review.RandomTieBreak,
	})

	Serve(router, cfg, func() {
		if err := db.Close(); err != nil {
			log.Printf("Failed to close store: %v", err)
		}
	})
}
