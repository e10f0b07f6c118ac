package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"watchvault/config"
	"watchvault/handlers"
	"watchvault/internal/database"
	"watchvault/internal/prefs"
	"watchvault/services/catalog"
	"watchvault/services/watchlist"
	"watchvault/utils"
)

func main() {
	configPath := flag.String("config", "", "path to settings JSON file")
	flag.Parse()

	settings, err := config.NewManager(*configPath).Load()
	if err != nil {
		log.Fatalf("[main] failed to load settings: %v", err)
	}

	if settings.LogPath != "" {
		log.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   settings.LogPath,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
		}))
	}

	if settings.APIKey == "" || settings.APIHost == "" {
		log.Printf("[main] warning: catalog API credentials not configured; searches will fail until set")
	}

	db, err := database.NewDB(database.Config{DatabasePath: settings.DatabasePath})
	if err != nil {
		log.Fatalf("[main] failed to open database: %v", err)
	}
	defer db.Close()

	usage := catalog.NewUsageTracker(prefs.New(settings.PrefsPath))
	client := catalog.NewClient(settings.APIKey, settings.APIHost, usage)

	coordinator := watchlist.NewService(client, db.Watchlist, usage)
	defer coordinator.Close()

	router := utils.NewRouter()
	handlers.NewWatchlistHandler(coordinator).Register(router)

	server := &http.Server{
		Addr:         settings.ListenAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("[main] listening on %s", settings.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("[main] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] shutdown error: %v", err)
	}
}
