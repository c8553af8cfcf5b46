package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gregdel/pushover"
	"github.com/joho/godotenv"

	"github.com/marcus-crane/crooner/artwork"
	"github.com/marcus-crane/crooner/badge"
	"github.com/marcus-crane/crooner/cache"
	"github.com/marcus-crane/crooner/config"
	"github.com/marcus-crane/crooner/db"
	"github.com/marcus-crane/crooner/events"
	"github.com/marcus-crane/crooner/jobs"
	"github.com/marcus-crane/crooner/migrations"
	"github.com/marcus-crane/crooner/playback"
	"github.com/marcus-crane/crooner/profanity"
	"github.com/marcus-crane/crooner/routes"
	"github.com/marcus-crane/crooner/spotify"
	"github.com/marcus-crane/crooner/tokens"
	"github.com/marcus-crane/crooner/utils"
)

func main() {

	if err := godotenv.Load(); err != nil {
		fmt.Println(err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.GetLogLevel(),
	})))

	dbPath := cfg.Crooner.DbPath
	if dbPath == "" {
		dbPath = "crooner.db"
	}

	store, err := db.NewSqliteStore(dbPath)
	if err != nil {
		slog.With(slog.Any("error", err)).Error("Failed to open database")
		os.Exit(1)
	}

	if err := store.ApplyMigrations(migrations.GetMigrations()); err != nil {
		slog.With(slog.Any("error", err)).Error("Failed to apply migrations")
		os.Exit(1)
	}

	httpClient := utils.NewHTTPClient()

	spotifyClient := spotify.NewClient(cfg.Spotify, httpClient)

	manager := tokens.NewManager(store, spotifyClient)
	if cfg.Pushover.Token != "" && cfg.Pushover.Recipient != "" {
		app := pushover.New(cfg.Pushover.Token)
		recipient := pushover.NewRecipient(cfg.Pushover.Recipient)
		manager.OnReauthNeeded = func(userID string) {
			message := &pushover.Message{
				Message:   fmt.Sprintf("Spotify revoked the refresh token for %s. Their badge will show a reconnect prompt until they log in again.", userID),
				Title:     "Crooner user needs to reauthorize",
				Priority:  pushover.PriorityNormal,
				Timestamp: time.Now().Unix(),
			}
			if _, err := app.SendMessage(message, recipient); err != nil {
				slog.With(slog.Any("error", err)).Error("Failed to send reauth notification")
			}
		}
	}

	extractor, err := artwork.NewExtractor(httpClient)
	if err != nil {
		slog.With(slog.Any("error", err)).Error("Failed to set up artwork extractor")
		os.Exit(1)
	}

	renderer, err := badge.NewRenderer()
	if err != nil {
		slog.With(slog.Any("error", err)).Error("Failed to set up renderer")
		os.Exit(1)
	}

	responses := cache.NewResponseCache()

	events.Init()

	scheduler := jobs.SetupInBackground(responses, manager)

	if utils.GetEnv("BACKGROUND_JOBS_ENABLED", "true") == "true" {
		scheduler.StartAsync()
		fmt.Println("Background jobs have started up in the background.")
	} else {
		fmt.Println("Background jobs are disabled.")
	}

	router := routes.Register(http.NewServeMux(), routes.Deps{
		Config:    cfg,
		Store:     store,
		Spotify:   spotifyClient,
		Resolver:  playback.NewResolver(manager, spotifyClient),
		Extractor: extractor,
		Responses: responses,
		Renderer:  renderer,
		Filter:    profanity.NewFilter(),
	})

	port := cfg.Crooner.Port
	if port == "" {
		port = "8080"
	}

	fmt.Printf("Crooner is running at http://localhost:%s\n", port)

	if err := http.ListenAndServe(":"+port, router); err != nil {
		fmt.Println(err)
		scheduler.Stop()
		os.Exit(1)
	}
}
