package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/camden-git/genealogybackend/auth"
	"github.com/camden-git/genealogybackend/config"
	"github.com/camden-git/genealogybackend/database"
	"github.com/camden-git/genealogybackend/handlers"
	"github.com/camden-git/genealogybackend/media"
	"github.com/camden-git/genealogybackend/models"
	"github.com/camden-git/genealogybackend/realtime"
	"github.com/camden-git/genealogybackend/repository"
	"github.com/camden-git/genealogybackend/services"
	"github.com/camden-git/genealogybackend/workers"
)

const memoryDatabasePath = ":memory:"

func openDatabase(cfg config.Config) (*gorm.DB, error) {
	if cfg.DatabaseDriver == config.DriverSQLite && cfg.DatabasePath == memoryDatabasePath {
		if !cfg.DevMode {
			return nil, fmt.Errorf("DATABASE_PATH=%s is only allowed with DEV_MODE", memoryDatabasePath)
		}
		log.Printf("Warning: using a throwaway in-memory database")
		return database.OpenInMemory("genealogy")
	}

	if cfg.DatabaseDriver == config.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := database.InitGormDB(cfg.DatabaseDriver, cfg.DataSource(), cfg.DatabaseDebug)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrateModels(db); err != nil {
		database.Close(db)
		return nil, err
	}
	return db, nil
}

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database: %v", err)
	}
	defer database.Close(db)

	if _, err := database.SeedFormerCountriesFromFile(db, cfg.FormerCountriesSeedPath); err != nil {
		log.Fatalf("FATAL: Failed to seed former countries: %v", err)
	}
	sqlDB, err := database.NewSQL(db, cfg.DatabaseDriver)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	countries := services.NewCountryService(sqlDB)
	if err := countries.Reload(context.Background()); err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	mediaSubDirs := map[media.AssetType]string{
		media.AssetTypePortrait:  filepath.Base(cfg.PortraitsPath),
		media.AssetTypeThumbnail: filepath.Base(cfg.ThumbnailsPath),
	}
	mediaStore, err := media.NewLocalStorage(cfg.MediaStoragePath, mediaSubDirs)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize media store: %v", err)
	}
	for assetType := range mediaSubDirs {
		if _, err := mediaStore.EnsureDir(assetType); err != nil {
			log.Fatalf("FATAL: %v", err)
		}
	}
	mediaProcessor := media.NewProcessor(mediaStore)

	hub := realtime.NewHub()
	go hub.Run()

	log.Printf("Initializing image processor worker pool (Workers: %d, Queue Size: %d)...", cfg.NumImageWorkers, cfg.ImageQueueSize)
	imageProcessor := workers.NewImageProcessor(cfg, db, mediaProcessor, hub)
	if _, err := imageProcessor.RequeueUnfinished(); err != nil {
		log.Printf("Warning: failed to requeue unfinished image tasks: %v", err)
	}

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.JWTExpiration)
	policy := models.LoginPolicy{MaxAttempts: cfg.LoginMaxAttempts, Cooldown: cfg.LoginCooldown}
	authService := services.NewAuthService(db, issuer, services.LogNotifier{}, policy, cfg.PasswordResetTTL)
	individualService := services.NewIndividualService(db, sqlDB, countries, mediaProcessor, imageProcessor, hub)
	relationshipService := services.NewRelationshipService(db, hub)

	log.Printf("Using database: %s (%s)", cfg.DatabaseDriver, cfg.DatabasePath)
	log.Printf("Storing portraits in: %s", cfg.PortraitsPath)
	log.Printf("Thumbnail max size (longest side): %dpx", cfg.ThumbnailMaxSize)

	router := &handlers.Router{
		Auth: handlers.NewAuthHandler(authService),
		Individuals: &handlers.IndividualHandler{
			Individuals:    individualService,
			Relationships:  relationshipService,
			Countries:      countries,
			MaxUploadBytes: cfg.MaxUploadBytes,
		},
		Relationships:      &handlers.RelationshipHandler{Relationships: relationshipService},
		Countries:          &handlers.CountryHandler{Countries: countries},
		Authenticator:      &handlers.Authenticator{Issuer: issuer, Users: repository.NewGormUserRepository(db)},
		WebSocket:          hub.ServeWS,
		Store:              mediaStore,
		PortraitsSubDir:    mediaSubDirs[media.AssetTypePortrait],
		ThumbnailsSubDir:   mediaSubDirs[media.AssetTypeThumbnail],
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RequestTimeout:     60 * time.Second,
	}

	serverAddr := ":" + cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Server listening on %s", serverAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Warning: graceful shutdown failed: %v", err)
	}
	hub.Stop()
	imageProcessor.Stop()
	log.Println("Server stopped")
}
