package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"naval-combat-server/config"
	"naval-combat-server/handlers"
	"naval-combat-server/services"
	"naval-combat-server/utils"
	"naval-combat-server/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	store := services.NewGormMatchStore(db)
	if err := store.AutoMigrate(); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	rng, err := utils.NewSeededRand()
	if err != nil {
		log.Fatal("failed to seed fleet generator:", err)
	}

	registry := services.NewRegistry()
	gameService := services.NewGameService(store, registry, rng)

	if cfg.ArchiveEnabled() {
		bucket, err := utils.NewR2Bucket(ctx, cfg.R2AccountID, cfg.R2AccessKeyID, cfg.R2AccessKeySecret, cfg.R2Bucket)
		if err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		gameService.Archiver = services.NewMatchArchiver(store, bucket)
		log.Printf("✅ Finished matches archived to bucket %s", cfg.R2Bucket)
	}

	orchestrator := services.NewOrchestrator(gameService)

	if cfg.SyncEnabled() {
		syncWorker := workers.NewPlayerSyncWorker(store, cfg.AccountServiceURL, cfg.AccountSyncPath, cfg.GameServiceToken, cfg.AccountSyncInterval)
		syncWorker.Start(ctx)
	} else {
		log.Println("⚠️  ACCOUNT_SERVICE_URL not set, player sync disabled")
	}

	census, err := services.StartCensus(registry, cfg.CensusInterval)
	if err != nil {
		log.Fatal("failed to start census job:", err)
	}

	app := fiber.New()
	allowedOrigins := strings.Join(cfg.AllowedOrigins, ",")
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Player-ID",
		MaxAge:       86400,
	}))

	handlers.SetupGameRoutes(ctx, app, gameService, orchestrator, cfg.GameServiceToken)

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on %s", cfg.ListenAddr)
	log.Printf("✅ CORS configured for origins: %s", allowedOrigins)

	<-ctx.Done()
	log.Println("Shutting down server...")

	if err := census.Shutdown(); err != nil {
		log.Printf("Census shutdown error: %v", err)
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
