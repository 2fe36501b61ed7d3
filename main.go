package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"spider-league/config"
	"spider-league/handlers"
	"spider-league/models"
	"spider-league/services"
	"spider-league/utils"
	"spider-league/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Spider{},
		&models.Battle{},
		&models.BattleTurn{},
		&models.Challenge{},
		&models.UserProgress{},
		&models.BadgeType{},
		&models.UserBadge{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Photo storage is optional in development; uploads fail without it
	var images services.ImageStore
	if cfg.R2.Bucket != "" {
		store, err := utils.NewR2Store(ctx, utils.R2Options{
			AccountID:       cfg.R2.AccountID,
			AccessKeyID:     cfg.R2.AccessKeyID,
			AccessKeySecret: cfg.R2.AccessKeySecret,
			Bucket:          cfg.R2.Bucket,
			CDNBaseURL:      cfg.R2.CDNBaseURL,
			Endpoint:        cfg.R2.Endpoint,
		})
		if err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		images = store
	} else {
		log.Println("⚠️  R2_BUCKET_NAME not set, spider uploads are disabled")
	}

	badgeService := services.NewBadgeService(db)
	if err := badgeService.SeedBadgeTypes(); err != nil {
		log.Fatal("failed to seed badge catalogue:", err)
	}
	progressionService := services.NewProgressionService(db, badgeService)
	battleService := services.NewBattleService(db, services.NewDice(), cfg.Battle.TurnDelay, progressionService)
	challengeService := services.NewChallengeService(db, cfg.Battle.ChallengeTTL)
	spiderService := services.NewSpiderService(db, images, cfg.Classifier.MaxAttempts)

	housekeeper := services.NewHousekeeper(battleService, challengeService, cfg.Battle.StaleAfter)
	sched, err := housekeeper.Start()
	if err != nil {
		log.Fatal("failed to start scheduler:", err)
	}
	defer func() { _ = sched.Shutdown() }()

	if cfg.Classifier.URL != "" {
		classifier := services.NewClassifierClient(cfg.Classifier.URL, cfg.Classifier.Token)
		worker := workers.NewClassificationWorker(spiderService, classifier, progressionService, cfg.Classifier.BatchSize)
		go workers.PollClassifications(ctx, worker, cfg.Classifier.PollInterval)
	} else {
		log.Println("⚠️  CLASSIFIER_URL not set, uploaded spiders stay pending")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 15 * 1024 * 1024, // photos
	})

	// Open CORS; mounted ahead of the app-wide policy
	handlers.SetupFunctionRoutes(app, battleService, cfg.ServiceToken)

	allowedOrigins := strings.Join(cfg.AllowedOrigins, ",")
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, Cache-Control",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: !slices.Contains(cfg.AllowedOrigins, "*"),
		MaxAge:           86400, // 24 hours
	}))

	handlers.SetupHealthRoutes(app)
	handlers.SetupProgressionRoutes(app, progressionService, badgeService)
	handlers.SetupSpiderRoutes(app, spiderService)
	handlers.SetupChallengeRoutes(app, challengeService, battleService)
	handlers.SetupBattleRoutes(app, battleService, cfg.Battle.StreamPollInterval)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", cfg.Port)
	log.Printf("✅ CORS configured for origins: %s", allowedOrigins)
	if cfg.ServiceToken != "" {
		log.Println("✅ Battle simulator function requires the service token")
	}

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
