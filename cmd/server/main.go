package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/social-publisher/configs"
	"github.com/maheshrc27/social-publisher/internal/api/handlers"
	"github.com/maheshrc27/social-publisher/internal/api/middleware"
	"github.com/maheshrc27/social-publisher/internal/cache"
	job "github.com/maheshrc27/social-publisher/internal/jobs"
	"github.com/maheshrc27/social-publisher/internal/metrics"
	"github.com/maheshrc27/social-publisher/internal/models"
	"github.com/maheshrc27/social-publisher/internal/queue"
	"github.com/maheshrc27/social-publisher/internal/repository"
	"github.com/maheshrc27/social-publisher/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	if cfg.AutoMigrate {
		if err := repository.Migrate(context.Background(), db); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURI,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	publishedCache := cache.NewRedisCache(rdb, cfg.PublishedCacheTTL)

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(reg)

	transactor := repository.NewTransactor(db)
	postRepo := repository.NewPostRepository(db)
	postPhotoRepo := repository.NewPostPhotoRepository(db)
	productRepo := repository.NewProductRepository(db)
	photoRepo := repository.NewPhotoRepository(db)
	publicationRepo := repository.NewPublicationRepository(db)

	var store service.ObjectStore
	if cfg.R2.Enabled() {
		r2Service, err := service.NewR2Service(context.Background(), cfg.R2)
		if err != nil {
			log.Fatalf("Failed to set up object storage: %v", err)
		}
		store = r2Service
	}

	postService := service.NewPostService(transactor, postRepo, postPhotoRepo, productRepo, photoRepo, publicationRepo, nil)
	photoService := service.NewPhotoService(photoRepo, postPhotoRepo, store)
	publicationService := service.NewPublicationService(
		publicationRepo, postRepo, postPhotoRepo, productRepo, photoRepo,
		buildRegistry(cfg),
		service.PublicationServiceConfig{
			PublishTimeout: cfg.PublishTimeout,
			Metrics:        appMetrics,
			OnPublished: func(ctx context.Context, pub *models.Publication) error {
				return publishedCache.StorePublished(ctx, pub)
			},
		},
	)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				code = fe.Code
			}
			slog.Error("unhandled request error", "path", c.Path(), "error", err)
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))
	app.Use(middleware.Metrics(appMetrics))

	authMiddleware := middleware.NewAuthMiddleware(cfg.SecretKey)

	handlers.Register(app, handlers.Routes{
		Auth:         authMiddleware.AuthMiddleware(),
		Posts:        handlers.NewPostHandler(postService, photoService),
		Publications: handlers.NewPublicationHandler(publicationService, publishedCache, client),
		Photos:       handlers.NewPhotoHandler(photoService),
		Metrics:      adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
	})

	// cron jobs
	dispatchJob := job.NewDispatchJob(publicationService, cfg.SchedBatchSize, cfg.SchedInterval*5)

	//queue
	queueW := queue.NewQueue(publicationService, cfg.SchedBatchSize)

	c := cron.New()
	if err := c.AddFunc(cfg.CronSpec(), dispatchJob.Run); err != nil {
		log.Fatalf("Invalid dispatch schedule %q: %v", cfg.CronSpec(), err)
	}
	c.Start()

	server := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: 10,
	})
	go func() {
		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypeProcessDue, queueW.HandleProcessDueTask)
		mux.HandleFunc(queue.TaskTypePublishPublication, queueW.HandlePublishPublicationTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(cfg.ServerAddress); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on %s", cfg.ServerAddress)

	gracefulShutdown(app, c, server, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, c *cron.Cron, server *asynq.Server, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	c.Stop()
	server.Shutdown()

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
