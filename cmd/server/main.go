package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/postforge/autoposter/configs"
	"github.com/postforge/autoposter/internal/api/handlers"
	"github.com/postforge/autoposter/internal/api/middleware"
	job "github.com/postforge/autoposter/internal/jobs"
	"github.com/postforge/autoposter/internal/queue"
	"github.com/postforge/autoposter/internal/repository"
	"github.com/postforge/autoposter/internal/service"
	"github.com/postforge/autoposter/internal/transfer"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	postRepo := repository.NewPostRepository(db)
	seriesRepo := repository.NewSeriesRepository(db)
	ideaRepo := repository.NewIdeaRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	attemptRepo := repository.NewPublishAttemptRepository(db)

	authService := service.NewAuthService(*cfg, userRepo, profileRepo)
	userService := service.NewUserService(userRepo)
	storageService := service.NewR2Service(*cfg)
	geminiService := service.NewGeminiService(*cfg)
	linkedinService := service.NewLinkedinService(*cfg, profileRepo)
	notifierService := service.NewNotifierService(client)
	topicService := service.NewTopicService(ideaRepo, seriesRepo)
	plannerService := service.NewPlannerService(*cfg, postRepo, profileRepo, topicService)
	generatorService := service.NewGeneratorService(*cfg, postRepo, profileRepo, seriesRepo, templateRepo, geminiService, storageService, notifierService)
	cutoffService := service.NewCutoffService(postRepo, notifierService)
	publisherService := service.NewPublisherService(postRepo, profileRepo, seriesRepo, attemptRepo, linkedinService, notifierService)
	postService := service.NewPostService(postRepo, attemptRepo, storageService)
	profileService := service.NewProfileService(profileRepo)
	seriesService := service.NewSeriesService(seriesRepo, templateRepo)
	ideaService := service.NewIdeaService(ideaRepo, seriesRepo)
	templateService := service.NewTemplateService(templateRepo)
	notificationService := service.NewNotificationService(notificationRepo)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	auth := handlers.NewAuthHandler(*cfg, authService)
	app.Get("/login", auth.Login)
	app.Get("/login/callback", auth.LoginCallbackHandler)
	app.Get("/logout", auth.Logout)

	linkedin := handlers.NewLinkedinHandler(*cfg, linkedinService)
	app.Get("/auth/linkedin", linkedin.ConnectLinkedin)
	app.Get("/auth/linkedin/callback", linkedin.LinkedinCallbackHandler)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	user := handlers.NewUserHandler(*cfg, userService)
	api.Get("/user/info", user.GetUserInfo)
	api.Post("/user/remove", user.RemoveUser)

	api.Post("/accounts/linkedin/disconnect", linkedin.Disconnect)

	profile := handlers.NewProfileHandler(profileService)
	api.Get("/profile/info", profile.GetProfile)
	api.Post("/profile/update", profile.UpdateProfile)

	post := handlers.NewPostHandler(postService, plannerService, generatorService, publisherService)
	api.Post("/posts/schedule", post.SchedulePost)
	api.Post("/posts/instant", post.InstantPost)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/approve", post.ApprovePost)
	api.Post("/posts/reject", post.RejectPost)
	api.Post("/posts/retry", post.RetryPost)
	api.Post("/posts/regenerate", post.RegeneratePost)
	api.Get("/posts/attempts", post.PostAttempts)
	api.Post("/posts/remove", post.RemovePost)

	series := handlers.NewSeriesHandler(seriesService)
	api.Post("/series/new", series.CreateSeries)
	api.Get("/series", series.ListSeries)
	api.Post("/series/update", series.UpdateSeries)
	api.Post("/series/remove", series.RemoveSeries)

	idea := handlers.NewIdeaHandler(ideaService)
	api.Post("/ideas/new", idea.CreateIdea)
	api.Get("/ideas", idea.ListIdeas)
	api.Post("/ideas/remove", idea.RemoveIdea)

	template := handlers.NewTemplateHandler(templateService)
	api.Post("/templates/new", template.CreateTemplate)
	api.Get("/templates", template.ListTemplates)
	api.Post("/templates/remove", template.RemoveTemplate)

	notification := handlers.NewNotificationHandler(notificationService)
	api.Get("/notifications", notification.ListNotifications)
	api.Post("/notifications/read", notification.MarkRead)

	sweeps := handlers.NewSweepHandler(plannerService, generatorService, cutoffService, publisherService)
	internal := app.Group("/internal/sweeps")
	internal.Use(authMiddleware.CronMiddleware())
	internal.Post("/schedule", sweeps.ScheduleSweep)
	internal.Post("/generate", sweeps.GenerateSweep)
	internal.Post("/cutoff", sweeps.CutoffSweep)
	internal.Post("/publish", sweeps.PublishSweep)

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(profileRepo, linkedinService)

	//queue
	queueW := queue.NewQueue(*cfg, notificationRepo, userRepo)

	c := cron.New()
	c.AddFunc("@every 00h10m00s", refreshTokenJob.RefreshTokens)
	if cfg.EnableScheduler {
		c.AddFunc("@every 00h30m00s", runSweep("schedule", plannerService.RunSweep))
		c.AddFunc("@every 00h05m00s", runSweep("generate", generatorService.RunSweep))
		c.AddFunc("@every 00h05m00s", runSweep("cutoff", cutoffService.RunSweep))
		c.AddFunc("@every 00h05m00s", runSweep("publish", publisherService.RunSweep))
	}
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypeNotify, queueW.HandleNotifyTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on http://localhost:%s", cfg.Port)

	gracefulShutdown(app, db)
}

func runSweep(kind string, sweep func(context.Context) (*transfer.SweepResult, error)) func() {
	return func() {
		result, err := sweep(context.Background())
		if err != nil {
			log.Printf("Sweep %s failed: %v", kind, err)
			return
		}
		log.Printf("Sweep %s: run=%s processed=%d skipped=%d", kind, result.RunID, result.Processed, result.Skipped)
	}
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
