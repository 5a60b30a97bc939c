package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	log "github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/emotion-timeline/internal/analysis"
	"github.com/codebuildervaibhav/emotion-timeline/internal/audio"
	"github.com/codebuildervaibhav/emotion-timeline/internal/cleanup"
	"github.com/codebuildervaibhav/emotion-timeline/internal/config"
	"github.com/codebuildervaibhav/emotion-timeline/internal/deps"
	"github.com/codebuildervaibhav/emotion-timeline/internal/handlers"
	"github.com/codebuildervaibhav/emotion-timeline/internal/queue"
	"github.com/codebuildervaibhav/emotion-timeline/internal/storage"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML configuration")
	flag.Parse()

	cfg, err := config.LoadOptional(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Custom logger setup
	logBuffer := NewLogBuffer(1000)
	if err := cfg.Logging.Apply(io.MultiWriter(os.Stdout, logBuffer)); err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	if err := cleanup.EnsureDirs(cfg.Storage.UploadDir, cfg.Storage.ConvertedDir, cfg.Storage.TempDir); err != nil {
		log.Fatalf("Failed to create storage directories: %v", err)
	}

	log.Println("Initializing components...")

	requirements := []deps.Requirement{deps.FFmpeg(cfg.Analysis.FFmpeg)}
	if cfg.Classifier.Backend == config.BackendCommand {
		requirements = append(requirements, deps.Requirement{
			Name:        "Classifier",
			Command:     cfg.Classifier.Command,
			Description: "Emotion model invoked once per window",
		})
	}
	if !deps.LogReport(deps.CheckBinaries(requirements)) {
		log.Fatal("Required dependencies are missing")
	}

	converted, err := storage.NewArtifactStore(cfg.Storage.ConvertedDir, cfg.Storage.MaxConvertedFiles)
	if err != nil {
		log.Fatalf("Failed to open converted audio store: %v", err)
	}
	uploads, err := storage.NewArtifactStore(cfg.Storage.UploadDir, cfg.Storage.MaxUploadFiles)
	if err != nil {
		log.Fatalf("Failed to open upload store: %v", err)
	}

	model := cfg.Classifier.Build()
	normalizer := audio.NewNormalizer(converted, cfg.Analysis.FFmpeg, cfg.Analysis.SampleRate)

	pipeline, err := analysis.NewPipeline(normalizer, model, cfg.Storage.TempDir,
		cfg.AnalysisOptions(), analysis.WithUploadRetention(uploads))
	if err != nil {
		log.Fatalf("Failed to initialize pipeline: %v", err)
	}

	// Database (optional run log)
	var (
		runLog  queue.RunLog
		runList handlers.RunLister
	)
	if cfg.Storage.Database != "" {
		db, err := storage.NewMetadataDB(cfg.Storage.Database)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()
		runLog, runList = db, db
		log.Printf("Run log enabled: %s", cfg.Storage.Database)
	}

	workerPool := queue.NewWorkerPool(cfg.Workers.Count, cfg.Workers.QueueSize, pipeline, runLog)
	workerPool.Start()
	defer workerPool.Stop()

	cleanupScheduler := cleanup.NewScheduler(
		cfg.Storage.TempDir,
		cfg.Cleanup.IntervalMinutes,
		cfg.Cleanup.MaxAgeMinutes,
	)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	app := fiber.New(fiber.Config{
		BodyLimit:             cfg.Limits.MaxFileSizeMB * 1024 * 1024,
		DisableStartupMessage: true,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{Output: io.MultiWriter(os.Stdout, logBuffer)}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	uploadHandler := handlers.NewUploadHandler(workerPool, cfg.Storage.UploadDir, cfg.Limits.MaxFileSizeMB)
	streamHandler := handlers.NewStreamHandler(workerPool, cfg.Storage.UploadDir, cfg.Limits.MaxFileSizeMB)
	statusHandler := handlers.NewStatusHandler(version, model, runList, requirements)

	// Routes
	app.Get("/health", statusHandler.Health)
	app.Get("/warmup", statusHandler.Warmup)
	app.Get("/analyses", statusHandler.Analyses)
	app.Get("/analyses/:id", statusHandler.Analysis)
	app.Post("/analyze", uploadHandler.Handle)
	app.Get("/ws/analyze", websocket.New(streamHandler.Handle))

	app.Get("/logs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"logs": logBuffer.GetLogs(),
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	log.Println("Endpoints:")
	log.Println("   POST /analyze       - Upload audio and get its emotion timeline")
	log.Println("   GET  /ws/analyze    - WebSocket upload with per-window progress")
	log.Println("   GET  /analyses      - List recent analyses")
	log.Println("   GET  /analyses/:id  - Get one analysis")
	log.Println("   GET  /warmup        - Load the emotion model")
	log.Println("   GET  /logs          - View server logs")
	log.Println("   GET  /health        - Health check")

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	if err := app.Listen(addr); err != nil {
		log.Errorf("Server failed: %v", err)
	}
}
