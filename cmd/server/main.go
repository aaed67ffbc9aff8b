package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ahmednasr/recruiter-bot/internal/app"
	"github.com/ahmednasr/recruiter-bot/internal/config"
	"github.com/ahmednasr/recruiter-bot/internal/handler"
	"github.com/ahmednasr/recruiter-bot/internal/middleware"
	"github.com/ahmednasr/recruiter-bot/internal/telemetry"
)

// main is the single entry-point for the chat API.
func main() {
	cfg := config.Load()
	log.Printf("Configuration loaded:")
	log.Printf("  - Session backend: %s", cfg.SessionBackend)
	log.Printf("  - Model: %s (%s)", cfg.Model, cfg.Location)
	log.Printf("  - Working language: %s", cfg.Language)
	log.Printf("  - Max tool rounds: %d", cfg.MaxToolRounds)
	log.Printf("  - Telemetry exporter: %s", cfg.TelemetryExporter)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Options{
		Exporter:       cfg.TelemetryExporter,
		MetricInterval: cfg.MetricInterval,
	})
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	defer func() {
		// flush with a fresh deadline; ctx is already cancelled on shutdown
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			log.Printf("Telemetry shutdown: %v", err)
		}
	}()

	engine, err := app.NewVertex(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize Vertex AI engine: %v", err)
	}
	defer engine.Close()

	core, err := app.New(ctx, cfg, engine)
	if err != nil {
		log.Fatalf("Failed to initialize core: %v", err)
	}
	defer core.Close()

	srv := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	srv.Use(recover.New())
	srv.Use(middleware.Logging())

	handler.RegisterRoutes(srv, core.Chat, core.Tools, cfg.TurnTimeout)
	handler.NewHealthHandler(core.Quota, core.StorePinger).Register(srv)

	go func() {
		<-ctx.Done()
		log.Printf("Shutting down")
		_ = srv.Shutdown()
	}()

	log.Printf("Server starting on port %s", cfg.Port)
	if err := srv.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
