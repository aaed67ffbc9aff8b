package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmednasr/recruiter-bot/internal/service"
)

// RegisterRoutes mounts the versioned API.
func RegisterRoutes(app *fiber.App,
	chatSvc service.ChatService,
	catalog Catalog,
	turnTimeout time.Duration,
) {
	v1 := app.Group("/api/v1")
	NewChatHandler(chatSvc, turnTimeout).Register(v1)
	NewToolsHandler(catalog).Register(v1)
}
