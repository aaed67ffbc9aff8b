package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmednasr/recruiter-bot/internal/github"
)

// Pinger is implemented by session backends that talk to a database.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	quota *github.Quota
	store Pinger // nil for the in-memory store
}

func NewHealthHandler(quota *github.Quota, store Pinger) *HealthHandler {
	return &HealthHandler{quota: quota, store: store}
}

func (h *HealthHandler) Register(r fiber.Router) {
	r.Get("/health", h.health)
}

func (h *HealthHandler) health(c *fiber.Ctx) error {
	status := fiber.Map{
		"status":   "ok",
		"sessions": h.checkStore(c.UserContext()),
	}
	if h.quota != nil {
		status["github_quota"] = h.quota.Snapshot()
	}
	return c.JSON(status)
}

func (h *HealthHandler) checkStore(ctx context.Context) string {
	if h.store == nil {
		return "memory"
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		return "error"
	}
	return "connected"
}
