package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ahmednasr/recruiter-bot/internal/service"
)

// Catalog lists the tools exposed to the reasoning engine.
type Catalog interface {
	Specs() []service.ToolSpec
}

// ToolsHandler publishes the tool wire contract.
type ToolsHandler struct {
	catalog Catalog
}

func NewToolsHandler(catalog Catalog) *ToolsHandler {
	return &ToolsHandler{catalog: catalog}
}

func (h *ToolsHandler) Register(r fiber.Router) {
	r.Get("/tools", h.list)
}

// list handles GET /tools
func (h *ToolsHandler) list(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"tools": h.catalog.Specs()})
}
