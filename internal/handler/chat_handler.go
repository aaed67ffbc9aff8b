package handler

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/gofiber/fiber/v2"

	"github.com/ahmednasr/recruiter-bot/internal/models"
	"github.com/ahmednasr/recruiter-bot/internal/service"
)

// ChatHandler wires HTTP → ChatService.
type ChatHandler struct {
	svc     service.ChatService
	timeout time.Duration
}

// NewChatHandler returns a struct pointer so you can call Register on it.
// A positive timeout bounds every turn.
func NewChatHandler(svc service.ChatService, timeout time.Duration) *ChatHandler {
	return &ChatHandler{svc: svc, timeout: timeout}
}

// Register mounts the chat and session endpoints on the supplied router group.
func (h *ChatHandler) Register(r fiber.Router) {
	r.Post("/chat", h.chat)
	r.Get("/sessions/:id", h.history)
	r.Delete("/sessions/:id", h.reset)
}

// chat handles POST /chat  { "conversation_id": "...", "message": "...", "message_id": "..." }
// With ?format=plain the answer has Markdown markers removed.
func (h *ChatHandler) chat(c *fiber.Ctx) error {
	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
	}
	req.ConversationID = strings.TrimSpace(req.ConversationID)
	if req.ConversationID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "conversation_id is required")
	}
	if strings.TrimSpace(req.Message) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "message is required")
	}

	ctx := c.UserContext()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	ans, err := h.svc.Ask(ctx, req.ConversationID, req.MessageID, req.Message)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrEmptyMessage):
		return fiber.NewError(fiber.StatusBadRequest, "message is required")
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusGatewayTimeout, "analysis took too long, please try again")
	case ans.Text != "":
		// the apology is a valid answer for the user
		log.Printf("[Chat Handler] %s: %v", req.ConversationID, err)
	default:
		log.Printf("[Chat Handler] %s: %v", req.ConversationID, err)
		return fiber.NewError(fiber.StatusInternalServerError, "unable to process the message")
	}

	answer := ans.Text
	if c.Query("format") == "plain" {
		answer = PlainText(answer)
	}
	return c.JSON(models.ChatResponse{
		ConversationID: req.ConversationID,
		Answer:         answer,
		Subject:        ans.Subject.String(),
	})
}

// history handles GET /sessions/:id
func (h *ChatHandler) history(c *fiber.Ctx) error {
	id := c.Params("id")
	entries, err := h.svc.History(c.UserContext(), id)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{
		"conversation_id": id,
		"turns":           entries,
	})
}

// reset handles DELETE /sessions/:id
func (h *ChatHandler) reset(c *fiber.Ctx) error {
	if err := h.svc.Reset(c.UserContext(), c.Params("id")); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(fiber.StatusNoContent)
}
