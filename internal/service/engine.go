package service

import (
	"context"

	"github.com/ahmednasr/recruiter-bot/internal/models"
)

// Engine is the reasoning engine seen as an opaque function-calling oracle:
// given the fixed preamble, the full history and the tool catalog it either
// answers in text or asks for tool calls.
type Engine interface {
	Respond(ctx context.Context, req EngineRequest) (EngineReply, error)
}

// EngineRequest is everything the engine sees for one call.
type EngineRequest struct {
	Preamble string
	History  []models.Turn
	Tools    []ToolSpec
}

// EngineReply is either a final answer (no Calls) or a round of tool calls.
type EngineReply struct {
	Text  string
	Calls []models.ToolCall
}
