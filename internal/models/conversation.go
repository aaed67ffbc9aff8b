package models

import "time"

// Role tags a Turn with who produced it.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
	RoleTool  Role = "tool"
)

// ToolCall is one structured request emitted by the reasoning engine.
type ToolCall struct {
	ID        string         `bson:"id"        json:"id"`
	Name      string         `bson:"name"      json:"name"`
	Arguments map[string]any `bson:"arguments" json:"arguments"`
}

// ToolResult is the engine-readable outcome of a ToolCall.
type ToolResult struct {
	CallID  string `bson:"call_id"  json:"call_id"`
	Name    string `bson:"name"     json:"name"`
	Content string `bson:"content"  json:"content"`
	IsError bool   `bson:"is_error" json:"is_error"`
}

// Turn is one role-tagged unit of conversation history.
type Turn struct {
	Role      Role        `bson:"role"                 json:"role"`
	Content   string      `bson:"content"              json:"content"`
	ToolCalls []ToolCall  `bson:"tool_calls,omitempty" json:"tool_calls,omitempty"`
	Result    *ToolResult `bson:"result,omitempty"     json:"result,omitempty"`
	MessageID string      `bson:"message_id,omitempty" json:"message_id,omitempty"`
	CreatedAt time.Time   `bson:"created_at"           json:"created_at"`
}

// Session is the conversation state owned by a SessionStore.
type Session struct {
	ID        string    `bson:"_id"        json:"id"`
	Preamble  string    `bson:"preamble"   json:"-"`
	Turns     []Turn    `bson:"turns"      json:"turns"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// AnswerFor returns the model answer that followed the user turn carrying
// messageID, if that message was already processed.
func (s Session) AnswerFor(messageID string) (string, bool) {
	if messageID == "" {
		return "", false
	}
	for i := len(s.Turns) - 1; i >= 0; i-- {
		if s.Turns[i].Role != RoleUser || s.Turns[i].MessageID != messageID {
			continue
		}
		for _, t := range s.Turns[i+1:] {
			if t.Role == RoleUser {
				return "", false
			}
			if t.Role == RoleModel && len(t.ToolCalls) == 0 {
				return t.Content, true
			}
		}
		return "", false
	}
	return "", false
}
