package models

// ChatRequest is the payload for POST /chat.
type ChatRequest struct {
	ConversationID string `json:"conversation_id"` // one per chat
	Message        string `json:"message"`         // user’s natural‑language text
	MessageID      string `json:"message_id"`      // optional; repeats return the cached answer
}

// ChatResponse is returned from POST /chat.
type ChatResponse struct {
	ConversationID string `json:"conversation_id"`
	Answer         string `json:"answer"`
	Subject        string `json:"subject,omitempty"` // detected GitHub handle, if any
}

// HistoryEntry is the public view of a Turn.
type HistoryEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
