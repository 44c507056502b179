package app

import (
	"macbook-agent-server/src/core/chat"
)

type ChatRequest struct {
	Message        string `json:"message" binding:"required"`
	ConversationID string `json:"conversation_id" binding:"omitempty"`
}

type CreateConversationResponse struct {
	ConversationID string `json:"conversation_id"`
}

type HistoryResponse struct {
	Messages []chat.HistoryMessage `json:"messages"`
	Total    int                   `json:"total"`
	Page     int                   `json:"page,omitempty"`
	PageSize int                   `json:"page_size,omitempty"`
}

type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

type AddFactRequest struct {
	Content  string                 `json:"content" binding:"required"`
	Metadata map[string]interface{} `json:"metadata" binding:"omitempty"`
}
