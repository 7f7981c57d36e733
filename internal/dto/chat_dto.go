package dto

import "ai-chatstream-be/pkg/store"

// ChatRequest is one inbound application frame on the chat sockets.
type ChatRequest struct {
	UserName         string   `json:"user_name" validate:"required"`
	SessionID        int64    `json:"session_id" validate:"required"`
	Data             string   `json:"data" validate:"required"`
	MultiTurnEnabled bool     `json:"multi_turn_chat_enabled"`
	ModelType        string   `json:"model_type"`
	ModelName        string   `json:"model_name"`
	ImageURLs        []string `json:"image_urls" validate:"max=8"`

	RagRetrieveCount int `json:"rag_retrieve_count" validate:"min=0,max=50"`
	RagRerankCount   int `json:"rag_rerank_count" validate:"min=0,max=50"`
	RagFusionCount   int `json:"rag_fusion_count" validate:"min=0,max=10"`
}

// ToTurnRequest applies the RAG defaults to unset tunables.
func (r ChatRequest) ToTurnRequest() store.TurnRequest {
	return store.TurnRequest{
		Session:       store.SessionKey{UserName: r.UserName, SessionID: r.SessionID},
		Query:         r.Data,
		ImageURLs:     r.ImageURLs,
		MultiTurn:     r.MultiTurnEnabled,
		ModelType:     r.ModelType,
		ModelName:     r.ModelName,
		RetrieveCount: orDefault(r.RagRetrieveCount, store.DefaultRetrieveCount),
		RerankCount:   orDefault(r.RagRerankCount, store.DefaultRerankCount),
		FusionCount:   orDefault(r.RagFusionCount, store.DefaultFusionCount),
	}
}

func orDefault(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

type UserNameRequest struct {
	UserName string `json:"user_name" validate:"required"`
}

type SessionRequest struct {
	UserName  string `json:"user_name" validate:"required"`
	SessionID int64  `json:"session_id" validate:"required"`
}

type HistoryMessageResponse struct {
	Role      string   `json:"role"`
	Content   string   `json:"content"`
	Images    []string `json:"images,omitempty"`
	ModelName string   `json:"model_name,omitempty"`
}

type ModelModeResponse struct {
	ModelType string   `json:"model_type"`
	Desc      string   `json:"desc"`
	Names     []string `json:"model_names"`
}
