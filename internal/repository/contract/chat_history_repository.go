package contract

import (
	"context"

	"ai-chatstream-be/pkg/store"
)

// SessionSnapshot is the sidebar entry of one stored conversation.
type SessionSnapshot struct {
	UserName  string `json:"user_name"`
	SessionID int64  `json:"session_id"`
	LastMsg   string `json:"last_msg"`
}

// ChatHistoryRepository is the append-only turn log, keyed by session.
type ChatHistoryRepository interface {
	Append(ctx context.Context, session store.SessionKey, turn store.Turn) error
	// ReadOrdered returns turns in append order; a missing session is empty.
	ReadOrdered(ctx context.Context, session store.SessionKey) ([]store.Turn, error)
	// Snapshots lists a user's sessions, newest first.
	Snapshots(ctx context.Context, userName string) ([]SessionSnapshot, error)
	Delete(ctx context.Context, session store.SessionKey) error
}
