package stream

import (
	"context"
	"time"

	"ai-chatstream-be/pkg/store"
)

// TurnReport summarises a finished turn for metrics and audit events.
type TurnReport struct {
	Session       store.SessionKey
	Grounded      bool
	State         State
	Disconnected  bool
	Fragments     int
	Chars         int
	FirstFragment time.Duration
	Duration      time.Duration
	Err           string
}

type TurnObserver interface {
	TurnFinished(ctx context.Context, report TurnReport)
}

type nopObserver struct{}

func (nopObserver) TurnFinished(context.Context, TurnReport) {}
