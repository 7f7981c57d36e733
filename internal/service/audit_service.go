package service

import (
	"context"
	"time"

	"ai-chatstream-be/internal/pkg/logger"
	"ai-chatstream-be/pkg/events"
	"ai-chatstream-be/pkg/stream"
)

const publishTimeout = 2 * time.Second

// TurnMetrics is the metrics sink of the audit service.
type TurnMetrics interface {
	ObserveTurn(kind, outcome string, fragments int, firstFragment, duration time.Duration)
	ObserveStage(stage string, elapsed time.Duration, failed bool)
}

// EventPublisher puts events on the bus. *nats.Publisher satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// AuditService records every finished turn and pipeline stage as metrics
// and publishes a turn-completed event when a bus is connected.
type AuditService struct {
	metrics   TurnMetrics
	publisher EventPublisher
	logger    logger.ILogger
	now       func() time.Time
}

func NewAuditService(metrics TurnMetrics, publisher EventPublisher, log logger.ILogger) *AuditService {
	return &AuditService{
		metrics:   metrics,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

func (a *AuditService) TurnFinished(ctx context.Context, report stream.TurnReport) {
	kind := "chat"
	if report.Grounded {
		kind = "rag"
	}
	outcome := report.State.String()
	if report.Disconnected {
		outcome = "disconnected"
	}

	a.metrics.ObserveTurn(kind, outcome, report.Fragments, report.FirstFragment, report.Duration)

	if a.publisher == nil {
		return
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err := a.publisher.Publish(pctx, events.TurnCompleted{
		UserName:     report.Session.UserName,
		SessionID:    report.Session.SessionID,
		Kind:         kind,
		Outcome:      outcome,
		Disconnected: report.Disconnected,
		Fragments:    report.Fragments,
		Chars:        report.Chars,
		DurationMs:   report.Duration.Milliseconds(),
		Error:        report.Err,
		OccurredAt:   a.now(),
	})
	if err != nil {
		a.logger.Warn("Audit", "Failed to publish turn event", map[string]interface{}{
			"session": report.Session.String(),
			"error":   err.Error(),
		})
	}
}

func (a *AuditService) StageFinished(stage stream.Stage, elapsed time.Duration, err error) {
	a.metrics.ObserveStage(string(stage), elapsed, err != nil)
}
