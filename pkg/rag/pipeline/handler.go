package pipeline

import (
	"context"

	"ai-chatstream-be/pkg/store"
	"ai-chatstream-be/pkg/stream"
)

// TurnHandler runs a knowledge-grounded turn: preparation, then generation
// over the prepared nodes with the resolved question.
type TurnHandler struct {
	pipeline   *Pipeline
	controller *stream.Controller
}

func NewTurnHandler(p *Pipeline, c *stream.Controller) *TurnHandler {
	return &TurnHandler{pipeline: p, controller: c}
}

func (h *TurnHandler) HandleTurn(ctx context.Context, ch stream.EventChannel, req store.TurnRequest) stream.TurnOutcome {
	res, err := h.pipeline.Prepare(ctx, ch, req)
	return h.controller.RunTurn(ctx, ch, stream.Turn{
		Request:    req,
		Grounded:   true,
		Nodes:      res.Nodes,
		Prompt:     res.Query,
		PrepareErr: err,
	})
}
