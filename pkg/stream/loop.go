package stream

import (
	"context"
	"errors"
	"time"

	"ai-chatstream-be/internal/pkg/logger"
	"ai-chatstream-be/pkg/store"
)

// TurnHandler runs one turn over a connection.
type TurnHandler interface {
	HandleTurn(ctx context.Context, ch EventChannel, req store.TurnRequest) TurnOutcome
}

type TurnHandlerFunc func(ctx context.Context, ch EventChannel, req store.TurnRequest) TurnOutcome

func (f TurnHandlerFunc) HandleTurn(ctx context.Context, ch EventChannel, req store.TurnRequest) TurnOutcome {
	return f(ctx, ch, req)
}

// Decoder turns an inbound frame into a request.
type Decoder func(frame string) (store.TurnRequest, error)

// ServeConnection reads frames from ch and runs them as turns, one at a
// time, until the client disconnects or ctx ends. Frames that arrived
// while a turn was running are replayed in order before reading more.
func ServeConnection(ctx context.Context, ch EventChannel, decode Decoder, handler TurnHandler, idleWait time.Duration, log logger.ILogger) error {
	if idleWait <= 0 {
		idleWait = time.Second
	}

	var queue []string
	for {
		var frame string
		if len(queue) > 0 {
			frame, queue = queue[0], queue[1:]
		} else {
			f, err := ch.ReceiveWithTimeout(ctx, idleWait)
			switch {
			case err == nil:
				frame = f
			case errors.Is(err, ErrReceiveTimeout):
				continue
			case errors.Is(err, ErrChannelClosed):
				return nil
			default:
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return err
			}
		}

		// A stop with nothing running has nothing to stop.
		if IsStopFrame(frame) {
			log.Debug(moduleName, "Ignoring stop while idle", nil)
			continue
		}

		req, err := decode(frame)
		if err != nil {
			log.Warn(moduleName, "Rejected malformed request frame", map[string]interface{}{"error": err.Error()})
			if sendErr := sendFrames(ctx, ch, ErrorEvent(StageGenerate, err).Frame(), StreamDone().Frame()); sendErr != nil {
				return nil
			}
			continue
		}

		out := handler.HandleTurn(ctx, ch, req)
		if out.Disconnected {
			return nil
		}
		queue = append(queue, out.Pending...)
	}
}

func sendFrames(ctx context.Context, ch EventChannel, frames ...string) error {
	for _, f := range frames {
		if err := ch.Send(ctx, f); err != nil {
			return err
		}
	}
	return nil
}
