package stream

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ai-chatstream-be/internal/constant"
)

type Stage string

const (
	StageRewrite  Stage = "rewrite"
	StageRetrieve Stage = "retrieve"
	StageRerank   Stage = "rerank"
	StageImageQA  Stage = "image_qa"
	StageGenerate Stage = "generate"
)

type EventKind int

const (
	KindStageStart EventKind = iota
	KindStageDone
	KindStreamStart
	KindStreamDone
	KindError
	KindStopAcknowledged
)

// LifecycleEvent is a progress marker sent to the client between fragments.
type LifecycleEvent struct {
	Kind    EventKind
	Stage   Stage
	Elapsed time.Duration
	Message string
}

var stageTokens = map[Stage][2]string{
	StageRewrite:  {constant.RagParseQuestionStart, constant.RagParseQuestionDone},
	StageRetrieve: {constant.RagRetrieveChunkStart, constant.RagRetrieveChunkDone},
	StageRerank:   {constant.RagRerankChunkStart, constant.RagRerankChunkDone},
	StageImageQA:  {constant.RagEventImageQAStart, constant.RagEventImageQADone},
	StageGenerate: {constant.RagEventGenerateStart, constant.CommandDoneFromServe},
}

func StageStart(stage Stage) LifecycleEvent {
	return LifecycleEvent{Kind: KindStageStart, Stage: stage}
}

func StageDone(stage Stage, elapsed time.Duration) LifecycleEvent {
	return LifecycleEvent{Kind: KindStageDone, Stage: stage, Elapsed: elapsed}
}

func StreamStart() LifecycleEvent {
	return LifecycleEvent{Kind: KindStreamStart, Stage: StageGenerate}
}

func StreamDone() LifecycleEvent {
	return LifecycleEvent{Kind: KindStreamDone, Stage: StageGenerate}
}

func StopAcknowledged() LifecycleEvent {
	return LifecycleEvent{Kind: KindStopAcknowledged, Stage: StageGenerate}
}

func ErrorEvent(stage Stage, err error) LifecycleEvent {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return LifecycleEvent{Kind: KindError, Stage: stage, Message: msg}
}

// Frame renders the event as the literal text the client expects.
func (e LifecycleEvent) Frame() string {
	switch e.Kind {
	case KindStageStart:
		return stageTokens[e.Stage][0]
	case KindStageDone:
		return stageTokens[e.Stage][1] + FormatElapsed(e.Elapsed)
	case KindStreamStart:
		return constant.CommandStreamStartFromServe
	case KindStreamDone:
		return constant.CommandDoneFromServe
	case KindStopAcknowledged:
		return constant.CommandStoppedFromServe
	case KindError:
		return constant.CommandErrorFromServe + e.Message
	default:
		return ""
	}
}

// FormatElapsed renders a duration as seconds with two decimals.
func FormatElapsed(d time.Duration) string {
	return fmt.Sprintf("%.2f", d.Seconds())
}

// IsStopFrame reports whether an inbound frame carries the stop token.
func IsStopFrame(frame string) bool {
	return strings.Contains(frame, constant.CommandStopFromClient)
}

// IsTerminalFrame reports whether an outbound frame is the terminal marker.
func IsTerminalFrame(frame string) bool {
	return frame == constant.CommandDoneFromServe
}

type followUpPayload struct {
	FollowQuestions []string `json:"follow_questions"`
}

// FollowUpFrame encodes the suggestion trailer sent after the terminal marker.
func FollowUpFrame(questions []string) string {
	if questions == nil {
		questions = []string{}
	}
	data, _ := json.Marshal(followUpPayload{FollowQuestions: questions})
	return string(data)
}
