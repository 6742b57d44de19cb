package speech

import (
	"context"
	"log/slog"

	"repotalk/internal/domain"
)

// NoopInput stands in when platform recognition is unavailable. Its
// controls are inert so the consuming UI can hide or disable the toggle
// without branching.
type NoopInput struct {
	logger *slog.Logger
}

func NewNoopInput(logger *slog.Logger) *NoopInput {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopInput{logger: logger}
}

func (n *NoopInput) Start(context.Context) error {
	n.logger.Debug("speech recognition unavailable, ignoring start")
	return nil
}

func (n *NoopInput) Stop() {}

func (n *NoopInput) State() domain.ListeningState {
	return domain.ListeningStateIdle
}

// NoopOutput stands in when platform synthesis is unavailable.
type NoopOutput struct {
	logger *slog.Logger
}

func NewNoopOutput(logger *slog.Logger) *NoopOutput {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopOutput{logger: logger}
}

func (n *NoopOutput) Speak(string) {
	n.logger.Debug("speech synthesis unavailable, ignoring utterance")
}
