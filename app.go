package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"repotalk/internal/bootstrap"
	"repotalk/internal/config"
	"repotalk/internal/domain"
	"repotalk/internal/ports"
	"repotalk/internal/speech"
	"repotalk/internal/usecase"
)

const (
	eventSession    = "repotalk:session"
	eventMessage    = "repotalk:message"
	eventReset      = "repotalk:reset"
	eventListening  = "repotalk:listening"
	eventDiagnostic = "repotalk:diagnostic"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	controller *usecase.SessionController
	input      ports.SpeechInput
	output     ports.SpeechOutput
	clipboard  ports.Clipboard
	capability domain.SpeechCapability
	cfg        config.Config
	bootErr    error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.clipboard = wailsClipboard{}

	services, err := bootstrap.Build(a, appLogger())
	if err != nil {
		a.bootErr = err
		a.Diagnostic(domain.DiagnosticCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.controller = services.Controller
	a.input = services.Input
	a.output = services.Output
	a.capability = services.Capability
	a.SessionChanged(a.controller.Session())
}

// IngestRepo starts analysing a repository. It blocks until the backend
// finishes, so the frontend should rely on session events for progress.
func (a *App) IngestRepo(repoURL string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.controller.Ingest(a.ctx, repoURL); err != nil {
		return errors.New(submissionMessage(err))
	}
	return nil
}

// SendMessage submits a typed chat message.
func (a *App) SendMessage(text string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.controller.Submit(a.ctx, text); err != nil {
		return errors.New(submissionMessage(err))
	}
	return nil
}

// ToggleVoice starts voice capture, or stops it when already listening.
func (a *App) ToggleVoice() (domain.ListeningState, error) {
	if err := a.requireReady(); err != nil {
		return domain.ListeningStateIdle, err
	}
	if a.input.State() == domain.ListeningStateListening {
		a.input.Stop()
		return domain.ListeningStateIdle, nil
	}
	if err := a.input.Start(a.ctx); err != nil {
		if errors.Is(err, speech.ErrAlreadyListening) {
			return domain.ListeningStateListening, nil
		}
		a.Diagnostic(domain.DiagnosticCodeRecognition, err.Error())
		return domain.ListeningStateIdle, err
	}
	return domain.ListeningStateListening, nil
}

// GetSession returns the current session snapshot.
func (a *App) GetSession() domain.Session {
	if a.controller == nil {
		if a.bootErr != nil {
			return domain.Session{Status: domain.SessionStatusError, ErrorMessage: a.bootErr.Error()}
		}
		return domain.Session{Status: domain.SessionStatusIdle}
	}
	return a.controller.Session()
}

// GetConversation returns the full conversation history in order.
func (a *App) GetConversation() []domain.Message {
	if a.controller == nil {
		return nil
	}
	return a.controller.Conversation()
}

// GetCapabilities reports which speech features this platform supports.
func (a *App) GetCapabilities() domain.SpeechCapability {
	return a.capability
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"backend":       a.cfg.Backend.BaseURL,
		"speechModel":   a.cfg.Deepgram.Model,
		"speechCommand": a.cfg.Synth.Command,
		"rulesFile":     a.cfg.Rules.Path,
		"audioInput":    a.cfg.Audio.InputDevice,
	}
}

// CopyLastReply places the most recent assistant reply on the clipboard.
func (a *App) CopyLastReply() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	reply, ok := a.controller.LastAssistantReply()
	if !ok {
		return errors.New("No assistant reply to copy yet")
	}
	if err := a.clipboard.SetText(a.ctx, reply); err != nil {
		a.Diagnostic(domain.DiagnosticCodeClipboard, err.Error())
		return errors.New("Clipboard write failed")
	}
	return nil
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// shutdown drains the speech output queue so short final utterances are
// not cut off.
func (a *App) shutdown(ctx context.Context) {
	if a.output == nil {
		return
	}
	if closer, ok := a.output.(interface{ Close() }); ok {
		closer.Close()
	}
}

// SessionChanged emits session lifecycle updates to the frontend.
func (a *App) SessionChanged(session domain.Session) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSession, session)
}

// MessageAppended emits a newly recorded conversation entry.
func (a *App) MessageAppended(message domain.Message) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventMessage, message)
}

// ConversationReset replaces the frontend transcript with the seeded
// conversation, typically the welcome turn after an ingestion.
func (a *App) ConversationReset(messages []domain.Message) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventReset, messages)
}

// ListeningChanged emits microphone state transitions.
func (a *App) ListeningChanged(state domain.ListeningState) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventListening, map[string]string{"state": string(state)})
}

// Diagnostic emits non-fatal operational problems to the UI.
func (a *App) Diagnostic(code domain.DiagnosticCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventDiagnostic, map[string]string{
		"code":    string(code),
		"message": diagnosticMessage(code, detail),
		"detail":  detail,
	})
}

// submissionMessage maps controller validation errors to the inline
// text the UI shows next to the offending form.
func submissionMessage(err error) string {
	switch {
	case errors.Is(err, usecase.ErrEmptyRepoURL):
		return "Enter a repository URL first"
	case errors.Is(err, usecase.ErrInvalidRepoURL):
		return "That does not look like a valid http(s) repository URL"
	case errors.Is(err, usecase.ErrEmptyMessage):
		return "Type a question before sending"
	case errors.Is(err, usecase.ErrNotReady):
		return "Ingest a repository before asking questions"
	default:
		return err.Error()
	}
}

func diagnosticMessage(code domain.DiagnosticCode, detail string) string {
	switch code {
	case domain.DiagnosticCodeStartup:
		return "Startup failed"
	case domain.DiagnosticCodeRecognition:
		return "Voice recognition issue"
	case domain.DiagnosticCodeSynthesis:
		return "Speech playback issue"
	case domain.DiagnosticCodeClipboard:
		return "Clipboard write failed"
	default:
		if detail != "" {
			return detail
		}
		return "Unknown error"
	}
}

// wailsClipboard writes through the Wails runtime clipboard API.
type wailsClipboard struct{}

func (wailsClipboard) SetText(ctx context.Context, text string) error {
	return runtime.ClipboardSetText(ctx, text)
}

func appLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}
