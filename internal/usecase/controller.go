package usecase

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"

	"repotalk/internal/domain"
	"repotalk/internal/ports"
)

var (
	ErrEmptyRepoURL   = errors.New("repository URL must not be empty")
	ErrInvalidRepoURL = errors.New("repository URL must be an absolute http(s) URL")
	ErrEmptyMessage   = errors.New("message must not be empty")
	ErrNotReady       = errors.New("no repository is ready for chat")
)

// SessionController owns the single Session and its conversation log. It is
// the only component that mutates them; speech adapters and the UI reach it
// through Ingest and Submit.
//
// Status doubles as the mutual-exclusion mechanism: Ingesting and
// ChatPending block new submissions of the same kind but never cancel an
// outstanding request. A fresh ingestion supersedes whatever is in flight;
// the generation counter makes stale resolutions fall on the floor.
type SessionController struct {
	gateway ports.RequestGateway
	speaker ports.SpeechOutput
	events  ports.EventSink

	mu         sync.Mutex
	session    domain.Session
	log        conversationLog
	generation uint64
}

func NewSessionController(gateway ports.RequestGateway, speaker ports.SpeechOutput, events ports.EventSink) *SessionController {
	return &SessionController{
		gateway: gateway,
		speaker: speaker,
		events:  events,
		session: domain.Session{Status: domain.SessionStatusIdle},
	}
}

// Ingest starts a fresh ingestion of repoURL, superseding any in-flight or
// completed one. A validation failure is rejected before any state changes.
// On success the conversation is reseeded with a welcome turn and the
// session becomes chat-capable; on failure the session is fatal-errored
// until the user resubmits.
func (c *SessionController) Ingest(ctx context.Context, repoURL string) error {
	trimmed := strings.TrimSpace(repoURL)
	if trimmed == "" {
		return ErrEmptyRepoURL
	}
	if !looksLikeRepoURL(trimmed) {
		return ErrInvalidRepoURL
	}

	c.mu.Lock()
	c.generation++
	generation := c.generation
	c.session = domain.Session{RepoURL: trimmed, Status: domain.SessionStatusIngesting}
	snapshot := c.session
	c.mu.Unlock()

	c.events.SessionChanged(snapshot)

	_, err := c.gateway.Ingest(ctx, trimmed)

	c.mu.Lock()
	if generation != c.generation {
		// A newer ingestion took over while this one was in flight.
		c.mu.Unlock()
		return nil
	}

	if err != nil {
		c.session = domain.Session{Status: domain.SessionStatusError, ErrorMessage: err.Error()}
		snapshot = c.session
		c.mu.Unlock()
		c.events.SessionChanged(snapshot)
		return err
	}

	c.log = conversationLog{}
	c.log.append(domain.RoleAssistant, welcomeMessage(trimmed))
	c.session = domain.Session{RepoURL: trimmed, Status: domain.SessionStatusReady}
	snapshot = c.session
	seeded := c.log.snapshot()
	c.mu.Unlock()

	c.events.ConversationReset(seeded)
	c.events.SessionChanged(snapshot)
	return nil
}

// Submit sends one chat turn. The user message is appended optimistically
// before the backend round trip; a failed ask leaves it orphaned in the log
// and the session stays chat-capable.
func (c *SessionController) Submit(ctx context.Context, text string) error {
	trimmed := strings.TrimSpace(text)

	c.mu.Lock()
	if c.session.Status != domain.SessionStatusReady {
		c.mu.Unlock()
		return ErrNotReady
	}
	if trimmed == "" {
		c.mu.Unlock()
		return ErrEmptyMessage
	}

	generation := c.generation
	repoURL := c.session.RepoURL
	c.session.Status = domain.SessionStatusChatPending
	userTurn := c.log.append(domain.RoleUser, trimmed)
	snapshot := c.session
	c.mu.Unlock()

	c.events.MessageAppended(userTurn)
	c.events.SessionChanged(snapshot)

	reply, err := c.gateway.Ask(ctx, trimmed, repoURL)

	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		return nil
	}

	if err != nil {
		c.session.Status = domain.SessionStatusReady
		c.session.ErrorMessage = err.Error()
		snapshot = c.session
		c.mu.Unlock()
		c.events.SessionChanged(snapshot)
		return err
	}

	c.session.Status = domain.SessionStatusReady
	c.session.ErrorMessage = ""
	assistantTurn := c.log.append(domain.RoleAssistant, reply)
	snapshot = c.session
	c.mu.Unlock()

	c.events.MessageAppended(assistantTurn)
	c.events.SessionChanged(snapshot)
	c.speaker.Speak(reply)
	return nil
}

// SubmitTranscript feeds a recognized voice transcript through the same
// path as typed text. Outcomes surface on the session snapshot, so the
// error return is intentionally dropped here.
func (c *SessionController) SubmitTranscript(ctx context.Context, text string) {
	_ = c.Submit(ctx, text)
}

// Session returns the current session snapshot.
func (c *SessionController) Session() domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Conversation returns a copy of the conversation log in turn order.
func (c *SessionController) Conversation() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.log.snapshot()
}

// LastAssistantReply returns the most recent assistant turn, if any.
func (c *SessionController) LastAssistantReply() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.log.messages) - 1; i >= 0; i-- {
		if c.log.messages[i].Role == domain.RoleAssistant {
			return c.log.messages[i].Content, true
		}
	}
	return "", false
}

func looksLikeRepoURL(candidate string) bool {
	parsed, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	return parsed.Host != ""
}
