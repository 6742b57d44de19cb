package speech

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"repotalk/internal/domain"
	"repotalk/internal/ports"
)

var ErrAlreadyListening = errors.New("a voice capture is already active")

// InputConfig carries the capture and recognition settings for one-shot
// voice input.
type InputConfig struct {
	Capture      ports.CaptureConfig
	Recognition  ports.RecognitionConfig
	ChunkSize    int
	MaxUtterance time.Duration
}

// InputAdapter is the capability-gated voice capture toggle. A capture is
// single-shot: the first final transcript ends it, is passed through the
// rewriter and handed to the sink, and the adapter returns to idle on its
// own. Recognition failures are diagnostic-only and never reach the
// conversation log.
type InputAdapter struct {
	capture    ports.MicCapture
	recognizer ports.Recognizer
	rewriter   ports.TranscriptRewriter
	sink       ports.TranscriptSink
	events     ports.EventSink
	logger     *slog.Logger
	cfg        InputConfig

	mu         sync.Mutex
	state      domain.ListeningState
	cancel     context.CancelFunc
	generation uint64
}

func NewInputAdapter(
	capture ports.MicCapture,
	recognizer ports.Recognizer,
	rewriter ports.TranscriptRewriter,
	sink ports.TranscriptSink,
	events ports.EventSink,
	logger *slog.Logger,
	cfg InputConfig,
) *InputAdapter {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &InputAdapter{
		capture:    capture,
		recognizer: recognizer,
		rewriter:   rewriter,
		sink:       sink,
		events:     events,
		logger:     logger,
		cfg:        cfg,
		state:      domain.ListeningStateIdle,
	}
}

// Start begins a single-shot capture. A second Start while listening is
// rejected; captures are never layered.
func (a *InputAdapter) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.state == domain.ListeningStateListening {
		a.mu.Unlock()
		return ErrAlreadyListening
	}

	captureCtx, cancel := a.captureContext(ctx)
	a.generation++
	generation := a.generation
	a.state = domain.ListeningStateListening
	a.cancel = cancel
	a.mu.Unlock()

	session, err := a.recognizer.Recognize(captureCtx, a.cfg.Recognition)
	if err != nil {
		a.abandon(generation, cancel)
		return err
	}

	mic, err := a.capture.Open(captureCtx, a.cfg.Capture)
	if err != nil {
		_ = session.Close()
		a.abandon(generation, cancel)
		return err
	}

	// A Stop may have landed while the session was opening; publishing
	// the listening event under the lock keeps it ordered against the
	// idle event Stop already emitted.
	a.mu.Lock()
	if a.generation != generation {
		a.mu.Unlock()
		cancel()
		_ = mic.Stop()
		_ = session.Close()
		return nil
	}
	a.events.ListeningChanged(domain.ListeningStateListening)
	a.mu.Unlock()

	go a.run(generation, cancel, mic, session)
	return nil
}

// Stop ends an active capture without emitting a transcript.
func (a *InputAdapter) Stop() {
	a.mu.Lock()
	if a.state != domain.ListeningStateListening {
		a.mu.Unlock()
		return
	}
	a.generation++
	a.state = domain.ListeningStateIdle
	cancel := a.cancel
	a.cancel = nil
	a.events.ListeningChanged(domain.ListeningStateIdle)
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// State reports the current listening state.
func (a *InputAdapter) State() domain.ListeningState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *InputAdapter) captureContext(parent context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.MaxUtterance > 0 {
		return context.WithTimeout(parent, a.cfg.MaxUtterance)
	}
	return context.WithCancel(parent)
}

// run bridges the capture into the recognition session and waits for the
// first transcript. The underlying capture ends itself after one result.
func (a *InputAdapter) run(generation uint64, cancel context.CancelFunc, mic ports.CaptureSession, session ports.RecognitionSession) {
	pumpDone := make(chan struct{})
	go pumpCapture(mic, session, a.cfg.ChunkSize, pumpDone)

	transcript, ok := <-session.Results()

	cancel()
	_ = mic.Stop()
	_ = session.Close()
	<-pumpDone

	if !a.claimFinish(generation, true) {
		// Stopped or restarted while resolving; emit nothing.
		return
	}

	if !ok {
		if err := session.Err(); err != nil {
			a.logger.Warn("voice capture ended without transcript", "error", err)
			a.events.Diagnostic(domain.DiagnosticCodeRecognition, err.Error())
		}
		return
	}

	text := transcript
	if a.rewriter != nil {
		rewritten, err := a.rewriter.Rewrite(transcript)
		if err != nil {
			a.logger.Warn("transcript rewrite failed, using raw text", "error", err)
		} else {
			text = rewritten
		}
	}

	if strings.TrimSpace(text) == "" {
		return
	}
	a.sink.SubmitTranscript(context.Background(), text)
}

// claimFinish transitions this capture back to idle unless a Stop or a
// newer Start already took ownership of the state. The idle event is
// published under the lock so it cannot interleave out of order with
// Stop or a fresh Start.
func (a *InputAdapter) claimFinish(generation uint64, notify bool) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.generation != generation {
		return false
	}
	a.state = domain.ListeningStateIdle
	a.cancel = nil
	if notify {
		a.events.ListeningChanged(domain.ListeningStateIdle)
	}
	return true
}

func (a *InputAdapter) abandon(generation uint64, cancel context.CancelFunc) {
	cancel()
	_ = a.claimFinish(generation, false)
}

func pumpCapture(mic ports.CaptureSession, session ports.RecognitionSession, chunkSize int, done chan struct{}) {
	defer close(done)

	buf := make([]byte, chunkSize)
	for {
		n, err := mic.Read(buf)
		if n > 0 {
			if sendErr := session.SendAudio(buf[:n]); sendErr != nil {
				return
			}
		}
		if err != nil {
			_ = session.Finish()
			return
		}
	}
}
