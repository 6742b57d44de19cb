package ports

import (
	"context"
	"io"

	"repotalk/internal/domain"
)

// RequestGateway abstracts the two backend operations. Both are single
// attempt: no internal retry, no caching, no local state. All session and
// log mutation happens in the controller once a call resolves.
type RequestGateway interface {
	Ingest(ctx context.Context, repoURL string) (domain.IngestResult, error)
	Ask(ctx context.Context, message string, repoURL string) (string, error)
}

// SpeechInput is the capability-gated voice capture toggle. Start begins a
// single-shot capture: the first final transcript is handed to the sink and
// the adapter returns to idle on its own. Stop ends a capture without
// emitting anything.
type SpeechInput interface {
	Start(ctx context.Context) error
	Stop()
	State() domain.ListeningState
}

// TranscriptSink receives recognized voice transcripts. The controller's
// submit path implements this; a transcript behaves exactly like typed text.
type TranscriptSink interface {
	SubmitTranscript(ctx context.Context, text string)
}

// SpeechOutput vocalizes assistant replies. Speak is fire-and-forget:
// utterances queue in call order and no completion signal is consumed.
type SpeechOutput interface {
	Speak(text string)
}

// Synthesizer turns one utterance into audible speech, blocking until the
// platform finishes or fails.
type Synthesizer interface {
	Say(ctx context.Context, text string) error
}

// CaptureSession is a live microphone capture.
type CaptureSession interface {
	io.ReadCloser
	Stop() error
}

// CaptureConfig describes how the microphone should be recorded.
type CaptureConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// MicCapture opens microphone capture sessions.
type MicCapture interface {
	Open(ctx context.Context, cfg CaptureConfig) (CaptureSession, error)
}

// RecognitionConfig describes provider-agnostic recognition settings for a
// single utterance.
type RecognitionConfig struct {
	SampleRate int
	Channels   int
	Encoding   string
}

// RecognitionSession is an active single-utterance recognition stream.
// Results carries transcript texts; the channel closes when the provider
// ends the utterance or fails, after which Err reports the outcome.
type RecognitionSession interface {
	SendAudio(chunk []byte) error
	Finish() error
	Results() <-chan string
	Err() error
	Close() error
}

// Recognizer opens single-utterance recognition sessions.
type Recognizer interface {
	Recognize(ctx context.Context, cfg RecognitionConfig) (RecognitionSession, error)
}

// TranscriptRewriter normalizes recognized transcripts before submission.
type TranscriptRewriter interface {
	Rewrite(text string) (string, error)
}

// Clipboard writes text into the system clipboard.
type Clipboard interface {
	SetText(ctx context.Context, text string) error
}

// EventSink pushes controller and speech state to the UI. Implementations
// must be safe for concurrent use; callbacks from independent event sources
// interleave in arrival order only.
type EventSink interface {
	SessionChanged(session domain.Session)
	MessageAppended(message domain.Message)
	ConversationReset(messages []domain.Message)
	ListeningChanged(state domain.ListeningState)
	Diagnostic(code domain.DiagnosticCode, detail string)
}
