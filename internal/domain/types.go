package domain

// SessionStatus models the ingestion/chat lifecycle.
type SessionStatus string

const (
	SessionStatusIdle        SessionStatus = "idle"
	SessionStatusIngesting   SessionStatus = "ingesting"
	SessionStatusReady       SessionStatus = "ready"
	SessionStatusChatPending SessionStatus = "chat_pending"
	SessionStatusError       SessionStatus = "error"
)

// Session is the controller-owned state snapshot pushed to the UI.
// ErrorMessage is the single human-readable error surface; it is empty
// whenever the last operation of its kind succeeded.
type Session struct {
	RepoURL      string        `json:"repoUrl"`
	Status       SessionStatus `json:"status"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
}

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one immutable conversation turn.
type Message struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ListeningState models the voice capture toggle, independent of the
// session lifecycle.
type ListeningState string

const (
	ListeningStateIdle      ListeningState = "idle"
	ListeningStateListening ListeningState = "listening"
)

// SpeechCapability is probed once at startup and never changes afterwards.
type SpeechCapability struct {
	RecognitionAvailable bool `json:"recognitionAvailable"`
	SynthesisAvailable   bool `json:"synthesisAvailable"`
}

// DiagnosticCode identifies non-conversational failures surfaced to the UI
// outside the session error banner.
type DiagnosticCode string

const (
	DiagnosticCodeStartup     DiagnosticCode = "startup"
	DiagnosticCodeRecognition DiagnosticCode = "recognition"
	DiagnosticCodeSynthesis   DiagnosticCode = "synthesis"
	DiagnosticCodeClipboard   DiagnosticCode = "clipboard"
)

// IngestResult is the backend's successful ingestion payload: serialized
// repository material plus a file tree listing.
type IngestResult struct {
	Content string `json:"content"`
	Tree    string `json:"tree"`
}
