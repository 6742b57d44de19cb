package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"repotalk/internal/ports"
)

// Config controls the Deepgram websocket connection.
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
	// Endpointing is the trailing silence after which Deepgram finalizes
	// the utterance. Voice input here is single-shot, so the first
	// finalized transcript ends the capture.
	Endpointing time.Duration
}

// Recognizer opens single-utterance recognition sessions against the
// Deepgram streaming API, with interim results disabled.
type Recognizer struct {
	cfg Config
}

func NewRecognizer(cfg Config) *Recognizer {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.deepgram.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if cfg.Endpointing <= 0 {
		cfg.Endpointing = 800 * time.Millisecond
	}
	return &Recognizer{cfg: cfg}
}

func (r *Recognizer) Recognize(ctx context.Context, cfg ports.RecognitionConfig) (ports.RecognitionSession, error) {
	if strings.TrimSpace(r.cfg.APIKey) == "" {
		return nil, errors.New("DEEPGRAM_API_KEY is not configured")
	}

	wsURL, err := recognizeURL(r.cfg, cfg)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+r.cfg.APIKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to deepgram: %w", err)
	}

	session := &utteranceSession{
		conn:     conn,
		results:  make(chan string, 8),
		audio:    make(chan []byte, 32),
		finished: make(chan struct{}),
		done:     make(chan struct{}),
	}

	session.wg.Add(2)
	go session.readLoop()
	go session.writeLoop()
	go func() {
		session.wg.Wait()
		close(session.results)
		close(session.done)
		_ = conn.Close()
	}()

	go func() {
		<-ctx.Done()
		_ = session.Close()
	}()

	return session, nil
}

type utteranceSession struct {
	conn *websocket.Conn

	results chan string
	// audio is never closed: SendAudio runs on the capture goroutine
	// while Finish and Close can arrive from anywhere, so shutdown is
	// signalled through finished instead.
	audio    chan []byte
	finished chan struct{}
	done     chan struct{}

	wg sync.WaitGroup

	errMu sync.Mutex
	err   error

	finishOnce sync.Once
	closeOnce  sync.Once
}

func (s *utteranceSession) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	select {
	case <-s.finished:
		return s.closedErr()
	case <-s.done:
		return s.closedErr()
	default:
	}

	copied := append([]byte(nil), chunk...)
	select {
	case s.audio <- copied:
		return nil
	case <-s.finished:
		return s.closedErr()
	case <-s.done:
		return s.closedErr()
	}
}

// Finish signals end of audio; Deepgram finalizes whatever it heard.
func (s *utteranceSession) Finish() error {
	s.finishOnce.Do(func() {
		close(s.finished)
	})
	return nil
}

func (s *utteranceSession) closedErr() error {
	if err := s.Err(); err != nil {
		return err
	}
	return errors.New("recognition session closed")
}

func (s *utteranceSession) Results() <-chan string {
	return s.results
}

func (s *utteranceSession) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *utteranceSession) Close() error {
	s.closeOnce.Do(func() {
		_ = s.Finish()
		_ = s.conn.Close()
	})
	<-s.done
	return s.Err()
}

func (s *utteranceSession) setErr(err error) {
	if err == nil {
		return
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *utteranceSession) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case chunk := <-s.audio:
			if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
				s.setErr(fmt.Errorf("failed to send audio: %w", err))
				return
			}
		case <-s.finished:
			// Flush whatever was queued before the finish signal.
			for {
				select {
				case chunk := <-s.audio:
					if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
						s.setErr(fmt.Errorf("failed to send audio: %w", err))
						return
					}
				default:
					if err := s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
						s.setErr(fmt.Errorf("failed to end audio stream: %w", err))
					}
					return
				}
			}
		}
	}
}

func (s *utteranceSession) readLoop() {
	defer s.wg.Done()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.setErr(fmt.Errorf("failed to read recognition event: %w", err))
			return
		}

		transcript, final, err := parseTranscriptEvent(payload)
		if err != nil {
			s.setErr(err)
			return
		}
		if !final || transcript == "" {
			continue
		}

		select {
		case s.results <- transcript:
		case <-s.done:
		}
		// One utterance per session; nothing useful follows the first
		// finalized transcript.
		return
	}
}

type transcriptEvent struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// parseTranscriptEvent returns the transcript text and whether Deepgram
// marked it final. Unrecognized payloads are skipped, provider-reported
// errors abort the session.
func parseTranscriptEvent(payload []byte) (string, bool, error) {
	var event transcriptEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return "", false, nil
	}

	if strings.EqualFold(event.Type, "Error") {
		message := strings.TrimSpace(event.Message)
		if message == "" {
			message = "deepgram returned an unknown error"
		}
		return "", false, errors.New(message)
	}

	if len(event.Channel.Alternatives) == 0 {
		return "", false, nil
	}
	transcript := strings.TrimSpace(event.Channel.Alternatives[0].Transcript)
	return transcript, event.IsFinal || event.SpeechFinal, nil
}

func recognizeURL(cfg Config, streamCfg ports.RecognitionConfig) (string, error) {
	base := strings.TrimSpace(cfg.APIBaseURL)
	if base == "" {
		base = "https://api.deepgram.com/v1"
	}
	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}

	listenURL, err := url.Parse(strings.TrimRight(base, "/") + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid deepgram base URL: %w", err)
	}

	if streamCfg.Encoding == "" {
		streamCfg.Encoding = "linear16"
	}
	if streamCfg.SampleRate <= 0 {
		streamCfg.SampleRate = 16000
	}
	if streamCfg.Channels <= 0 {
		streamCfg.Channels = 1
	}

	query := listenURL.Query()
	query.Set("model", cfg.Model)
	query.Set("encoding", streamCfg.Encoding)
	query.Set("sample_rate", strconv.Itoa(streamCfg.SampleRate))
	query.Set("channels", strconv.Itoa(streamCfg.Channels))
	query.Set("interim_results", "false")
	query.Set("smart_format", strconv.FormatBool(cfg.SmartFormat))
	query.Set("endpointing", strconv.FormatInt(cfg.Endpointing.Milliseconds(), 10))
	if cfg.Language != "" {
		query.Set("language", cfg.Language)
	}
	listenURL.RawQuery = query.Encode()
	return listenURL.String(), nil
}
