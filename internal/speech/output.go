package speech

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"repotalk/internal/ports"
)

// OutputAdapter queues utterances for a synthesizer. Speak is
// fire-and-forget: it returns immediately, utterances play sequentially in
// call order, and no completion signal is exposed. There is no way to stop
// an utterance once it reaches the synthesizer.
type OutputAdapter struct {
	synth  ports.Synthesizer
	logger *slog.Logger
	// queue is never closed: a reply can resolve into Speak while Close
	// runs, so shutdown is signalled through stop instead.
	queue    chan string
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewOutputAdapter(synth ports.Synthesizer, logger *slog.Logger) *OutputAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	a := &OutputAdapter{
		synth:  synth,
		logger: logger,
		queue:  make(chan string, 64),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go a.loop()
	return a
}

// Speak enqueues one utterance and returns. A full queue drops the
// utterance rather than blocking the caller; after Close utterances are
// silently discarded.
func (a *OutputAdapter) Speak(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	select {
	case <-a.stop:
		return
	default:
	}
	select {
	case a.queue <- text:
	default:
		a.logger.Warn("speech queue full, dropping utterance")
	}
}

// Close stops the worker once queued utterances finish. Safe to call
// more than once and concurrently with Speak.
func (a *OutputAdapter) Close() {
	a.stopOnce.Do(func() {
		close(a.stop)
	})
	<-a.done
}

func (a *OutputAdapter) loop() {
	defer close(a.done)
	for {
		select {
		case text := <-a.queue:
			a.say(text)
		case <-a.stop:
			for {
				select {
				case text := <-a.queue:
					a.say(text)
				default:
					return
				}
			}
		}
	}
}

func (a *OutputAdapter) say(text string) {
	if err := a.synth.Say(context.Background(), text); err != nil {
		a.logger.Warn("speech synthesis failed", "error", err)
	}
}
