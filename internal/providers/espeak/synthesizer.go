package espeak

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Config controls the synthesizer subprocess.
type Config struct {
	Command string
	Voice   string
	// Rate is words per minute; zero keeps the platform default.
	Rate int
}

// Synthesizer vocalizes text through a local speech command, one
// subprocess per utterance.
type Synthesizer struct {
	cfg Config
}

func New(cfg Config) *Synthesizer {
	if cfg.Command == "" {
		cfg.Command = "espeak-ng"
	}
	return &Synthesizer{cfg: cfg}
}

// DetectCommand returns the first speech command resolvable on PATH.
// Absolute paths are accepted as-is when they exist.
func DetectCommand(candidates ...string) (string, bool) {
	if len(candidates) == 0 {
		candidates = []string{"espeak-ng", "espeak", "say"}
	}
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if resolved, err := exec.LookPath(candidate); err == nil {
			return resolved, true
		}
	}
	return "", false
}

// Say blocks until the utterance finishes playing or fails.
func (s *Synthesizer) Say(ctx context.Context, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	cmd := exec.CommandContext(ctx, s.cfg.Command, speechArgs(s.cfg, trimmed)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return fmt.Errorf("speech command failed: %w: %s", err, detail)
		}
		return fmt.Errorf("speech command failed: %w", err)
	}
	return nil
}

// speechArgs adapts flags to the command flavor: espeak and macOS say
// spell voice/rate options differently.
func speechArgs(cfg Config, text string) []string {
	var args []string

	if filepath.Base(cfg.Command) == "say" {
		if cfg.Voice != "" {
			args = append(args, "-v", cfg.Voice)
		}
		if cfg.Rate > 0 {
			args = append(args, "-r", strconv.Itoa(cfg.Rate))
		}
	} else {
		if cfg.Voice != "" {
			args = append(args, "-v", cfg.Voice)
		}
		if cfg.Rate > 0 {
			args = append(args, "-s", strconv.Itoa(cfg.Rate))
		}
	}

	return append(args, text)
}
