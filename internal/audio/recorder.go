package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"repotalk/internal/ports"
)

// Recorder captures raw PCM from the microphone through an ffmpeg
// subprocess, one subprocess per capture session.
type Recorder struct {
	command string
}

func NewRecorder(command string) *Recorder {
	if command == "" {
		command = "ffmpeg"
	}
	return &Recorder{command: command}
}

func (r *Recorder) Open(ctx context.Context, cfg ports.CaptureConfig) (ports.CaptureSession, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}

	captureCtx, cancel := context.WithCancel(ctx)

	cmd := exec.CommandContext(captureCtx, r.command,
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"-",
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	// Give ffmpeg a chance to flush and exit on its own before the kill.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = 1500 * time.Millisecond

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create recorder pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start recorder: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	// A recorder that dies immediately (bad device, bad args) should fail
	// the open, not the first read.
	select {
	case err := <-waitErr:
		cancel()
		detail := strings.TrimSpace(stderr.String())
		if err == nil {
			err = errors.New("recorder exited before capture started")
		} else {
			err = fmt.Errorf("recorder exited before capture started: %w", err)
		}
		if detail != "" {
			err = fmt.Errorf("%w: %s", err, detail)
		}
		return nil, err
	case <-time.After(250 * time.Millisecond):
	}

	return &captureSession{
		stdout:  stdout,
		stderr:  &stderr,
		cancel:  cancel,
		waitErr: waitErr,
	}, nil
}

type captureSession struct {
	stdout  io.ReadCloser
	stderr  *bytes.Buffer
	cancel  context.CancelFunc
	waitErr <-chan error

	stopOnce sync.Once
	stopErr  error
}

func (s *captureSession) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *captureSession) Close() error {
	return s.Stop()
}

func (s *captureSession) Stop() error {
	s.stopOnce.Do(func() {
		s.cancel()
		err, ok := <-s.waitErr
		if ok {
			s.stopErr = ignoreExpectedExit(err)
		}
		_ = s.stdout.Close()

		if s.stopErr != nil && s.stderr.Len() > 0 {
			s.stopErr = fmt.Errorf("%w: %s", s.stopErr, strings.TrimSpace(s.stderr.String()))
		}
	})
	return s.stopErr
}

// ignoreExpectedExit drops the non-zero exit and kill statuses a recorder
// reports when it is interrupted mid-capture.
func ignoreExpectedExit(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, exec.ErrWaitDelay) {
		return nil
	}
	return err
}
