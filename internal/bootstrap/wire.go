package bootstrap

import (
	"log/slog"
	"os/exec"
	"strings"

	"repotalk/internal/audio"
	"repotalk/internal/config"
	"repotalk/internal/domain"
	"repotalk/internal/gateway"
	"repotalk/internal/ports"
	"repotalk/internal/providers/deepgram"
	"repotalk/internal/providers/espeak"
	"repotalk/internal/rules"
	"repotalk/internal/speech"
	"repotalk/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.SessionController
	Input      ports.SpeechInput
	Output     ports.SpeechOutput
	Capability domain.SpeechCapability
	Config     config.Config
}

// Build wires all backend dependencies. Speech capabilities are probed
// exactly once here; a missing capability silently substitutes an inert
// adapter instead of failing startup.
func Build(events ports.EventSink, logger *slog.Logger) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	rulesEngine, err := rules.Load(cfg.Rules.Path, cfg.Rules.PassLimit)
	if err != nil {
		return Services{}, err
	}

	capability, synthCommand := probeCapabilities(cfg)

	var output ports.SpeechOutput = speech.NewNoopOutput(logger)
	if capability.SynthesisAvailable {
		output = speech.NewOutputAdapter(espeak.New(espeak.Config{
			Command: synthCommand,
			Voice:   cfg.Synth.Voice,
			Rate:    cfg.Synth.Rate,
		}), logger)
	}

	controller := usecase.NewSessionController(
		gateway.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout),
		output,
		events,
	)

	var input ports.SpeechInput = speech.NewNoopInput(logger)
	if capability.RecognitionAvailable {
		input = speech.NewInputAdapter(
			audio.NewRecorder(cfg.Audio.RecorderCommand),
			deepgram.NewRecognizer(deepgram.Config{
				APIKey:      cfg.Deepgram.APIKey,
				APIBaseURL:  cfg.Deepgram.APIBaseURL,
				Model:       cfg.Deepgram.Model,
				Language:    cfg.Deepgram.Language,
				SmartFormat: cfg.Deepgram.SmartFormat,
				Endpointing: cfg.Deepgram.Endpointing,
			}),
			rulesEngine,
			controller,
			events,
			logger,
			speech.InputConfig{
				Capture: ports.CaptureConfig{
					SampleRate:  cfg.Audio.SampleRate,
					Channels:    cfg.Audio.Channels,
					InputFormat: cfg.Audio.InputFormat,
					InputDevice: cfg.Audio.InputDevice,
				},
				Recognition: ports.RecognitionConfig{
					SampleRate: cfg.Audio.SampleRate,
					Channels:   cfg.Audio.Channels,
					Encoding:   "linear16",
				},
				ChunkSize:    cfg.Listen.ChunkSize,
				MaxUtterance: cfg.Listen.MaxUtterance,
			},
		)
	}

	return Services{
		Controller: controller,
		Input:      input,
		Output:     output,
		Capability: capability,
		Config:     cfg,
	}, nil
}

// probeCapabilities performs the one-time platform feature detection.
// Recognition needs a Deepgram key and a working recorder binary;
// synthesis needs a local speech command.
func probeCapabilities(cfg config.Config) (domain.SpeechCapability, string) {
	capability := domain.SpeechCapability{}

	if strings.TrimSpace(cfg.Deepgram.APIKey) != "" && commandAvailable(cfg.Audio.RecorderCommand) {
		capability.RecognitionAvailable = true
	}

	var candidates []string
	if cfg.Synth.Command != "" {
		candidates = []string{cfg.Synth.Command}
	}
	synthCommand, found := espeak.DetectCommand(candidates...)
	capability.SynthesisAvailable = found

	return capability, synthCommand
}

func commandAvailable(command string) bool {
	if strings.TrimSpace(command) == "" {
		return false
	}
	_, err := exec.LookPath(command)
	return err == nil
}
