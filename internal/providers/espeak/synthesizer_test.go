package espeak

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSpeechArgsEspeakFlavor(t *testing.T) {
	t.Parallel()

	args := speechArgs(Config{Command: "/usr/bin/espeak-ng", Voice: "en", Rate: 170}, "hello")
	want := []string{"-v", "en", "-s", "170", "hello"}
	if len(args) != len(want) {
		t.Fatalf("unexpected args: %v", args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("unexpected args: %v", args)
		}
	}
}

func TestSpeechArgsSayFlavor(t *testing.T) {
	t.Parallel()

	args := speechArgs(Config{Command: "/usr/bin/say", Voice: "Samantha", Rate: 200}, "hello")
	want := []string{"-v", "Samantha", "-r", "200", "hello"}
	if len(args) != len(want) {
		t.Fatalf("unexpected args: %v", args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("unexpected args: %v", args)
		}
	}
}

func TestSpeechArgsBareText(t *testing.T) {
	t.Parallel()

	args := speechArgs(Config{Command: "espeak"}, "just text")
	if len(args) != 1 || args[0] != "just text" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestSayRunsCommand(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	outFile := filepath.Join(dir, "spoken.txt")
	script := filepath.Join(dir, "speak.sh")
	contents := "#!/usr/bin/env bash\nprintf '%s' \"${@: -1}\" > " + outFile + "\n"
	if err := os.WriteFile(script, []byte(contents), 0o700); err != nil {
		t.Fatalf("write script failed: %v", err)
	}

	synth := New(Config{Command: script, Voice: "en"})
	if err := synth.Say(context.Background(), "read me aloud"); err != nil {
		t.Fatalf("say failed: %v", err)
	}

	spoken, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("read output failed: %v", err)
	}
	if string(spoken) != "read me aloud" {
		t.Fatalf("unexpected spoken text: %q", string(spoken))
	}
}

func TestSaySkipsBlankText(t *testing.T) {
	t.Parallel()

	synth := New(Config{Command: filepath.Join(t.TempDir(), "never-invoked")})
	if err := synth.Say(context.Background(), "   "); err != nil {
		t.Fatalf("blank text must be a no-op, got %v", err)
	}
}

func TestSaySurfacesStderr(t *testing.T) {
	t.Parallel()

	script := filepath.Join(t.TempDir(), "fail.sh")
	if err := os.WriteFile(script, []byte("#!/usr/bin/env bash\necho 'audio device busy' 1>&2\nexit 1\n"), 0o700); err != nil {
		t.Fatalf("write script failed: %v", err)
	}

	synth := New(Config{Command: script})
	err := synth.Say(context.Background(), "text")
	if err == nil || !strings.Contains(err.Error(), "audio device busy") {
		t.Fatalf("expected stderr detail, got %v", err)
	}
}

func TestDetectCommand(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	binary := filepath.Join(dir, "espeak-ng")
	if err := os.WriteFile(binary, []byte("#!/usr/bin/env bash\n"), 0o700); err != nil {
		t.Fatalf("write binary failed: %v", err)
	}

	if got, ok := DetectCommand(binary); !ok || got != binary {
		t.Fatalf("expected %q detected, got %q ok=%v", binary, got, ok)
	}
	if _, ok := DetectCommand(filepath.Join(dir, "absent")); ok {
		t.Fatalf("absent command must not be detected")
	}
	if _, ok := DetectCommand("  ", ""); ok {
		t.Fatalf("blank candidates must not be detected")
	}
}
