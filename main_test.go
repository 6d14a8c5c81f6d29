package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dgnsrekt/readalong/tts"
	"github.com/dgnsrekt/readalong/tts/engines"
	"github.com/dgnsrekt/readalong/tts/engines/mock"
	"github.com/dgnsrekt/readalong/tts/prep"
)

func TestDefaultConfigMatchesDefaults(t *testing.T) {
	var file struct {
		TTS tts.Config `yaml:"tts"`
	}
	if err := yaml.Unmarshal([]byte(defaultConfig), &file); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if err := file.TTS.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if want := tts.DefaultConfig(); file.TTS != want {
		t.Errorf("default config file = %+v, want %+v", file.TTS, want)
	}
}

func TestSourceFromArg(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		t.Helper()
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}
	notes := write("notes.md", "notes")
	write("README.md", "readme")
	write("docs/README.md", "nested readme")

	tests := []struct {
		name  string
		arg   string
		stdin string
		want  string
	}{
		{"file", notes, "", "notes"},
		{"directory prefers the top README", dir, "", "readme"},
		{"stdin", "-", "piped", "piped"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := sourceFromArg(tt.arg, strings.NewReader(tt.stdin))
			if err != nil {
				t.Fatalf("sourceFromArg() error = %v", err)
			}
			if src.content != tt.want {
				t.Errorf("sourceFromArg() content = %q, want %q", src.content, tt.want)
			}
			if tt.arg == "-" && src.path != "" {
				t.Errorf("sourceFromArg() path = %q, want empty for stdin", src.path)
			}
		})
	}

	if _, err := sourceFromArg(filepath.Join(dir, "missing.md"), nil); err == nil {
		t.Error("sourceFromArg() on a missing file should fail")
	}
	if _, err := sourceFromArg(t.TempDir(), nil); err == nil {
		t.Error("sourceFromArg() on a directory without markdown should fail")
	}
}

func TestPickReadme(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  string
	}{
		{"no readme", []string{"/a/b.md", "/a/c.md"}, "/a/b.md"},
		{"shallowest readme", []string{"/a/x/README.md", "/a/readme.md"}, "/a/readme.md"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pickReadme(tt.files); got != tt.want {
				t.Errorf("pickReadme() = %v, want %v", got, tt.want)
			}
		})
	}
}

func plainConfig() tts.Config {
	cfg := tts.DefaultConfig()
	cfg.Mock.WordsPerMinute = 500
	return cfg
}

func TestRunPlain(t *testing.T) {
	cfg := plainConfig()
	backend := mock.New(cfg.Mock)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out bytes.Buffer
	if err := runPlain(ctx, &out, "Hello **big** world", cfg, backend); err != nil {
		t.Fatalf("runPlain() error = %v", err)
	}

	want := "0\t5\tHello\n8\t11\tbig\n14\t19\tworld\n"
	if out.String() != want {
		t.Errorf("runPlain() output = %q, want %q", out.String(), want)
	}
}

func TestRunPlainNothingToRead(t *testing.T) {
	cfg := plainConfig()

	var out bytes.Buffer
	if err := runPlain(context.Background(), &out, "   \n", cfg, mock.New(cfg.Mock)); err != nil {
		t.Fatalf("runPlain() error = %v", err)
	}
	if !strings.Contains(out.String(), "Nothing to read.") {
		t.Errorf("runPlain() output = %q, want a notice", out.String())
	}
}

func TestRunPlainBackendError(t *testing.T) {
	cfg := plainConfig()
	backend := mock.New(cfg.Mock, mock.WithSpeakError(errors.New("no audio device")))

	var out bytes.Buffer
	err := runPlain(context.Background(), &out, "one two", cfg, backend)
	if !errors.Is(err, tts.ErrBackendFailed) {
		t.Fatalf("runPlain() error = %v, want %v", err, tts.ErrBackendFailed)
	}
	if out.Len() != 0 {
		t.Errorf("runPlain() output = %q, want none", out.String())
	}
}

func TestRunPlainCancelled(t *testing.T) {
	cfg := tts.DefaultConfig()
	backend := mock.New(cfg.Mock, mock.WithManual())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runPlain(ctx, &bytes.Buffer{}, "one two three", cfg, backend)
	}()

	// Wait for the first chunk to reach the engine.
	deadline := time.Now().Add(5 * time.Second)
	for len(backend.Spoken()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("playback never started")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("runPlain() error = %v, want nil after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runPlain() did not return after cancel")
	}
	if _, ok := backend.Current(); ok {
		t.Error("utterance still active after cancel")
	}
}

func TestWordPrinterWraps(t *testing.T) {
	var out bytes.Buffer
	p := newWordPrinter(&out, 10)
	for _, w := range []string{"one", "two", "three", "four"} {
		p.print(tts.HighlightEvent{Word: w, Mapped: true})
	}
	p.done()

	if want := "one two\nthree four\n"; out.String() != want {
		t.Errorf("wordPrinter output = %q, want %q", out.String(), want)
	}
}

func TestConvertOutputs(t *testing.T) {
	source := "# Title\n\nThis is **bold** text. " + strings.Repeat("More words here. ", 5)
	p, ok := prep.Prepare(source, 40, 0)
	if !ok {
		t.Fatal("Prepare() found nothing to speak")
	}

	var chunks bytes.Buffer
	if err := writeChunks(&chunks, p, 80); err != nil {
		t.Fatalf("writeChunks() error = %v", err)
	}
	if !strings.Contains(chunks.String(), "Title This is bold text.") {
		t.Errorf("writeChunks() = %q, want the plain text", chunks.String())
	}
	if !strings.Contains(chunks.String(), "chunk 1/") {
		t.Errorf("writeChunks() = %q, want chunk headers", chunks.String())
	}

	var doc bytes.Buffer
	if err := writeYAML(&doc, p); err != nil {
		t.Fatalf("writeYAML() error = %v", err)
	}
	var decoded prep.PreparedText
	if err := yaml.Unmarshal(doc.Bytes(), &decoded); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if decoded.PlainText() != p.PlainText() {
		t.Errorf("decoded plain text = %q, want %q", decoded.PlainText(), p.PlainText())
	}

	var stats bytes.Buffer
	if err := writeStats(&stats, source, p); err != nil {
		t.Fatalf("writeStats() error = %v", err)
	}
	for _, want := range []string{"source:", "words:", "chunks:", "anchors:"} {
		if !strings.Contains(stats.String(), want) {
			t.Errorf("writeStats() = %q, want %q", stats.String(), want)
		}
	}
}

func TestWriteVoices(t *testing.T) {
	var out bytes.Buffer
	if err := writeVoices(&out, tts.FilterVoices(mock.DefaultVoices(), "Voix")); err != nil {
		t.Fatalf("writeVoices() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("writeVoices() lines = %d, want 2: %q", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[1], "mock-voice-4  Voix Test") {
		t.Errorf("writeVoices() row = %q", lines[1])
	}
}

func TestWriteConfig(t *testing.T) {
	var out bytes.Buffer
	if err := writeConfig(&out, tts.DefaultConfig()); err != nil {
		t.Fatalf("writeConfig() error = %v", err)
	}
	for _, want := range []string{"tts:", "engine: mock", "chunk_size: 250", "words_per_minute: 150"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("writeConfig() = %q, want %q", out.String(), want)
		}
	}
}

func TestNewBackend(t *testing.T) {
	cfg := tts.DefaultConfig()
	backend, err := newBackend(cfg)
	if err != nil {
		t.Fatalf("newBackend() error = %v", err)
	}
	if _, ok := backend.(*mock.Engine); !ok {
		t.Errorf("newBackend() = %T, want *mock.Engine", backend)
	}

	cfg.Fallback = "mock"
	backend, err = newBackend(cfg)
	if err != nil {
		t.Fatalf("newBackend() error = %v", err)
	}
	if _, ok := backend.(*engines.Fallback); !ok {
		t.Errorf("newBackend() = %T, want *engines.Fallback", backend)
	}

	cfg.Engine = "festival"
	if _, err := newBackend(cfg); !errors.Is(err, tts.ErrBackendUnavailable) {
		t.Errorf("newBackend() error = %v, want %v", err, tts.ErrBackendUnavailable)
	}
}
