package narrate_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/narrate"
	"reelsmith/internal/queue"
	"reelsmith/internal/testsupport"
)

func TestVoiceIDResolvesStyles(t *testing.T) {
	if narrate.VoiceID("calm_female") == "" {
		t.Fatal("expected voice id for calm_female")
	}
	if narrate.VoiceID("unknown-style") != narrate.VoiceID("professional_male") {
		t.Fatal("unknown style should fall back to default voice")
	}
	if narrate.VoiceID(" Professional_Male ") != narrate.VoiceID("professional_male") {
		t.Fatal("style lookup should normalize case and spacing")
	}
}

func TestClientSynthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "key" {
			t.Errorf("missing api key header")
		}
		if !strings.HasPrefix(r.URL.Path, "/text-to-speech/") {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	client := narrate.NewClient(config.Speech{APIKey: "key", BaseURL: server.URL})
	audio, err := client.Synthesize(context.Background(), "Merhaba", "calm_male")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio) != "mp3-bytes" {
		t.Fatalf("audio = %q", audio)
	}
}

func TestClientSynthesizeErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := narrate.NewClient(config.Speech{APIKey: "key", BaseURL: server.URL})
	_, err := client.Synthesize(context.Background(), "Merhaba", "")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("error = %v", err)
	}
}

type stubSynthesizer struct {
	audio      []byte
	err        error
	configured bool
	lastText   string
}

func (s *stubSynthesizer) Synthesize(_ context.Context, text, _ string) ([]byte, error) {
	s.lastText = text
	return s.audio, s.err
}

func (s *stubSynthesizer) Configured() bool { return s.configured }

func TestHandlerExecuteWritesAudio(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	synth := &stubSynthesizer{audio: []byte("mp3"), configured: true}
	handler := narrate.NewHandler(cfg, logging.NewNop(), narrate.WithSynthesizer(synth))
	job := &queue.Job{ID: "job-1", ScriptText: "[00:00]\nMerhaba dünya."}

	if err := handler.Prepare(context.Background(), job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if job.AudioPath == "" {
		t.Fatal("expected audio path on job")
	}
	data, err := os.ReadFile(job.AudioPath)
	if err != nil || string(data) != "mp3" {
		t.Fatalf("audio file: %q %v", data, err)
	}
	if strings.Contains(synth.lastText, "[00:00]") {
		t.Fatalf("timestamp markers must not reach synthesis: %q", synth.lastText)
	}
}

func TestHandlerTruncatesOversizedText(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Speech.MaxChars = 40
	synth := &stubSynthesizer{audio: []byte("mp3"), configured: true}
	handler := narrate.NewHandler(cfg, logging.NewNop(), narrate.WithSynthesizer(synth))
	job := &queue.Job{
		ID:         "job-1",
		ScriptText: "Bu ilk cümle burada biter. Bu ikinci cümle sınırı kesinlikle aşar ve kırpılmalıdır.",
	}

	if err := handler.Prepare(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	if err := handler.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !job.Truncated {
		t.Fatal("expected truncated flag")
	}
	if len([]rune(synth.lastText)) > 40 {
		t.Fatalf("text exceeds ceiling: %d runes", len([]rune(synth.lastText)))
	}
}

func TestHandlerFallsBackToPlaceholder(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutAPIKeys())
	synth := &stubSynthesizer{configured: false}
	handler := narrate.NewHandler(cfg, logging.NewNop(), narrate.WithSynthesizer(synth))
	job := &queue.Job{ID: "job-1", ScriptText: "Merhaba."}

	if err := handler.Prepare(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	if err := handler.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !job.Degraded {
		t.Fatal("placeholder narration should mark job degraded")
	}
	info, err := os.Stat(job.AudioPath)
	if err != nil || info.Size() == 0 {
		t.Fatalf("placeholder missing: %v", err)
	}
}

func TestHandlerFailsWithoutScript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	handler := narrate.NewHandler(cfg, logging.NewNop(), narrate.WithSynthesizer(&stubSynthesizer{configured: true}))
	if err := handler.Prepare(context.Background(), &queue.Job{ID: "job-1"}); err == nil {
		t.Fatal("expected error without script")
	}
}

func TestHandlerSynthesisErrorWithFallbackDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.FallbackEnabled = false
	cfg.Workflow.StageRetryAttempts = 1
	synth := &stubSynthesizer{err: errors.New("vendor down"), configured: true}
	handler := narrate.NewHandler(cfg, logging.NewNop(), narrate.WithSynthesizer(synth))
	job := &queue.Job{ID: "job-1", ScriptText: "Merhaba."}

	if err := handler.Prepare(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	if err := handler.Execute(context.Background(), job); err == nil {
		t.Fatal("expected error with fallback disabled")
	}
}
