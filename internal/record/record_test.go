package record

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/zeyupan/autonotes/config"
	"github.com/zeyupan/autonotes/internal/telemetry"
	"github.com/zeyupan/autonotes/models"
	"github.com/zeyupan/autonotes/provider"
)

type stubTranscriber struct {
	segments []models.TranscriptSegment
	err      error
	called   int
}

func (s *stubTranscriber) Transcribe(context.Context, string) ([]models.TranscriptSegment, error) {
	s.called++
	return s.segments, s.err
}

type stubProvider struct {
	gen provider.Generation
	err error
}

func (s *stubProvider) Generate(context.Context, provider.Request) (provider.Generation, error) {
	return s.gen, s.err
}

func testPipeline(t *testing.T, tr Transcriber, p provider.Provider) (*Pipeline, string) {
	t.Helper()
	dir := t.TempDir()
	tel := telemetry.New(config.TelemetryConfig{}, nil, nil)
	model := config.LLMModel{Name: "glm-4", MaxTokens: 4095}
	return NewPipeline(tr, p, tel, log.New(io.Discard, "", 0), model, dir), dir
}

func dirMustBeEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading work dir: %v", err)
	}
	if len(entries) != 0 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("work dir not cleaned up, left: %v", names)
	}
}

func TestProcessSuccess(t *testing.T) {
	end := 130
	tr := &stubTranscriber{segments: []models.TranscriptSegment{
		{Start: 0, End: &end, Text: "today we study boolean algebra"},
		{Start: 118, End: &end, Text: "a lattice with complements"},
	}}
	p, dir := testPipeline(t, tr, &stubProvider{gen: provider.Generation{
		Text:         "Boolean algebra\nIntroduces boolean algebra and its laws.",
		FinishReason: provider.FinishStop,
	}})

	resp, err := p.Process(context.Background(), "lecture.mp3", strings.NewReader("fake audio bytes"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if resp.Topic != "Boolean algebra" {
		t.Fatalf("topic = %q", resp.Topic)
	}
	if resp.Abstract != "Introduces boolean algebra and its laws." {
		t.Fatalf("abstract = %q", resp.Abstract)
	}
	if resp.Duration != 118 {
		t.Fatalf("duration = %d, want start of last segment", resp.Duration)
	}
	if len(resp.RawRecognition) != 2 {
		t.Fatalf("got %d segments", len(resp.RawRecognition))
	}
	if resp.ID == 0 {
		t.Fatalf("id not assigned")
	}
	dirMustBeEmpty(t, dir)
}

func TestProcessCleansUpOnTranscriptionFailure(t *testing.T) {
	tr := &stubTranscriber{err: errors.New("whisper unreachable")}
	p, dir := testPipeline(t, tr, &stubProvider{})

	_, err := p.Process(context.Background(), "lecture.mp3", strings.NewReader("fake audio bytes"))
	if err == nil {
		t.Fatalf("Process succeeded, want transcription error")
	}
	if tr.called != 1 {
		t.Fatalf("transcriber called %d times", tr.called)
	}
	dirMustBeEmpty(t, dir)
}

func TestProcessCleansUpOnSummaryFailure(t *testing.T) {
	tr := &stubTranscriber{segments: []models.TranscriptSegment{{Start: 0, Text: "hello"}}}
	p, dir := testPipeline(t, tr, &stubProvider{err: errors.New("upstream 500")})

	_, err := p.Process(context.Background(), "lecture.wav", strings.NewReader("audio"))
	var ge *provider.GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("got %v, want *provider.GenerationError", err)
	}
	if ge.Stage != "summary" {
		t.Fatalf("stage = %q", ge.Stage)
	}
	dirMustBeEmpty(t, dir)
}

func TestProcessRejectsEmptyTranscript(t *testing.T) {
	p, dir := testPipeline(t, &stubTranscriber{}, &stubProvider{})

	if _, err := p.Process(context.Background(), "lecture.mp3", strings.NewReader("audio")); err == nil {
		t.Fatalf("empty transcript must be an error")
	}
	dirMustBeEmpty(t, dir)
}

func TestProcessRejectsOneLineSummary(t *testing.T) {
	tr := &stubTranscriber{segments: []models.TranscriptSegment{{Start: 0, Text: "hello"}}}
	p, dir := testPipeline(t, tr, &stubProvider{gen: provider.Generation{
		Text:         "just a topic and nothing else",
		FinishReason: provider.FinishStop,
	}})

	_, err := p.Process(context.Background(), "lecture.mp3", strings.NewReader("audio"))
	if !errors.Is(err, models.ErrMalformedResponse) {
		t.Fatalf("got %v, want ErrMalformedResponse", err)
	}
	dirMustBeEmpty(t, dir)
}

func TestWhisperClientTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer whisper-key" {
			t.Errorf("authorization = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("model = %q", got)
		}
		if got := r.FormValue("response_format"); got != "verbose_json" {
			t.Errorf("response_format = %q", got)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("file part: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"segments":[{"start":0.0,"end":2.5,"text":"今天我们学习布尔代数"},{"start":2.5,"end":5.0,"text":"先看定义"}]}`)
	}))
	defer srv.Close()

	audio := t.TempDir() + "/a.mp3"
	if err := os.WriteFile(audio, []byte("bytes"), 0o644); err != nil {
		t.Fatalf("writing audio fixture: %v", err)
	}

	c := NewWhisperClient(config.TranscribeConfig{BaseURL: srv.URL, APIKey: "whisper-key"})
	segments, err := c.Transcribe(context.Background(), audio)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("got %d segments", len(segments))
	}
	if segments[0].Text != "今天我们学习布尔代数" || segments[1].Start != 2 {
		t.Fatalf("segments wrong: %+v", segments)
	}
	if segments[0].End == nil || *segments[0].End != 2 {
		t.Fatalf("end not carried: %+v", segments[0])
	}
}

func TestWhisperClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	audio := t.TempDir() + "/a.wav"
	if err := os.WriteFile(audio, []byte("bytes"), 0o644); err != nil {
		t.Fatalf("writing audio fixture: %v", err)
	}

	c := NewWhisperClient(config.TranscribeConfig{BaseURL: srv.URL})
	if _, err := c.Transcribe(context.Background(), audio); err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("got %v, want status error", err)
	}
}
