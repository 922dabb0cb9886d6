package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/zeyupan/autonotes/config"
	"github.com/zeyupan/autonotes/internal/export"
	"github.com/zeyupan/autonotes/internal/network"
	"github.com/zeyupan/autonotes/internal/note"
	"github.com/zeyupan/autonotes/internal/telemetry"
	"github.com/zeyupan/autonotes/models"
	"github.com/zeyupan/autonotes/provider"
)

type stubProvider struct {
	responses []provider.Generation
	err       error
	calls     int
}

func (s *stubProvider) Generate(context.Context, provider.Request) (provider.Generation, error) {
	i := s.calls
	s.calls++
	if s.err != nil {
		return provider.Generation{}, s.err
	}
	if i >= len(s.responses) {
		return provider.Generation{}, errors.New("stub exhausted")
	}
	return s.responses[i], nil
}

func testHandler(p provider.Provider, outputDir string) *NotesHandler {
	tel := telemetry.New(config.TelemetryConfig{}, nil, nil)
	quiet := log.New(io.Discard, "", 0)
	model := config.LLMModel{Name: "glm-4-air", MaxTokens: 4095}
	long := config.LLMModel{Name: "glm-4-long", MaxTokens: 4095}
	return &NotesHandler{
		Notes: note.NewPipeline(note.PipelineConfig{
			NoteModel: model, StructuringModel: model, LongformModel: long, StructuringThreshold: 4000,
		}, p, tel, quiet),
		Graphs: network.NewSynthesizer(config.LLMModel{Name: "glm-4", MaxTokens: 4095}, p, tel, quiet),
		Export: export.NewRenderer(config.ExportConfig{OutputDir: outputDir}, quiet),
	}
}

func doJSON(t *testing.T, h echo.HandlerFunc, method, target, body string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return rec, h(e.NewContext(req, rec))
}

func TestTestEndpoint(t *testing.T) {
	h := testHandler(&stubProvider{}, t.TempDir())
	rec, err := doJSON(t, h.test, http.MethodGet, "/test", "")
	if err != nil {
		t.Fatalf("test: %v", err)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["response"] != "OK" {
		t.Fatalf("response = %q", resp["response"])
	}
}

func TestNoteFakeMode(t *testing.T) {
	h := testHandler(&stubProvider{}, t.TempDir())
	rec, err := doJSON(t, h.note, http.MethodPost, "/note?fake=true", "")
	if err != nil {
		t.Fatalf("note: %v", err)
	}
	var resp models.NoteResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Points) == 0 {
		t.Fatalf("fake note has no points")
	}
	if err := resp.Validate(); err != nil {
		t.Fatalf("fake note invalid: %v", err)
	}
}

func TestNoteRequiresTranscript(t *testing.T) {
	h := testHandler(&stubProvider{}, t.TempDir())
	_, err := doJSON(t, h.note, http.MethodPost, "/note", `{"topic":"x","raw_recognition":[]}`)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("got %v, want 400", err)
	}
}

func TestNotePipelineErrorMapsTo500(t *testing.T) {
	h := testHandler(&stubProvider{err: errors.New("upstream down")}, t.TempDir())
	_, err := doJSON(t, h.note, http.MethodPost, "/note", `{"raw_recognition":[{"start":0,"text":"hi"}]}`)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusInternalServerError {
		t.Fatalf("got %v, want 500", err)
	}
}

func TestNoteSuccess(t *testing.T) {
	doc := `{"theme":"t","points":[{"name":"p","importance":3,"subtitles":[{"subtitle":"s","md":"m","raw_recognition":[{"start":"00:10","end":"00:20"}]}]}],"links":[],"summary":"sum"}`
	p := &stubProvider{responses: []provider.Generation{
		{Text: "a note", FinishReason: provider.FinishStop},
		{Text: doc, FinishReason: provider.FinishStop},
	}}
	h := testHandler(p, t.TempDir())
	rec, err := doJSON(t, h.note, http.MethodPost, "/note", `{"raw_recognition":[{"start":0,"text":"hi"}]}`)
	if err != nil {
		t.Fatalf("note: %v", err)
	}
	var resp models.NoteResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Points) != 1 || resp.Points[0].Subtitles[0].RawRecognition[0].Start != 10 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestNetworkMalformedMapsTo422(t *testing.T) {
	p := &stubProvider{responses: []provider.Generation{
		{Text: "not a graph", FinishReason: provider.FinishStop},
	}}
	h := testHandler(p, t.TempDir())
	body := `{"lectures":[{"id":1,"topic":"t","points":[{"name":"p","importance":3}]}]}`
	_, err := doJSON(t, h.network, http.MethodPost, "/network", body)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnprocessableEntity {
		t.Fatalf("got %v, want 422", err)
	}
}

func TestNetworkFakeFixtureIsValid(t *testing.T) {
	h := testHandler(&stubProvider{}, t.TempDir())
	rec, err := doJSON(t, h.network, http.MethodPost, "/network?fake=true", "")
	if err != nil {
		t.Fatalf("network: %v", err)
	}
	var resp models.NetworkResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := resp.Validate(); err != nil {
		t.Fatalf("fake network invalid: %v", err)
	}
}

func TestRecordFakeMode(t *testing.T) {
	h := testHandler(&stubProvider{}, t.TempDir())
	rec, err := doJSON(t, h.record, http.MethodPost, "/record?fake=true", "")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	var resp models.RecordResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Topic == "" || len(resp.RawRecognition) == 0 {
		t.Fatalf("fake record incomplete: %+v", resp)
	}
}

func TestRecordRequiresFile(t *testing.T) {
	h := testHandler(&stubProvider{}, t.TempDir())
	_, err := doJSON(t, h.record, http.MethodPost, "/record", "")
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("got %v, want 400", err)
	}
}

func TestExportEndpoint(t *testing.T) {
	dir := t.TempDir()
	h := testHandler(&stubProvider{}, dir)
	body := `{"id":7,"topic":"Sets","abstract":"a","points":[{"name":"p","importance":2,"subtitles":[{"subtitle":"s","md":"m","raw_recognition":[{"start":0}]}]}]}`
	rec, err := doJSON(t, h.export, http.MethodPost, "/export", body)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(resp["path"], dir) {
		t.Fatalf("path %q not under output dir", resp["path"])
	}
}

func TestExportRejectsInvalidPoint(t *testing.T) {
	h := testHandler(&stubProvider{}, t.TempDir())
	body := `{"id":7,"topic":"Sets","points":[{"name":"p","importance":9,"subtitles":[{"subtitle":"s","md":"m","raw_recognition":[{"start":0}]}]}]}`
	_, err := doJSON(t, h.export, http.MethodPost, "/export", body)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("got %v, want 400", err)
	}
}
