package record

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/zeyupan/autonotes/config"
	"github.com/zeyupan/autonotes/models"
)

// Transcriber turns an audio file into ordered transcript segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]models.TranscriptSegment, error)
}

// WhisperClient speaks the OpenAI-compatible /audio/transcriptions API.
type WhisperClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewWhisperClient(cfg config.TranscribeConfig) *WhisperClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Minute
	}
	model := cfg.Model
	if model == "" {
		model = "whisper-1"
	}
	return &WhisperClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type transcriptionResponse struct {
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe uploads the audio file and returns its segments with start
// and end rounded down to whole seconds.
func (c *WhisperClient) Transcribe(ctx context.Context, audioPath string) ([]models.TranscriptSegment, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("opening audio: %w", err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(audioPath))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.WriteField("model", c.model)
		}
		if err == nil {
			err = mw.WriteField("response_format", "verbose_json")
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", pr)
	if err != nil {
		return nil, fmt.Errorf("creating transcription request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("transcription returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding transcription response: %w", err)
	}

	segments := make([]models.TranscriptSegment, 0, len(parsed.Segments))
	for _, s := range parsed.Segments {
		end := int(s.End)
		segments = append(segments, models.TranscriptSegment{
			Start: int(s.Start),
			End:   &end,
			Text:  s.Text,
		})
	}
	return segments, nil
}
