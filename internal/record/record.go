// Package record turns an uploaded lecture recording into a transcript
// with a topic and abstract. Video uploads are converted to audio with
// ffmpeg before transcription; every intermediate file is removed before
// the pipeline returns, on success and on failure alike.
package record

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeyupan/autonotes/config"
	"github.com/zeyupan/autonotes/internal/note"
	"github.com/zeyupan/autonotes/internal/telemetry"
	"github.com/zeyupan/autonotes/models"
	"github.com/zeyupan/autonotes/provider"
)

const summaryInstruction = `Read the lecture transcript the user provides and answer in exactly two lines, in the same language as the transcript:
line 1: the topic of the lecture, as a bare word or short phrase, nothing else;
line 2: a one-sentence abstract of the lecture.`

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".mkv": true, ".avi": true, ".webm": true, ".flv": true,
}

// Pipeline drives upload -> audio -> transcript -> topic and abstract.
type Pipeline struct {
	transcriber  Transcriber
	provider     provider.Provider
	telemetry    *telemetry.Telemetry
	logger       *log.Logger
	summaryModel config.LLMModel
	workDir      string
	ffmpegBin    string
}

func NewPipeline(transcriber Transcriber, p provider.Provider, tel *telemetry.Telemetry, logger *log.Logger, summaryModel config.LLMModel, workDir string) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	if workDir == "" {
		workDir = os.TempDir()
	}
	return &Pipeline{
		transcriber:  transcriber,
		provider:     p,
		telemetry:    tel,
		logger:       logger,
		summaryModel: summaryModel,
		workDir:      workDir,
		ffmpegBin:    "ffmpeg",
	}
}

// Process ingests one uploaded recording. The returned response carries
// the transcript, the lecture topic and abstract, an id taken from the
// wall clock and the start of the last segment as the duration.
func (p *Pipeline) Process(ctx context.Context, filename string, src io.Reader) (*models.RecordResponse, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	media, err := os.CreateTemp(p.workDir, "upload-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("saving upload: %w", err)
	}
	mediaPath := media.Name()
	transcriptPath := mediaPath + ".txt"
	defer func() {
		os.Remove(mediaPath)
		os.Remove(transcriptPath)
	}()

	if _, err := io.Copy(media, src); err != nil {
		media.Close()
		return nil, fmt.Errorf("saving upload: %w", err)
	}
	if err := media.Close(); err != nil {
		return nil, fmt.Errorf("saving upload: %w", err)
	}

	audioPath := mediaPath
	if videoExtensions[ext] {
		audioPath = strings.TrimSuffix(mediaPath, ext) + ".mp3"
		defer os.Remove(audioPath)
		if err := p.extractAudio(ctx, mediaPath, audioPath); err != nil {
			return nil, err
		}
	}

	segments, err := p.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("transcribing %s: %w", filename, err)
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("transcribing %s: empty transcript", filename)
	}

	transcript := renderTranscript(segments)
	if err := os.WriteFile(transcriptPath, []byte(transcript), 0o644); err != nil {
		return nil, fmt.Errorf("writing transcript: %w", err)
	}

	topic, abstract, err := p.topicAndAbstract(ctx, transcript)
	if err != nil {
		return nil, err
	}

	p.logger.Printf("[RECORD] transcribed %s into %d segments, topic %q", filename, len(segments), topic)
	return &models.RecordResponse{
		ID:             int(time.Now().Unix()),
		Duration:       segments[len(segments)-1].Start,
		Topic:          topic,
		Abstract:       abstract,
		RawRecognition: segments,
	}, nil
}

func (p *Pipeline) extractAudio(ctx context.Context, videoPath, audioPath string) error {
	cmd := exec.CommandContext(ctx, p.ffmpegBin, "-i", videoPath, "-vn", "-acodec", "libmp3lame", "-y", audioPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("extracting audio: %w: %s", err, tail(out, 512))
	}
	return nil
}

// topicAndAbstract derives the lecture topic and a one-line abstract with
// a single generation call over the full transcript.
func (p *Pipeline) topicAndAbstract(ctx context.Context, transcript string) (string, string, error) {
	req := provider.Request{
		Model:     p.summaryModel.APIModel(),
		System:    summaryInstruction,
		Input:     transcript,
		MaxTokens: p.summaryModel.MaxTokens,
	}
	start := time.Now()
	gen, err := p.provider.Generate(ctx, req)
	p.telemetry.RecordGeneration("summary", req.Model, time.Since(start), gen.PromptTokens, gen.OutputTokens, err)
	if err != nil {
		return "", "", &provider.GenerationError{Stage: "summary", Err: err}
	}

	lines := strings.SplitN(strings.TrimSpace(gen.Text), "\n", 2)
	if len(lines) != 2 || strings.TrimSpace(lines[0]) == "" || strings.TrimSpace(lines[1]) == "" {
		return "", "", fmt.Errorf("%w: want topic and abstract on two lines, got %q", models.ErrMalformedResponse, gen.Text)
	}
	return strings.TrimSpace(lines[0]), strings.TrimSpace(lines[1]), nil
}

func renderTranscript(segments []models.TranscriptSegment) string {
	var b strings.Builder
	for _, seg := range segments {
		b.WriteString(note.FormatTimecode(seg.Start))
		b.WriteByte('\t')
		b.WriteString(strings.ReplaceAll(seg.Text, "\n", " "))
		b.WriteByte('\n')
	}
	return b.String()
}

func tail(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[len(b)-n:])
}
