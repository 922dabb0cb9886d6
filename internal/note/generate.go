package note

import (
	"context"
	"log"
	"time"

	"github.com/zeyupan/autonotes/config"
	"github.com/zeyupan/autonotes/internal/telemetry"
	"github.com/zeyupan/autonotes/provider"
)

// PipelineConfig carries the model routing for the note pipeline. Every
// stage receives its model explicitly; nothing reads global state.
type PipelineConfig struct {
	// NoteModel drives free-form note synthesis.
	NoteModel config.LLMModel
	// StructuringModel drives JSON structuring for short notes.
	StructuringModel config.LLMModel
	// LongformModel is the long-context escalation target. It also becomes
	// the initial structuring model when the note exceeds the threshold.
	LongformModel config.LLMModel
	// StructuringThreshold is the note length, in characters, above which
	// structuring starts on LongformModel directly.
	StructuringThreshold int
}

// Pipeline turns lecture transcripts into structured notes.
type Pipeline struct {
	cfg       PipelineConfig
	provider  provider.Provider
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// NewPipeline creates a note pipeline on the given provider.
func NewPipeline(cfg PipelineConfig, p provider.Provider, tel *telemetry.Telemetry, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{cfg: cfg, provider: p, telemetry: tel, logger: logger}
}

// generateWithOverflowRetry issues req and, when the provider reports a
// truncated completion, reissues the identical request exactly once on the
// escalation model. The escalated result is returned as-is; a second
// truncation is not retried again.
func (p *Pipeline) generateWithOverflowRetry(ctx context.Context, stage string, req provider.Request, escalation config.LLMModel) (provider.Generation, error) {
	start := time.Now()
	gen, err := p.provider.Generate(ctx, req)
	p.telemetry.RecordGeneration(stage, req.Model, time.Since(start), gen.PromptTokens, gen.OutputTokens, err)
	if err != nil {
		return provider.Generation{}, &provider.GenerationError{Stage: stage, Err: err}
	}
	escModel := escalation.APIModel()
	if !gen.Truncated() || escModel == "" || escModel == req.Model {
		return gen, nil
	}

	p.logger.Printf("[NOTE] %s hit the token limit on %s, retrying on %s", stage, req.Model, escModel)
	p.telemetry.RecordEscalation(stage)
	req.Model = escModel
	if escalation.MaxTokens > 0 {
		req.MaxTokens = escalation.MaxTokens
	}
	start = time.Now()
	gen, err = p.provider.Generate(ctx, req)
	p.telemetry.RecordGeneration(stage, req.Model, time.Since(start), gen.PromptTokens, gen.OutputTokens, err)
	if err != nil {
		return provider.Generation{}, &provider.GenerationError{Stage: stage, Err: err}
	}
	return gen, nil
}
