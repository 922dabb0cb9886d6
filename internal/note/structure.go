package note

import (
	"context"

	"github.com/zeyupan/autonotes/config"
	"github.com/zeyupan/autonotes/provider"
)

const structuringInstruction = `Split the classroom note the user provides and output a single .json document. Output the JSON itself, not a program that produces it, on one line, with nothing before or after it. The document must contain:

1. "theme": the topic of the lecture.
2. "points": a list with one object per knowledge point. Each object has "name", "importance" (an integer from 1 to 5 where 5 is the most important) and "subtitles": a list of objects with "subtitle" (a concise word or phrase as a markdown level-1 heading), "md" (the explanation of the sub-point in markdown, using bold or italics where appropriate) and "raw_recognition" (a list of {"start", "end"} time ranges covering the sub-point in the transcript).
3. "links": a list of {"name", "href"} keyword reference sites.
4. "summary": the abstract of the lecture.

Example:
{"theme": "Second- and third-order determinants", "points": [{"name": "#Second-order determinant", "importance": 4, "subtitles": [{"subtitle": "#Definition", "md": "A **second-order determinant** is the value ad-bc of a 2x2 array.", "raw_recognition": [{"start": "00:00", "end": "01:58"}]}, {"subtitle": "#Application", "md": "Solving a pair of linear equations in two unknowns by *Cramer's rule*.", "raw_recognition": [{"start": "01:58", "end": "03:24"}]}]}], "links": [{"name": "Determinant", "href": "https://en.wikipedia.org/wiki/Determinant"}], "summary": "Introduces second- and third-order determinants and uses them to solve small linear systems."}`

// structuringModelFor picks the model the structuring call starts on.
// Long notes go straight to the long-context model instead of burning a
// doomed attempt on the default one.
func (p *Pipeline) structuringModelFor(noteText string) config.LLMModel {
	if p.cfg.StructuringThreshold > 0 && len(noteText) > p.cfg.StructuringThreshold {
		return p.cfg.LongformModel
	}
	return p.cfg.StructuringModel
}

// Structure converts a free-form note into the JSON note document. The
// call runs at temperature zero and escalates once on truncation.
func (p *Pipeline) Structure(ctx context.Context, noteText string) (string, error) {
	model := p.structuringModelFor(noteText)
	temp := 0.0
	req := provider.Request{
		Model:       model.APIModel(),
		System:      structuringInstruction,
		Input:       noteText,
		MaxTokens:   model.MaxTokens,
		Temperature: &temp,
	}
	gen, err := p.generateWithOverflowRetry(ctx, "note_structuring", req, p.cfg.LongformModel)
	if err != nil {
		return "", err
	}
	return provider.StripFences(gen.Text), nil
}
