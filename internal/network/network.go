// Package network relates the points of many lectures into one knowledge
// graph with a single model call.
package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/zeyupan/autonotes/config"
	"github.com/zeyupan/autonotes/internal/telemetry"
	"github.com/zeyupan/autonotes/models"
	"github.com/zeyupan/autonotes/provider"
)

const graphInstruction = `You are given a JSON list of classroom lectures. Each lecture has an "id", a "topic" and a list of "points" with "name" and "importance". Build a knowledge network over all of them and output a single .json document, on one line, with nothing before or after it:

1. "categories": one category per lecture topic, as {"idx", "name"} with a dense 0-based idx.
2. "nodes": one node per lecture topic with {"name", "category", "size": 5, "route": {"id"}} where id is the lecture id, and one node per point with {"name", "category", "size", "route": {"id", "point"}}. Size is the point's importance from 1 to 5 and category is the idx of the lecture's category.
3. "links": analyze which points depend on, generalize or contrast with each other, across lectures as well as within one, and emit {"source", "target", "weight"} edges between node names with an integer weight from 1 (loose) to 5 (tight).

Example:
{"categories": [{"idx": 0, "name": "Determinants"}], "nodes": [{"name": "Determinants", "category": 0, "size": 5, "route": {"id": 3}}, {"name": "#Second-order determinant", "category": 0, "size": 4, "route": {"id": 3, "point": "#Second-order determinant"}}], "links": [{"source": "Determinants", "target": "#Second-order determinant", "weight": 5}]}`

// Synthesizer builds the cross-lecture knowledge graph.
type Synthesizer struct {
	model     config.LLMModel
	provider  provider.Provider
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

func NewSynthesizer(model config.LLMModel, p provider.Provider, tel *telemetry.Telemetry, logger *log.Logger) *Synthesizer {
	if logger == nil {
		logger = log.Default()
	}
	return &Synthesizer{model: model, provider: p, telemetry: tel, logger: logger}
}

type lectureProjection struct {
	ID     int               `json:"id"`
	Topic  string            `json:"topic"`
	Points []pointProjection `json:"points"`
}

type pointProjection struct {
	Name       string `json:"name"`
	Importance int    `json:"importance"`
}

// project reduces lectures to the shape the graph model is prompted with.
// Subtitles, links and summaries are deliberately dropped; the graph is
// built over names and importance alone.
func project(lectures []models.Lecture) []lectureProjection {
	out := make([]lectureProjection, 0, len(lectures))
	for _, lec := range lectures {
		points := make([]pointProjection, 0, len(lec.Points))
		for _, p := range lec.Points {
			points = append(points, pointProjection{Name: p.Name, Importance: p.Importance})
		}
		out = append(out, lectureProjection{ID: lec.ID, Topic: lec.Topic, Points: points})
	}
	return out
}

// Graph relates the given lectures into one validated knowledge graph.
// The call runs at temperature zero and is never retried: a truncated
// graph is structurally useless, so truncation is an error.
func (s *Synthesizer) Graph(ctx context.Context, lectures []models.Lecture) (*models.NetworkResponse, error) {
	if len(lectures) == 0 {
		return nil, fmt.Errorf("%w: no lectures to relate", models.ErrMalformedResponse)
	}
	input, err := json.Marshal(project(lectures))
	if err != nil {
		return nil, fmt.Errorf("encoding lectures: %w", err)
	}

	temp := 0.0
	req := provider.Request{
		Model:       s.model.APIModel(),
		System:      graphInstruction,
		Input:       string(input),
		MaxTokens:   s.model.MaxTokens,
		Temperature: &temp,
	}
	start := time.Now()
	gen, err := s.provider.Generate(ctx, req)
	s.telemetry.RecordGeneration("network_synthesis", req.Model, time.Since(start), gen.PromptTokens, gen.OutputTokens, err)
	if err != nil {
		return nil, &provider.GenerationError{Stage: "network_synthesis", Err: err}
	}
	if gen.Truncated() {
		return nil, &provider.GenerationError{Stage: "network_synthesis", Err: errors.New("graph output hit the token limit")}
	}

	var resp models.NetworkResponse
	if err := json.Unmarshal([]byte(provider.StripFences(gen.Text)), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedResponse, err)
	}
	if err := resp.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedResponse, err)
	}
	s.logger.Printf("[NETWORK] related %d lectures into %d nodes and %d links", len(lectures), len(resp.Nodes), len(resp.Links))
	return &resp, nil
}
