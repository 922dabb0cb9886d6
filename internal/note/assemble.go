package note

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zeyupan/autonotes/models"
)

// noteDocument mirrors the JSON document the structuring stage is prompted
// to emit. Timecodes stay strings here; AssembleNote converts them.
type noteDocument struct {
	Theme   string          `json:"theme"`
	Points  []notePoint     `json:"points"`
	Links   []models.Link   `json:"links"`
	Summary string          `json:"summary"`
}

type notePoint struct {
	Name       string         `json:"name"`
	Importance *int           `json:"importance"`
	Subtitles  []noteSubtitle `json:"subtitles"`
	Summary    string         `json:"summary"`
}

type noteSubtitle struct {
	Subtitle       string          `json:"subtitle"`
	MD             string          `json:"md"`
	RawRecognition []noteTimeRange `json:"raw_recognition"`
}

type noteTimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// AssembleNote parses the structured note document and builds the final
// response. Document-level links attach to every point; each point keeps
// its own summary, empty when the document carries none. Any structural
// defect, from unparseable JSON to an out-of-range importance or a
// malformed timecode, wraps models.ErrMalformedResponse.
func AssembleNote(doc string) (*models.NoteResponse, error) {
	var parsed noteDocument
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedResponse, err)
	}
	if len(parsed.Points) == 0 {
		return nil, fmt.Errorf("%w: note document has no points", models.ErrMalformedResponse)
	}

	points := make([]models.Point, 0, len(parsed.Points))
	for i, raw := range parsed.Points {
		if raw.Importance == nil {
			return nil, fmt.Errorf("%w: point %d is missing importance", models.ErrMalformedResponse, i)
		}
		if len(raw.Subtitles) == 0 {
			return nil, fmt.Errorf("%w: point %d has no subtitles", models.ErrMalformedResponse, i)
		}
		subtitles := make([]models.Subtitle, 0, len(raw.Subtitles))
		for _, sub := range raw.Subtitles {
			segments := make([]models.TranscriptSegment, 0, len(sub.RawRecognition))
			for _, tr := range sub.RawRecognition {
				start, err := ParseTimecode(tr.Start)
				if err != nil {
					return nil, fmt.Errorf("%w: %v", models.ErrMalformedResponse, err)
				}
				seg := models.TranscriptSegment{Start: start}
				if tr.End != "" {
					end, err := ParseTimecode(tr.End)
					if err != nil {
						return nil, fmt.Errorf("%w: %v", models.ErrMalformedResponse, err)
					}
					seg.End = &end
				}
				segments = append(segments, seg)
			}
			subtitles = append(subtitles, models.Subtitle{
				Subtitle:       sub.Subtitle,
				MD:             sub.MD,
				RawRecognition: segments,
			})
		}
		point, err := models.NewPoint(raw.Name, *raw.Importance, subtitles, parsed.Links, raw.Summary)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrMalformedResponse, err)
		}
		points = append(points, point)
	}
	return &models.NoteResponse{Points: points}, nil
}

// Note runs the whole pipeline on one transcript: synthesis, structuring,
// assembly.
func (p *Pipeline) Note(ctx context.Context, segments []models.TranscriptSegment) (*models.NoteResponse, error) {
	noteText, err := p.Synthesize(ctx, segments)
	if err != nil {
		return nil, err
	}
	doc, err := p.Structure(ctx, noteText)
	if err != nil {
		return nil, err
	}
	resp, err := AssembleNote(doc)
	if err != nil {
		return nil, err
	}
	p.logger.Printf("[NOTE] assembled %d points from a %d segment transcript", len(resp.Points), len(segments))
	return resp, nil
}
