package models

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse indicates model output that does not parse as JSON
// or does not satisfy the required schema. It is terminal: no partial note
// or graph is ever returned alongside it.
var ErrMalformedResponse = errors.New("malformed model response")

// TranscriptSegment is one recognized utterance: a start offset in seconds,
// an optional end offset and the recognized text. The ordered sequence of
// segments is the authoritative timeline for a recording.
type TranscriptSegment struct {
	Start int    `json:"start"`
	End   *int   `json:"end,omitempty"`
	Text  string `json:"text,omitempty"`
}

// Link is a citation attached to a note point.
type Link struct {
	Name string `json:"name"`
	Href string `json:"href"`
}

// Subtitle is a time-anchored elaboration of a Point. RawRecognition holds
// the transcript moments the sub-point is grounded in; the assembler never
// produces a subtitle with an empty RawRecognition.
type Subtitle struct {
	Subtitle       string              `json:"subtitle"`
	MD             string              `json:"md"`
	RawRecognition []TranscriptSegment `json:"raw_recognition"`
}

func (s Subtitle) Validate() error {
	if s.Subtitle == "" {
		return fmt.Errorf("subtitle heading is required")
	}
	if s.MD == "" {
		return fmt.Errorf("subtitle %q: md body is required", s.Subtitle)
	}
	if len(s.RawRecognition) == 0 {
		return fmt.Errorf("subtitle %q: raw_recognition must not be empty", s.Subtitle)
	}
	return nil
}

// Point is a top-level knowledge item in a note, rated by importance.
type Point struct {
	Name       string     `json:"name"`
	Importance int        `json:"importance"`
	Subtitles  []Subtitle `json:"subtitles"`
	Links      []Link     `json:"links"`
	Summary    string     `json:"summary"`
}

// NewPoint constructs a validated Point. Importance outside 1..5 is a
// structural error, never clamped.
func NewPoint(name string, importance int, subtitles []Subtitle, links []Link, summary string) (Point, error) {
	p := Point{Name: name, Importance: importance, Subtitles: subtitles, Links: links, Summary: summary}
	if err := p.Validate(); err != nil {
		return Point{}, err
	}
	return p, nil
}

func (p Point) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("point name is required")
	}
	if p.Importance < 1 || p.Importance > 5 {
		return fmt.Errorf("point %q: importance %d out of range 1..5", p.Name, p.Importance)
	}
	if len(p.Subtitles) == 0 {
		return fmt.Errorf("point %q: subtitles must not be empty", p.Name)
	}
	for _, s := range p.Subtitles {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("point %q: %w", p.Name, err)
		}
	}
	return nil
}

// Lecture is one recorded session reduced to its structured note content.
type Lecture struct {
	ID     int     `json:"id"`
	Topic  string  `json:"topic"`
	Points []Point `json:"points"`
}

// RecordResponse is the deliverable of the transcription pipeline.
type RecordResponse struct {
	ID             int                 `json:"id"`
	Duration       int                 `json:"duration"`
	Topic          string              `json:"topic"`
	Abstract       string              `json:"abstract"`
	RawRecognition []TranscriptSegment `json:"raw_recognition"`
}

// NoteRequest carries a recording's transcript into the note pipeline.
type NoteRequest struct {
	Topic          string              `json:"topic"`
	Abstract       string              `json:"abstract"`
	RawRecognition []TranscriptSegment `json:"raw_recognition"`
}

// NoteResponse is the deliverable of the note pipeline for one recording.
type NoteResponse struct {
	Points []Point `json:"points"`
}

func (n NoteResponse) Validate() error {
	for _, p := range n.Points {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// NodeCategory groups graph nodes by lecture topic. Idx is a dense 0-based
// index assigned per response; it is stable only within one response.
type NodeCategory struct {
	Idx  int    `json:"idx"`
	Name string `json:"name"`
}

// NoteRoute is a weak back-reference from a graph node to the lecture it
// resolves to and, for point nodes, the named point. Never an ownership edge.
type NoteRoute struct {
	ID    int    `json:"id"`
	Point string `json:"point,omitempty"`
}

// NodeKind distinguishes the two roles a Node can play.
type NodeKind uint8

const (
	// NodeKindTopic is the single node representing a whole lecture.
	NodeKindTopic NodeKind = iota
	// NodeKindPoint is a node representing one point within a lecture.
	NodeKindPoint
)

func (k NodeKind) String() string {
	if k == NodeKindPoint {
		return "point"
	}
	return "topic"
}

// Node is one vertex of the knowledge graph. The wire shape is flat; the
// role is recovered from the route: a route without a point names the
// lecture itself.
type Node struct {
	Idx      *int      `json:"idx,omitempty"`
	Name     string    `json:"name"`
	Category int       `json:"category"`
	Size     int       `json:"size"`
	Route    NoteRoute `json:"route"`
}

// Kind reports whether the node stands for a lecture topic or a point.
func (n Node) Kind() NodeKind {
	if n.Route.Point == "" {
		return NodeKindTopic
	}
	return NodeKindPoint
}

func (n Node) Validate() error {
	if n.Name == "" {
		return fmt.Errorf("node name is required")
	}
	if n.Size < 1 || n.Size > 5 {
		return fmt.Errorf("node %q: size %d out of range 1..5", n.Name, n.Size)
	}
	if n.Category < 0 {
		return fmt.Errorf("node %q: negative category index %d", n.Name, n.Category)
	}
	return nil
}

// NodeLink is a weighted source->target edge between two named nodes.
type NodeLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Weight int    `json:"weight"`
}

func (l NodeLink) Validate() error {
	if l.Source == "" || l.Target == "" {
		return fmt.Errorf("link endpoints are required")
	}
	if l.Weight < 1 || l.Weight > 5 {
		return fmt.Errorf("link %s->%s: weight %d out of range 1..5", l.Source, l.Target, l.Weight)
	}
	return nil
}

// NetworkRequest carries the structured lectures to relate into a graph.
type NetworkRequest struct {
	Lectures []Lecture `json:"lectures"`
}

// NetworkResponse is the knowledge graph across many lectures.
type NetworkResponse struct {
	Nodes      []Node         `json:"nodes"`
	Links      []NodeLink     `json:"links"`
	Categories []NodeCategory `json:"categories"`
}

// Validate enforces referential integrity: every node's category index must
// name an existing category and every link endpoint must name an existing
// node. Graph shape beyond that (cycles, connectivity) is not constrained.
func (r NetworkResponse) Validate() error {
	cats := make(map[int]struct{}, len(r.Categories))
	for _, c := range r.Categories {
		if c.Name == "" {
			return fmt.Errorf("category %d: name is required", c.Idx)
		}
		cats[c.Idx] = struct{}{}
	}
	names := make(map[string]struct{}, len(r.Nodes))
	for _, n := range r.Nodes {
		if err := n.Validate(); err != nil {
			return err
		}
		if _, ok := cats[n.Category]; !ok {
			return fmt.Errorf("node %q: unknown category index %d", n.Name, n.Category)
		}
		names[n.Name] = struct{}{}
	}
	for _, l := range r.Links {
		if err := l.Validate(); err != nil {
			return err
		}
		if _, ok := names[l.Source]; !ok {
			return fmt.Errorf("link source %q does not resolve to a node", l.Source)
		}
		if _, ok := names[l.Target]; !ok {
			return fmt.Errorf("link target %q does not resolve to a node", l.Target)
		}
	}
	return nil
}

// ExportRequest carries a finished note into the export renderer.
type ExportRequest struct {
	ID       int     `json:"id"`
	Topic    string  `json:"topic"`
	Abstract string  `json:"abstract"`
	Points   []Point `json:"points"`
}
