// Package export renders a finished note into a markdown document on disk.
package export

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeyupan/autonotes/config"
	"github.com/zeyupan/autonotes/internal/note"
	"github.com/zeyupan/autonotes/models"
)

type Renderer struct {
	outputDir string
	logger    *log.Logger
}

func NewRenderer(cfg config.ExportConfig, logger *log.Logger) *Renderer {
	if logger == nil {
		logger = log.Default()
	}
	dir := cfg.OutputDir
	if dir == "" {
		dir = "."
	}
	return &Renderer{outputDir: dir, logger: logger}
}

// Render produces the markdown document for one note. Points keep their
// request order; subtitles carry the start time of their first transcript
// anchor in the heading.
func Render(req models.ExportRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", req.Topic)
	if req.Abstract != "" {
		fmt.Fprintf(&b, "%s\n\n", req.Abstract)
	}
	for _, p := range req.Points {
		fmt.Fprintf(&b, "## %s %s\n\n", strings.TrimPrefix(p.Name, "#"), strings.Repeat("★", p.Importance))
		for _, s := range p.Subtitles {
			heading := strings.TrimPrefix(s.Subtitle, "#")
			if len(s.RawRecognition) > 0 {
				fmt.Fprintf(&b, "### %s (%s)\n\n", heading, note.FormatTimecode(s.RawRecognition[0].Start))
			} else {
				fmt.Fprintf(&b, "### %s\n\n", heading)
			}
			fmt.Fprintf(&b, "%s\n\n", s.MD)
		}
		if p.Summary != "" {
			fmt.Fprintf(&b, "%s\n\n", p.Summary)
		}
		if len(p.Links) > 0 {
			b.WriteString("Further reading:\n\n")
			for _, l := range p.Links {
				fmt.Fprintf(&b, "- [%s](%s)\n", l.Name, l.Href)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Export validates the note, renders it and writes it under the output
// directory. It returns the path of the written document.
func (r *Renderer) Export(req models.ExportRequest) (string, error) {
	if req.Topic == "" {
		return "", fmt.Errorf("export topic is required")
	}
	for _, p := range req.Points {
		if err := p.Validate(); err != nil {
			return "", fmt.Errorf("export request: %w", err)
		}
	}
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	path := filepath.Join(r.outputDir, fmt.Sprintf("%d-%s.md", req.ID, slug(req.Topic)))
	if err := os.WriteFile(path, []byte(Render(req)), 0o644); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}
	r.logger.Printf("[EXPORT] wrote %s (%d points)", path, len(req.Points))
	return path, nil
}

// slug keeps letters, digits and CJK characters, joining runs of anything
// else with a single dash.
func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range s {
		switch {
		case r == ' ' || r == '/' || r == '\\' || r == ':' || r == '.':
			if b.Len() > 0 && !dash {
				b.WriteByte('-')
				dash = true
			}
		default:
			b.WriteRune(r)
			dash = false
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
