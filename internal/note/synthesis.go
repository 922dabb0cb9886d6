package note

import (
	"context"
	"strings"

	"github.com/zeyupan/autonotes/models"
	"github.com/zeyupan/autonotes/provider"
)

const synthesisInstruction = `You are given the transcript of one classroom lecture as a list of lines. Each line starts with the time the sentence was spoken, a tab, and the sentence text. Speech recognition is imperfect: first correct obvious recognition errors from context, then write a complete classroom note in plain text. The note must contain:

1. The topic of the lecture.
2. A short abstract of the whole lecture.
3. Detailed notes for every knowledge point. Each point has a name, an importance rating and the sub-points that explain it: definitions, properties, applications, proofs and worked examples all count as their own sub-point. Prefix every sub-point heading with the time the concept is first mentioned in the transcript, and check that time carefully. After each sub-point, copy the transcript sentences that belong to it, unchanged.
4. A few keywords of the lecture with reference websites for further reading.

Cover the whole timeline of the transcript and do not drop any point.

Rate importance as an integer from 1 to 5, combining the lecturer's emphasis with your own knowledge of the subject:
5 - core of the whole subject, the point everything later builds on. Use at most one rating of 5 per lecture.
4 - focus of this unit, examined directly and often.
3 - foundation material needed to follow the rest of the unit.
2 - secondary material that supports the main thread.
1 - background mentioned for awareness only.`

// renderTranscript joins segments into the timecoded line format the
// synthesis model is prompted with, one "HH:MM:SS<tab>text" line each.
func renderTranscript(segments []models.TranscriptSegment) string {
	var b strings.Builder
	for _, seg := range segments {
		b.WriteString(FormatTimecode(seg.Start))
		b.WriteByte('\t')
		b.WriteString(strings.ReplaceAll(seg.Text, "\n", " "))
		b.WriteByte('\n')
	}
	return b.String()
}

// escapeBraces doubles curly braces so note text cannot be mistaken for
// template placeholders by any downstream formatter.
func escapeBraces(s string) string {
	s = strings.ReplaceAll(s, "{", "{{")
	return strings.ReplaceAll(s, "}", "}}")
}

// Synthesize produces the free-form lecture note from a transcript. When
// the completion hits the token limit the stage escalates once to the
// long-context model.
func (p *Pipeline) Synthesize(ctx context.Context, segments []models.TranscriptSegment) (string, error) {
	req := provider.Request{
		Model:     p.cfg.NoteModel.APIModel(),
		System:    synthesisInstruction,
		Input:     renderTranscript(segments),
		MaxTokens: p.cfg.NoteModel.MaxTokens,
	}
	gen, err := p.generateWithOverflowRetry(ctx, "note_synthesis", req, p.cfg.LongformModel)
	if err != nil {
		return "", err
	}
	return escapeBraces(gen.Text), nil
}
