package position

import (
	"sort"
	"strings"

	"github.com/walteh/kaklsp/pkg/lsp/protocol"
	"gitlab.com/tozd/go/errors"
)

// ApplyEdits applies edits to text. All ranges refer to the original text, and
// edits starting at the same place are applied in the order given.
func ApplyEdits(text string, edits []protocol.TextEdit, enc OffsetEncoding) (string, error) {
	type span struct {
		start, end int
		newText    string
	}

	spans := make([]span, 0, len(edits))
	for _, e := range edits {
		start, err := Offset(text, e.Range.Start, enc)
		if err != nil {
			return "", errors.Errorf("edit start %s: %w", e.Range.Start, err)
		}
		end, err := Offset(text, e.Range.End, enc)
		if err != nil {
			return "", errors.Errorf("edit end %s: %w", e.Range.End, err)
		}
		if end < start {
			return "", errors.Errorf("edit range %s is reversed", e.Range)
		}
		spans = append(spans, span{start: start, end: end, newText: e.NewText})
	}

	sort.SliceStable(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var b strings.Builder
	b.Grow(len(text))
	cursor := 0
	for _, s := range spans {
		if s.start < cursor {
			return "", errors.Errorf("overlapping edits at byte %d", s.start)
		}
		b.WriteString(text[cursor:s.start])
		b.WriteString(s.newText)
		cursor = s.end
	}
	b.WriteString(text[cursor:])

	return b.String(), nil
}
