package position

import "github.com/walteh/kaklsp/pkg/lsp/protocol"

// DiagnosticsOnLine returns the diagnostics whose range touches line, in their
// original order. Characters are ignored.
func DiagnosticsOnLine(diags []protocol.Diagnostic, line uint32) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		if d.Range.Start.Line <= line && line <= d.Range.End.Line {
			out = append(out, d)
		}
	}
	return out
}

// DiagnosticsAtPoint returns the diagnostics whose range contains point, in
// their original order.
func DiagnosticsAtPoint(diags []protocol.Diagnostic, point protocol.Position) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		if RangeContainsPoint(d.Range, point) {
			out = append(out, d)
		}
	}
	return out
}

// RangeContainsPoint matches if any of the four cases holds. On the first line
// of a multi-line range only the start character bounds the point, and on the
// last line only the end character does.
func RangeContainsPoint(r protocol.Range, p protocol.Position) bool {
	start, end := r.Start, r.End

	interior := start.Line < p.Line && p.Line < end.Line

	singleLine := start.Line == p.Line && p.Line == end.Line &&
		start.Character <= p.Character && p.Character <= end.Character

	firstLine := start.Line == p.Line && end.Line > p.Line &&
		start.Character <= p.Character

	lastLine := start.Line < p.Line && end.Line == p.Line &&
		p.Character <= end.Character

	return interior || singleLine || firstLine || lastLine
}
