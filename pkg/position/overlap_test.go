package position_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/walteh/kaklsp/pkg/lsp/protocol"
	"github.com/walteh/kaklsp/pkg/position"
)

func diag(msg string, sl, sc, el, ec uint32) protocol.Diagnostic {
	return protocol.Diagnostic{
		Message: msg,
		Range: protocol.Range{
			Start: protocol.Position{Line: sl, Character: sc},
			End:   protocol.Position{Line: el, Character: ec},
		},
	}
}

func messages(diags []protocol.Diagnostic) []string {
	out := []string{}
	for _, d := range diags {
		out = append(out, d.Message)
	}
	return out
}

func TestDiagnosticsOnLine(t *testing.T) {
	diags := []protocol.Diagnostic{
		diag("a", 0, 0, 0, 4),
		diag("b", 1, 9, 3, 0),
		diag("c", 2, 0, 2, 1),
		diag("d", 3, 5, 3, 5),
		diag("e", 2, 7, 2, 3),
	}

	tests := []struct {
		line uint32
		want []string
	}{
		{line: 0, want: []string{"a"}},
		{line: 1, want: []string{"b"}},
		{line: 2, want: []string{"b", "c", "e"}},
		{line: 3, want: []string{"b", "d"}},
		{line: 4, want: []string{}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, messages(position.DiagnosticsOnLine(diags, tt.line)), "line %d", tt.line)
	}

	assert.Empty(t, position.DiagnosticsOnLine(nil, 0))
}

func TestDiagnosticsAtPoint_SingleLine(t *testing.T) {
	diags := []protocol.Diagnostic{diag("single", 2, 5, 2, 10)}

	tests := []struct {
		name  string
		point protocol.Position
		match bool
	}{
		{name: "inside", point: protocol.Position{Line: 2, Character: 7}, match: true},
		{name: "before start", point: protocol.Position{Line: 2, Character: 4}, match: false},
		{name: "at start", point: protocol.Position{Line: 2, Character: 5}, match: true},
		{name: "inclusive end", point: protocol.Position{Line: 2, Character: 10}, match: true},
		{name: "after end", point: protocol.Position{Line: 2, Character: 11}, match: false},
		{name: "next line", point: protocol.Position{Line: 3, Character: 0}, match: false},
		{name: "previous line", point: protocol.Position{Line: 1, Character: 7}, match: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := position.DiagnosticsAtPoint(diags, tt.point)
			if tt.match {
				assert.Equal(t, []string{"single"}, messages(got))
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestDiagnosticsAtPoint_MultiLine(t *testing.T) {
	diags := []protocol.Diagnostic{diag("multi", 4, 8, 6, 2)}

	tests := []struct {
		name  string
		point protocol.Position
		match bool
	}{
		{name: "interior line ignores character", point: protocol.Position{Line: 5, Character: 0}, match: true},
		{name: "interior line far character", point: protocol.Position{Line: 5, Character: 400}, match: true},
		{name: "first line before start", point: protocol.Position{Line: 4, Character: 3}, match: false},
		{name: "first line at start", point: protocol.Position{Line: 4, Character: 8}, match: true},
		{name: "first line has no upper bound", point: protocol.Position{Line: 4, Character: 90}, match: true},
		{name: "last line after end", point: protocol.Position{Line: 6, Character: 3}, match: false},
		{name: "last line at end", point: protocol.Position{Line: 6, Character: 2}, match: true},
		{name: "last line has no lower bound", point: protocol.Position{Line: 6, Character: 0}, match: true},
		{name: "before range", point: protocol.Position{Line: 3, Character: 9}, match: false},
		{name: "after range", point: protocol.Position{Line: 7, Character: 0}, match: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := position.DiagnosticsAtPoint(diags, tt.point)
			if tt.match {
				assert.Equal(t, []string{"multi"}, messages(got))
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestDiagnosticsAtPoint_PreservesOrder(t *testing.T) {
	diags := []protocol.Diagnostic{
		diag("z", 1, 0, 1, 9),
		diag("skip", 0, 0, 0, 1),
		diag("a", 0, 3, 2, 0),
		diag("z", 1, 0, 1, 9),
	}

	got := position.DiagnosticsAtPoint(diags, protocol.Position{Line: 1, Character: 4})
	assert.Equal(t, []string{"z", "a", "z"}, messages(got))
}
