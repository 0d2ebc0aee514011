// Package hover renders hover responses and the diagnostics under the cursor
// into a single show-hover directive.
package hover

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/kaklsp/pkg/kakoune"
	"github.com/walteh/kaklsp/pkg/lsp/protocol"
	"github.com/walteh/kaklsp/pkg/markup"
	"github.com/walteh/kaklsp/pkg/position"
)

// DiagnosticFace maps a severity to its face. A missing severity uses the
// default face silently, an unknown one logs a warning first.
func DiagnosticFace(ctx context.Context, severity *protocol.DiagnosticSeverity) string {
	if severity == nil {
		return kakoune.FaceDefault
	}

	switch *severity {
	case protocol.SeverityError:
		return kakoune.FaceDiagnosticError
	case protocol.SeverityWarning:
		return kakoune.FaceDiagnosticWarning
	case protocol.SeverityInformation:
		return kakoune.FaceDiagnosticInformation
	case protocol.SeverityHint:
		return kakoune.FaceDiagnosticHint
	default:
		zerolog.Ctx(ctx).Warn().Int("severity", int(*severity)).Msg("unexpected diagnostic severity")
		return kakoune.FaceDefault
	}
}

// RenderDiagnostics renders one bulleted entry per diagnostic, in order.
// Diagnostics with an empty message are left out; a blank one still gets its
// bullet.
func RenderDiagnostics(ctx context.Context, diags []protocol.Diagnostic) string {
	lines := make([]string, 0, len(diags))
	for _, d := range diags {
		if d.Message == "" {
			continue
		}

		face := DiagnosticFace(ctx, d.Severity)
		// escape before wrapping, then indent line breaks under the bullet
		body := strings.ReplaceAll(kakoune.EscapeBrace(strings.TrimSpace(d.Message)), "\n", "\n  ")
		lines = append(lines, "• "+kakoune.Faced(face, body))
	}
	return strings.Join(lines, "\n")
}

// RenderContents renders the hover contents. forcePlaintext applies to
// markdown-tagged content only.
func RenderContents(contents protocol.HoverContents, forcePlaintext bool) string {
	switch c := contents.(type) {
	case nil:
		return ""
	case protocol.ScalarContents:
		return markup.MarkedStringToKakoune(c.MarkedString, forcePlaintext)
	case protocol.ArrayContents:
		parts := make([]string, 0, len(c))
		for _, ms := range c {
			if rendered := markup.MarkedStringToKakoune(ms, forcePlaintext); rendered != "" {
				parts = append(parts, rendered)
			}
		}
		return strings.Join(parts, kakoune.Rule)
	case protocol.MarkupContents:
		if c.Kind == protocol.Markdown {
			return markup.MarkdownToKakoune(c.Value, forcePlaintext)
		}
		return c.Value
	default:
		panic("unexpected hover contents type")
	}
}

// Render combines a hover response with the diagnostics at pos. It reports
// false when there is nothing to show.
func Render(ctx context.Context, pos position.KakounePosition, h *protocol.Hover, diags []protocol.Diagnostic, forcePlaintext bool) (kakoune.Directive, bool) {
	var contents string
	if h != nil {
		contents = RenderContents(h.Contents, forcePlaintext)
	}
	diagnostics := RenderDiagnostics(ctx, diags)

	if contents == "" && diagnostics == "" {
		return kakoune.Directive{}, false
	}

	return kakoune.ShowHover(pos, contents, diagnostics), true
}
