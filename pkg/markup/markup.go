// Package markup converts hover documentation into Kakoune markup.
package markup

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/walteh/kaklsp/pkg/kakoune"
	"github.com/walteh/kaklsp/pkg/lsp/protocol"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var md = goldmark.New()

// MarkdownToKakoune renders markdown as Kakoune markup. With forcePlaintext the
// text is only brace-escaped, for servers that label plain text as markdown.
func MarkdownToKakoune(markdown string, forcePlaintext bool) string {
	if forcePlaintext {
		return kakoune.EscapeBrace(markdown)
	}
	if strings.TrimSpace(markdown) == "" {
		return ""
	}

	src := []byte(markdown)
	doc := md.Parser().Parse(text.NewReader(src))

	var buf bytes.Buffer
	r := &renderer{src: src}
	r.renderChildren(&buf, doc)

	return strings.TrimRight(buf.String(), "\n")
}

// MarkedStringToKakoune renders a single marked string. Language-tagged strings
// are code, never markdown, so forcePlaintext does not apply to them.
func MarkedStringToKakoune(ms protocol.MarkedString, forcePlaintext bool) string {
	if !ms.IsCode() {
		return MarkdownToKakoune(ms.Value, forcePlaintext)
	}
	return MarkdownToKakoune("```"+ms.Language+"\n"+ms.Value+"\n```", false)
}

type renderer struct {
	src []byte
}

func (r *renderer) renderChildren(w *bytes.Buffer, node ast.Node) {
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		r.renderNode(w, child)
	}
}

func (r *renderer) renderNode(w *bytes.Buffer, node ast.Node) {
	switch n := node.(type) {
	case *ast.Paragraph:
		r.renderChildren(w, n)
		w.WriteString("\n\n")

	case *ast.TextBlock:
		r.renderChildren(w, n)
		w.WriteString("\n")

	case *ast.Heading:
		var inner bytes.Buffer
		r.renderChildren(&inner, n)
		w.WriteString(kakoune.Faced(kakoune.FaceHeader, inner.String()))
		w.WriteString("\n\n")

	case *ast.ThematicBreak:
		w.WriteString(kakoune.Faced(kakoune.FaceRule, "---"))
		w.WriteString("\n\n")

	case *ast.Blockquote:
		var inner bytes.Buffer
		r.renderChildren(&inner, n)
		for _, line := range strings.Split(strings.TrimRight(inner.String(), "\n"), "\n") {
			w.WriteString(kakoune.Faced(kakoune.FaceBlockQuote, "> "))
			w.WriteString(line)
			w.WriteString("\n")
		}
		w.WriteString("\n")

	case *ast.FencedCodeBlock:
		r.renderCodeLines(w, n)

	case *ast.CodeBlock:
		r.renderCodeLines(w, n)

	case *ast.List:
		r.renderList(w, n)

	case *ast.Text:
		w.WriteString(kakoune.EscapeBrace(decodeText(n.Segment.Value(r.src))))
		if n.SoftLineBreak() || n.HardLineBreak() {
			w.WriteString("\n")
		}

	case *ast.String:
		w.WriteString(kakoune.EscapeBrace(string(n.Value)))

	case *ast.CodeSpan:
		var inner bytes.Buffer
		r.renderPlainText(&inner, n)
		w.WriteString(kakoune.Faced(kakoune.FaceMono, inner.String()))

	case *ast.Emphasis:
		var inner bytes.Buffer
		r.renderChildren(&inner, n)
		face := kakoune.FaceAttributeItalicDefault
		if n.Level >= 2 {
			face = kakoune.FaceAttributeBoldDefault
		}
		w.WriteString(kakoune.Faced(face, inner.String()))

	case *ast.Link:
		var inner bytes.Buffer
		r.renderChildren(&inner, n)
		w.WriteString(kakoune.Faced(kakoune.FaceLink, inner.String()))

	case *ast.AutoLink:
		w.WriteString(kakoune.Faced(kakoune.FaceLink, kakoune.EscapeBrace(string(n.URL(r.src)))))

	case *ast.Image:
		r.renderChildren(w, n)

	case *ast.RawHTML:
		segs := n.Segments
		for i := 0; i < segs.Len(); i++ {
			seg := segs.At(i)
			w.WriteString(kakoune.EscapeBrace(string(seg.Value(r.src))))
		}

	case *ast.HTMLBlock:
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			w.WriteString(kakoune.EscapeBrace(string(line.Value(r.src))))
		}
		w.WriteString("\n")

	default:
		r.renderChildren(w, node)
	}
}

func (r *renderer) renderCodeLines(w *bytes.Buffer, node ast.Node) {
	var code bytes.Buffer
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		code.Write(line.Value(r.src))
	}
	w.WriteString(kakoune.Faced(kakoune.FaceBlock, kakoune.EscapeBrace(strings.TrimRight(code.String(), "\n"))))
	w.WriteString("\n\n")
}

// decodeText resolves backslash escapes and entity references in inline text.
// Code spans and blocks are literal and never go through it.
func decodeText(raw []byte) string {
	decoded := util.UnescapePunctuations(raw)
	decoded = util.ResolveNumericReferences(decoded)
	decoded = util.ResolveEntityNames(decoded)
	return string(decoded)
}

// renderPlainText writes the literal text below node without any markup.
func (r *renderer) renderPlainText(w *bytes.Buffer, node ast.Node) {
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		if t, ok := child.(*ast.Text); ok {
			w.WriteString(kakoune.EscapeBrace(string(t.Segment.Value(r.src))))
		} else {
			r.renderPlainText(w, child)
		}
	}
}

func (r *renderer) renderList(w *bytes.Buffer, list *ast.List) {
	idx := list.Start
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		bullet := "•"
		if list.IsOrdered() {
			bullet = strconv.Itoa(idx) + "."
			idx++
		}
		w.WriteString(kakoune.Faced(kakoune.FaceBullet, bullet))
		w.WriteString(" ")

		var inner bytes.Buffer
		r.renderChildren(&inner, item)
		// continuation lines line up under the item text
		indent := strings.Repeat(" ", len([]rune(bullet))+1)
		w.WriteString(strings.ReplaceAll(strings.TrimRight(inner.String(), "\n"), "\n", "\n"+indent))
		w.WriteString("\n")
	}
	w.WriteString("\n")
}
