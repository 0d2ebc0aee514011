// Package kakoune holds the text-level contract with the editor: quoting,
// markup escaping, faces and the directives the bridge emits.
package kakoune

import "strings"

// Quote wraps s in single quotes, doubling embedded quotes, so the editor
// parses it back as exactly one word.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

var (
	braceEscaper   = strings.NewReplacer("{", `\{`, "}", `\}`)
	braceUnescaper = strings.NewReplacer(`\{`, "{", `\}`, "}")
)

// EscapeBrace escapes the face delimiters so text can be embedded in markup.
// It must run before any face annotation is added.
func EscapeBrace(s string) string {
	return braceEscaper.Replace(s)
}

// UnescapeBrace reverses EscapeBrace.
func UnescapeBrace(s string) string {
	return braceUnescaper.Replace(s)
}

// Delimiter bounds %§…§ strings.
const Delimiter = "§"

// EscapeDelimiter doubles every delimiter so s can sit inside %§…§.
func EscapeDelimiter(s string) string {
	return strings.ReplaceAll(s, Delimiter, Delimiter+Delimiter)
}

// DelimitedString renders s as a %§…§ string.
func DelimitedString(s string) string {
	return "%" + Delimiter + EscapeDelimiter(s) + Delimiter
}
