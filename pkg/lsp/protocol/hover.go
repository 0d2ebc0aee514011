package protocol

import (
	"bytes"
	"encoding/json"

	"gitlab.com/tozd/go/errors"
)

type MarkupKind string

const (
	PlainText MarkupKind = "plaintext"
	Markdown  MarkupKind = "markdown"
)

type MarkupContent struct {
	Kind  MarkupKind `json:"kind"`
	Value string     `json:"value"`
}

// MarkedString is either verbatim markdown text (Language empty) or a
// language-tagged code block.
type MarkedString struct {
	Language string
	Value    string
}

// IsCode reports whether the marked string was sent as a {language, value} pair.
func (s MarkedString) IsCode() bool {
	return s.Language != ""
}

func (s MarkedString) MarshalJSON() ([]byte, error) {
	if !s.IsCode() {
		return json.Marshal(s.Value)
	}
	type markedString struct {
		Language string `json:"language"`
		Value    string `json:"value"`
	}
	return json.Marshal(markedString(s))
}

func (s *MarkedString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = MarkedString{Value: str}
		return nil
	}

	var pair struct {
		Language string `json:"language"`
		Value    string `json:"value"`
	}
	if err := json.Unmarshal(data, &pair); err != nil {
		return errors.Errorf("decoding marked string: %w", err)
	}
	*s = MarkedString{Language: pair.Language, Value: pair.Value}
	return nil
}

// HoverContents is one of ScalarContents, ArrayContents or MarkupContents.
type HoverContents interface {
	isHoverContents()
}

type ScalarContents struct {
	MarkedString
}

type ArrayContents []MarkedString

type MarkupContents struct {
	MarkupContent
}

func (ScalarContents) isHoverContents() {}
func (ArrayContents) isHoverContents()  {}
func (MarkupContents) isHoverContents() {}

type Hover struct {
	Contents HoverContents `json:"-"`
	Range    *Range        `json:"range,omitempty"`
}

func (h *Hover) UnmarshalJSON(data []byte) error {
	var raw struct {
		Contents json.RawMessage `json:"contents"`
		Range    *Range          `json:"range,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Errorf("decoding hover: %w", err)
	}

	contents, err := decodeHoverContents(raw.Contents)
	if err != nil {
		return err
	}

	h.Contents = contents
	h.Range = raw.Range
	return nil
}

func (h Hover) MarshalJSON() ([]byte, error) {
	var contents any
	switch c := h.Contents.(type) {
	case ScalarContents:
		contents = c.MarkedString
	case ArrayContents:
		contents = []MarkedString(c)
	case MarkupContents:
		contents = c.MarkupContent
	case nil:
		contents = ""
	default:
		panic(errors.Errorf("unexpected hover contents %T", c))
	}

	return json.Marshal(struct {
		Contents any    `json:"contents"`
		Range    *Range `json:"range,omitempty"`
	}{contents, h.Range})
}

func decodeHoverContents(raw json.RawMessage) (HoverContents, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ScalarContents{}, nil
	}

	switch trimmed[0] {
	case '[':
		var arr []MarkedString
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return nil, errors.Errorf("decoding hover contents array: %w", err)
		}
		return ArrayContents(arr), nil
	case '{':
		var probe struct {
			Kind *MarkupKind `json:"kind"`
		}
		if err := json.Unmarshal(trimmed, &probe); err != nil {
			return nil, errors.Errorf("decoding hover contents: %w", err)
		}
		if probe.Kind != nil {
			var mc MarkupContent
			if err := json.Unmarshal(trimmed, &mc); err != nil {
				return nil, errors.Errorf("decoding markup content: %w", err)
			}
			return MarkupContents{mc}, nil
		}
	}

	var ms MarkedString
	if err := json.Unmarshal(trimmed, &ms); err != nil {
		return nil, err
	}
	return ScalarContents{ms}, nil
}
