package oracle

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind tells which shape an Envelope carries.
type Kind int

const (
	KindRaw Kind = iota
	KindMessage
	KindArray
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindRaw:
		return "raw"
	case KindMessage:
		return "message"
	case KindArray:
		return "array"
	case KindOpaque:
		return "opaque"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Envelope is the response wrapper returned by an oracle. Providers disagree
// on how they wrap the generated text, so the shape is kept until the
// sanitizer unwraps it.
type Envelope struct {
	kind  Kind
	text  string
	items []Envelope
	value any
}

// Raw wraps bare text.
func Raw(text string) Envelope {
	return Envelope{kind: KindRaw, text: text}
}

// Message wraps a chat message object whose content is text.
func Message(content string) Envelope {
	return Envelope{kind: KindMessage, text: content}
}

// Array wraps a list of envelopes, such as one message per choice.
func Array(items ...Envelope) Envelope {
	return Envelope{kind: KindArray, items: items}
}

// Opaque wraps any other value.
func Opaque(value any) Envelope {
	return Envelope{kind: KindOpaque, value: value}
}

// FromValue classifies a decoded JSON value.
//
//	"text"                                   -> Raw
//	{"message": {"content": "text"}}         -> Message
//	{"choices": [...]} or [...]              -> Array
//	anything else                            -> Opaque
func FromValue(v any) Envelope {
	switch val := v.(type) {
	case string:
		return Raw(val)
	case []any:
		items := make([]Envelope, 0, len(val))
		for _, item := range val {
			items = append(items, FromValue(item))
		}
		return Array(items...)
	case map[string]any:
		if content, ok := messageContent(val); ok {
			return Message(content)
		}
		if choices, ok := val["choices"].([]any); ok {
			return FromValue(choices)
		}
	}
	return Opaque(v)
}

func messageContent(obj map[string]any) (string, bool) {
	msg, ok := obj["message"].(map[string]any)
	if !ok {
		return "", false
	}
	content, ok := msg["content"].(string)
	return content, ok
}

func (e Envelope) Kind() Kind {
	return e.kind
}

// Items returns the wrapped envelopes of an Array.
func (e Envelope) Items() []Envelope {
	return e.items
}

// Text returns the deepest textual content: the raw text, the message
// content, or the text of the first array element. The boolean is false when
// the envelope holds no recognisable text.
func (e Envelope) Text() (string, bool) {
	switch e.kind {
	case KindRaw, KindMessage:
		return e.text, true
	case KindArray:
		if len(e.items) == 0 {
			return "", false
		}
		first := e.items[0]
		if first.kind == KindRaw || first.kind == KindMessage {
			return first.text, true
		}
	}
	return "", false
}

// String renders the envelope as text. Envelopes without recognisable text
// are serialized as JSON.
func (e Envelope) String() string {
	if text, ok := e.Text(); ok {
		return text
	}

	bytes, err := json.Marshal(e.jsonValue())
	if err != nil {
		return strings.TrimSpace(fmt.Sprintf("%v", e.jsonValue()))
	}
	return string(bytes)
}

func (e Envelope) jsonValue() any {
	switch e.kind {
	case KindRaw:
		return e.text
	case KindMessage:
		return map[string]any{"message": map[string]any{"content": e.text}}
	case KindArray:
		items := make([]any, 0, len(e.items))
		for _, item := range e.items {
			items = append(items, item.jsonValue())
		}
		return items
	default:
		return e.value
	}
}
