package oracle

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencePattern = regexp.MustCompile("(?i)```(?:json)?")

// Sanitize unwraps the envelope and strips markdown code fences. When the
// payload is surrounded by prose, only the outermost JSON looking span is
// kept. It never validates the payload.
func Sanitize(e Envelope) string {
	text := strings.TrimSpace(e.String())
	text = fencePattern.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	return isolatePayload(text)
}

// isolatePayload keeps the longest span that parses as JSON. Without one it
// falls back to the span opened by the first bracket.
func isolatePayload(text string) string {
	if text == "" || text[0] == '{' || text[0] == '[' {
		return text
	}

	var (
		fallback string
		best     string
		first    = len(text)
	)
	for _, pair := range [][2]byte{{'{', '}'}, {'[', ']'}} {
		start := strings.IndexByte(text, pair[0])
		if start == -1 {
			continue
		}
		end := strings.LastIndexByte(text, pair[1])
		if end <= start {
			continue
		}

		span := strings.TrimSpace(text[start : end+1])
		if start < first {
			first, fallback = start, span
		}
		if json.Valid([]byte(span)) && len(span) > len(best) {
			best = span
		}
	}

	switch {
	case best != "":
		return best
	case fallback != "":
		return fallback
	default:
		return text
	}
}
