// Package answer decodes the structured {answer, quotes} payload that models
// are prompted to return.
package answer

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMalformedPayload is returned when the text is not a recognizable payload.
// Callers fall back to using the raw text as the answer.
var ErrMalformedPayload = errors.New("malformed answer payload")

// Accepted key spellings, checked in order.
var (
	answerKeys = []string{"answer", "Answer", "ANSWER"}
	quotesKeys = []string{"quotes", "Quotes", "QUOTES", "qoutes", "Qoutes", "QOUTES"}
)

var fencePattern = regexp.MustCompile("(?s)^```[A-Za-z0-9_-]*[ \\t]*\\n?(.*?)\\n?[ \\t]*```$")

// Payload is a decoded model answer.
type Payload struct {
	Answer string
	Quotes []string
}

// Empty reports whether the payload carries neither an answer nor quotes.
func (p Payload) Empty() bool {
	return strings.TrimSpace(p.Answer) == "" && len(p.Quotes) == 0
}

// Parse decodes raw model output. One enclosing code fence is stripped. The
// result must be a JSON object with a string answer under one of the accepted
// keys; quotes, when present, must be an array, and entries that are not
// strings (or are blank) are dropped.
func Parse(raw string) (Payload, error) {
	text := StripFence(raw)
	if text == "" {
		return Payload{}, fmt.Errorf("%w: empty input", ErrMalformedPayload)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	rawAnswer, ok := lookup(fields, answerKeys)
	if !ok {
		return Payload{}, fmt.Errorf("%w: missing answer", ErrMalformedPayload)
	}
	var payload Payload
	if err := json.Unmarshal(rawAnswer, &payload.Answer); err != nil {
		return Payload{}, fmt.Errorf("%w: answer is not a string", ErrMalformedPayload)
	}

	rawQuotes, ok := lookup(fields, quotesKeys)
	if !ok || string(rawQuotes) == "null" {
		return payload, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(rawQuotes, &items); err != nil {
		return Payload{}, fmt.Errorf("%w: quotes is not an array", ErrMalformedPayload)
	}
	for _, item := range items {
		var quote string
		if err := json.Unmarshal(item, &quote); err != nil {
			continue
		}
		if quote = strings.TrimSpace(quote); quote != "" {
			payload.Quotes = append(payload.Quotes, quote)
		}
	}

	return payload, nil
}

// StripFence removes a single code fence (with optional language tag)
// enclosing the whole of s, and trims surrounding whitespace.
func StripFence(s string) string {
	text := strings.TrimSpace(s)
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

func lookup(fields map[string]json.RawMessage, keys []string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := fields[k]; ok {
			return v, true
		}
	}
	return nil, false
}
