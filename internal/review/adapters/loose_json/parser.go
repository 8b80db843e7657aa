// Package loosejson decodes the near-JSON text language models tend to emit.
package loosejson

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseError is returned when input cannot be decoded at all.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("loose json: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsParseError checks if an error is or wraps a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// Parse decodes raw into an object or array of maps, slices and scalars.
//
// Well-formed JSON is decoded with encoding/json. Anything else has its
// markdown fences dropped and is searched for balanced objects or arrays; the
// first one that decodes, as JSON or as a YAML flow collection, wins. YAML flow
// accepts unquoted keys and values and single-quoted strings. When no block
// decodes, the whole fence-stripped text is tried as YAML.
func Parse(raw string) (any, error) {
	return parse(raw, isCollection, "object or array")
}

// ParseObject is Parse restricted to objects. Blocks that decode to anything
// else are skipped in favour of a later object.
func ParseObject(raw string) (map[string]any, error) {
	v, err := parse(raw, isObject, "object")
	if err != nil {
		return nil, err
	}
	return v.(map[string]any), nil
}

func isCollection(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

func isObject(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

func parse(raw string, accept func(any) bool, want string) (any, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, &ParseError{Input: raw, Err: errors.New("empty input")}
	}

	var v any
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		if !accept(v) {
			return nil, &ParseError{Input: raw, Err: fmt.Errorf("decoded %T, want %s", v, want)}
		}
		return v, nil
	}

	text = stripFences(text)
	var (
		found   bool
		lastErr error
	)
	for rest := text; ; {
		block, next, ok := nextBlock(rest)
		if !ok {
			break
		}
		found = true
		rest = next

		v, err := decodeBlock(block)
		if err != nil {
			lastErr = err
			continue
		}
		if accept(v) {
			return v, nil
		}
		lastErr = fmt.Errorf("decoded %T, want %s", v, want)
	}

	var whole any
	if err := yaml.Unmarshal([]byte(text), &whole); err == nil && accept(whole) {
		return whole, nil
	}

	if !found {
		return nil, &ParseError{Input: raw, Err: fmt.Errorf("no %s found", want)}
	}
	return nil, &ParseError{Input: raw, Err: lastErr}
}

func decodeBlock(block string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(block), &v); err == nil {
		return v, nil
	}
	if err := yaml.Unmarshal([]byte(block), &v); err != nil {
		return nil, err
	}
	return v, nil
}

func stripFences(text string) string {
	start := strings.Index(text, "```")
	if start < 0 {
		return text
	}
	rest := text[start+3:]
	// Drop the info string ("json", "yaml", ...) on the opening fence line.
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return rest
}

// nextBlock returns the first balanced {...} or [...] in text and the text
// after its opening bracket, so a caller can keep looking for later blocks.
func nextBlock(text string) (block, rest string, ok bool) {
	for {
		start := strings.IndexAny(text, "{[")
		if start < 0 {
			return "", "", false
		}
		if end, ok := closing(text, start); ok {
			return text[start:end], text[start+1:], true
		}
		text = text[start+1:]
	}
}

// closing returns the index just past the bracket that balances text[start].
// Brackets inside quoted strings are ignored. A quote only opens a string at
// the start of a scalar, so apostrophes inside unquoted words are plain text.
func closing(text string, start int) (int, bool) {
	depth := 0
	var quote byte
	escaped := false
	prev := byte(0)
	for i := start; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\' && quote == '"':
				escaped = true
			case c == quote:
				quote = 0
				prev = c
			}
			continue
		}
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		case '"', '\'':
			if strings.IndexByte("{[,:", prev) >= 0 {
				quote = c
			}
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
		prev = c
	}
	return 0, false
}
