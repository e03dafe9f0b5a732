package blade

import (
	"errors"
	"fmt"
	"strings"
)

var errMalformedIncludeData = errors.New("malformed include data")

// parseIncludeData reads the object literal of @include('name', {...}).
// Pairs are "key: value"; a quoted value is a literal string, anything else
// names a (possibly dotted, optionally $-prefixed) key of data and falls
// back to the token itself when data has no such key.
func parseIncludeData(literal string, data *Data) (*Data, error) {
	s := strings.TrimSpace(literal)
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return &Data{}, fmt.Errorf("%w: %q", errMalformedIncludeData, literal)
	}

	out := &Data{}
	for _, pair := range splitOutsideQuotes(s[1:len(s)-1], ',') {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := splitOutsideQuotes(pair, ':')
		if len(parts) < 2 {
			return &Data{}, fmt.Errorf("%w: %q has no value", errMalformedIncludeData, pair)
		}
		key := unquote(strings.TrimSpace(parts[0]))
		value := strings.TrimSpace(strings.Join(parts[1:], ":"))
		if key == "" || value == "" {
			return &Data{}, fmt.Errorf("%w: %q", errMalformedIncludeData, pair)
		}
		out.Set(key, includeValue(value, data))
	}
	return out, nil
}

func includeValue(token string, data *Data) any {
	if isQuoted(token) {
		return token[1 : len(token)-1]
	}
	if v, ok := data.Lookup(strings.TrimPrefix(token, "$")); ok {
		return v
	}
	return token
}

func isQuoted(s string) bool {
	return len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0]
}

func unquote(s string) string {
	if isQuoted(s) {
		return s[1 : len(s)-1]
	}
	return s
}

// splitOutsideQuotes splits s at every sep that is not inside a quoted
// string.
func splitOutsideQuotes(s string, sep byte) []string {
	var parts []string
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == sep:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
