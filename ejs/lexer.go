package ejs

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokenText tokenKind = iota
	tokenCode
	tokenEscaped
	tokenRaw
)

type token struct {
	kind tokenKind
	text string
	line int
}

const (
	openTag  = "<%"
	closeTag = "%>"
)

// tokenize splits src into literal text and tag tokens.
// "<%-" is escaped output, "<%=" raw output, "<%" a statement block.
func tokenize(src string) ([]token, error) {
	var tokens []token
	line := 1
	rest := src
	for len(rest) > 0 {
		start := strings.Index(rest, openTag)
		if start < 0 {
			tokens = append(tokens, token{kind: tokenText, text: rest, line: line})
			break
		}
		if start > 0 {
			tokens = append(tokens, token{kind: tokenText, text: rest[:start], line: line})
			line += strings.Count(rest[:start], "\n")
		}
		rest = rest[start+len(openTag):]

		kind := tokenCode
		if len(rest) > 0 {
			switch rest[0] {
			case '-':
				kind = tokenEscaped
				rest = rest[1:]
			case '=':
				kind = tokenRaw
				rest = rest[1:]
			}
		}

		end := strings.Index(rest, closeTag)
		if end < 0 {
			return nil, &Error{Line: line, Err: fmt.Errorf("%w: could not find matching %q", ErrSyntax, closeTag)}
		}
		body := rest[:end]
		tokens = append(tokens, token{kind: kind, text: strings.TrimSpace(body), line: line})
		line += strings.Count(body, "\n")
		rest = rest[end+len(closeTag):]
	}
	return tokens, nil
}
