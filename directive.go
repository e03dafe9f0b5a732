package blade

import "strings"

// replaceDirective rewrites every "@name(args)" occurrence through fn.
// The argument list runs to the matching parenthesis, so nested calls and
// quoted parentheses are fine. When fn reports false, or the parentheses
// never balance, the directive is left exactly as written.
func replaceDirective(s, name string, fn func(args string) (string, bool)) string {
	tag := "@" + name
	var b strings.Builder
	b.Grow(len(s))
	for {
		i := strings.Index(s, tag)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		j := i + len(tag)
		if j < len(s) && isWordByte(s[j]) {
			// a longer directive such as @foreach when looking for @for
			b.WriteString(s[:j])
			s = s[j:]
			continue
		}
		k := j
		for k < len(s) && (s[k] == ' ' || s[k] == '\t') {
			k++
		}
		if k >= len(s) || s[k] != '(' {
			b.WriteString(s[:j])
			s = s[j:]
			continue
		}
		end := matchParen(s, k)
		if end < 0 {
			b.WriteString(s[:j])
			s = s[j:]
			continue
		}
		if out, ok := fn(s[k+1 : end]); ok {
			b.WriteString(s[:i])
			b.WriteString(out)
		} else {
			b.WriteString(s[:end+1])
		}
		s = s[end+1:]
	}
}

// matchParen returns the index of the parenthesis closing the one at open,
// or -1.
func matchParen(s string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
