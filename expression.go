package blade

import (
	"regexp"
	"strings"
)

var (
	reSigil  = regexp.MustCompile(`\$(\w+)`)
	reMember = regexp.MustCompile(`\b([A-Za-z_]\w*)\.([A-Za-z_]\w*)`)
)

// TranslateExpression rewrites a directive expression into host syntax:
// "$user.name === $other" becomes "user?.name === other".
//
// Member rewrites are applied once, left to right, to non-overlapping
// matches, so "$a.b.c" yields "a?.b.c". Operators pass through unchanged
// and nothing is validated.
func TranslateExpression(expr string) string {
	s := strings.TrimSpace(expr)
	s = reSigil.ReplaceAllString(s, "${1}")
	return reMember.ReplaceAllString(s, "${1}?.${2}")
}

// stripSigils only removes the "$" sigils. Used for @for clauses.
func stripSigils(expr string) string {
	return reSigil.ReplaceAllString(expr, "${1}")
}
