package ejs

import (
	"fmt"
	"regexp"
	"strings"
)

type node any

type textNode struct {
	text string
}

type outputNode struct {
	expr   string
	escape bool
	line   int
}

type stmtNode struct {
	stmts []statement
	line  int
}

type condBranch struct {
	cond string
	body []node
}

type ifNode struct {
	branches []*condBranch
	elseBody []node
	hasElse  bool
	line     int
}

type forOfNode struct {
	key   string
	value string
	iter  string
	body  []node
	line  int
}

type forNode struct {
	init []statement
	cond string
	step []statement
	body []node
	line int
}

type whileNode struct {
	cond string
	body []node
	line int
}

type stmtKind int

const (
	stmtExpr stmtKind = iota
	stmtAssign
	stmtDeclare
)

type statement struct {
	kind stmtKind
	name string
	expr string
}

var (
	reElseIf     = regexp.MustCompile(`(?s)^\}\s*else\s+if\s*\((.*)\)\s*\{$`)
	reElse       = regexp.MustCompile(`^\}\s*else\s*\{$`)
	reIf         = regexp.MustCompile(`(?s)^if\s*\((.*)\)\s*\{$`)
	reForEntries = regexp.MustCompile(`(?s)^for\s*\(\s*(?:const|let|var)\s+\[\s*([A-Za-z_]\w*)\s*,\s*([A-Za-z_]\w*)\s*\]\s+of\s+(.*)\)\s*\{$`)
	reForOf      = regexp.MustCompile(`(?s)^for\s*\(\s*(?:const|let|var)\s+([A-Za-z_]\w*)\s+of\s+(.*)\)\s*\{$`)
	reFor        = regexp.MustCompile(`(?s)^for\s*\(([^;]*);([^;]*);(.*)\)\s*\{$`)
	reWhile      = regexp.MustCompile(`(?s)^while\s*\((.*)\)\s*\{$`)

	reDeclare   = regexp.MustCompile(`(?s)^(?:let|const|var)\s+([A-Za-z_]\w*)\s*(?:=\s*(.+))?$`)
	reIncDec    = regexp.MustCompile(`^([A-Za-z_]\w*)\s*(\+\+|--)$`)
	rePreIncDec = regexp.MustCompile(`^(\+\+|--)\s*([A-Za-z_]\w*)$`)
	reCompound  = regexp.MustCompile(`(?s)^([A-Za-z_]\w*)\s*([+\-*/%])=\s*(.+)$`)
	reAssign    = regexp.MustCompile(`(?s)^([A-Za-z_]\w*)\s*=\s*([^=].*)$`)
)

type frame struct {
	owner node
	body  *[]node
	line  int
}

// parse builds the block tree of a tokenized template.
func parse(tokens []token) ([]node, error) {
	var root []node
	stack := []frame{{body: &root}}

	appendNode := func(n node) {
		top := &stack[len(stack)-1]
		*top.body = append(*top.body, n)
	}

	for _, tok := range tokens {
		switch tok.kind {
		case tokenText:
			appendNode(textNode{text: tok.text})
		case tokenEscaped, tokenRaw:
			if tok.text == "" {
				return nil, &Error{Line: tok.line, Err: fmt.Errorf("%w: empty output tag", ErrSyntax)}
			}
			appendNode(outputNode{expr: tok.text, escape: tok.kind == tokenEscaped, line: tok.line})
		case tokenCode:
			code := tok.text
			switch {
			case code == "":
			case code == "}":
				if len(stack) == 1 {
					return nil, &Error{Line: tok.line, Err: fmt.Errorf("%w: unexpected '}'", ErrSyntax)}
				}
				stack = stack[:len(stack)-1]
			case reElseIf.MatchString(code):
				n, ok := stack[len(stack)-1].owner.(*ifNode)
				if !ok || n.hasElse {
					return nil, &Error{Line: tok.line, Err: fmt.Errorf("%w: 'else if' without matching 'if'", ErrSyntax)}
				}
				br := &condBranch{cond: reElseIf.FindStringSubmatch(code)[1]}
				n.branches = append(n.branches, br)
				stack[len(stack)-1].body = &br.body
			case reElse.MatchString(code):
				n, ok := stack[len(stack)-1].owner.(*ifNode)
				if !ok || n.hasElse {
					return nil, &Error{Line: tok.line, Err: fmt.Errorf("%w: 'else' without matching 'if'", ErrSyntax)}
				}
				n.hasElse = true
				stack[len(stack)-1].body = &n.elseBody
			case reIf.MatchString(code):
				br := &condBranch{cond: reIf.FindStringSubmatch(code)[1]}
				n := &ifNode{branches: []*condBranch{br}, line: tok.line}
				appendNode(n)
				stack = append(stack, frame{owner: n, body: &br.body, line: tok.line})
			case reForEntries.MatchString(code):
				m := reForEntries.FindStringSubmatch(code)
				n := &forOfNode{key: m[1], value: m[2], iter: m[3], line: tok.line}
				appendNode(n)
				stack = append(stack, frame{owner: n, body: &n.body, line: tok.line})
			case reForOf.MatchString(code):
				m := reForOf.FindStringSubmatch(code)
				n := &forOfNode{value: m[1], iter: m[2], line: tok.line}
				appendNode(n)
				stack = append(stack, frame{owner: n, body: &n.body, line: tok.line})
			case reFor.MatchString(code):
				m := reFor.FindStringSubmatch(code)
				init, err := parseStatements(m[1])
				if err != nil {
					return nil, &Error{Line: tok.line, Err: err}
				}
				step, err := parseStatements(m[3])
				if err != nil {
					return nil, &Error{Line: tok.line, Err: err}
				}
				n := &forNode{init: init, cond: strings.TrimSpace(m[2]), step: step, line: tok.line}
				appendNode(n)
				stack = append(stack, frame{owner: n, body: &n.body, line: tok.line})
			case reWhile.MatchString(code):
				n := &whileNode{cond: reWhile.FindStringSubmatch(code)[1], line: tok.line}
				appendNode(n)
				stack = append(stack, frame{owner: n, body: &n.body, line: tok.line})
			default:
				stmts, err := parseStatements(code)
				if err != nil {
					return nil, &Error{Line: tok.line, Err: err}
				}
				if len(stmts) > 0 {
					appendNode(stmtNode{stmts: stmts, line: tok.line})
				}
			}
		}
	}

	if len(stack) > 1 {
		return nil, &Error{Line: stack[len(stack)-1].line, Err: fmt.Errorf("%w: unclosed block", ErrSyntax)}
	}
	return root, nil
}

// parseStatements reads a sequence of simple statements separated by
// semicolons or newlines.
func parseStatements(code string) ([]statement, error) {
	var stmts []statement
	for _, raw := range splitStatements(code) {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		switch {
		case reDeclare.MatchString(s):
			m := reDeclare.FindStringSubmatch(s)
			expr := strings.TrimSpace(m[2])
			if expr == "" {
				expr = "nil"
			}
			stmts = append(stmts, statement{kind: stmtDeclare, name: m[1], expr: expr})
		case reIncDec.MatchString(s):
			m := reIncDec.FindStringSubmatch(s)
			stmts = append(stmts, incDec(m[1], m[2]))
		case rePreIncDec.MatchString(s):
			m := rePreIncDec.FindStringSubmatch(s)
			stmts = append(stmts, incDec(m[2], m[1]))
		case reCompound.MatchString(s):
			m := reCompound.FindStringSubmatch(s)
			stmts = append(stmts, statement{
				kind: stmtAssign,
				name: m[1],
				expr: fmt.Sprintf("(%s) %s (%s)", m[1], m[2], strings.TrimSpace(m[3])),
			})
		case reAssign.MatchString(s):
			m := reAssign.FindStringSubmatch(s)
			stmts = append(stmts, statement{kind: stmtAssign, name: m[1], expr: strings.TrimSpace(m[2])})
		default:
			stmts = append(stmts, statement{kind: stmtExpr, expr: s})
		}
	}
	return stmts, nil
}

func incDec(name, op string) statement {
	sign := "+"
	if op == "--" {
		sign = "-"
	}
	return statement{kind: stmtAssign, name: name, expr: name + " " + sign + " 1"}
}

// splitStatements splits on ';' and newlines that sit outside quotes and
// brackets.
func splitStatements(code string) []string {
	var (
		parts []string
		depth int
		quote rune
		start int
	)
	for i, r := range code {
		switch {
		case quote != 0:
			if r == quote && (i == 0 || code[i-1] != '\\') {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == '(' || r == '[':
			depth++
		case r == ')' || r == ']':
			depth--
		case (r == ';' || r == '\n') && depth <= 0:
			parts = append(parts, code[start:i])
			start = i + 1
		}
	}
	return append(parts, code[start:])
}
