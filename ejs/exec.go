package ejs

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/expr-lang/expr"
)

type scope struct {
	vars   map[string]any
	parent *scope
}

func newScope(parent *scope) *scope {
	return &scope{vars: map[string]any{}, parent: parent}
}

func (s *scope) owner(name string) *scope {
	for cur := s; cur != nil; cur = cur.parent {
		if _, ok := cur.vars[name]; ok {
			return cur
		}
	}
	return nil
}

// assign updates the nearest binding of name, creating it in s when none
// exists.
func (s *scope) assign(name string, v any) {
	if o := s.owner(name); o != nil {
		o.vars[name] = v
		return
	}
	s.vars[name] = v
}

// env flattens the scope chain into one expression environment; inner
// bindings shadow outer ones.
func (s *scope) env(funcs map[string]any) map[string]any {
	var chain []*scope
	for cur := s; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	env := make(map[string]any, len(funcs)+len(chain[len(chain)-1].vars))
	for name, fn := range funcs {
		env[name] = fn
	}
	for i := len(chain) - 1; i >= 0; i-- {
		for k, v := range chain[i].vars {
			env[k] = v
		}
	}
	return env
}

type executor struct {
	ctx      context.Context
	renderer *Renderer
	order    keyOrder
}

func (ex *executor) run(nodes []node, sc *scope, out *strings.Builder) error {
	for _, n := range nodes {
		switch n := n.(type) {
		case textNode:
			out.WriteString(n.text)

		case outputNode:
			v, err := ex.eval(n.expr, sc)
			if err != nil {
				return errorAt(n.line, err)
			}
			s := stringify(v)
			if n.escape {
				s = html.EscapeString(s)
			}
			out.WriteString(s)

		case stmtNode:
			if err := ex.exec(n.stmts, sc); err != nil {
				return errorAt(n.line, err)
			}

		case *ifNode:
			if err := ex.runIf(n, sc, out); err != nil {
				return errorAt(n.line, err)
			}

		case *forOfNode:
			if err := ex.runForOf(n, sc, out); err != nil {
				return errorAt(n.line, err)
			}

		case *forNode:
			if err := ex.runFor(n, sc, out); err != nil {
				return errorAt(n.line, err)
			}

		case *whileNode:
			if err := ex.runWhile(n, sc, out); err != nil {
				return errorAt(n.line, err)
			}
		}
	}
	return nil
}

func (ex *executor) runIf(n *ifNode, sc *scope, out *strings.Builder) error {
	for _, br := range n.branches {
		v, err := ex.eval(br.cond, sc)
		if err != nil {
			return err
		}
		if truthy(v) {
			return ex.run(br.body, newScope(sc), out)
		}
	}
	if n.hasElse {
		return ex.run(n.elseBody, newScope(sc), out)
	}
	return nil
}

func (ex *executor) runForOf(n *forOfNode, sc *scope, out *strings.Builder) error {
	v, err := ex.eval(n.iter, sc)
	if err != nil {
		return err
	}
	items, err := ex.order.entries(v)
	if err != nil {
		return err
	}
	if len(items) > ex.renderer.maxLoops {
		return fmt.Errorf("%w (%d)", ErrLoopLimit, ex.renderer.maxLoops)
	}
	for _, it := range items {
		if err := ex.ctx.Err(); err != nil {
			return err
		}
		inner := newScope(sc)
		if n.key != "" {
			inner.vars[n.key] = it.key
		}
		inner.vars[n.value] = it.value
		if err := ex.run(n.body, inner, out); err != nil {
			return err
		}
	}
	return nil
}

func (ex *executor) runFor(n *forNode, sc *scope, out *strings.Builder) error {
	loop := newScope(sc)
	if err := ex.exec(n.init, loop); err != nil {
		return err
	}
	for i := 0; ; i++ {
		if err := ex.tick(i); err != nil {
			return err
		}
		if n.cond != "" {
			v, err := ex.eval(n.cond, loop)
			if err != nil {
				return err
			}
			if !truthy(v) {
				return nil
			}
		}
		if err := ex.run(n.body, newScope(loop), out); err != nil {
			return err
		}
		if err := ex.exec(n.step, loop); err != nil {
			return err
		}
	}
}

func (ex *executor) runWhile(n *whileNode, sc *scope, out *strings.Builder) error {
	for i := 0; ; i++ {
		if err := ex.tick(i); err != nil {
			return err
		}
		v, err := ex.eval(n.cond, sc)
		if err != nil {
			return err
		}
		if !truthy(v) {
			return nil
		}
		if err := ex.run(n.body, newScope(sc), out); err != nil {
			return err
		}
	}
}

func (ex *executor) tick(i int) error {
	if i >= ex.renderer.maxLoops {
		return fmt.Errorf("%w (%d)", ErrLoopLimit, ex.renderer.maxLoops)
	}
	return ex.ctx.Err()
}

func (ex *executor) exec(stmts []statement, sc *scope) error {
	for _, st := range stmts {
		v, err := ex.eval(st.expr, sc)
		if err != nil {
			return err
		}
		switch st.kind {
		case stmtDeclare:
			sc.vars[st.name] = v
		case stmtAssign:
			sc.assign(st.name, v)
		}
	}
	return nil
}

func (ex *executor) eval(code string, sc *scope) (any, error) {
	env := sc.env(ex.renderer.funcs)
	program, err := expr.Compile(normalizeExpression(code), expr.Env(env))
	if err != nil {
		return nil, err
	}
	return expr.Run(program, env)
}

// normalizeExpression maps the JavaScript spellings the Blade compiler and
// template authors use onto expr syntax: === and !== become == and !=,
// null and undefined become nil. Quoted text is left alone.
func normalizeExpression(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	var quote byte
	for i := 0; i < len(code); i++ {
		c := code[i]
		if quote != 0 {
			b.WriteByte(c)
			if c == '\\' && i+1 < len(code) {
				i++
				b.WriteByte(code[i])
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch {
		case c == '\'' || c == '"' || c == '`':
			quote = c
			b.WriteByte(c)
		case (c == '=' || c == '!') && strings.HasPrefix(code[i+1:], "=="):
			b.WriteByte(c)
			b.WriteByte('=')
			i += 2
		case isIdentStart(c) && (i == 0 || !isIdentPart(code[i-1])):
			j := i + 1
			for j < len(code) && isIdentPart(code[j]) {
				j++
			}
			word := code[i:j]
			if (word == "null" || word == "undefined") && (i == 0 || code[i-1] != '.') {
				word = "nil"
			}
			b.WriteString(word)
			i = j - 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
