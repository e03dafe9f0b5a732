// Package ejs renders embedded-JavaScript style templates.
//
// Three tag forms are recognised: <% code %> runs a statement without
// output, <%- expr %> writes the HTML-escaped value of expr and <%= expr %>
// writes it unescaped. Statements cover the control flow a compiled Blade
// template needs (if/else if/else, for..of, counted for, while) plus simple
// assignments. Expressions are evaluated with github.com/expr-lang/expr;
// JavaScript's strict operators (===, !==) and the null/undefined literals
// are accepted.
package ejs

import (
	"context"
	"strings"
)

// DefaultMaxLoopIterations bounds every single loop in a render.
const DefaultMaxLoopIterations = 100000

// Renderer evaluates templates. It is safe for concurrent use.
type Renderer struct {
	funcs    map[string]any
	maxLoops int
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithFuncs exposes helper functions to template expressions.
func WithFuncs(funcs map[string]any) Option {
	return func(r *Renderer) {
		for name, fn := range funcs {
			r.funcs[name] = fn
		}
	}
}

// WithMaxLoopIterations caps the iterations of any single loop. Zero or a
// negative value keeps the default.
func WithMaxLoopIterations(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.maxLoops = n
		}
	}
}

// New creates a Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		funcs:    map[string]any{},
		maxLoops: DefaultMaxLoopIterations,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render evaluates src against data. data may be nil, a map[string]any or
// any Ordered mapping. name only labels errors.
func (r *Renderer) Render(ctx context.Context, name, src string, data any) (string, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return "", withTemplate(name, err)
	}
	tree, err := parse(tokens)
	if err != nil {
		return "", withTemplate(name, err)
	}

	order := keyOrder{}
	root := newScope(nil)
	switch t := order.normalize(data).(type) {
	case nil:
	case map[string]any:
		root.vars = t
	default:
		root.vars["data"] = t
	}

	ex := &executor{
		ctx:      ctx,
		renderer: r,
		order:    order,
	}
	var out strings.Builder
	if err := ex.run(tree, root, &out); err != nil {
		return "", withTemplate(name, err)
	}
	return out.String(), nil
}

func withTemplate(name string, err error) error {
	if e, ok := err.(*Error); ok && e.Template == "" {
		e.Template = name
	}
	return err
}
