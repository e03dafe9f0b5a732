package ejs

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderedMap struct {
	keys   []string
	values map[string]any
}

func (m *orderedMap) Keys() []string { return m.keys }

func (m *orderedMap) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

func newOrdered(pairs ...any) *orderedMap {
	m := &orderedMap{values: map[string]any{}}
	for i := 0; i+1 < len(pairs); i += 2 {
		k := pairs[i].(string)
		m.keys = append(m.keys, k)
		m.values[k] = pairs[i+1]
	}
	return m
}

func render(t *testing.T, src string, data any) string {
	t.Helper()
	out, err := New().Render(context.Background(), "test", src, data)
	require.NoError(t, err)
	return out
}

func TestRender_Output(t *testing.T) {
	data := map[string]any{
		"name": "<b>Bob</b>",
		"user": map[string]any{"name": "Ann"},
	}

	assert.Equal(t, "Hi &lt;b&gt;Bob&lt;/b&gt;", render(t, "Hi <%- name %>", data))
	assert.Equal(t, "Hi <b>Bob</b>", render(t, "Hi <%= name %>", data))
	assert.Equal(t, "Ann", render(t, "<%- user?.name %>", data))
	assert.Equal(t, "", render(t, "<%- missing?.name %>", map[string]any{"missing": nil}))
	assert.Equal(t, "3", render(t, "<%- 1 + 2 %>", nil))
	assert.Equal(t, "1,2,3", render(t, "<%- items %>", map[string]any{"items": []int{1, 2, 3}}))
}

func TestRender_Conditionals(t *testing.T) {
	src := `<% if (role === 'admin') { %>A<% } else if (role !== null) { %>U<% } else { %>G<% } %>`

	assert.Equal(t, "A", render(t, src, map[string]any{"role": "admin"}))
	assert.Equal(t, "U", render(t, src, map[string]any{"role": "editor"}))
	assert.Equal(t, "G", render(t, src, map[string]any{"role": nil}))
}

func TestRender_ForOf(t *testing.T) {
	out := render(t, `<% for (const item of items) { %>[<%- item %>]<% } %>`, map[string]any{
		"items": []any{1, 2, 3},
	})
	assert.Equal(t, "[1][2][3]", out)

	out = render(t, `<% for (const item of items) { %>x<% } %>`, map[string]any{"items": nil})
	assert.Equal(t, "", out)
}

func TestRender_ForEntriesKeepsInsertionOrder(t *testing.T) {
	data := newOrdered("scores", newOrdered("zed", 1, "amy", 2, "kim", 3))

	out := render(t, `<% for (const [k, v] of scores) { %><%- k %>=<%- v %>;<% } %>`, data)

	assert.Equal(t, "zed=1;amy=2;kim=3;", out)
}

func TestRender_ForEntriesOnPlainMapIsSorted(t *testing.T) {
	out := render(t, `<% for (const [k, v] of m) { %><%- k %><% } %>`, map[string]any{
		"m": map[string]any{"b": 1, "a": 2, "c": 3},
	})
	assert.Equal(t, "abc", out)
}

func TestRender_CountedForAndWhile(t *testing.T) {
	assert.Equal(t, "012", render(t, `<% for (i = 0; i < 3; i++) { %><%- i %><% } %>`, nil))
	assert.Equal(t, "210", render(t, `<% let n = 3 %><% while (n > 0) { %><% n-- %><%- n %><% } %>`, nil))
}

func TestRender_Statements(t *testing.T) {
	out := render(t, `<% let total = 0; let seen = 0 %><% for (const p of prices) { %><% total += p; seen++ %><% } %><%- total %>/<%- seen %>`, map[string]any{
		"prices": []int{2, 3, 5},
	})
	assert.Equal(t, "10/3", out)
}

func TestRender_AssignmentDoesNotLeakIntoCallerData(t *testing.T) {
	data := map[string]any{"count": 1}

	assert.Equal(t, "2", render(t, `<% count = count + 1 %><%- count %>`, data))
	assert.Equal(t, 1, data["count"])
}

func TestRender_Funcs(t *testing.T) {
	r := New(WithFuncs(map[string]any{"upper": strings.ToUpper}))

	out, err := r.Render(context.Background(), "t", `<%- upper(name) %>`, map[string]any{"name": "leaf"})

	require.NoError(t, err)
	assert.Equal(t, "LEAF", out)
}

func TestRender_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"unterminated tag", "a <%- x ", ErrSyntax},
		{"unclosed block", "<% if (true) { %>x", ErrSyntax},
		{"stray close", "<% } %>", ErrSyntax},
		{"else without if", "<% for (const x of xs) { %><% } else { %><% } %>", ErrSyntax},
		{"not iterable", "<% for (const x of n) { %><% } %>", ErrNotIterable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Render(context.Background(), "page", tt.src, map[string]any{"n": 5, "xs": []int{}})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var ejsErr *Error
			require.ErrorAs(t, err, &ejsErr)
			assert.Equal(t, "page", ejsErr.Template)
		})
	}
}

func TestRender_UndefinedVariableFails(t *testing.T) {
	_, err := New().Render(context.Background(), "page", "line1\n<%- nope %>", nil)

	require.Error(t, err)
	var ejsErr *Error
	require.ErrorAs(t, err, &ejsErr)
	assert.Equal(t, 2, ejsErr.Line)
}

func TestRender_LoopLimit(t *testing.T) {
	r := New(WithMaxLoopIterations(10))

	_, err := r.Render(context.Background(), "t", `<% while (true) { %>.<% } %>`, nil)

	assert.ErrorIs(t, err, ErrLoopLimit)
}

func TestRender_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Render(ctx, "t", `<% for (i = 0; i < 5; i++) { %>.<% } %>`, nil)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestNormalizeExpression(t *testing.T) {
	assert.Equal(t, "a == b && c != nil", normalizeExpression("a === b && c !== null"))
	assert.Equal(t, "x == 'a === b' || y == nil", normalizeExpression("x == 'a === b' || y == undefined"))
	assert.Equal(t, "nullable != nil", normalizeExpression("nullable !== null"))
}

func TestSplitStatements(t *testing.T) {
	parts := splitStatements("a = 1; b = 'x;y'\nc = f(1; 2)")
	assert.Equal(t, []string{"a = 1", " b = 'x;y'", "c = f(1; 2)"}, parts)
}
