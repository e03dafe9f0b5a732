package blade

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leaf-app/go-blade/ejs"
)

func views(files map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for name, content := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(content)}
	}
	return fsys
}

// countingFS counts Open calls per path. It implements only fs.FS, so every
// read goes through Open.
type countingFS struct {
	fsys fs.FS

	mu    sync.Mutex
	opens map[string]int
}

func newCountingFS(fsys fs.FS) *countingFS {
	return &countingFS{fsys: fsys, opens: map[string]int{}}
}

func (c *countingFS) Open(name string) (fs.File, error) {
	c.mu.Lock()
	c.opens[name]++
	c.mu.Unlock()
	return c.fsys.Open(name)
}

func (c *countingFS) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens[name]
}

func renderString(t *testing.T, e *Engine, name string, data any) string {
	t.Helper()
	out, err := e.RenderString(context.Background(), name, data)
	require.NoError(t, err)
	return out
}

func TestRender_WithoutExtendsMatchesHostRender(t *testing.T) {
	src := "<p>Hello {{ $name }}</p>\n@if($admin)<b>admin</b>@endif"
	e := NewFS(views(map[string]string{"hello.blade.html": src}))
	data := NewData("name", "<Ann>", "admin", true)

	want, err := NewEJSRenderer().Render(context.Background(), "hello.blade.html", NewCompiler(true).Compile(src, "hello.blade.html"), data)
	require.NoError(t, err)

	assert.Equal(t, want, renderString(t, e, "hello", data))
	assert.Equal(t, "<p>Hello &lt;Ann&gt;</p>\n<b>admin</b>", want)
}

func TestRender_ChildSectionOverridesLayout(t *testing.T) {
	e := NewFS(views(map[string]string{
		"layouts/app.blade.html": "@section('x')A@endsection\n<main>@yield('x')</main>",
		"page.blade.html":        "@extends('layouts.app')\n@section('x')B@endsection",
	}))

	out := renderString(t, e, "page", nil)
	assert.Equal(t, "<main>B</main>", out)
	assert.NotContains(t, out, "A")

	assert.Equal(t, "<main>A</main>", renderString(t, e, "layouts.app", nil))
}

func TestRender_YieldDefaults(t *testing.T) {
	e := NewFS(views(map[string]string{
		"layout.blade.html": "[@yield('missing', 'fallback')][@yield('none')]",
		"page.blade.html":   "@extends('layout')",
	}))

	assert.Equal(t, "[fallback][]", renderString(t, e, "page", nil))
}

func TestRender_ResidualBecomesContent(t *testing.T) {
	e := NewFS(views(map[string]string{
		"layout.blade.html": "<title>@yield('title', 'App')</title><main>@yield('content')</main>",
		"page.blade.html":   "@extends('layout')\n@section('title', 'Home')\n<p>{{ $msg }}</p>",
	}))

	out := renderString(t, e, "page", NewData("msg", "hi"))

	assert.Equal(t, "<title>Home</title><main><p>hi</p></main>", out)
}

func TestRender_EmptyChildLeavesContentEmpty(t *testing.T) {
	e := NewFS(views(map[string]string{
		"layout.blade.html": "<main>@yield('content', 'fallback')</main>",
		"page.blade.html":   "@extends('layout')\n@section('title', 'x')",
	}))

	assert.Equal(t, "<main></main>", renderString(t, e, "page", nil))
	assert.Equal(t, "<main>fallback</main>", renderString(t, e, "layout", nil))
}

func TestRender_LayoutContentFillsEmptyChild(t *testing.T) {
	e := NewFS(views(map[string]string{
		"base.blade.html": "<html>@yield('content', 'fallback')</html>",
		"mid.blade.html":  "@extends('base')\n@section('content')<div>mid</div>@endsection",
		"page.blade.html": "@extends('mid')",
	}))

	assert.Equal(t, "<html><div>mid</div></html>", renderString(t, e, "page", nil))
}

func TestRender_InlineSectionInsideBlockSection(t *testing.T) {
	e := NewFS(views(map[string]string{
		"layout.blade.html": "<t>@yield('title')</t><m>@yield('content')</m>",
		"page.blade.html":   "@extends('layout')\n@section('content')@section('title', 'T')body@endsection",
	}))

	out := renderString(t, e, "page", nil)

	assert.Equal(t, "<t>T</t><m>body</m>", out)
	assert.NotContains(t, out, "BLADE_")
}

func TestRender_IncludeNameWithExtensionIsVerbatim(t *testing.T) {
	e := NewFS(views(map[string]string{
		"my.page.blade.html": "<p>{{ $x }}</p>",
		"page.blade.html":    "@include('my.page.blade.html')",
	}))

	assert.Equal(t, "<p>X</p>", renderString(t, e, "page", NewData("x", "X")))
}

func TestRender_ContentSectionWithoutExtends(t *testing.T) {
	e := NewFS(views(map[string]string{
		"page.blade.html": "@section('title', 'T')\n@section('content')<h1>@yield('title')</h1>@endsection\nignored",
	}))

	assert.Equal(t, "<h1>T</h1>", renderString(t, e, "page", nil))
}

func TestRender_MultiLevelLayouts(t *testing.T) {
	e := NewFS(views(map[string]string{
		"base.blade.html": "<html>@yield('content')</html>",
		"mid.blade.html":  "@extends('base')\n@section('content')<div>@yield('inner', 'none')</div>@endsection",
		"page.blade.html": "@extends('mid')\n@section('inner'){{ $x }}@endsection",
	}))

	assert.Equal(t, "<html><div>X</div></html>", renderString(t, e, "page", NewData("x", "X")))
	assert.Equal(t, "<html><div>none</div></html>", renderString(t, e, "mid", nil))
}

func TestRender_Includes(t *testing.T) {
	e := NewFS(views(map[string]string{
		"partials/card.blade.html": "<h2>{{ $title }}</h2><p>{{ $user }}</p>",
		"plain.blade.html":         "@include('partials.card')",
		"with.blade.html":          "@include('partials.card', {title: 'Hi'})",
		"ref.blade.html":           "@include('partials.card', {title: $user})",
	}))
	data := NewData("title", "Page", "user", "Ann")

	assert.Equal(t, "<h2>Page</h2><p>Ann</p>", renderString(t, e, "plain", data))
	assert.Equal(t, "<h2>Hi</h2><p>Ann</p>", renderString(t, e, "with", data))
	assert.Equal(t, "<h2>Ann</h2><p>Ann</p>", renderString(t, e, "ref", data))

	v, _ := data.Get("title")
	assert.Equal(t, "Page", v, "include data must not leak into the caller's data")
}

func TestRender_IncludeOutputIsNotEvaluatedTwice(t *testing.T) {
	e := NewFS(views(map[string]string{
		"partial.blade.html": "{!! $code !!}",
		"page.blade.html":    "<div>@include('partial')</div>",
	}))

	out := renderString(t, e, "page", NewData("code", "<%- secret %>"))

	assert.Equal(t, "<div><%- secret %></div>", out)
}

func TestRender_IncludeInsideSection(t *testing.T) {
	e := NewFS(views(map[string]string{
		"layout.blade.html":       "<body>@yield('content')</body>",
		"partials/nav.blade.html": "<nav>{{ $active }}</nav>",
		"page.blade.html":         "@extends('layout')\n@section('content')@include('partials.nav', {active: 'home'})<p>x</p>@endsection",
	}))

	assert.Equal(t, "<body><nav>home</nav><p>x</p></body>", renderString(t, e, "page", nil))
}

func TestRender_MalformedIncludeDataUsesParentData(t *testing.T) {
	e := NewFS(views(map[string]string{
		"partial.blade.html": "{{ $title }}",
		"page.blade.html":    "@include('partial', {title})",
	}))

	assert.Equal(t, "Page", renderString(t, e, "page", NewData("title", "Page")))
}

func TestRender_PushAndStack(t *testing.T) {
	e := NewFS(views(map[string]string{
		"layout.blade.html": "<head>@stack('scripts')</head><body>@yield('content')</body>",
		"page.blade.html":   "@extends('layout')\n@push('scripts')<script src=\"{{ $src }}\"></script>@endpush\n@section('content')hi@endsection",
	}))

	out := renderString(t, e, "page", NewData("src", "a.js"))

	assert.Equal(t, "<head><script src=\"a.js\"></script></head><body>hi</body>", out)
}

func TestRender_Loops(t *testing.T) {
	e := NewFS(views(map[string]string{
		"list.blade.html":   "@foreach($items as $item){{ $item }} @endforeach",
		"scores.blade.html": "@foreach($scores as $name => $score){{ $name }}={{ $score }};@endforeach",
		"count.blade.html":  "@for($i = 0; $i < 3; $i++){{ $i }}@endfor",
	}))

	assert.Equal(t, "1 2 3 ", renderString(t, e, "list", NewData("items", []any{1, 2, 3})))
	assert.Equal(t, "zed=1;amy=2;kim=3;", renderString(t, e, "scores", NewData(
		"scores", NewData("zed", 1, "amy", 2, "kim", 3),
	)))
	assert.Equal(t, "012", renderString(t, e, "count", nil))
}

func TestRender_MissingTemplates(t *testing.T) {
	e := NewFS(views(map[string]string{
		"page.blade.html":    "@extends('layouts.nope')\n@section('content')x@endsection",
		"include.blade.html": "before @include('partials.nope') after",
	}))

	for _, name := range []string{"page", "include", "nope"} {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			err := e.Render(&buf, name, nil)

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrTemplateNotFound)
			assert.Empty(t, buf.String())

			var te *TemplateError
			require.ErrorAs(t, err, &te)
			assert.NotEmpty(t, te.Path)
		})
	}
}

func TestRender_RecursionLimit(t *testing.T) {
	e := NewFS(views(map[string]string{
		"self.blade.html": "@include('self')",
		"a.blade.html":    "@extends('b')",
		"b.blade.html":    "@extends('a')",
	}), WithMaxDepth(8))

	for _, name := range []string{"self", "a"} {
		_, err := e.RenderString(context.Background(), name, nil)
		assert.ErrorIs(t, err, ErrRecursionLimit, name)
	}
}

func TestRender_HostErrorsPropagate(t *testing.T) {
	e := NewFS(views(map[string]string{"page.blade.html": "<p>\n{{ $missing }}</p>"}))

	_, err := e.RenderString(context.Background(), "page", nil)

	var ejsErr *ejs.Error
	require.ErrorAs(t, err, &ejsErr)
	assert.Equal(t, 2, ejsErr.Line)
}

func TestRender_CancelledContext(t *testing.T) {
	e := NewFS(views(map[string]string{"page.blade.html": "x"}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.RenderString(ctx, "page", nil)

	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRender_StructAndMapData(t *testing.T) {
	e := NewFS(views(map[string]string{"page.blade.html": "{{ $Name }}/{{ $count }}"}))

	type page struct {
		Name  string `json:"Name"`
		Count int    `json:"count"`
	}
	assert.Equal(t, "Ann/2", renderString(t, e, "page", page{Name: "Ann", Count: 2}))
	assert.Equal(t, "Bob/3", renderString(t, e, "page", map[string]any{"Name": "Bob", "count": 3}))
}

func TestRender_Funcs(t *testing.T) {
	e := NewFS(views(map[string]string{"page.blade.html": "{{ shout($name) }}"}),
		WithFuncs(FuncMap{"shout": func(s string) string { return s + "!" }}))

	assert.Equal(t, "hi!", renderString(t, e, "page", NewData("name", "hi")))
}

func TestRender_CommentsInDevelopment(t *testing.T) {
	e := NewFS(views(map[string]string{"page.blade.html": "a{{-- note --}}b"}))

	assert.Equal(t, "a<!-- BLADE_COMMENT -->b", renderString(t, e, "page", nil))

	e = NewFS(views(map[string]string{"page.blade.html": "a{{-- note --}}b"}), WithProduction(true))
	assert.Equal(t, "ab", renderString(t, e, "page", nil))
}

func TestRender_CachedLoadsReadOnce(t *testing.T) {
	fsys := newCountingFS(views(map[string]string{
		"layout.blade.html":  "<main>@yield('content')</main>",
		"partial.blade.html": "p",
		"page.blade.html":    "@extends('layout')\n@section('content')@include('partial')@include('partial')@endsection",
	}))
	e := NewFS(fsys)

	for range 3 {
		assert.Equal(t, "<main>pp</main>", renderString(t, e, "page", nil))
	}
	assert.Equal(t, 1, fsys.count("page.blade.html"))
	assert.Equal(t, 1, fsys.count("layout.blade.html"))
	assert.Equal(t, 1, fsys.count("partial.blade.html"))
}

func TestEngine_Compile(t *testing.T) {
	e := NewFS(views(map[string]string{"page.blade.html": "@extends('app'){{ $x }}"}))

	out, err := e.Compile("page")
	require.NoError(t, err)
	assert.Equal(t, "<!-- BLADE_EXTENDS:app --><%- x %>", out)

	_, err = e.Compile("missing")
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestEngine_SharedStore(t *testing.T) {
	fsys := newCountingFS(views(map[string]string{"page.blade.html": "{{ $x }}"}))
	store := NewStore(fsys)
	a := NewFS(nil, WithStore(store))
	b := NewFS(nil, WithStore(store), WithProduction(false))

	assert.Equal(t, "1", renderString(t, a, "page", NewData("x", 1)))
	assert.Equal(t, "2", renderString(t, b, "page", NewData("x", 2)))
	assert.Equal(t, 1, fsys.count("page.blade.html"))
	assert.Same(t, store, a.Store())
}
