package blade

import (
	"fmt"
	"regexp"
)

// Compiler rewrites Blade directives into host renderer syntax and
// resolution markers. It never builds a tree: every pass is one full-text
// scan-and-replace and the passes always run in the same order.
//
// A Compiler is immutable and safe for concurrent use.
type Compiler struct {
	production bool
}

// NewCompiler creates a Compiler. In production mode {{-- comments --}} are
// dropped; otherwise they leave a placeholder comment behind.
func NewCompiler(production bool) *Compiler {
	return &Compiler{production: production}
}

type pass struct {
	name  string
	apply func(c *Compiler, s string) string
}

// structurePasses is the number of leading passes that only mark out
// layout structure (extends, sections, pushes).
const structurePasses = 2

var passes = []pass{
	{"extends", (*Compiler).compileExtends},
	{"sections", (*Compiler).compileSections},
	{"yields", (*Compiler).compileYields},
	{"includes", (*Compiler).compileIncludes},
	{"conditionals", (*Compiler).compileConditionals},
	{"foreach", (*Compiler).compileForeach},
	{"for", (*Compiler).compileFor},
	{"while", (*Compiler).compileWhile},
	{"echo", (*Compiler).compileEchos},
	{"comments", (*Compiler).compileComments},
	{"php", (*Compiler).compilePhp},
}

// Compile runs every pass over content. path identifies the template for
// callers; the output depends on content alone.
func (c *Compiler) Compile(content, path string) string {
	for _, p := range passes {
		content = p.apply(c, content)
	}
	return content
}

// CompileStructure runs only the structural passes, leaving section and
// push bodies raw so the resolver can decide which of them to compile.
func (c *Compiler) CompileStructure(content, path string) string {
	for _, p := range passes[:structurePasses] {
		content = p.apply(c, content)
	}
	return content
}

var (
	reExtends       = regexp.MustCompile(`@extends\(\s*['"]([^'"]+)['"]\s*\)`)                              // @extends('layouts.app')
	reSectionInline = regexp.MustCompile(`@section\(\s*['"]([^'"]+)['"]\s*,\s*['"]([^'"]*)['"]\s*\)`)       // @section('title', 'Home')
	reSection       = regexp.MustCompile(`(?s)@section\(\s*['"]([^'"]+)['"]\s*\)(.*?)@endsection`)          // @section('content') ... @endsection
	rePush          = regexp.MustCompile(`(?s)@push\(\s*['"]([^'"]+)['"]\s*\)(.*?)@endpush`)                // @push('scripts') ... @endpush
	reYield         = regexp.MustCompile(`@yield\(\s*['"]([^'"]+)['"]\s*(?:,\s*['"]([^'"]*)['"]\s*)?\)`)    // @yield('name', 'default')
	reStack         = regexp.MustCompile(`@stack\(\s*['"]([^'"]+)['"]\s*\)`)                                // @stack('scripts')
	reInclude       = regexp.MustCompile(`@include\(\s*['"]([^'"]+)['"]\s*\)`)                              // @include('partials.nav')
	reIncludeWith   = regexp.MustCompile(`@include\(\s*['"]([^'"]+)['"]\s*,\s*(\{[^}]*\})\s*\)`)            // @include('partials.card', {title: 'x'})
	reForeachClause = regexp.MustCompile(`^\s*\$?([A-Za-z_][\w.]*)\s+as\s+(?:\$(\w+)\s*=>\s*)?\$(\w+)\s*$`) // $items as $key => $item
	reElse          = regexp.MustCompile(`@else\b`)
	reEndif         = regexp.MustCompile(`@endif\b`)
	reEndforeach    = regexp.MustCompile(`@endforeach\b`)
	reEndfor        = regexp.MustCompile(`@endfor\b`)
	reEndwhile      = regexp.MustCompile(`@endwhile\b`)
	reEscapedEcho   = regexp.MustCompile(`\{\{\s*([^}]+)\s*\}\}`)   // {{ $name }}
	reRawEcho       = regexp.MustCompile(`(?s)\{!!\s*(.+?)\s*!!\}`) // {!! $html !!}
	reComment       = regexp.MustCompile(`(?s)\{\{--(.*?)--\}\}`)   // {{-- note --}}
	rePhp           = regexp.MustCompile(`(?s)@php\s*(.*?)@endphp`) // @php ... @endphp
)

func (c *Compiler) compileExtends(s string) string {
	return reExtends.ReplaceAllString(s, fmt.Sprintf(markerExtends, "${1}"))
}

func (c *Compiler) compileSections(s string) string {
	s = reSectionInline.ReplaceAllString(s, fmt.Sprintf(markerSectionStart, "${1}")+"${2}"+fmt.Sprintf(markerSectionEnd, "${1}"))
	s = reSection.ReplaceAllString(s, fmt.Sprintf(markerSectionStart, "${1}")+"${2}"+fmt.Sprintf(markerSectionEnd, "${1}"))
	return rePush.ReplaceAllString(s, fmt.Sprintf(markerPushStart, "${1}")+"${2}"+fmt.Sprintf(markerPushEnd, "${1}"))
}

func (c *Compiler) compileYields(s string) string {
	s = reYield.ReplaceAllStringFunc(s, func(m string) string {
		sm := reYield.FindStringSubmatch(m)
		out := fmt.Sprintf(markerYield, sm[1])
		if sm[2] != "" {
			out += fmt.Sprintf(markerDefault, sm[2])
		}
		return out
	})
	return reStack.ReplaceAllString(s, fmt.Sprintf(markerStack, "${1}"))
}

func (c *Compiler) compileIncludes(s string) string {
	s = reInclude.ReplaceAllString(s, fmt.Sprintf(markerInclude, "${1}"))
	return reIncludeWith.ReplaceAllString(s, fmt.Sprintf(markerIncludeWith, "${1}", "${2}"))
}

func (c *Compiler) compileConditionals(s string) string {
	s = replaceDirective(s, "if", func(args string) (string, bool) {
		return "<% if (" + TranslateExpression(args) + ") { %>", true
	})
	s = replaceDirective(s, "elseif", func(args string) (string, bool) {
		return "<% } else if (" + TranslateExpression(args) + ") { %>", true
	})
	s = reElse.ReplaceAllString(s, "<% } else { %>")
	return reEndif.ReplaceAllString(s, "<% } %>")
}

// compileForeach accepts "$items as $item" and "$items as $key => $item".
// Any other clause leaves the directive untouched.
func (c *Compiler) compileForeach(s string) string {
	s = replaceDirective(s, "foreach", func(args string) (string, bool) {
		sm := reForeachClause.FindStringSubmatch(args)
		if sm == nil {
			return "", false
		}
		items := TranslateExpression(sm[1])
		if sm[2] != "" {
			return "<% for (const [" + sm[2] + ", " + sm[3] + "] of " + items + ") { %>", true
		}
		return "<% for (const " + sm[3] + " of " + items + ") { %>", true
	})
	return reEndforeach.ReplaceAllString(s, "<% } %>")
}

func (c *Compiler) compileFor(s string) string {
	s = replaceDirective(s, "for", func(args string) (string, bool) {
		return "<% for (" + stripSigils(args) + ") { %>", true
	})
	return reEndfor.ReplaceAllString(s, "<% } %>")
}

func (c *Compiler) compileWhile(s string) string {
	s = replaceDirective(s, "while", func(args string) (string, bool) {
		return "<% while (" + TranslateExpression(args) + ") { %>", true
	})
	return reEndwhile.ReplaceAllString(s, "<% } %>")
}

func (c *Compiler) compileEchos(s string) string {
	s = reEscapedEcho.ReplaceAllStringFunc(s, func(m string) string {
		expr := reEscapedEcho.FindStringSubmatch(m)[1]
		if len(expr) >= 2 && expr[:2] == "--" {
			// {{-- comment --}}, handled by the comments pass
			return m
		}
		return "<%- " + TranslateExpression(expr) + " %>"
	})
	return reRawEcho.ReplaceAllStringFunc(s, func(m string) string {
		return "<%= " + TranslateExpression(reRawEcho.FindStringSubmatch(m)[1]) + " %>"
	})
}

func (c *Compiler) compileComments(s string) string {
	if c.production {
		return reComment.ReplaceAllLiteralString(s, "")
	}
	return reComment.ReplaceAllLiteralString(s, markerComment)
}

// compilePhp emits the block verbatim; its code is expected to be in host
// syntax already.
func (c *Compiler) compilePhp(s string) string {
	return rePhp.ReplaceAllString(s, "<% ${1} %>")
}
