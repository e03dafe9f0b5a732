package blade

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// HostRenderer evaluates fully resolved markup against render data. The
// markup uses <% code %>, <%- escaped %> and <%= raw %> tags.
type HostRenderer interface {
	Render(ctx context.Context, name, src string, data *Data) (string, error)
}

// resolver turns a template and its layouts and partials into rendered
// output.
type resolver struct {
	compiler *Compiler
	store    *Store
	host     HostRenderer
	logger   zerolog.Logger
}

// inheritance carries the sections supplied by the templates extending a
// layout.
type inheritance struct {
	sections map[string]string
	// implicitContent marks a content section defaulted to "" because no
	// descendant declared one; a layout's own content section replaces it
	implicitContent bool
}

// resolve renders raw, the content at path. in is nil for a template
// rendered on its own; for a layout it holds the sections supplied by the
// templates extending it, which take precedence over the layout's own.
func (r *resolver) resolve(rc *renderContext, raw, path string, data *Data, in *inheritance) (string, error) {
	if err := rc.enter(path); err != nil {
		return "", err
	}
	defer rc.leave()

	file := parseFile(path, r.compiler.CompileStructure(raw, path))

	for _, stack := range file.PushOrder {
		for _, body := range file.Pushes[stack] {
			compiled, err := r.compileBody(rc, body, path, data)
			if err != nil {
				return "", err
			}
			rc.push(stack, compiled)
		}
	}

	sections := map[string]string{}
	implicit := false
	if in != nil {
		for name, body := range in.sections {
			sections[name] = body
		}
		implicit = in.implicitContent
	}
	for _, name := range file.SectionOrder {
		if _, ok := sections[name]; ok && !(implicit && name == "content") {
			continue
		}
		compiled, err := r.compileBody(rc, file.Sections[name], path, data)
		if err != nil {
			return "", err
		}
		sections[name] = compiled
		if name == "content" {
			implicit = false
		}
	}

	if file.Extends != "" {
		if _, ok := sections["content"]; !ok || implicit {
			switch {
			case file.Residual != "":
				content, err := r.compileBody(rc, file.Residual, path, data)
				if err != nil {
					return "", err
				}
				sections["content"] = content
				implicit = false
			case !ok:
				sections["content"] = ""
				implicit = true
			}
		}

	layoutPath, layout, err := r.load(rc, file.Extends)
		if err != nil {
			return "", err
		}
		r.logger.Debug().Str("template", path).Str("layout", layoutPath).Msg("extending layout")
		return r.resolve(rc, layout, layoutPath, data, &inheritance{sections: sections, implicitContent: implicit})
	}

	var body string
	if _, ok := file.Sections["content"]; ok && in == nil {
		body = sections["content"]
	} else {
		compiled, err := r.compileBody(rc, file.Residual, path, data)
		if err != nil {
			return "", err
		}
		body = compiled
	}
	body = fillYields(body, sections)
	body = fillStacks(body, rc.stacks)

	out, err := r.host.Render(rc.ctx, path, body, data)
	if err != nil {
		return "", &TemplateError{Path: path, Err: err}
	}
	return rc.splice(out), nil
}

// compileBody compiles a section, push or residual body and resolves its
// includes. Yield and stack markers are left for the final assembly.
func (r *resolver) compileBody(rc *renderContext, body, path string, data *Data) (string, error) {
	if body == "" {
		return "", nil
	}
	return r.resolveIncludes(rc, r.compiler.Compile(body, path), data)
}

// resolveIncludes renders every include marker in s and leaves a sentinel
// in its place.
func (r *resolver) resolveIncludes(rc *renderContext, s string, data *Data) (string, error) {
	s, err := replaceAllSubmatchFunc(reIncludeWithMarker, s, func(sm []string) (string, error) {
		extra, err := parseIncludeData(sm[2], data)
		if err != nil {
			r.logger.Warn().Err(err).Str("partial", sm[1]).Msg("ignoring include data")
		}
		return r.include(rc, sm[1], data.Merge(extra))
	})
	if err != nil {
		return "", err
	}
	return replaceAllSubmatchFunc(reIncludeMarker, s, func(sm []string) (string, error) {
		return r.include(rc, sm[1], data)
	})
}

func (r *resolver) include(rc *renderContext, name string, data *Data) (string, error) {
	path, raw, err := r.load(rc, name)
	if err != nil {
		return "", err
	}
	r.logger.Debug().Str("partial", path).Msg("resolving include")
	out, err := r.resolve(rc, raw, path, data, nil)
	if err != nil {
		return "", err
	}
	return rc.addPartial(out), nil
}

func (r *resolver) load(rc *renderContext, name string) (string, string, error) {
	if err := rc.ctx.Err(); err != nil {
		return "", "", err
	}
	return r.store.Get(strings.TrimSpace(name))
}

// fillYields replaces yield markers with the matching section, the marker's
// default or nothing. Sections may themselves contain yields, so it repeats
// until no marker is left, at most once per section.
func fillYields(s string, sections map[string]string) string {
	for range len(sections) + 1 {
		if !strings.Contains(s, "<!-- BLADE_YIELD:") {
			break
		}
		s = reYieldMarker.ReplaceAllStringFunc(s, func(m string) string {
			sm := reYieldMarker.FindStringSubmatch(m)
			if body, ok := sections[strings.TrimSpace(sm[1])]; ok {
				return body
			}
			return sm[2]
		})
	}
	return s
}

// fillStacks replaces stack markers with the pushed bodies in push order.
func fillStacks(s string, stacks map[string][]string) string {
	return reStackMarker.ReplaceAllStringFunc(s, func(m string) string {
		name := strings.TrimSpace(reStackMarker.FindStringSubmatch(m)[1])
		return strings.Join(stacks[name], "\n")
	})
}

// replaceAllSubmatchFunc is regexp.ReplaceAllStringFunc with submatches and
// an error return; the first error stops the scan.
func replaceAllSubmatchFunc(re *regexp.Regexp, s string, fn func(sm []string) (string, error)) (string, error) {
	locs := re.FindAllStringSubmatchIndex(s, -1)
	if locs == nil {
		return s, nil
	}
	var b strings.Builder
	last := 0
	for _, loc := range locs {
		sm := make([]string, len(loc)/2)
		for i := range sm {
			if loc[2*i] >= 0 {
				sm[i] = s[loc[2*i]:loc[2*i+1]]
			}
		}
		repl, err := fn(sm)
		if err != nil {
			return "", err
		}
		b.WriteString(s[last:loc[0]])
		b.WriteString(repl)
		last = loc[1]
	}
	b.WriteString(s[last:])
	return b.String(), nil
}
