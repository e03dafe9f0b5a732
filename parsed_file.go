package blade

import (
	"fmt"
	"strings"
)

// ParsedFile is a template split along its structural markers. Section and
// push bodies are raw: nothing beyond the structural passes has run on them.
type ParsedFile struct {
	Path string
	// Extends is the layout name of the first @extends, if any
	Extends string
	// Sections maps section names to raw bodies; the last duplicate wins
	Sections map[string]string
	// SectionOrder lists section names in first-seen order
	SectionOrder []string
	// Pushes maps stack names to raw bodies in source order
	Pushes map[string][]string
	// PushOrder lists stack names in first-seen order
	PushOrder []string
	// Residual is the trimmed body left after removing every span above
	Residual string
}

// parseFile splits structure-compiled content.
func parseFile(path, content string) *ParsedFile {
	p := &ParsedFile{
		Path:     path,
		Sections: map[string]string{},
		Pushes:   map[string][]string{},
	}

	if sm := reExtendsMarker.FindStringSubmatch(content); sm != nil {
		p.Extends = strings.TrimSpace(sm[1])
		content = reExtendsMarker.ReplaceAllLiteralString(content, "")
	}

	content = stripStrayEnds(p.extract(content))

	p.Residual = strings.TrimSpace(content)
	return p
}

// extract moves section and push spans out of content into p. Spans found
// inside a body are lifted out too, so an inline @section inside a block
// section lands in the section map rather than in the enclosing body.
func (p *ParsedFile) extract(content string) string {
	content = extractSpans(content, reSectionStartMarker.FindStringSubmatchIndex, markerSectionEnd, func(name, body string) {
		body = stripStrayEnds(p.extract(body))
		if _, ok := p.Sections[name]; !ok {
			p.SectionOrder = append(p.SectionOrder, name)
		}
		p.Sections[name] = strings.TrimSpace(body)
	})
	return extractSpans(content, rePushStartMarker.FindStringSubmatchIndex, markerPushEnd, func(name, body string) {
		body = stripStrayEnds(p.extract(body))
		if _, ok := p.Pushes[name]; !ok {
			p.PushOrder = append(p.PushOrder, name)
		}
		p.Pushes[name] = append(p.Pushes[name], strings.TrimSpace(body))
	})
}

// stripStrayEnds drops end markers left without their start marker.
func stripStrayEnds(s string) string {
	return reStrayEndMarker.ReplaceAllLiteralString(s, "")
}

// extractSpans removes every start..end marker span from s and hands the
// trimmed body to fn. A start marker without its end marker is dropped.
func extractSpans(s string, findStart func(string) []int, endFormat string, fn func(name, body string)) string {
	var rest strings.Builder
	for {
		loc := findStart(s)
		if loc == nil {
			rest.WriteString(s)
			return rest.String()
		}
		name := s[loc[2]:loc[3]]
		end := fmt.Sprintf(endFormat, name)
		idx := strings.Index(s[loc[1]:], end)
		rest.WriteString(s[:loc[0]])
		if idx < 0 {
			s = s[loc[1]:]
			continue
		}
		fn(name, strings.TrimSpace(s[loc[1]:loc[1]+idx]))
		s = s[loc[1]+idx+len(end):]
	}
}
