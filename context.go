package blade

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
)

// renderContext is the state of one render call. It is never shared
// between calls.
type renderContext struct {
	ctx      context.Context
	depth    int
	maxDepth int
	// partials holds rendered include outputs, addressed by sentinel
	partials []string
	// stacks holds compiled push bodies per stack name, in push order
	stacks map[string][]string
}

func newRenderContext(ctx context.Context, maxDepth int) *renderContext {
	return &renderContext{
		ctx:      ctx,
		maxDepth: maxDepth,
		stacks:   map[string][]string{},
	}
}

// enter records one level of layout or include nesting.
func (rc *renderContext) enter(path string) error {
	if rc.depth >= rc.maxDepth {
		return &TemplateError{Path: path, Err: ErrRecursionLimit}
	}
	rc.depth++
	return nil
}

func (rc *renderContext) leave() {
	rc.depth--
}

func (rc *renderContext) push(stack, body string) {
	rc.stacks[stack] = append(rc.stacks[stack], body)
}

const partialSentinel = "\x00blade-partial:%d\x00"

var rePartialSentinel = regexp.MustCompile(`\x00blade-partial:(\d+)\x00`)

// addPartial stores a rendered partial and returns the sentinel standing in
// for it until the parent has been rendered.
func (rc *renderContext) addPartial(out string) string {
	rc.partials = append(rc.partials, out)
	return fmt.Sprintf(partialSentinel, len(rc.partials)-1)
}

// splice swaps sentinels in a rendered output for their partial outputs.
// Partial outputs are already spliced, so one pass is enough.
func (rc *renderContext) splice(out string) string {
	if len(rc.partials) == 0 {
		return out
	}
	return rePartialSentinel.ReplaceAllStringFunc(out, func(m string) string {
		i, err := strconv.Atoi(rePartialSentinel.FindStringSubmatch(m)[1])
		if err != nil || i >= len(rc.partials) {
			return m
		}
		return rc.partials[i]
	})
}
