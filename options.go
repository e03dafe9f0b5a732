package blade

import (
	"github.com/rs/zerolog"
)

// FuncMap holds helper functions callable from template expressions.
type FuncMap map[string]any

type options struct {
	cache      bool
	extension  string
	production bool
	logger     zerolog.Logger
	metrics    *Metrics
	host       HostRenderer
	store      *Store
	maxDepth   int
	maxLoops   int
	funcs      FuncMap
}

func defaultOptions() options {
	return options{
		cache:      true,
		extension:  DefaultExtension,
		production: false,
		logger:     zerolog.Nop(),
		maxDepth:   DefaultMaxDepth,
		funcs:      FuncMap{},
	}
}

// Option configures an Engine.
type Option func(*options)

// WithCache turns the template content cache on or off.
func WithCache(on bool) Option {
	return func(o *options) { o.cache = on }
}

// WithExtension sets the extension appended to bare template names.
func WithExtension(ext string) Option {
	return func(o *options) { o.extension = ext }
}

// WithProduction drops {{-- comments --}} from compiled output when on. It
// is off by default, leaving a placeholder for each comment.
func WithProduction(on bool) Option {
	return func(o *options) { o.production = on }
}

// WithLogger sets the logger used by the engine and its store.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records render and store metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithHostRenderer replaces the default ejs renderer. Functions and loop
// limits given to the engine do not apply to a custom renderer.
func WithHostRenderer(h HostRenderer) Option {
	return func(o *options) { o.host = h }
}

// WithStore shares an existing Store, and its cache, with the engine. The
// engine's cache, extension, logger and metrics options then leave the
// store untouched.
func WithStore(s *Store) Option {
	return func(o *options) { o.store = s }
}

// WithMaxDepth bounds layout and include nesting.
func WithMaxDepth(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxDepth = n
		}
	}
}

// WithMaxLoopIterations bounds every loop in a render.
func WithMaxLoopIterations(n int) Option {
	return func(o *options) { o.maxLoops = n }
}

// WithFuncs adds helper functions to template expressions.
func WithFuncs(funcs FuncMap) Option {
	return func(o *options) {
		for name, fn := range funcs {
			o.funcs[name] = fn
		}
	}
}
