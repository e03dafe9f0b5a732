package blade

import (
	"context"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/leaf-app/go-blade/ejs"
)

// Engine renders Blade templates from a views FS. It is safe for concurrent
// use; every render call owns its own state and only the store's content
// cache is shared.
type Engine struct {
	compiler *Compiler
	store    *Store
	resolver *resolver
	logger   zerolog.Logger
	metrics  *Metrics
	maxDepth int
}

// New creates an engine reading templates from dir.
func New(dir string, opts ...Option) *Engine {
	return NewFS(os.DirFS(dir), opts...)
}

// NewFS creates an engine reading templates from fsys. When using
// embed.FS, pass fs.Sub of the embedded views folder.
func NewFS(fsys fs.FS, opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	store := o.store
	if store == nil {
		store = NewStore(fsys,
			WithStoreCache(o.cache),
			WithStoreExtension(o.extension),
			WithStoreLogger(o.logger),
			WithStoreMetrics(o.metrics),
		)
	}
	host := o.host
	if host == nil {
		host = NewEJSRenderer(ejs.WithFuncs(o.funcs), ejs.WithMaxLoopIterations(o.maxLoops))
	}

	compiler := NewCompiler(o.production)
	return &Engine{
		compiler: compiler,
		store:    store,
		resolver: &resolver{
			compiler: compiler,
			store:    store,
			host:     host,
			logger:   o.logger,
		},
		logger:   o.logger,
		metrics:  o.metrics,
		maxDepth: o.maxDepth,
	}
}

// NewFromConfig creates an engine for cfg. Options are applied after the
// config and override it. With cfg.Preload the cache is warmed before
// returning.
func NewFromConfig(cfg Config, opts ...Option) (*Engine, error) {
	base := []Option{
		WithCache(cfg.Cache),
		WithExtension(cfg.Extension),
		WithProduction(cfg.Production),
		WithMaxDepth(cfg.MaxDepth),
		WithMaxLoopIterations(cfg.MaxLoopIterations),
	}
	e := New(cfg.ViewsDir, append(base, opts...)...)
	if cfg.Preload {
		if err := e.Preload(); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// RenderString renders the named template with data and returns the
// output. data may be *Data, a map with string keys, a struct or nil.
// Nothing is returned unless every layout and partial rendered.
func (e *Engine) RenderString(ctx context.Context, name string, data any) (out string, err error) {
	start := time.Now()
	defer func() {
		e.metrics.observeRender(name, start, err)
		if err != nil {
			e.logger.Error().Err(err).Str("template", name).Msg("render failed")
		}
	}()

	d, err := ToData(data)
	if err != nil {
		return "", err
	}
	rc := newRenderContext(ctx, e.maxDepth)
	path, raw, err := e.resolver.load(rc, name)
	if err != nil {
		return "", err
	}
	return e.resolver.resolve(rc, raw, path, d, nil)
}

// Render renders the named template into w. Nothing is written on error.
func (e *Engine) Render(w io.Writer, name string, data any) error {
	return e.RenderContext(context.Background(), w, name, data)
}

// RenderContext is Render with a context, checked at every template load
// and loop iteration.
func (e *Engine) RenderContext(ctx context.Context, w io.Writer, name string, data any) error {
	out, err := e.RenderString(ctx, name, data)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// Compile returns the compiled fragment of the named template, markers
// included. Useful to debug what the host renderer receives.
func (e *Engine) Compile(name string) (string, error) {
	path, raw, err := e.store.Get(name)
	if err != nil {
		return "", err
	}
	return e.compiler.Compile(raw, path), nil
}

// Preload reads every template into the store's cache.
func (e *Engine) Preload() error {
	n, err := e.store.Preload()
	if err != nil {
		return err
	}
	e.logger.Info().Int("templates", n).Msg("templates preloaded")
	return nil
}

// Store returns the engine's template store.
func (e *Engine) Store() *Store {
	return e.store
}

// Compiler returns the engine's directive compiler.
func (e *Engine) Compiler() *Compiler {
	return e.compiler
}

type ejsRenderer struct {
	r *ejs.Renderer
}

// NewEJSRenderer returns the default host renderer.
func NewEJSRenderer(opts ...ejs.Option) HostRenderer {
	return ejsRenderer{r: ejs.New(opts...)}
}

func (h ejsRenderer) Render(ctx context.Context, name, src string, data *Data) (string, error) {
	return h.r.Render(ctx, name, src, data)
}
