package blade

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
)

// View names a template together with its data and response status.
type View interface {
	Name() string
	Data() any
	Status() int
}

type view struct {
	name   string
	data   any
	status int
}

// NewView creates a View. The status defaults to http.StatusOK.
func NewView(name string, data any, status ...int) View {
	statusCode := http.StatusOK
	if len(status) > 0 {
		statusCode = status[0]
	}
	return view{
		name:   name,
		data:   data,
		status: statusCode,
	}
}

// Name returns the template name.
func (v view) Name() string {
	return v.name
}

// Data returns the render data.
func (v view) Data() any {
	return v.data
}

// Status returns the HTTP status code.
func (v view) Status() int {
	return v.status
}

var _ render.HTMLRender = (*HtmlRender)(nil)

// HtmlRender renders named Blade templates for gin's c.HTML.
type HtmlRender struct {
	e *Engine
}

// NewHTMLRender creates an HtmlRender backed by e.
func NewHTMLRender(e *Engine) *HtmlRender {
	return &HtmlRender{e: e}
}

// Instance returns a new render.Render. A View passed as data supplies its
// own template name and data.
func (h *HtmlRender) Instance(name string, data any) render.Render {
	if v, ok := data.(View); ok {
		name, data = v.Name(), v.Data()
	}
	return &Render{e: h.e, ctx: context.Background(), name: name, data: data}
}

// HTML renders v with the request's context, so a cancelled request stops
// the render at the next template load or loop iteration.
func HTML(c *gin.Context, e *Engine, v View) {
	c.Render(v.Status(), &Render{e: e, ctx: c.Request.Context(), name: v.Name(), data: v.Data()})
}

// Render renders one template for a gin response.
type Render struct {
	e    *Engine
	ctx  context.Context
	name string
	data any
}

// Render renders the template and writes it to w. The response body is
// left empty when rendering fails.
func (r *Render) Render(w http.ResponseWriter) error {
	ctx := r.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	out, err := r.e.RenderString(ctx, r.name, r.data)
	if err != nil {
		return err
	}
	r.WriteContentType(w)
	_, err = io.WriteString(w, out)
	return err
}

// WriteContentType sets an HTML content type unless one is already set.
func (r *Render) WriteContentType(w http.ResponseWriter) {
	header := w.Header()
	if val := header["Content-Type"]; len(val) == 0 {
		header["Content-Type"] = []string{"text/html; charset=utf-8"}
	}
}
