package tessera

import (
	"io"
	"strings"
)

// Context holds the variables a template renders against.
type Context map[string]interface{}

// Engine parses, resolves, and renders templates from a Loader.
// Parse and resolution results are cached per name, failures included,
// so repeated renders of a broken template fail identically. An Engine
// is safe for concurrent use.
type Engine struct {
	config  *Config
	loader  Loader
	filters *FilterRegistry
	set     *templateSet
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the engine's configuration.
func WithConfig(config *Config) Option {
	return func(e *Engine) {
		e.config = config
	}
}

// WithFilter registers a custom filter, overriding a builtin of the
// same name.
func WithFilter(name string, fn FilterFunc) Option {
	return func(e *Engine) {
		e.filters.Register(name, fn)
	}
}

// New creates an Engine reading templates from loader.
func New(loader Loader, opts ...Option) (*Engine, error) {
	e := &Engine{
		config:  ConfigFromEnvironment(),
		loader:  loader,
		filters: NewFilterRegistry(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.config.Validate(); err != nil {
		return nil, err
	}
	e.set = newTemplateSet(loader)
	return e, nil
}

// Render renders the named template against ctx and returns the output.
func (e *Engine) Render(name string, ctx Context) (string, error) {
	var sb strings.Builder
	if err := e.RenderTo(&sb, name, ctx); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// RenderTo renders the named template against ctx, writing to w.
// Output already written when an error occurs is not rolled back;
// callers wanting all-or-nothing output should buffer.
func (e *Engine) RenderTo(w io.Writer, name string, ctx Context) error {
	res, err := e.set.resolve(name)
	if err != nil {
		return err
	}
	st := newRenderState(e, w, res, ctx)
	return st.renderNodes(res.root().nodes)
}

// Filters exposes the engine's filter registry.
func (e *Engine) Filters() *FilterRegistry {
	return e.filters
}
