// Package expand renders SQL templates against a run's Context.
//
// Templates use text/template syntax with the sprig function library.
// Context entries are reachable as {{ .name }} or {{ var "name" }}; an
// unknown name fails the expansion. A template may register one
// post-processing hook with {{ postProcess "inList" "ids" }}, which the
// runner calls with the step's output rows before the next step expands.
package expand

import (
	"bytes"
	"fmt"
	"regexp"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/microsoftarchive/night-shift/pkg/api"
)

const (
	defaultCacheSize = 128
	missingKeyError  = "missingkey=error"
)

var newlineRuns = regexp.MustCompile(`\n+`)

// Result is the outcome of expanding one template.
type Result struct {
	Text     string
	Hook     Hook   // nil when the template registered none
	HookName string // as written in the template
}

// Expander renders templates for a single dialect.
type Expander struct {
	dialect   api.Dialect
	configDir string
	hooks     map[string]HookFactory
	cache     *lru.Cache[string, *template.Template]
}

// Option configures an Expander.
type Option func(*Expander)

// WithHook registers an additional hook, replacing a built-in of the same name.
func WithHook(name string, f HookFactory) Option {
	return func(e *Expander) { e.hooks[name] = f }
}

// WithConfigDir sets the directory awsCreds reads from.
func WithConfigDir(dir string) Option {
	return func(e *Expander) { e.configDir = dir }
}

// New creates an Expander for d.
func New(d api.Dialect, opts ...Option) (*Expander, error) {
	e := &Expander{
		dialect:   d,
		configDir: api.DefaultConfigDir,
		hooks:     BuiltinHooks(),
	}
	for _, opt := range opts {
		opt(e)
	}

	cache, err := lru.New[string, *template.Template](defaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating template cache: %w", err)
	}
	e.cache = cache
	return e, nil
}

// Expand renders text with ctx. The context is only read; the returned
// hook is what may change it later.
func (e *Expander) Expand(name, text string, ctx api.Context) (*Result, error) {
	parsed, err := e.parse(name, text)
	if err != nil {
		return nil, err
	}

	tmpl, err := parsed.Clone()
	if err != nil {
		return nil, fmt.Errorf("cloning template: %w", err)
	}

	if ctx == nil {
		ctx = api.Context{}
	}

	// Options live outside what Clone copies.
	res := &Result{}
	tmpl.Option(missingKeyError).Funcs(e.funcs(ctx, res))

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]any(ctx)); err != nil {
		return nil, fmt.Errorf("executing template: %w", err)
	}

	res.Text = newlineRuns.ReplaceAllString(buf.String(), "\n")
	return res, nil
}

func (e *Expander) parse(name, text string) (*template.Template, error) {
	key := name + "\x00" + text
	if tmpl, ok := e.cache.Get(key); ok {
		return tmpl, nil
	}

	tmpl, err := template.New(name).
		Option(missingKeyError).
		Funcs(sprig.TxtFuncMap()).
		Funcs(e.funcs(nil, nil)).
		Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}

	e.cache.Add(key, tmpl)
	return tmpl, nil
}

// funcs binds the run-specific template functions. Parsing only needs
// their names, so ctx and res may be nil there.
func (e *Expander) funcs(ctx api.Context, res *Result) template.FuncMap {
	return template.FuncMap{
		"var": func(name string) (any, error) {
			return ctx.Resolve(name)
		},
		"postProcess": func(name string, args ...string) (string, error) {
			return "", e.register(res, name, args)
		},
		"ident": func(parts ...string) string {
			return QuoteIdent(e.dialect, parts...)
		},
		"awsCreds": func() (string, error) {
			return AWSCredentials(e.configDir)
		},
	}
}

func (e *Expander) register(res *Result, name string, args []string) error {
	if res.Hook != nil {
		return fmt.Errorf("post-processing hook already registered (%s)", res.HookName)
	}

	factory, ok := e.hooks[name]
	if !ok {
		return fmt.Errorf("unknown post-processing hook %q", name)
	}

	hook, err := factory(e.dialect, args)
	if err != nil {
		return fmt.Errorf("hook %s: %w", name, err)
	}

	res.Hook = hook
	res.HookName = name
	return nil
}
