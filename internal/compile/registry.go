package compile

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// Options carries per-run settings into a compiler factory. Nil Args keeps
// the preset's arguments.
type Options struct {
	Args   []string
	Stdout io.Writer
	Stderr io.Writer
}

// Factory constructs a compiler with the provided options.
type Factory func(Options) (Compiler, error)

// Registry maintains known compiler factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register installs a compiler factory. Returns an error if the name already exists.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" {
		return fmt.Errorf("compile: name is required")
	}
	if factory == nil {
		return fmt.Errorf("compile: factory is required for %s", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("compile: %s already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(name string, factory Factory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

// Resolve constructs the compiler registered under name. Unregistered names
// run as a plain command with the given arguments.
func (r *Registry) Resolve(name string, opts Options) (Compiler, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("compile: compiler name is required")
	}
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return Command{Name: name, Args: opts.Args, Stdout: opts.Stdout, Stderr: opts.Stderr}, nil
	}
	return factory(opts)
}

// Names returns a sorted list of registered compiler names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset returns a factory for a command with default arguments.
func Preset(name string, defaultArgs ...string) Factory {
	return func(opts Options) (Compiler, error) {
		args := defaultArgs
		if opts.Args != nil {
			args = opts.Args
		}
		return Command{
			Name:   name,
			Args:   append([]string{}, args...),
			Stdout: opts.Stdout,
			Stderr: opts.Stderr,
		}, nil
	}
}

// DefaultRegistry returns a registry with the common LaTeX engines installed.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	reg.MustRegister("pdflatex", Preset("pdflatex", "-interaction=nonstopmode"))
	reg.MustRegister("xelatex", Preset("xelatex", "-interaction=nonstopmode"))
	reg.MustRegister("lualatex", Preset("lualatex", "-interaction=nonstopmode"))
	reg.MustRegister("latexmk", Preset("latexmk", "-pdf", "-interaction=nonstopmode"))
	reg.MustRegister("none", func(Options) (Compiler, error) { return Noop{}, nil })
	return reg
}
