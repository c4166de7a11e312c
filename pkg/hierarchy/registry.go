// Package hierarchy answers subtype and abstractness questions about PHP
// classes from their parsed declarations instead of loading them.
package hierarchy

import (
	"sort"
	"strings"

	"github.com/Sumatoshi-tech/modelfinder/pkg/phpast"
)

// Registry maps fully-qualified class names to their declarations. Lookups are
// case-insensitive, as PHP class names are. A populated Registry is safe for
// concurrent reads; Add must not race with anything.
type Registry struct {
	classes   map[string]phpast.ClassDecl
	conflicts map[string][]string
	strict    bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithStrict makes an undeclared ancestor a *ResolutionError instead of a
// dead end that simply is not a subtype.
func WithStrict(strict bool) Option {
	return func(r *Registry) {
		r.strict = strict
	}
}

// WithoutBuiltins skips seeding the framework classes.
func WithoutBuiltins() Option {
	return func(r *Registry) {
		clear(r.classes)
	}
}

// New creates a Registry seeded with the well-known framework model classes.
func New(opts ...Option) *Registry {
	registry := &Registry{
		classes:   make(map[string]phpast.ClassDecl, len(builtinClasses)),
		conflicts: make(map[string][]string),
	}

	for _, decl := range builtinClasses {
		registry.classes[key(decl.Name)] = decl
	}

	for _, opt := range opts {
		opt(registry)
	}

	return registry
}

// Add registers a declaration. A scanned declaration replaces a builtin one; a
// second declaration of the same class from another file marks the class as
// conflicting.
func (r *Registry) Add(decl phpast.ClassDecl) {
	if decl.Name == "" {
		return
	}

	k := key(decl.Name)

	existing, ok := r.classes[k]
	if ok && existing.Path != "" && decl.Path != "" && existing.Path != decl.Path {
		if len(r.conflicts[k]) == 0 {
			r.conflicts[k] = []string{existing.Path}
		}

		r.conflicts[k] = append(r.conflicts[k], decl.Path)

		return
	}

	r.classes[k] = decl
}

// AddFile registers every class of a parsed file.
func (r *Registry) AddFile(file *phpast.File) {
	for _, decl := range file.Classes {
		r.Add(decl)
	}
}

// Len returns the number of registered classes.
func (r *Registry) Len() int {
	return len(r.classes)
}

// Lookup returns the declaration of name.
func (r *Registry) Lookup(name string) (phpast.ClassDecl, bool) {
	decl, ok := r.classes[key(name)]

	return decl, ok
}

// Introspect returns the declaration of name or a *ResolutionError when the
// class is unknown or declared ambiguously.
func (r *Registry) Introspect(name string) (phpast.ClassDecl, error) {
	k := key(name)

	if paths, conflicting := r.conflicts[k]; conflicting {
		sorted := append([]string(nil), paths...)
		sort.Strings(sorted)

		return phpast.ClassDecl{}, &ResolutionError{Class: name, Reason: ErrDuplicateClass, Paths: sorted}
	}

	decl, ok := r.classes[k]
	if !ok {
		return phpast.ClassDecl{}, &ResolutionError{Class: name, Reason: ErrUnknownClass}
	}

	return decl, nil
}

// IsAbstract reports whether name is declared abstract.
func (r *Registry) IsAbstract(name string) (bool, error) {
	decl, err := r.Introspect(name)
	if err != nil {
		return false, err
	}

	return decl.Abstract, nil
}

// Ancestors returns the parent chain of name, nearest first, up to the root
// or the first undeclared class, which is included.
func (r *Registry) Ancestors(name string) ([]string, error) {
	return r.walk(name, func(string) bool { return false })
}

// IsSubclassOf reports whether name transitively extends base. A class is not
// a subclass of itself.
func (r *Registry) IsSubclassOf(name, base string) (bool, error) {
	baseKey := key(base)
	found := false

	_, err := r.walk(name, func(parent string) bool {
		found = key(parent) == baseKey

		return found
	})
	if err != nil {
		return false, err
	}

	return found, nil
}

// walk follows parent links from name until stop accepts a parent, the chain
// ends, or (outside strict mode) an undeclared parent is reached.
func (r *Registry) walk(name string, stop func(parent string) bool) ([]string, error) {
	decl, err := r.Introspect(name)
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{key(decl.Name): true}

	var chain []string

	for current := decl; current.Parent != ""; {
		parentKey := key(current.Parent)
		if visited[parentKey] {
			return nil, &ResolutionError{Class: name, Reason: ErrInheritanceCycle, Chain: append(chain, current.Parent)}
		}

		visited[parentKey] = true
		chain = append(chain, current.Parent)

		if stop(current.Parent) {
			break
		}

		if _, conflicting := r.conflicts[parentKey]; conflicting {
			_, introspectErr := r.Introspect(current.Parent)

			return nil, introspectErr
		}

		next, ok := r.classes[parentKey]
		if !ok {
			if r.strict {
				return nil, &ResolutionError{Class: name, Reason: ErrUnknownAncestor, Chain: chain}
			}

			break
		}

		current = next
	}

	return chain, nil
}

// Names returns every registered class name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.classes))
	for _, decl := range r.classes {
		names = append(names, decl.Name)
	}

	sort.Strings(names)

	return names
}

func key(name string) string {
	return strings.ToLower(strings.TrimPrefix(name, `\`))
}
