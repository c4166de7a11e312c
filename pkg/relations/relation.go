// Package relations describes Eloquent model relations and finds them by
// reading relation methods from parsed class declarations.
package relations

import (
	"context"
	"errors"
)

// ErrUnknownModel means the finder has no declaration for the requested class.
var ErrUnknownModel = errors.New("unknown model")

// ModelRelation is a declared association from one model to another.
type ModelRelation struct {
	// Name is the relation method name, e.g. "posts".
	Name string `json:"name"                  yaml:"name"`
	// Type is the Eloquent relation kind, e.g. "HasMany".
	Type string `json:"type"                  yaml:"type"`
	// Model is the fully-qualified name of the related class, in its
	// declared spelling when the class is known.
	Model string `json:"model"                 yaml:"model"`
	// ForeignKey is the explicit foreign key: the pivot key of many-to-many
	// relations, the id column of morph relations, the first key of
	// through relations.
	ForeignKey string `json:"foreign_key,omitempty" yaml:"foreign_key,omitempty"`
	// LocalKey is the explicit local key (owner key for belongsTo, parent
	// key for many-to-many relations).
	LocalKey string `json:"local_key,omitempty"   yaml:"local_key,omitempty"`
}

// Finder returns the relations a model class declares, in any order.
type Finder interface {
	ModelRelations(ctx context.Context, className string) ([]ModelRelation, error)
}

// FinderFunc adapts a function to Finder.
type FinderFunc func(ctx context.Context, className string) ([]ModelRelation, error)

// ModelRelations implements Finder.
func (f FinderFunc) ModelRelations(ctx context.Context, className string) ([]ModelRelation, error) {
	return f(ctx, className)
}

// Targets returns the distinct related model names, in first-seen order.
func Targets(rels []ModelRelation) []string {
	seen := make(map[string]bool, len(rels))
	targets := make([]string, 0, len(rels))

	for _, rel := range rels {
		if rel.Model == "" || seen[rel.Model] {
			continue
		}

		seen[rel.Model] = true
		targets = append(targets, rel.Model)
	}

	return targets
}
