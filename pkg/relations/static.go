package relations

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Sumatoshi-tech/modelfinder/pkg/phpast"
)

// argSlot locates a builder argument by position or by PHP 8 argument name.
type argSlot struct {
	pos  int
	name string
}

// builder describes an Eloquent relation builder method: the relation kind it
// creates and where its foreign and local keys appear in its signature.
type builder struct {
	kind       string
	foreignKey argSlot
	localKey   argSlot
}

// relatedSlot is the related model argument, first for every builder.
var relatedSlot = argSlot{pos: 0, name: "related"}

// builders maps lower-cased builder names to their signatures. morphTo is
// absent: its target is only known at runtime.
var builders = map[string]builder{
	"hasone":         {"HasOne", argSlot{1, "foreignKey"}, argSlot{2, "localKey"}},
	"hasmany":        {"HasMany", argSlot{1, "foreignKey"}, argSlot{2, "localKey"}},
	"belongsto":      {"BelongsTo", argSlot{1, "foreignKey"}, argSlot{2, "ownerKey"}},
	"belongstomany":  {"BelongsToMany", argSlot{2, "foreignPivotKey"}, argSlot{4, "parentKey"}},
	"morphone":       {"MorphOne", argSlot{3, "id"}, argSlot{4, "localKey"}},
	"morphmany":      {"MorphMany", argSlot{3, "id"}, argSlot{4, "localKey"}},
	"morphtomany":    {"MorphToMany", argSlot{3, "foreignPivotKey"}, argSlot{5, "parentKey"}},
	"morphedbymany":  {"MorphedByMany", argSlot{3, "foreignPivotKey"}, argSlot{5, "parentKey"}},
	"hasonethrough":  {"HasOneThrough", argSlot{2, "firstKey"}, argSlot{4, "localKey"}},
	"hasmanythrough": {"HasManyThrough", argSlot{2, "firstKey"}, argSlot{4, "localKey"}},
}

// Declarations looks up parsed class declarations by fully-qualified name.
type Declarations interface {
	Lookup(name string) (phpast.ClassDecl, bool)
}

// StaticFinder finds relations by reading the bodies of relation methods. A
// method declares a relation when it calls a relation builder on $this with a
// class reference or class-name string as the related model. Methods inherited
// from declared ancestors count; a child method overrides its parent's.
type StaticFinder struct {
	decls Declarations
}

// NewStaticFinder creates a finder over decls.
func NewStaticFinder(decls Declarations) *StaticFinder {
	return &StaticFinder{decls: decls}
}

// ModelRelations implements Finder. Relations are sorted by method name.
func (f *StaticFinder) ModelRelations(_ context.Context, className string) ([]ModelRelation, error) {
	decl, ok := f.decls.Lookup(className)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, className)
	}

	methods := f.methods(decl)

	rels := make([]ModelRelation, 0, len(methods))

	for _, method := range methods {
		if method.Static || method.Abstract {
			continue
		}

		if rel, found := f.relationFromMethod(method); found {
			rels = append(rels, rel)
		}
	}

	sort.Slice(rels, func(i, j int) bool {
		return rels[i].Name < rels[j].Name
	})

	return rels, nil
}

// methods collects the methods of decl and its declared ancestors, the
// nearest declaration of each method name winning.
func (f *StaticFinder) methods(decl phpast.ClassDecl) []phpast.MethodDecl {
	seen := make(map[string]bool)
	visited := make(map[string]bool)

	var out []phpast.MethodDecl

	for current, ok := decl, true; ok; current, ok = f.decls.Lookup(current.Parent) {
		classKey := strings.ToLower(current.Name)
		if visited[classKey] {
			break
		}

		visited[classKey] = true

		for _, method := range current.Methods {
			methodKey := strings.ToLower(method.Name)
			if seen[methodKey] {
				continue
			}

			seen[methodKey] = true
			out = append(out, method)
		}

		if current.Parent == "" {
			break
		}
	}

	return out
}

// relationFromMethod returns the relation built by the first relation builder
// call on $this inside method. A declared target takes its declared spelling,
// since PHP class names are case-insensitive.
func (f *StaticFinder) relationFromMethod(method phpast.MethodDecl) (ModelRelation, bool) {
	for _, call := range method.Calls {
		sig, isBuilder := builders[strings.ToLower(call.Method)]
		if !isBuilder {
			continue
		}

		related, found := argument(call.Args, relatedSlot)
		if !found || related.Value == "" || related.Kind == phpast.ArgOther {
			continue
		}

		target := strings.TrimPrefix(related.Value, `\`)
		if decl, declared := f.decls.Lookup(target); declared {
			target = decl.Name
		}

		return ModelRelation{
			Name:       method.Name,
			Type:       sig.kind,
			Model:      target,
			ForeignKey: literal(call.Args, sig.foreignKey),
			LocalKey:   literal(call.Args, sig.localKey),
		}, true
	}

	return ModelRelation{}, false
}

// argument finds the argument filling slot. Named arguments match by name,
// ignoring case; positional ones by index. PHP requires positional arguments
// to precede named ones.
func argument(args []phpast.Argument, slot argSlot) (phpast.Argument, bool) {
	for idx, arg := range args {
		if arg.Name == "" {
			if idx == slot.pos {
				return arg, true
			}

			continue
		}

		if strings.EqualFold(arg.Name, slot.name) {
			return arg, true
		}
	}

	return phpast.Argument{}, false
}

// literal returns the string literal filling slot, or "".
func literal(args []phpast.Argument, slot argSlot) string {
	arg, found := argument(args, slot)
	if !found || arg.Kind != phpast.ArgString {
		return ""
	}

	return arg.Value
}
