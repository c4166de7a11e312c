package hierarchy_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/modelfinder/pkg/hierarchy"
	"github.com/Sumatoshi-tech/modelfinder/pkg/phpast"
)

func decl(name, parent string) phpast.ClassDecl {
	return phpast.ClassDecl{Name: name, Parent: parent, Path: name + ".php"}
}

func TestRegistry_IsSubclassOf_Transitive(t *testing.T) {
	t.Parallel()

	registry := hierarchy.New()
	registry.Add(phpast.ClassDecl{Name: `App\BaseModel`, Parent: hierarchy.EloquentModel, Abstract: true, Path: "BaseModel.php"})
	registry.Add(decl(`App\User`, `App\BaseModel`))
	registry.Add(decl(`App\Admin`, `App\User`))
	registry.Add(decl(`App\Helper`, ""))
	registry.Add(decl(`App\Member`, `Illuminate\Foundation\Auth\User`))

	tests := []struct {
		name string
		want bool
	}{
		{`App\BaseModel`, true},
		{`App\User`, true},
		{`App\Admin`, true},
		{`app\admin`, true},
		{`App\Helper`, false},
		{`App\Member`, true},
		{hierarchy.EloquentModel, false},
	}

	for _, tt := range tests {
		got, err := registry.IsSubclassOf(tt.name, hierarchy.EloquentModel)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}

	abstract, err := registry.IsAbstract(`App\BaseModel`)
	require.NoError(t, err)
	assert.True(t, abstract)

	abstract, err = registry.IsAbstract(`App\Admin`)
	require.NoError(t, err)
	assert.False(t, abstract)
}

func TestRegistry_UnknownParentIsDeadEnd(t *testing.T) {
	t.Parallel()

	registry := hierarchy.New()
	registry.Add(decl(`App\Report`, `Vendor\Pdf\Document`))

	ok, err := registry.IsSubclassOf(`App\Report`, hierarchy.EloquentModel)
	require.NoError(t, err)
	assert.False(t, ok)

	chain, err := registry.Ancestors(`App\Report`)
	require.NoError(t, err)
	assert.Equal(t, []string{`Vendor\Pdf\Document`}, chain)
}

func TestRegistry_StrictUnknownParent(t *testing.T) {
	t.Parallel()

	registry := hierarchy.New(hierarchy.WithStrict(true))
	registry.Add(decl(`App\Report`, `Vendor\Pdf\Document`))
	registry.Add(decl(`App\Post`, hierarchy.EloquentModel))

	_, err := registry.IsSubclassOf(`App\Report`, hierarchy.EloquentModel)
	require.ErrorIs(t, err, hierarchy.ErrResolution)
	require.ErrorIs(t, err, hierarchy.ErrUnknownAncestor)

	ok, err := registry.IsSubclassOf(`App\Post`, hierarchy.EloquentModel)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegistry_StrictStopsAtBaseWithoutBuiltins(t *testing.T) {
	t.Parallel()

	registry := hierarchy.New(hierarchy.WithoutBuiltins(), hierarchy.WithStrict(true))
	registry.Add(decl(`App\Post`, `Framework\Entity`))

	ok, err := registry.IsSubclassOf(`App\Post`, `Framework\Entity`)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, registry.Len())
}

func TestRegistry_Cycle(t *testing.T) {
	t.Parallel()

	registry := hierarchy.New()
	registry.Add(decl(`App\A`, `App\B`))
	registry.Add(decl(`App\B`, `App\A`))

	_, err := registry.IsSubclassOf(`App\A`, hierarchy.EloquentModel)
	require.ErrorIs(t, err, hierarchy.ErrInheritanceCycle)

	var resolutionErr *hierarchy.ResolutionError
	require.True(t, errors.As(err, &resolutionErr))
	assert.Equal(t, `App\A`, resolutionErr.Class)
	assert.Contains(t, err.Error(), `App\B -> App\A`)
}

func TestRegistry_UnknownClass(t *testing.T) {
	t.Parallel()

	registry := hierarchy.New()

	_, err := registry.IsAbstract(`App\Ghost`)
	require.ErrorIs(t, err, hierarchy.ErrUnknownClass)
	require.ErrorIs(t, err, hierarchy.ErrResolution)
}

func TestRegistry_DuplicateDeclarations(t *testing.T) {
	t.Parallel()

	registry := hierarchy.New()
	registry.Add(phpast.ClassDecl{Name: `App\User`, Parent: hierarchy.EloquentModel, Path: "a/User.php"})
	registry.Add(phpast.ClassDecl{Name: `App\User`, Parent: hierarchy.EloquentModel, Path: "b/User.php"})
	registry.Add(phpast.ClassDecl{Name: `App\Admin`, Parent: `App\User`, Path: "a/Admin.php"})

	_, err := registry.IsSubclassOf(`App\User`, hierarchy.EloquentModel)
	require.ErrorIs(t, err, hierarchy.ErrDuplicateClass)
	assert.Contains(t, err.Error(), "a/User.php, b/User.php")

	_, err = registry.IsSubclassOf(`App\Admin`, hierarchy.EloquentModel)
	require.ErrorIs(t, err, hierarchy.ErrDuplicateClass)
}

func TestRegistry_ScannedDeclarationReplacesBuiltin(t *testing.T) {
	t.Parallel()

	registry := hierarchy.New()
	registry.Add(phpast.ClassDecl{Name: `Illuminate\Foundation\Auth\User`, Parent: `Custom\Base`, Path: "vendor/User.php"})

	ok, err := registry.IsSubclassOf(`Illuminate\Foundation\Auth\User`, hierarchy.EloquentModel)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistry_AddFileAndNames(t *testing.T) {
	t.Parallel()

	registry := hierarchy.New(hierarchy.WithoutBuiltins())
	registry.AddFile(&phpast.File{Classes: []phpast.ClassDecl{decl(`B\Two`, ""), decl(`A\One`, "")}})

	assert.Equal(t, []string{`A\One`, `B\Two`}, registry.Names())

	found, ok := registry.Lookup(`a\one`)
	require.True(t, ok)
	assert.Equal(t, `A\One`, found.Name)
}
