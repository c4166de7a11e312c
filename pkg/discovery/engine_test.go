package discovery_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/modelfinder/pkg/discovery"
	"github.com/Sumatoshi-tech/modelfinder/pkg/hierarchy"
	"github.com/Sumatoshi-tech/modelfinder/pkg/phpast"
	"github.com/Sumatoshi-tech/modelfinder/pkg/relations"
)

const userSource = `<?php

namespace App;

use Illuminate\Database\Eloquent\Model;

class User extends Model
{
    public function posts()
    {
        return $this->hasMany(Post::class);
    }
}
`

const postSource = `<?php

namespace App;

use Illuminate\Database\Eloquent\Model;

class Post extends Model
{
}
`

const helperSource = `<?php

function helper()
{
    return 42;
}
`

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()

	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}

	return root
}

func newEngine(t *testing.T, opts discovery.Options) *discovery.Engine {
	t.Helper()

	engine, err := discovery.New(opts)
	require.NoError(t, err)

	return engine
}

func scenarioTree(t *testing.T) string {
	t.Helper()

	return writeTree(t, map[string]string{
		"User.php":   userSource,
		"Post.php":   postSource,
		"Helper.php": helperSource,
	})
}

func TestDiscoverModels_Scenario(t *testing.T) {
	t.Parallel()

	dir := scenarioTree(t)
	engine := newEngine(t, discovery.Options{})
	ctx := context.Background()

	tests := []struct {
		name string
		req  discovery.Request
		want []string
	}{
		{
			name: "unrestricted",
			req:  discovery.Request{Directory: dir},
			want: []string{`App\Post`, `App\User`},
		},
		{
			name: "focus keeps related models",
			req:  discovery.Request{Directory: dir, Focus: []string{`App\Post`}},
			want: []string{`App\Post`, `App\User`},
		},
		{
			name: "focus on model without incoming relation",
			req:  discovery.Request{Directory: dir, Focus: []string{`App\User`}},
			want: []string{`App\User`},
		},
		{
			name: "ignore",
			req:  discovery.Request{Directory: dir, Ignore: []string{`App\Post`}},
			want: []string{`App\User`},
		},
		{
			name: "ignore wins over focus",
			req:  discovery.Request{Directory: dir, Ignore: []string{`App\Post`}, Focus: []string{`App\Post`}},
			want: []string{`App\User`},
		},
		{
			name: "focus on unknown class",
			req:  discovery.Request{Directory: dir, Focus: []string{`App\Nothing`}},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := engine.DiscoverModels(ctx, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiscoverModels_Recursive(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"User.php":            userSource,
		"Blog/Post.php":       postSource,
		"Blog/README.md":      "# not php",
		".hidden/Secret.php":  "<?php namespace App; class Secret extends \\Illuminate\\Database\\Eloquent\\Model {}",
		"Blog/notes.php.bak":  postSource,
		"Blog/Deep/Skip.phpx": postSource,
	})

	engine := newEngine(t, discovery.Options{})

	flat, err := engine.DiscoverModels(context.Background(), discovery.Request{Directory: dir})
	require.NoError(t, err)
	assert.Equal(t, []string{`App\User`}, flat)

	deep, err := engine.DiscoverModels(context.Background(), discovery.Request{Directory: dir, Recursive: true})
	require.NoError(t, err)
	assert.Equal(t, []string{`App\Post`, `App\User`}, deep)
}

func TestDiscoverModels_FiltersNonModels(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"Base.php": `<?php
namespace App;

abstract class BaseModel extends \Illuminate\Database\Eloquent\Model {}
`,
		"Invoice.php": `<?php
namespace App\Billing;

use App\BaseModel;

class Invoice extends BaseModel {}
`,
		"Service.php": `<?php
namespace App\Services;

class Mailer extends \Some\Vendor\Client {}
`,
		"Plain.php": `<?php
namespace App;

class Plain {}
`,
		"Interface.php": `<?php
namespace App;

interface Billable {}
`,
		"Account.php": `<?php
namespace App;

use Illuminate\Foundation\Auth\User as Authenticatable;

class Account extends Authenticatable {}
`,
	})

	got, err := newEngine(t, discovery.Options{}).DiscoverModels(context.Background(), discovery.Request{Directory: dir})
	require.NoError(t, err)

	assert.Equal(t, []string{`App\Account`, `App\Billing\Invoice`}, got)
}

func TestDiscoverModels_ParseErrorAbortsScan(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"User.php":   userSource,
		"Broken.php": "<?php\nnamespace App;\n\nclass Broken extends {\n",
	})

	got, err := newEngine(t, discovery.Options{}).DiscoverModels(context.Background(), discovery.Request{Directory: dir})
	require.ErrorIs(t, err, phpast.ErrParse)
	assert.Nil(t, got)

	var parseErr *phpast.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, filepath.Join(dir, "Broken.php"), parseErr.Path)
}

func TestDiscoverModels_MissingDirectory(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "nope")

	_, err := newEngine(t, discovery.Options{}).DiscoverModels(context.Background(), discovery.Request{Directory: missing})
	require.ErrorIs(t, err, discovery.ErrDirectoryNotFound)

	var dirErr *discovery.DirectoryNotFoundError
	require.ErrorAs(t, err, &dirErr)
	assert.Equal(t, missing, dirErr.Path)
}

func TestDiscoverModels_CycleIsResolutionError(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"A.php": "<?php\nnamespace App;\nclass A extends B {}\n",
		"B.php": "<?php\nnamespace App;\nclass B extends A {}\n",
	})

	_, err := newEngine(t, discovery.Options{}).DiscoverModels(context.Background(), discovery.Request{Directory: dir})
	require.ErrorIs(t, err, hierarchy.ErrInheritanceCycle)

	var resErr *hierarchy.ResolutionError
	require.ErrorAs(t, err, &resErr)
}

func TestDiscoverModels_StrictUnknownParent(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"Mailer.php": "<?php\nnamespace App;\nclass Mailer extends \\Vendor\\Client {}\n",
	})

	lenient, err := newEngine(t, discovery.Options{}).DiscoverModels(context.Background(), discovery.Request{Directory: dir})
	require.NoError(t, err)
	assert.Empty(t, lenient)

	_, err = newEngine(t, discovery.Options{Strict: true}).DiscoverModels(context.Background(), discovery.Request{Directory: dir})
	require.ErrorIs(t, err, hierarchy.ErrUnknownAncestor)
}

func TestDiscoverModels_TypePaths(t *testing.T) {
	t.Parallel()

	vendor := writeTree(t, map[string]string{
		"Package/Model.php": `<?php
namespace Package;

abstract class Tracked extends \Illuminate\Database\Eloquent\Model {}

class Unrelated {}
`,
	})

	dir := writeTree(t, map[string]string{
		"Audit.php": "<?php\nnamespace App;\nclass Audit extends \\Package\\Tracked {}\n",
	})

	withoutTypes, err := newEngine(t, discovery.Options{}).DiscoverModels(context.Background(), discovery.Request{Directory: dir})
	require.NoError(t, err)
	assert.Empty(t, withoutTypes)

	engine := newEngine(t, discovery.Options{TypePaths: []string{vendor}})

	scan, err := engine.Scan(context.Background(), discovery.Request{Directory: dir})
	require.NoError(t, err)

	assert.Equal(t, []string{`App\Audit`}, scan.Names())
	assert.Equal(t, 2, scan.Stats.Files)
	assert.Equal(t, 1, scan.Stats.Resolved)
}

func TestDiscoverModels_Idempotent(t *testing.T) {
	t.Parallel()

	dir := scenarioTree(t)
	engine := newEngine(t, discovery.Options{Workers: 4})
	req := discovery.Request{Directory: dir, Focus: []string{`App\Post`}}

	first, err := engine.DiscoverModels(context.Background(), req)
	require.NoError(t, err)

	second, err := engine.DiscoverModels(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDiscoverModels_EngineReusedAcrossManyScans(t *testing.T) {
	t.Parallel()

	dir := scenarioTree(t)

	for _, workers := range []int{1, 4} {
		engine := newEngine(t, discovery.Options{Workers: workers, CacheSize: 0})
		req := discovery.Request{Directory: dir, Focus: []string{`App\Post`}}

		for idx := range 150 {
			got, err := engine.DiscoverModels(context.Background(), req)
			require.NoError(t, err, "workers %d, scan %d", workers, idx)
			require.Equal(t, []string{`App\Post`, `App\User`}, got, "workers %d, scan %d", workers, idx)
		}
	}
}

func TestDiscoverModels_FocusMatchesRelationWrittenInOtherCase(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"User.php": strings.Replace(userSource, "Post::class", "post::class", 1),
		"Post.php": postSource,
	})

	got, err := newEngine(t, discovery.Options{}).DiscoverModels(context.Background(), discovery.Request{
		Directory: dir,
		Focus:     []string{`App\Post`},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{`App\Post`, `App\User`}, got)
}

func TestDiscoverModels_FocusOnlyNarrows(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"User.php":    userSource,
		"Post.php":    postSource,
		"Comment.php": "<?php\nnamespace App;\nclass Comment extends \\Illuminate\\Database\\Eloquent\\Model {\n    public function post() { return $this->belongsTo(Post::class); }\n}\n",
		"Tag.php":     "<?php\nnamespace App;\nclass Tag extends \\Illuminate\\Database\\Eloquent\\Model {}\n",
	})

	engine := newEngine(t, discovery.Options{})

	all, err := engine.DiscoverModels(context.Background(), discovery.Request{Directory: dir})
	require.NoError(t, err)

	for _, focus := range [][]string{{`App\Post`}, {`App\Tag`}, {`App\User`, `App\Tag`}, {`App\Missing`}} {
		narrowed, err := engine.DiscoverModels(context.Background(), discovery.Request{Directory: dir, Focus: focus})
		require.NoError(t, err)
		assert.Subset(t, all, narrowed)
	}

	postFocus, err := engine.DiscoverModels(context.Background(), discovery.Request{Directory: dir, Focus: []string{`App\Post`}})
	require.NoError(t, err)
	assert.Equal(t, []string{`App\Comment`, `App\Post`, `App\User`}, postFocus)

	userFocus, err := engine.DiscoverModels(context.Background(), discovery.Request{Directory: dir, Focus: []string{`App\User`}})
	require.NoError(t, err)
	assert.Equal(t, []string{`App\User`}, userFocus, "focus is not expanded transitively")
}

func TestDiscoverModels_CustomFinder(t *testing.T) {
	t.Parallel()

	dir := scenarioTree(t)

	var asked []string

	finder := relations.FinderFunc(func(_ context.Context, className string) ([]relations.ModelRelation, error) {
		asked = append(asked, className)

		if className == `App\Post` {
			return []relations.ModelRelation{{Name: "owner", Type: "BelongsTo", Model: `App\User`}}, nil
		}

		return nil, nil
	})

	engine := newEngine(t, discovery.Options{Finder: finder})

	got, err := engine.DiscoverModels(context.Background(), discovery.Request{Directory: dir, Focus: []string{`App\User`}})
	require.NoError(t, err)

	assert.Equal(t, []string{`App\Post`, `App\User`}, got)
	assert.Equal(t, []string{`App\Post`}, asked, "models in focus need no relation lookup")
}

func TestScan_ModelsAndRelations(t *testing.T) {
	t.Parallel()

	dir := scenarioTree(t)
	engine := newEngine(t, discovery.Options{})

	scan, err := engine.Scan(context.Background(), discovery.Request{Directory: dir, WithRelations: true})
	require.NoError(t, err)

	require.Len(t, scan.Models, 2)

	user := scan.Models[1]
	assert.Equal(t, `App\User`, user.Name)
	assert.Equal(t, filepath.Join(dir, "User.php"), user.Path)
	assert.Equal(t, hierarchy.EloquentModel, user.Parent)
	assert.Equal(t, []relations.ModelRelation{
		{Name: "posts", Type: "HasMany", Model: `App\Post`},
	}, user.Relations)

	assert.Empty(t, scan.Models[0].Relations)
	assert.Equal(t, 3, scan.Stats.Files)
	assert.Equal(t, 2, scan.Stats.Resolved)
	assert.Positive(t, scan.Stats.Bytes)
}

func TestScan_CacheReusesParsedFiles(t *testing.T) {
	t.Parallel()

	dir := scenarioTree(t)
	engine := newEngine(t, discovery.Options{CacheSize: 16})

	first, err := engine.Scan(context.Background(), discovery.Request{Directory: dir})
	require.NoError(t, err)
	assert.Equal(t, 3, first.Stats.Parsed)
	assert.Zero(t, first.Stats.CacheHits)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Post.php"), []byte(postSource+"\n// edited\n"), 0o600))

	second, err := engine.Scan(context.Background(), discovery.Request{Directory: dir})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Stats.Parsed)
	assert.Equal(t, 2, second.Stats.CacheHits)
	assert.Equal(t, first.Names(), second.Names())
}

func TestScan_CanceledContext(t *testing.T) {
	t.Parallel()

	dir := scenarioTree(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newEngine(t, discovery.Options{}).Scan(ctx, discovery.Request{Directory: dir})
	require.ErrorIs(t, err, context.Canceled)
}
