package commands_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/modelfinder/cmd/modelfinder/commands"
	"github.com/Sumatoshi-tech/modelfinder/pkg/config"
	"github.com/Sumatoshi-tech/modelfinder/pkg/discovery"
	"github.com/Sumatoshi-tech/modelfinder/pkg/version"
)

const userModel = `<?php

namespace App\Models;

use Illuminate\Database\Eloquent\Model;

class User extends Model
{
    public function posts()
    {
        return $this->hasMany(Post::class);
    }
}
`

const postModel = `<?php

namespace App\Models;

use Illuminate\Database\Eloquent\Model;

class Post extends Model
{
    public function author()
    {
        return $this->belongsTo(User::class, 'user_id');
    }
}
`

const enumSource = `<?php

namespace App\Models;

enum Status: string
{
    case Active = 'active';
}
`

func modelsDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	files := map[string]string{
		"User.php":   userModel,
		"Post.php":   postModel,
		"Status.php": enumSource,
		"notes.txt":  "not php",
	}

	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}

	return dir
}

func quietConfig(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "modelfinder.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: error\n"), 0o600))

	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := commands.NewRootCommand()

	var stdout, stderr bytes.Buffer

	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config", quietConfig(t)}, args...))

	err := root.ExecuteContext(context.Background())

	return stdout.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	t.Parallel()

	root := commands.NewRootCommand()

	names := make([]string, 0, len(root.Commands()))
	for _, sub := range root.Commands() {
		names = append(names, sub.Name())
	}

	assert.ElementsMatch(t, []string{"discover", "relations", "export", "mcp", "version"}, names)
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().ShorthandLookup("v"))
	assert.NotNil(t, root.PersistentFlags().ShorthandLookup("q"))
}

func TestDiscover_TextOutput(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "discover", modelsDir(t))
	require.NoError(t, err)

	assert.Equal(t, "App\\Models\\Post\nApp\\Models\\User\n", out)
}

func TestDiscover_Ignore(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "discover", modelsDir(t), "--ignore", `App\Models\Post`)
	require.NoError(t, err)

	assert.Equal(t, "App\\Models\\User\n", out)
}

func TestDiscover_JSONOutput(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "discover", modelsDir(t), "--format", "json")
	require.NoError(t, err)

	var scan discovery.Scan
	require.NoError(t, json.Unmarshal([]byte(out), &scan))

	assert.Equal(t, []string{`App\Models\Post`, `App\Models\User`}, scan.Names())
	assert.Equal(t, 3, scan.Stats.Files)
}

func TestDiscover_TableOutput(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "discover", modelsDir(t), "-f", "table", "--no-color")
	require.NoError(t, err)

	assert.Contains(t, out, `App\Models\User`)
	assert.Contains(t, out, "2 models in 3 files")
}

func TestDiscover_InvalidFormat(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "discover", modelsDir(t), "--format", "xml")
	require.ErrorIs(t, err, config.ErrInvalidFormat)
}

func TestDiscover_MissingDirectory(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "discover", filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, discovery.ErrDirectoryNotFound)
}

func TestDiscover_TooManyArgs(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "discover", "a", "b")
	require.Error(t, err)
}

func TestRelations_TextOutput(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "relations", modelsDir(t))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, []string{
		`App\Models\Post`,
		`  author BelongsTo App\Models\User (user_id)`,
		`App\Models\User`,
		`  posts HasMany App\Models\Post`,
	}, lines)
}

func TestRelations_Focus(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "relations", modelsDir(t), "--focus", `App\Models\User`, "-f", "yaml")
	require.NoError(t, err)

	assert.Contains(t, out, "name: App\\Models\\User")
	assert.Contains(t, out, "name: App\\Models\\Post")
	assert.Contains(t, out, "type: HasMany")
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "version")
	require.NoError(t, err)

	assert.Equal(t, version.String()+"\n", out)
}

func TestExportCommand_Flags(t *testing.T) {
	t.Parallel()

	cmd := commands.NewExportCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "export [directory]", cmd.Use)
	assert.NotEmpty(t, cmd.Long)

	for _, name := range []string{"neo4j-uri", "neo4j-user", "neo4j-pass", "neo4j-database", "clean", "batch-size"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}

	assert.Nil(t, cmd.Flags().Lookup("format"))
	assert.Equal(t, "500", cmd.Flags().Lookup("batch-size").DefValue)
}

func TestExportCommand_InvalidURI(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "export", modelsDir(t), "--neo4j-uri", "ftp://localhost:7687")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neo4j")
}

func TestMCPCommand_Exists(t *testing.T) {
	t.Parallel()

	cmd := commands.NewMCPCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "mcp", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	flag := cmd.Flags().Lookup("metrics-addr")
	require.NotNil(t, flag)
	assert.Empty(t, flag.DefValue)
}
