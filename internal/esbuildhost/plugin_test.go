package esbuildhost

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/concat/internal/config"
	"github.com/conneroisu/concat/internal/host"
)

func setup(t *testing.T, inputs []string) (string, *host.Host) {
	t.Helper()

	dir := t.TempDir()
	files := map[string]string{
		"app.js":           "console.log('app');\n",
		"vendor/jquery.js": "var jq = 1;\n",
		"vendor/lodash.js": "var _ = 2;\n",
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	h, err := host.New(&config.Project{
		Context: dir,
		Output:  "dist",
		Bundles: []config.Options{{Name: "vendor", FilesToConcat: inputs}},
	}, host.Options{})
	require.NoError(t, err)

	return dir, h
}

func TestPluginRunsPassAfterBuild(t *testing.T) {
	dir, h := setup(t, []string{"vendor/*.js"})

	var passes int
	result := api.Build(api.BuildOptions{
		EntryPoints: []string{filepath.Join(dir, "app.js")},
		Bundle:      true,
		Outdir:      filepath.Join(dir, "dist"),
		Write:       true,
		LogLevel:    api.LogLevelSilent,
		Plugins: []api.Plugin{NewPlugin(h, WithReport(func(_ *host.Result, err error) {
			assert.NoError(t, err)
			passes++
		}))},
	})
	require.Empty(t, result.Errors)
	assert.Equal(t, 1, passes)

	out, err := os.ReadFile(filepath.Join(dir, "dist", "vendor.js"))
	require.NoError(t, err)
	assert.Equal(t, "var jq = 1;\nvar _ = 2;\n", string(out))

	_, err = os.Stat(filepath.Join(dir, "dist", "app.js"))
	assert.NoError(t, err, "esbuild output is written too")
}

func TestPluginReportsFailedPass(t *testing.T) {
	dir, h := setup(t, []string{"./vendor/missing.js"})

	result := api.Build(api.BuildOptions{
		EntryPoints: []string{filepath.Join(dir, "app.js")},
		Outdir:      filepath.Join(dir, "dist"),
		LogLevel:    api.LogLevelSilent,
		Plugins:     []api.Plugin{NewPlugin(h)},
	})
	assert.NotEmpty(t, result.Errors)
}

func TestPluginSkipsFailedBuild(t *testing.T) {
	dir, h := setup(t, []string{"vendor/*.js"})

	var passes int
	result := api.Build(api.BuildOptions{
		EntryPoints: []string{filepath.Join(dir, "does-not-exist.js")},
		Outdir:      filepath.Join(dir, "dist"),
		LogLevel:    api.LogLevelSilent,
		Plugins: []api.Plugin{NewPlugin(h, WithName("vendor-concat"), WithReport(func(*host.Result, error) {
			passes++
		}))},
	})
	assert.NotEmpty(t, result.Errors)
	assert.Zero(t, passes)
}
