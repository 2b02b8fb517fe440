package host

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/concat/internal/config"
	cerrors "github.com/conneroisu/concat/internal/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func touch(t *testing.T, path, content string) {
	t.Helper()
	writeFile(t, path, content)
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))
}

func newProject(dir string) *config.Project {
	return &config.Project{
		Context: dir,
		Output:  "dist",
		HTML:    &config.HTMLConfig{Scripts: []string{"main.js"}},
		Bundles: []config.Options{
			{FilesToConcat: []string{"src/*.js"}, Attributes: map[string]string{"defer": ""}},
		},
	}
}

func TestBuildWritesArtifactsAndPage(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "a.js"), "var a=1;\n")
	writeFile(t, filepath.Join(dir, "src", "b.js"), "var b=2;\n")

	h, err := New(newProject(dir), Options{})
	require.NoError(t, err)

	result, err := h.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []Asset{
		{Name: "index.html", Size: result.Assets[0].Size},
		{Name: "result.js", Size: len("var a=1;\nvar b=2;\n")},
	}, result.Assets)

	out, err := os.ReadFile(filepath.Join(dir, "dist", "result.js"))
	require.NoError(t, err)
	assert.Equal(t, "var a=1;\nvar b=2;\n", string(out))

	page, err := os.ReadFile(filepath.Join(dir, "dist", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), `<script src="result.js" defer=""></script><script src="main.js"></script>`)

	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(abs, "src", "a.js"),
		filepath.Join(abs, "src", "b.js"),
	}, result.Dependencies)
}

func TestBuildOnMemoryFilesystem(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/proj/src/a.js", []byte("var a=1;\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/proj/src/b.js", []byte("var b=2;\n"), 0o644))

	h, err := New(&config.Project{
		Context: "/proj",
		Output:  "dist",
		Bundles: []config.Options{
			{FilesToConcat: []string{"src/*.js"}},
			{Name: "single", FilesToConcat: []string{"./src/a.js"}},
		},
	}, Options{FS: fs})
	require.NoError(t, err)

	result, err := h.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/proj/src/a.js", "/proj/src/b.js"}, result.Dependencies)

	out, err := afero.ReadFile(fs, "/proj/dist/result.js")
	require.NoError(t, err)
	assert.Equal(t, "var a=1;\nvar b=2;\n", string(out))

	out, err = afero.ReadFile(fs, "/proj/dist/single.js")
	require.NoError(t, err)
	assert.Equal(t, "var a=1;\n", string(out))
}

func TestBuildSkipsUnchangedInputs(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "src", "a.js")
	writeFile(t, a, "var a=1;")

	h, err := New(newProject(dir), Options{})
	require.NoError(t, err)

	_, err = h.Build(context.Background())
	require.NoError(t, err)

	result, err := h.Build(context.Background())
	require.NoError(t, err)
	for _, asset := range result.Assets {
		assert.NotEqual(t, "result.js", asset.Name, "clean pass emits nothing")
	}

	touch(t, a, "var a=2;")
	result, err = h.Build(context.Background())
	require.NoError(t, err)

	out, err := os.ReadFile(filepath.Join(dir, "dist", "result.js"))
	require.NoError(t, err)
	assert.Equal(t, "var a=2;", string(out))
	assert.Len(t, result.Assets, 2)

	stats := h.Plugins()[0].Stats()
	assert.Equal(t, 3, stats.Passes)
	assert.Equal(t, 2, stats.Rebuilds)
	assert.Equal(t, 1, stats.Clean)
}

func TestBuildReportsResolutionErrors(t *testing.T) {
	dir := t.TempDir()
	project := newProject(dir)
	project.HTML = nil
	project.Bundles[0].Name = "vendor"
	project.Bundles[0].FilesToConcat = []string{"./missing.js"}

	h, err := New(project, Options{})
	require.NoError(t, err)

	_, err = h.Build(context.Background())
	require.Error(t, err)
	assert.True(t, cerrors.IsType(err, cerrors.ErrorTypeResolution))
}

func TestNewRejectsInvalidBundles(t *testing.T) {
	project := newProject(t.TempDir())
	project.Bundles[0].Name = "broken"
	project.Bundles[0].HashFunction = "whirlpool"

	_, err := New(project, Options{})
	require.Error(t, err)

	var ce *cerrors.ConcatError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "broken", ce.Plugin)
}

func TestNewReadsTemplate(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/project/page.html",
		[]byte(`<html><body><main></main></body></html>`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/project/a.js", []byte("var a=1;"), 0o644))

	project := &config.Project{
		Context: "/project",
		Output:  "/out",
		HTML:    &config.HTMLConfig{Template: "page.html", Filename: "app/index.html"},
		Bundles: []config.Options{{FilesToConcat: []string{"a.js"}, OutputPath: "js"}},
	}

	h, err := New(project, Options{
		FS: fs,
		Resolve: func(_ context.Context, dir, request string) (string, error) {
			return dir + "/" + request, nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "/out", h.OutputDir())

	_, err = h.Build(context.Background())
	require.NoError(t, err)

	page, err := afero.ReadFile(fs, "/out/app/index.html")
	require.NoError(t, err)
	assert.Contains(t, string(page), `<main></main><script src="../js/result.js"></script>`)

	exists, err := afero.Exists(fs, "/out/js/result.js")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestNewMissingTemplate(t *testing.T) {
	project := newProject(t.TempDir())
	project.HTML.Template = "nope.html"

	_, err := New(project, Options{})
	require.Error(t, err)
	assert.True(t, cerrors.IsType(err, cerrors.ErrorTypeConfig))
}

func TestWatchRebuildsOnChange(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "src", "a.js")
	writeFile(t, a, "var a=1;")

	h, err := New(newProject(dir), Options{})
	require.NoError(t, err)

	var (
		mu     sync.Mutex
		passes int
		errs   []error
	)
	report := func(_ *Result, err error) {
		mu.Lock()
		defer mu.Unlock()
		passes++
		if err != nil {
			errs = append(errs, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Watch(ctx, 20*time.Millisecond, report) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return passes == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Wait for the watcher to be running before editing files.
	time.Sleep(100 * time.Millisecond)
	touch(t, a, "var a=2;")
	writeFile(t, filepath.Join(dir, "src", "b.js"), "var b=3;")

	require.Eventually(t, func() bool {
		out, err := os.ReadFile(filepath.Join(dir, "dist", "result.js"))

		return err == nil && string(out) == "var a=2;\nvar b=3;"
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, errs)
	assert.GreaterOrEqual(t, passes, 2)
}

func TestMetrics(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "src", "a.js")
	writeFile(t, a, "var a=1;")
	writeFile(t, filepath.Join(dir, "src", "b.js"), "var b=2;")

	project := newProject(dir)
	project.HTML = nil
	h, err := New(project, Options{})
	require.NoError(t, err)

	_, err = h.Build(context.Background())
	require.NoError(t, err)
	touch(t, a, "var a=3;")
	_, err = h.Build(context.Background())
	require.NoError(t, err)
	_, err = h.Build(context.Background())
	require.NoError(t, err)

	m := h.Metrics()
	assert.Equal(t, int64(3), m.TotalPasses)
	assert.Zero(t, m.FailedPasses)
	assert.Equal(t, int64(1), m.EmptyPasses)
	assert.Equal(t, int64(len("var a=1;\nvar b=2;")+len("var a=3;\nvar b=2;")), m.BytesWritten)
	assert.Equal(t, int64(1), m.Cache.Hits)
	assert.Equal(t, int64(3), m.Cache.Misses)
	assert.InDelta(t, 25.0, m.CacheHitRate(), 0.001)
	assert.InDelta(t, 100.0, m.SuccessRate(), 0.001)
}

func TestMetricsWithoutCache(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "a.js"), "var a=1;")

	h, err := New(newProject(dir), Options{CacheBytes: -1})
	require.NoError(t, err)

	_, err = h.Build(context.Background())
	require.NoError(t, err)

	m := h.Metrics()
	assert.Equal(t, int64(1), m.TotalPasses)
	assert.Zero(t, m.CacheHitRate())
}

func TestNotEmitted(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "a.js"), "var a=1;")

	h, err := New(newProject(dir), Options{})
	require.NoError(t, err)
	_, err = h.Build(context.Background())
	require.NoError(t, err)

	assert.False(t, h.notEmitted(h.OutputDir()))
	assert.False(t, h.notEmitted(filepath.Join(h.OutputDir(), "result.js")))
	assert.False(t, h.notEmitted(filepath.Join(h.OutputDir(), "index.html")))
	assert.True(t, h.notEmitted(filepath.Join(h.ContextDir(), "src", "a.js")))
}
