// Package host runs concat plugins against the local filesystem. It plays
// the part of the build tool: it owns the pass loop, tracks file
// dependencies and timestamps, and renders the HTML page when configured.
package host

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/concat/internal/concat"
	"github.com/conneroisu/concat/internal/config"
	cerrors "github.com/conneroisu/concat/internal/errors"
	"github.com/conneroisu/concat/internal/htmlgen"
	"github.com/conneroisu/concat/internal/logging"
	"github.com/conneroisu/concat/internal/plugin"
	"github.com/conneroisu/concat/internal/resolver"
)

// Options configures a Host.
type Options struct {
	// FS is used for inputs, templates and outputs. Nil selects the OS.
	FS     afero.Fs
	Logger logging.Logger
	// Resolve replaces module resolution for every plugin.
	Resolve resolver.ResolveFunc
	// CacheBytes bounds the file cache shared by all plugins. Zero selects
	// concat.DefaultCacheBytes; a negative value disables the cache.
	CacheBytes int64
}

// Result describes one finished pass.
type Result struct {
	Assets       []Asset
	Dependencies []string
	Duration     time.Duration
}

// Host drives one plugin per configured bundle.
type Host struct {
	contextDir   string
	outDir       string
	fs           afero.Fs
	logger       logging.Logger
	plugins      []*plugin.Plugin
	htmlConfig   *config.HTMLConfig
	html         *htmlgen.Generator
	templatePath string
	cache        *concat.FileCache
	metrics      Metrics

	mu      sync.Mutex
	deps    []string
	emitted map[string]struct{}
}

// New creates a Host for project. Plugin options are validated here, before
// any pass runs.
func New(project *config.Project, opts Options) (*Host, error) {
	fs := opts.FS
	if fs == nil {
		fs = afero.NewOsFs()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	contextDir, err := filepath.Abs(project.Context)
	if err != nil {
		return nil, cerrors.NewConfigError(cerrors.ErrCodeConfigInvalid, "invalid context directory").
			WithContext("context", project.Context)
	}

	outDir := project.Output
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(contextDir, outDir)
	}

	h := &Host{
		contextDir: contextDir,
		outDir:     outDir,
		fs:         fs,
		logger:     logger.WithComponent("host"),
	}
	if opts.CacheBytes >= 0 {
		h.cache = concat.NewFileCache(opts.CacheBytes)
	}

	for _, bundle := range project.Bundles {
		p, err := plugin.New(bundle, contextDir,
			plugin.WithFS(fs),
			plugin.WithLogger(logger),
			plugin.WithResolveFunc(opts.Resolve),
			plugin.WithCache(h.cache),
		)
		if err != nil {
			var ce *cerrors.ConcatError
			if errors.As(err, &ce) {
				return nil, ce.WithPlugin(bundle.Name)
			}

			return nil, err
		}
		h.plugins = append(h.plugins, p)
	}

	if project.HTML != nil {
		h.htmlConfig = project.HTML
		if err := h.setupHTML(project.HTML); err != nil {
			return nil, err
		}
	}

	return h, nil
}

func (h *Host) setupHTML(cfg *config.HTMLConfig) error {
	opts := htmlgen.Options{
		Filename:   cfg.Filename,
		PublicPath: cfg.PublicPath,
		Scripts:    cfg.Scripts,
	}

	if cfg.Template != "" {
		h.templatePath = cfg.Template
		if !filepath.IsAbs(h.templatePath) {
			h.templatePath = filepath.Join(h.contextDir, h.templatePath)
		}

		data, err := afero.ReadFile(h.fs, h.templatePath)
		if err != nil {
			return cerrors.NewConfigError(cerrors.ErrCodeConfigInvalid, "cannot read HTML template").
				WithFile(h.templatePath).
				WithContext("cause", err.Error())
		}
		opts.Template = string(data)
	}

	hooks := make([]htmlgen.Hooks, len(h.plugins))
	for i, p := range h.plugins {
		hooks[i] = p
	}
	h.html = htmlgen.New(opts, hooks, h.logger)

	return nil
}

// Plugins returns the plugins in configuration order.
func (h *Host) Plugins() []*plugin.Plugin {
	return h.plugins
}

// OutputDir returns the absolute output directory.
func (h *Host) OutputDir() string { return h.outDir }

// ContextDir returns the absolute context directory.
func (h *Host) ContextDir() string { return h.contextDir }

// Metrics returns the pass counters and file cache statistics.
func (h *Host) Metrics() MetricsSnapshot {
	return h.metrics.snapshot(h.cache.Stats())
}

// Dependencies returns the files registered during the last pass.
func (h *Host) Dependencies() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]string(nil), h.deps...)
}

// Build runs one pass. Every plugin is triggered through the artifact
// boundary and, when a page is configured, through the HTML boundary at the
// same time. The pass is always ended, even when it fails.
func (h *Host) Build(ctx context.Context) (*Result, error) {
	start := time.Now()
	comp := newCompilation(h.fs, h.outDir, h.timestamps())

	defer func() {
		for _, p := range h.plugins {
			p.AfterEmit()
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range h.plugins {
		g.Go(func() error {
			return p.ProcessAssets(gctx, comp)
		})
	}
	if h.html != nil {
		g.Go(func() error {
			_, err := h.html.Generate(gctx, comp)

			return err
		})
	}
	err := g.Wait()

	result := &Result{
		Assets:       comp.Assets(),
		Dependencies: comp.Dependencies(),
		Duration:     time.Since(start),
	}

	h.mu.Lock()
	h.deps = result.Dependencies
	h.emitted = make(map[string]struct{}, len(result.Assets))
	for _, a := range result.Assets {
		h.emitted[filepath.Join(h.outDir, filepath.FromSlash(a.Name))] = struct{}{}
	}
	h.mu.Unlock()

	h.metrics.record(result, err)

	if err != nil {
		return result, err
	}

	h.logger.Info(ctx, "Build finished",
		"plugins", len(h.plugins),
		"assets", len(result.Assets),
		"duration", result.Duration.String())

	return result, nil
}

// timestamps stats every dependency of the previous pass. Files that can not
// be stated get a zero time, which counts as changed.
func (h *Host) timestamps() map[string]time.Time {
	h.mu.Lock()
	deps := h.deps
	h.mu.Unlock()

	stamps := make(map[string]time.Time, len(deps))
	for _, d := range deps {
		info, err := h.fs.Stat(d)
		if err != nil {
			stamps[d] = time.Time{}
			continue
		}
		stamps[d] = info.ModTime()
	}

	return stamps
}
