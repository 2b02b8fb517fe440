// Package plugin coordinates the build passes of one concat artifact.
//
// A host drives a Plugin through its boundary hooks. ProcessAssets is the
// artifact boundary; BeforeAssetTagGeneration and AlterAssetTags form the
// HTML boundary. Whichever hook fires first in a pass starts the work, and
// every other hook of the same pass waits for that result. AfterEmit ends
// the pass.
package plugin

import (
	"context"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/conneroisu/concat/internal/concat"
	"github.com/conneroisu/concat/internal/config"
	"github.com/conneroisu/concat/internal/contenthash"
	cerrors "github.com/conneroisu/concat/internal/errors"
	"github.com/conneroisu/concat/internal/logging"
	"github.com/conneroisu/concat/internal/naming"
	"github.com/conneroisu/concat/internal/resolver"
	"github.com/conneroisu/concat/internal/staleness"
)

// Option customizes a Plugin.
type Option func(*Plugin)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(p *Plugin) { p.logger = l }
}

// WithFS sets the filesystem inputs are read from.
func WithFS(fs afero.Fs) Option {
	return func(p *Plugin) { p.fs = fs }
}

// WithResolveFunc replaces the default module resolution.
func WithResolveFunc(fn resolver.ResolveFunc) Option {
	return func(p *Plugin) { p.resolve = fn }
}

// WithMinifier replaces the minifier selected by the uglify option.
func WithMinifier(m concat.Minifier) Option {
	return func(p *Plugin) { p.minifier = m }
}

// WithCache shares a file cache between passes and plugins.
func WithCache(c *concat.FileCache) Option {
	return func(p *Plugin) { p.cache = c }
}

// WithStartTime sets the time changes are detected from.
func WithStartTime(t time.Time) Option {
	return func(p *Plugin) { p.startTime = t }
}

// Stats counts the passes a Plugin has run.
type Stats struct {
	Passes   int
	Rebuilds int
	Clean    int
	Failures int
}

// Plugin produces one concatenated artifact per build pass.
type Plugin struct {
	opts       config.Options
	contextDir string

	logger    logging.Logger
	fs        afero.Fs
	resolve   resolver.ResolveFunc
	minifier  concat.Minifier
	cache     *concat.FileCache
	startTime time.Time

	resolver *resolver.Resolver
	detector *staleness.Detector
	concat   *concat.Concatenator
	engine   *naming.Engine

	mu        sync.Mutex
	state     State
	pass      *pass
	fileName  string
	inputs    []string
	assetPath string
	stats     Stats
}

type pass struct {
	id       string
	done     chan struct{}
	fileName string
	err      error
}

// New validates opts and creates a Plugin whose inputs are relative to
// contextDir. It performs no I/O.
func New(opts config.Options, contextDir string, options ...Option) (*Plugin, error) {
	opts, err := config.New(opts)
	if err != nil {
		return nil, err
	}

	p := &Plugin{
		opts:       opts,
		contextDir: contextDir,
		startTime:  time.Now(),
	}
	for _, o := range options {
		o(p)
	}

	if p.logger == nil {
		p.logger = logging.NewNopLogger()
	}
	p.logger = p.logger.WithComponent("plugin").With("bundle", opts.Name)

	if p.minifier == nil && opts.Uglify.Enabled {
		m, err := concat.NewEsbuildMinifier(opts.Uglify)
		if err != nil {
			return nil, err
		}
		p.minifier = m
	}

	hasher, err := contenthash.New(opts.HashFunction, opts.HashDigest)
	if err != nil {
		return nil, err
	}

	p.resolver = resolver.New(opts.FilesToConcat, contextDir, p.resolve, p.logger, resolver.WithFS(p.fs))
	p.detector = staleness.NewAt(p.startTime)
	p.engine = naming.NewEngine(opts.Name, opts.FileName, opts.UseHash, hasher)
	p.concat = concat.New(concat.Options{
		FS:         p.fs,
		ContextDir: contextDir,
		SourceMap:  opts.SourceMap,
		Minifier:   p.minifier,
		Cache:      p.cache,
	}, p.logger)

	return p, nil
}

// Name returns the logical name of the artifact.
func (p *Plugin) Name() string { return p.opts.Name }

// Options returns the validated options.
func (p *Plugin) Options() config.Options { return p.opts }

// State returns the current pass state.
func (p *Plugin) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

// FileName returns the file name of the last artifact, without the output
// path, and whether one has been produced.
func (p *Plugin) FileName() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.fileName, p.fileName != ""
}

// OutputFile returns the emitted path of the last artifact relative to the
// output root.
func (p *Plugin) OutputFile() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fileName == "" {
		return ""
	}

	return p.opts.OutputPath + p.fileName
}

// Stats returns pass counters.
func (p *Plugin) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.stats
}

// Refresh forces the next pass to resolve specifiers again.
func (p *Plugin) Refresh() {
	p.resolver.Invalidate()
}

// ProcessAssets is the artifact boundary hook. It runs the pass if no other
// hook has started it and returns once the artifact is settled.
func (p *Plugin) ProcessAssets(ctx context.Context, comp Compilation) error {
	_, err := p.ensurePass(ctx, comp)

	return err
}

// AfterEmit ends the current pass.
func (p *Plugin) AfterEmit() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pass = nil
	p.state = Idle
}

// ensurePass starts the pass on first call and makes later callers of the
// same pass wait for its outcome.
func (p *Plugin) ensurePass(ctx context.Context, comp Compilation) (string, error) {
	p.mu.Lock()
	if current := p.pass; current != nil {
		p.mu.Unlock()

		select {
		case <-current.done:
			return current.fileName, current.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	current := &pass{id: uuid.NewString(), done: make(chan struct{})}
	p.pass = current
	p.stats.Passes++
	p.mu.Unlock()

	current.fileName, current.err = p.run(ctx, comp, current.id)
	close(current.done)

	return current.fileName, current.err
}

func (p *Plugin) run(ctx context.Context, comp Compilation, passID string) (string, error) {
	logger := p.logger.With("pass_id", passID)

	fileName, err := p.runSteps(ctx, comp, logger)
	if err != nil {
		p.mu.Lock()
		p.stats.Failures++
		p.state = Idle
		p.mu.Unlock()

		logger.Error(ctx, err, "Build pass failed")

		return "", err
	}

	return fileName, nil
}

func (p *Plugin) runSteps(ctx context.Context, comp Compilation, logger logging.Logger) (string, error) {
	if err := p.transition(Resolving); err != nil {
		return "", err
	}

	resolved, err := p.resolver.ResolveAll(ctx)
	if err != nil {
		return "", err
	}
	for _, file := range resolved {
		comp.AddFileDependency(file)
	}

	if err := p.transition(CheckingStaleness); err != nil {
		return "", err
	}

	changed := p.detector.HasChanged(comp.FileTimestamps(), resolved)

	// A different input set means files were added or removed, which the
	// timestamps of the previous pass can not show.
	p.mu.Lock()
	previous := p.fileName
	sameInputs := slices.Equal(p.inputs, resolved)
	p.mu.Unlock()

	if !changed && sameInputs && previous != "" {
		if err := p.transition(Clean); err != nil {
			return "", err
		}

		p.mu.Lock()
		p.stats.Clean++
		p.mu.Unlock()

		logger.Debug(ctx, "Inputs unchanged, reusing artifact", "file", previous)

		return previous, nil
	}

	if err := p.transition(Rebuilding); err != nil {
		return "", err
	}

	fileName, size, err := p.rebuild(ctx, comp, resolved)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	p.fileName = fileName
	p.inputs = resolved
	p.stats.Rebuilds++
	p.mu.Unlock()

	logger.Info(ctx, "Emitted artifact",
		"file", p.opts.OutputPath+fileName,
		"inputs", len(resolved),
		"size", humanize.Bytes(uint64(size)))

	return fileName, nil
}

// rebuild concatenates, names and emits the artifact. The file name is only
// published by the caller once every step succeeded.
func (p *Plugin) rebuild(ctx context.Context, comp Compilation, resolved []string) (string, int, error) {
	artifact, err := p.concat.Concatenate(ctx, resolved)
	if err != nil {
		return "", 0, err
	}

	p.engine.Invalidate()
	fileName, err := p.engine.Derive([]byte(artifact.Content))
	if err != nil {
		return "", 0, err
	}

	content := artifact.Content
	assetName := p.opts.OutputPath + fileName

	if artifact.Map != nil {
		mapName := assetName + ".map"
		artifact.Map.File = path.Base(fileName)

		data, err := artifact.Map.Marshal()
		if err != nil {
			return "", 0, cerrors.NewEmitError(mapName, err)
		}
		if err := comp.EmitAsset(mapName, data); err != nil {
			return "", 0, cerrors.NewEmitError(mapName, err)
		}

		if !artifact.Minified {
			if !strings.HasSuffix(content, "\n") {
				content += "\n"
			}
			content += "//# sourceMappingURL=" + path.Base(mapName)
		}
	}

	if err := comp.EmitAsset(assetName, []byte(content)); err != nil {
		return "", 0, cerrors.NewEmitError(assetName, err)
	}

	return fileName, len(content), nil
}

func (p *Plugin) transition(to State) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !canTransition(p.state, to) {
		return transitionError(p.state, to)
	}
	p.state = to

	return nil
}
