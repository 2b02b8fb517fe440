// Package concat reads resolved input files and joins them into one
// artifact, optionally with a combined source map and minification.
package concat

import (
	"context"
	"runtime"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/concat/internal/logging"
	"github.com/conneroisu/concat/internal/sourcemap"
)

// Artifact is the joined output of one rebuild.
type Artifact struct {
	Content string
	// Map is nil unless source maps are enabled.
	Map *sourcemap.Map
	// Sources lists the fragment source names in output order.
	Sources  []string
	Minified bool
}

// Options configures a Concatenator.
type Options struct {
	FS         afero.Fs
	ContextDir string
	SourceMap  bool
	// Minifier is applied to the whole artifact when set.
	Minifier Minifier
	// Concurrency bounds parallel reads. Zero uses GOMAXPROCS.
	Concurrency int
	// Cache is shared between passes and may be shared between
	// concatenators. Nil disables caching.
	Cache *FileCache
}

// Concatenator turns resolved paths into an Artifact.
type Concatenator struct {
	loader    *Loader
	minifier  Minifier
	sourceMap bool
	limit     int
	logger    logging.Logger
}

// New creates a Concatenator.
func New(opts Options, logger logging.Logger) *Concatenator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.WithComponent("concat")

	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	loader := NewLoader(opts.FS, opts.ContextDir, opts.SourceMap, logger)
	loader.SetCache(opts.Cache)

	return &Concatenator{
		loader:    loader,
		minifier:  opts.Minifier,
		sourceMap: opts.SourceMap,
		limit:     limit,
		logger:    logger,
	}
}

// Concatenate reads every path and joins the contents in the given order.
// Any read failure fails the whole artifact.
func (c *Concatenator) Concatenate(ctx context.Context, paths []string) (*Artifact, error) {
	perf := logging.StartOperation(c.logger, "concatenate")

	fragments, err := c.readAll(ctx, paths)
	if err != nil {
		perf.EndWithError(ctx, err)

		return nil, err
	}

	content, m := Join(fragments, c.sourceMap)

	artifact := &Artifact{
		Content: content,
		Map:     m,
		Sources: make([]string, len(fragments)),
	}
	for i, f := range fragments {
		artifact.Sources[i] = f.Source
	}

	if c.minifier != nil {
		code, minMap, err := c.minifier.Minify(ctx, content, m)
		if err != nil {
			perf.EndWithError(ctx, err)

			return nil, err
		}
		artifact.Content = code
		artifact.Map = minMap
		artifact.Minified = true
	}

	perf.End(ctx, "files", len(fragments), "bytes", len(artifact.Content), "minified", artifact.Minified)

	return artifact, nil
}

func (c *Concatenator) readAll(ctx context.Context, paths []string) ([]Fragment, error) {
	fragments := make([]Fragment, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.limit)

	for i, p := range paths {
		g.Go(func() error {
			frag, err := c.loader.Load(gctx, p)
			if err != nil {
				return err
			}
			fragments[i] = frag

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return fragments, nil
}

// Join concatenates fragments in order, separating two fragments with a
// newline unless one of them already provides it. With sourceMap set the
// combined map is returned as well.
func Join(fragments []Fragment, sourceMap bool) (string, *sourcemap.Map) {
	var (
		sb strings.Builder
		b  *sourcemap.Builder
	)
	if sourceMap {
		b = sourcemap.NewBuilder("")
	}

	for i, f := range fragments {
		if i > 0 && NeedsSeparator(fragments[i-1].Content, f.Content) {
			sb.WriteByte('\n')
			if b != nil {
				b.AddUnmapped("\n")
			}
		}
		sb.WriteString(f.Content)

		if b == nil {
			continue
		}
		if f.Map == nil || b.AddMapped(f.Content, f.Map) != nil {
			b.AddIdentity(f.Source, f.Content)
		}
	}

	if b == nil {
		return sb.String(), nil
	}

	return sb.String(), b.Map()
}

// NeedsSeparator reports whether a newline must be inserted between prev and
// next.
func NeedsSeparator(prev, next string) bool {
	return !strings.HasSuffix(prev, "\n") && !strings.HasPrefix(next, "\n")
}
