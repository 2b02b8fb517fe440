// Package resolver turns configured input specifiers into the ordered set of
// absolute paths a plugin concatenates.
//
// Resolution runs once per generation and is shared by every caller until
// Refresh is called. A specifier that resolved before may fail later without
// failing the build; a specifier that never resolved may not.
package resolver

import (
	"context"
	"sync"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	cerrors "github.com/conneroisu/concat/internal/errors"
	"github.com/conneroisu/concat/internal/logging"
)

// Resolver memoizes the resolved input set of one plugin instance.
type Resolver struct {
	specifiers []string
	contextDir string
	fs         afero.Fs
	resolve    ResolveFunc
	logger     logging.Logger

	group singleflight.Group

	mu       sync.Mutex
	states   stateTable
	resolved []string
	valid    bool
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithFS sets the filesystem globs are expanded on and, when no ResolveFunc
// is given, requests are looked up on.
func WithFS(fsys afero.Fs) Option {
	return func(r *Resolver) { r.fs = fsys }
}

// New creates a Resolver. A nil fn selects the default lookup on the
// resolver's filesystem, which is the OS unless WithFS says otherwise.
func New(specifiers []string, contextDir string, fn ResolveFunc, logger logging.Logger, opts ...Option) *Resolver {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	r := &Resolver{
		specifiers: append([]string(nil), specifiers...),
		contextDir: contextDir,
		resolve:    fn,
		logger:     logger.WithComponent("resolver"),
		states:     make(stateTable),
	}
	for _, o := range opts {
		o(r)
	}

	if r.fs == nil {
		r.fs = afero.NewOsFs()
	}
	if r.resolve == nil {
		r.resolve = NewLookup(r.fs)
	}

	return r
}

// ResolveAll returns the resolved input set, computing it on first use.
// Concurrent callers share a single computation.
func (r *Resolver) ResolveAll(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	if r.valid {
		out := append([]string(nil), r.resolved...)
		r.mu.Unlock()

		return out, nil
	}
	r.mu.Unlock()

	v, err, _ := r.group.Do("resolve", func() (interface{}, error) {
		r.mu.Lock()
		if r.valid {
			out := r.resolved
			r.mu.Unlock()

			return out, nil
		}
		r.mu.Unlock()

		resolved, err := r.compute(ctx)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.resolved = resolved
		r.valid = true
		r.mu.Unlock()

		return resolved, nil
	})
	if err != nil {
		return nil, err
	}

	return append([]string(nil), v.([]string)...), nil
}

// Refresh discards the memoized set and resolves again. Hosts call it when
// the dependency graph may have changed.
func (r *Resolver) Refresh(ctx context.Context) ([]string, error) {
	r.Invalidate()

	return r.ResolveAll(ctx)
}

// Invalidate discards the memoized set without resolving.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.valid = false
	r.resolved = nil
	r.mu.Unlock()
}

// State returns the recorded state of an expanded request.
func (r *Resolver) State(request string) State {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.states[request]
}

type outcome struct {
	path string
	ok   bool
}

func (r *Resolver) compute(ctx context.Context) ([]string, error) {
	requests, err := Expand(ctx, r.fs, r.specifiers, r.contextDir)
	if err != nil {
		return nil, err
	}

	outcomes := make([]outcome, len(requests))
	g, gctx := errgroup.WithContext(ctx)

	for i, request := range requests {
		g.Go(func() error {
			r.mu.Lock()
			prev := r.states.begin(request)
			r.mu.Unlock()

			path, err := r.resolve(gctx, r.contextDir, request)

			r.mu.Lock()
			defer r.mu.Unlock()

			if err != nil {
				r.states.fail(request, prev)
				if prev.Tolerant() {
					r.logger.Warn(gctx, err, "Dropping input that resolved before", "request", request)

					return nil
				}

				return cerrors.NewResolutionError(request, err)
			}

			r.states.succeed(request)
			outcomes[i] = outcome{path: path, ok: true}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	resolved := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		if o.ok {
			resolved = append(resolved, o.path)
		}
	}

	r.logger.Debug(ctx, "Resolved inputs", "specifiers", len(r.specifiers), "files", len(resolved))

	return resolved, nil
}
