// Package esbuildhost lets esbuild drive concat passes. The returned plugin
// runs one host pass after every esbuild build that finished without errors,
// so concatenated vendor files are refreshed alongside the bundle.
package esbuildhost

import (
	"context"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/conneroisu/concat/internal/host"
	"github.com/conneroisu/concat/internal/logging"
)

// DefaultName is the plugin name shown in esbuild messages.
const DefaultName = "concat"

type options struct {
	name   string
	ctx    context.Context
	logger logging.Logger
	report host.ReportFunc
}

// Option customizes the plugin.
type Option func(*options)

// WithName sets the plugin name.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithContext sets the context passes run under.
func WithContext(ctx context.Context) Option {
	return func(o *options) { o.ctx = ctx }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithReport receives the outcome of every pass.
func WithReport(fn host.ReportFunc) Option {
	return func(o *options) { o.report = fn }
}

// NewPlugin returns an esbuild plugin bound to h. A failed pass is returned
// to esbuild, which reports it as a build error.
func NewPlugin(h *host.Host, opts ...Option) api.Plugin {
	o := &options{
		name:   DefaultName,
		ctx:    context.Background(),
		logger: logging.NewNopLogger(),
		report: func(*host.Result, error) {},
	}
	for _, fn := range opts {
		fn(o)
	}
	logger := o.logger.WithComponent("esbuild")

	return api.Plugin{
		Name: o.name,
		Setup: func(build api.PluginBuild) {
			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				if len(result.Errors) > 0 {
					logger.Debug(o.ctx, "Skipping concat pass after failed build", "errors", len(result.Errors))

					return api.OnEndResult{}, nil
				}

				res, err := h.Build(o.ctx)
				o.report(res, err)
				if err != nil {
					logger.Error(o.ctx, err, "Concat pass failed")

					return api.OnEndResult{}, err
				}

				return api.OnEndResult{}, nil
			})
		},
	}
}
