package concat

import (
	"context"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/conneroisu/concat/internal/config"
	cerrors "github.com/conneroisu/concat/internal/errors"
	"github.com/conneroisu/concat/internal/sourcemap"
)

// Minifier rewrites a whole artifact. m is the map of code, or nil; the
// returned map describes the minified output in terms of the original
// sources.
type Minifier interface {
	Minify(ctx context.Context, code string, m *sourcemap.Map) (string, *sourcemap.Map, error)
}

var targets = map[string]api.Target{
	"":       api.DefaultTarget,
	"esnext": api.ESNext,
	"es5":    api.ES5,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
}

var legalComments = map[string]api.LegalComments{
	"":         api.LegalCommentsDefault,
	"none":     api.LegalCommentsNone,
	"inline":   api.LegalCommentsInline,
	"eof":      api.LegalCommentsEndOfFile,
	"linked":   api.LegalCommentsLinked,
	"external": api.LegalCommentsExternal,
}

// EsbuildMinifier minifies with esbuild's transform API.
type EsbuildMinifier struct {
	options api.TransformOptions
}

// NewEsbuildMinifier translates the uglify options into esbuild options.
func NewEsbuildMinifier(opts config.MinifyOptions) (*EsbuildMinifier, error) {
	target, ok := targets[strings.ToLower(opts.Target)]
	if !ok {
		return nil, cerrors.NewConfigError(cerrors.ErrCodeConfigInvalid, "unsupported minify target").
			WithContext("target", opts.Target)
	}

	legal, ok := legalComments[strings.ToLower(opts.LegalComments)]
	if !ok {
		return nil, cerrors.NewConfigError(cerrors.ErrCodeConfigInvalid, "unsupported legal comments mode").
			WithContext("legalComments", opts.LegalComments)
	}

	return &EsbuildMinifier{
		options: api.TransformOptions{
			Loader:            api.LoaderJS,
			Target:            target,
			MinifyWhitespace:  opts.Whitespace,
			MinifyIdentifiers: opts.Identifiers,
			MinifySyntax:      opts.Syntax,
			KeepNames:         opts.KeepNames,
			LegalComments:     legal,
			LogLevel:          api.LogLevelSilent,
		},
	}, nil
}

// Minify implements Minifier.
func (e *EsbuildMinifier) Minify(ctx context.Context, code string, m *sourcemap.Map) (string, *sourcemap.Map, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	opts := e.options
	if m != nil {
		url, err := m.DataURL()
		if err != nil {
			return "", nil, cerrors.NewMinifyError("cannot encode input source map", err)
		}
		if !strings.HasSuffix(code, "\n") {
			code += "\n"
		}
		code += "//# sourceMappingURL=" + url + "\n"
		opts.Sourcemap = api.SourceMapExternal
		opts.SourcesContent = api.SourcesContentInclude
	}

	result := api.Transform(code, opts)
	if len(result.Errors) > 0 {
		formatted := api.FormatMessages(result.Errors, api.FormatMessagesOptions{Kind: api.ErrorMessage})

		return "", nil, cerrors.NewMinifyError("minification failed", nil).
			WithContext("errors", strings.Join(formatted, "\n")).
			WithContext("count", len(result.Errors))
	}

	if m == nil {
		return string(result.Code), nil, nil
	}

	out, err := sourcemap.Parse(result.Map)
	if err != nil {
		return "", nil, cerrors.NewMinifyError("minifier produced an unreadable source map", err)
	}

	return string(result.Code), out, nil
}
