package resolver

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	cerrors "github.com/conneroisu/concat/internal/errors"
)

// HasMagic reports whether spec contains glob syntax.
func HasMagic(spec string) bool {
	return strings.ContainsAny(spec, "*?[{")
}

// Expand replaces every glob specifier with the files of fsys it matches,
// relative to contextDir. Non-glob specifiers pass through unchanged. Matches
// of one glob are sorted; the specifier order is preserved.
func Expand(ctx context.Context, fsys afero.Fs, specifiers []string, contextDir string) ([]string, error) {
	expanded := make([]string, 0, len(specifiers))

	for _, spec := range specifiers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !HasMagic(spec) {
			expanded = append(expanded, spec)
			continue
		}

		pattern := spec
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(contextDir, pattern)
		}

		matches, err := glob(fsys, pattern)
		if err != nil {
			e := cerrors.NewResolutionError(spec, err)
			e.Code = cerrors.ErrCodeGlobFailed

			return nil, e
		}
		sort.Strings(matches)
		expanded = append(expanded, matches...)
	}

	return expanded, nil
}

// glob matches an absolute pattern. The walk starts at the directory before
// the first wildcard so only that subtree of fsys is read.
func glob(fsys afero.Fs, pattern string) ([]string, error) {
	base, rel := doublestar.SplitPattern(filepath.ToSlash(pattern))
	base = filepath.FromSlash(base)

	matches, err := doublestar.Glob(afero.NewIOFS(afero.NewBasePathFs(fsys, base)), rel, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}

	for i, m := range matches {
		matches[i] = filepath.Join(base, filepath.FromSlash(m))
	}

	return matches, nil
}
