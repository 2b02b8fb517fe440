package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ResolveFunc maps a request to an absolute file path. contextDir is the
// directory relative requests are resolved against.
type ResolveFunc func(ctx context.Context, contextDir, request string) (string, error)

// Extensions tried, in order, when a request names a file without one.
var Extensions = []string{".js", ".mjs", ".cjs", ".json"}

// DefaultResolve resolves request relative to contextDir on the OS
// filesystem and falls back to node_modules lookup for bare module names.
func DefaultResolve(ctx context.Context, contextDir, request string) (string, error) {
	return osLookup.resolve(ctx, contextDir, request)
}

var osLookup = lookup{fs: afero.NewOsFs()}

// NewLookup returns the default resolution reading through fsys.
func NewLookup(fsys afero.Fs) ResolveFunc {
	if fsys == nil {
		return DefaultResolve
	}

	return lookup{fs: fsys}.resolve
}

type lookup struct {
	fs afero.Fs
}

func (l lookup) resolve(ctx context.Context, contextDir, request string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if filepath.IsAbs(request) {
		return l.resolveFile(request)
	}

	if resolved, err := l.resolveFile(filepath.Join(contextDir, request)); err == nil {
		return resolved, nil
	} else if isPathRequest(request) {
		return "", err
	}

	return l.resolvePackage(ctx, contextDir, request)
}

func isPathRequest(request string) bool {
	return request == "." || request == ".." ||
		strings.HasPrefix(request, "./") || strings.HasPrefix(request, "../") ||
		strings.HasPrefix(request, ".\\") || strings.HasPrefix(request, "..\\")
}

func (l lookup) resolveFile(path string) (string, error) {
	path = filepath.Clean(path)

	if l.isFile(path) {
		return filepath.Abs(path)
	}
	for _, ext := range Extensions {
		if l.isFile(path + ext) {
			return filepath.Abs(path + ext)
		}
	}

	if info, err := l.fs.Stat(path); err == nil && info.IsDir() {
		if main := l.packageMain(path); main != "" {
			if resolved, err := l.resolveFile(filepath.Join(path, main)); err == nil {
				return resolved, nil
			}
		}
		for _, ext := range Extensions {
			index := filepath.Join(path, "index"+ext)
			if l.isFile(index) {
				return filepath.Abs(index)
			}
		}
	}

	return "", fmt.Errorf("%s: %w", path, fs.ErrNotExist)
}

func (l lookup) resolvePackage(ctx context.Context, contextDir, request string) (string, error) {
	dir, err := filepath.Abs(contextDir)
	if err != nil {
		return "", err
	}

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		if resolved, err := l.resolveFile(filepath.Join(dir, "node_modules", request)); err == nil {
			return resolved, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("module %q not found from %s: %w", request, contextDir, fs.ErrNotExist)
}

func (l lookup) isFile(path string) bool {
	info, err := l.fs.Stat(path)

	return err == nil && info.Mode().IsRegular()
}

func (l lookup) packageMain(dir string) string {
	data, err := afero.ReadFile(l.fs, filepath.Join(dir, "package.json"))
	if err != nil {
		return ""
	}

	var pkg struct {
		Main string `json:"main"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return ""
	}

	return pkg.Main
}
