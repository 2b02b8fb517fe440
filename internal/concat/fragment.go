package concat

import (
	"context"
	"path/filepath"
	"regexp"

	"github.com/spf13/afero"

	cerrors "github.com/conneroisu/concat/internal/errors"
	"github.com/conneroisu/concat/internal/logging"
	"github.com/conneroisu/concat/internal/sourcemap"
)

// mapURLPattern matches a source map reference comment, including the line
// break that ends it.
var mapURLPattern = regexp.MustCompile(`//[#@] sourceMappingURL=(data:application/json[^,]*;base64,)?(\S+)[ \t]*(?:\r?\n|$)`)

// Fragment is one input file, ready to be joined.
type Fragment struct {
	// Path is the absolute path the content was read from.
	Path string
	// Source names the fragment inside the combined source map.
	Source  string
	Content string
	// Map is nil when the fragment has no usable source map.
	Map *sourcemap.Map
}

// Loader reads fragments from a filesystem.
type Loader struct {
	fs         afero.Fs
	contextDir string
	sourceMaps bool
	cache      *FileCache
	logger     logging.Logger
}

// NewLoader creates a Loader. A nil fs reads from the OS.
func NewLoader(fs afero.Fs, contextDir string, sourceMaps bool, logger logging.Logger) *Loader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Loader{
		fs:         fs,
		contextDir: contextDir,
		sourceMaps: sourceMaps,
		logger:     logger,
	}
}

// Load reads the file at path. The source map reference comment, if any, is
// removed from the content. Map lookup failures leave Map nil.
func (l *Loader) Load(ctx context.Context, file string) (Fragment, error) {
	if err := ctx.Err(); err != nil {
		return Fragment{}, err
	}

	data, err := l.cache.ReadFile(l.fs, file)
	if err != nil {
		return Fragment{}, cerrors.NewReadError(file, err)
	}

	content := string(data)
	ref, inline, stripped, found := findMapReference(content)
	if found {
		content = stripped
	}

	frag := Fragment{
		Path:    file,
		Source:  SourceName(l.contextDir, file),
		Content: content,
	}

	if !l.sourceMaps {
		return frag, nil
	}

	m, err := l.loadMap(file, ref, inline, found)
	if err != nil {
		l.logger.Debug(ctx, "Ignoring source map", "file", frag.Source, "error", err.Error())

		return frag, nil
	}
	frag.Map = m

	return frag, nil
}

func (l *Loader) loadMap(file, ref string, inline, found bool) (*sourcemap.Map, error) {
	if inline {
		return sourcemap.ParseDataURL(ref)
	}

	mapPath := file + ".map"
	if found {
		mapPath = filepath.Join(filepath.Dir(file), filepath.FromSlash(ref))
	}

	data, err := l.cache.ReadFile(l.fs, mapPath)
	if err != nil {
		return nil, err
	}

	return sourcemap.Parse(data)
}

// findMapReference locates the last reference comment in content and
// returns it along with the content that remains once it is removed.
func findMapReference(content string) (ref string, inline bool, stripped string, found bool) {
	matches := mapURLPattern.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return "", false, content, false
	}

	m := matches[len(matches)-1]
	inline = m[2] >= 0
	ref = content[m[4]:m[5]]
	stripped = content[:m[0]] + content[m[1]:]

	return ref, inline, stripped, true
}

// SourceName returns file relative to contextDir with forward slashes.
func SourceName(contextDir, file string) string {
	rel, err := filepath.Rel(contextDir, file)
	if err != nil {
		return filepath.ToSlash(file)
	}

	return filepath.ToSlash(rel)
}

// SetCache makes the loader read through c.
func (l *Loader) SetCache(c *FileCache) {
	l.cache = c
}
