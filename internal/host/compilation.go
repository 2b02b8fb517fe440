package host

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// Asset is a file written during a pass.
type Asset struct {
	Name string
	Size int
}

// Compilation is one pass writing below an output directory. It implements
// plugin.Compilation.
type Compilation struct {
	fs         afero.Fs
	outDir     string
	timestamps map[string]time.Time

	mu     sync.Mutex
	deps   map[string]struct{}
	assets []Asset
}

func newCompilation(fs afero.Fs, outDir string, timestamps map[string]time.Time) *Compilation {
	return &Compilation{
		fs:         fs,
		outDir:     outDir,
		timestamps: timestamps,
		deps:       make(map[string]struct{}),
	}
}

// AddFileDependency implements plugin.Compilation.
func (c *Compilation) AddFileDependency(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.deps[path] = struct{}{}
}

// FileTimestamps implements plugin.Compilation.
func (c *Compilation) FileTimestamps() map[string]time.Time {
	return c.timestamps
}

// EmitAsset implements plugin.Compilation.
func (c *Compilation) EmitAsset(name string, content []byte) error {
	target := filepath.Join(c.outDir, filepath.FromSlash(name))

	if err := c.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := afero.WriteFile(c.fs, target, content, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}

	c.mu.Lock()
	c.assets = append(c.assets, Asset{Name: name, Size: len(content)})
	c.mu.Unlock()

	return nil
}

// Dependencies returns every registered dependency, sorted.
func (c *Compilation) Dependencies() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	deps := make([]string, 0, len(c.deps))
	for d := range c.deps {
		deps = append(deps, d)
	}
	sort.Strings(deps)

	return deps
}

// Assets returns the emitted assets sorted by name.
func (c *Compilation) Assets() []Asset {
	c.mu.Lock()
	defer c.mu.Unlock()

	assets := append([]Asset(nil), c.assets...)
	sort.Slice(assets, func(i, j int) bool { return assets[i].Name < assets[j].Name })

	return assets
}
