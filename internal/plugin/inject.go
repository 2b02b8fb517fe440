package plugin

import (
	"context"
	"path"
	"path/filepath"

	"github.com/conneroisu/concat/internal/config"
)

// BeforeAssetTagGeneration is the HTML boundary hook that runs before script
// tags are generated. It settles the pass, publishes the artifact URL under
// the plugin name and, unless injection is disabled, adds it to data.JS.
func (p *Plugin) BeforeAssetTagGeneration(ctx context.Context, comp Compilation, data *AssetsData) error {
	fileName, err := p.ensurePass(ctx, comp)
	if err != nil {
		return err
	}

	assetPath := p.AssetPath(data, fileName)

	p.mu.Lock()
	p.assetPath = assetPath
	p.mu.Unlock()

	if data.Bundles == nil {
		data.Bundles = make(map[string]string)
	}
	data.Bundles[p.opts.Name] = assetPath

	switch p.opts.InjectType {
	case config.InjectPrepend:
		data.JS = append([]string{assetPath}, data.JS...)
	case config.InjectAppend:
		data.JS = append(data.JS, assetPath)
	}

	return nil
}

// AlterAssetTags merges the configured attributes onto the script tags that
// load this plugin's artifact.
func (p *Plugin) AlterAssetTags(scripts []*AssetTag) {
	if p.opts.InjectType == config.InjectNone || len(p.opts.Attributes) == 0 {
		return
	}

	p.mu.Lock()
	assetPath := p.assetPath
	p.mu.Unlock()

	for _, tag := range scripts {
		if tag == nil || tag.Attributes["src"] != assetPath {
			continue
		}
		for k, v := range p.opts.Attributes {
			tag.Attributes[k] = v
		}
	}
}

// AssetPath returns the URL under which the HTML file data.OutputName
// references the artifact named fileName.
func (p *Plugin) AssetPath(data *AssetsData, fileName string) string {
	target := p.opts.OutputPath + fileName
	pp := p.opts.PublicPath

	switch {
	case pp.Set && pp.Disabled:
		return relativeTo(data.OutputName, target)
	case pp.Set:
		return config.EnsureTrailingSlash(pp.Value) + target
	case data.PublicPath != nil:
		return config.EnsureTrailingSlash(*data.PublicPath) + target
	default:
		return relativeTo(data.OutputName, target)
	}
}

// relativeTo returns target relative to the directory of htmlFile. Both are
// slash-separated paths below the output root.
func relativeTo(htmlFile, target string) string {
	base := path.Dir(htmlFile)

	rel, err := filepath.Rel(filepath.FromSlash(base), filepath.FromSlash(target))
	if err != nil {
		return target
	}

	return filepath.ToSlash(rel)
}
