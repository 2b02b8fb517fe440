package plugin

import (
	"time"
)

// Compilation is the host's view of one build pass.
type Compilation interface {
	// AddFileDependency makes the host watch path for changes.
	AddFileDependency(path string)
	// FileTimestamps reports the last-modified time of every tracked file.
	FileTimestamps() map[string]time.Time
	// EmitAsset writes an output file, name relative to the output root.
	EmitAsset(name string, content []byte) error
}

// AssetsData is the asset list an HTML generator is about to render.
type AssetsData struct {
	// PublicPath is the generator's own public path, nil when it has none.
	PublicPath *string
	// JS lists script URLs in the order they are rendered.
	JS []string
	// Bundles maps a plugin name to the URL of its artifact.
	Bundles map[string]string
	// OutputName is the HTML file path relative to the output root.
	OutputName string
}

// AssetTag is a generated HTML tag.
type AssetTag struct {
	TagName    string
	Attributes map[string]string
}
