// Package htmlgen renders the HTML page that loads the build's scripts. It
// is the HTML collaborator concat plugins inject their artifacts into.
package htmlgen

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	cerrors "github.com/conneroisu/concat/internal/errors"
	"github.com/conneroisu/concat/internal/logging"
	"github.com/conneroisu/concat/internal/plugin"
)

// DefaultTemplate is used when no template is configured.
const DefaultTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>concat</title>
</head>
<body>
</body>
</html>
`

// DefaultFilename is the output name of the page.
const DefaultFilename = "index.html"

// Hooks is the part of a plugin that takes part in page generation.
type Hooks interface {
	BeforeAssetTagGeneration(ctx context.Context, comp plugin.Compilation, data *plugin.AssetsData) error
	AlterAssetTags(scripts []*plugin.AssetTag)
}

// Options configures a Generator.
type Options struct {
	// Template is the page source. Empty selects DefaultTemplate.
	Template string
	// Filename is the page path relative to the output root.
	Filename string
	// PublicPath is offered to plugins as the page's public path.
	PublicPath *string
	// Scripts are rendered along with the plugin artifacts.
	Scripts []string
	// InjectHead places scripts at the end of head rather than body.
	InjectHead bool
}

// Result is a rendered page.
type Result struct {
	HTML   []byte
	Assets *plugin.AssetsData
	Tags   []*plugin.AssetTag
}

// Generator renders and emits the page.
type Generator struct {
	opts   Options
	hooks  []Hooks
	logger logging.Logger
}

// New creates a Generator that runs hooks in order.
func New(opts Options, hooks []Hooks, logger logging.Logger) *Generator {
	if opts.Template == "" {
		opts.Template = DefaultTemplate
	}
	if opts.Filename == "" {
		opts.Filename = DefaultFilename
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Generator{
		opts:   opts,
		hooks:  hooks,
		logger: logger.WithComponent("htmlgen"),
	}
}

// Filename returns the page path relative to the output root.
func (g *Generator) Filename() string { return g.opts.Filename }

// Render runs the hooks and renders the page without emitting it.
func (g *Generator) Render(ctx context.Context, comp plugin.Compilation) (*Result, error) {
	data := &plugin.AssetsData{
		PublicPath: g.opts.PublicPath,
		JS:         append([]string(nil), g.opts.Scripts...),
		Bundles:    make(map[string]string),
		OutputName: g.opts.Filename,
	}

	for _, h := range g.hooks {
		if err := h.BeforeAssetTagGeneration(ctx, comp, data); err != nil {
			return nil, err
		}
	}

	tags := make([]*plugin.AssetTag, 0, len(data.JS))
	for _, src := range data.JS {
		tags = append(tags, &plugin.AssetTag{
			TagName:    "script",
			Attributes: map[string]string{"src": src},
		})
	}

	for _, h := range g.hooks {
		h.AlterAssetTags(tags)
	}

	doc, err := html.Parse(strings.NewReader(g.opts.Template))
	if err != nil {
		return nil, cerrors.NewConfigError(cerrors.ErrCodeConfigInvalid, "cannot parse HTML template").
			WithContext("cause", err.Error())
	}

	target := atom.Body
	if g.opts.InjectHead {
		target = atom.Head
	}
	parent := findElement(doc, target)
	if parent == nil {
		return nil, cerrors.NewInternalError(cerrors.ErrCodeInternalError,
			fmt.Sprintf("template has no <%s> element", target), nil)
	}

	for _, tag := range tags {
		parent.AppendChild(scriptNode(tag))
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, cerrors.NewInternalError(cerrors.ErrCodeInternalError, "cannot render HTML", err)
	}

	return &Result{HTML: buf.Bytes(), Assets: data, Tags: tags}, nil
}

// Generate renders the page and emits it through comp.
func (g *Generator) Generate(ctx context.Context, comp plugin.Compilation) (*Result, error) {
	result, err := g.Render(ctx, comp)
	if err != nil {
		return nil, err
	}

	if err := comp.EmitAsset(g.opts.Filename, result.HTML); err != nil {
		return nil, cerrors.NewEmitError(g.opts.Filename, err)
	}

	g.logger.Debug(ctx, "Generated page", "file", g.opts.Filename, "scripts", len(result.Tags))

	return result, nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}

	return nil
}

// scriptNode builds a script element with src first and the remaining
// attributes sorted by name.
func scriptNode(tag *plugin.AssetTag) *html.Node {
	keys := make([]string, 0, len(tag.Attributes))
	for k := range tag.Attributes {
		if k != "src" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	attrs := make([]html.Attribute, 0, len(tag.Attributes))
	if src, ok := tag.Attributes["src"]; ok {
		attrs = append(attrs, html.Attribute{Key: "src", Val: src})
	}
	for _, k := range keys {
		attrs = append(attrs, html.Attribute{Key: k, Val: tag.Attributes[k]})
	}

	name := tag.TagName
	if name == "" {
		name = "script"
	}

	return &html.Node{
		Type:     html.ElementNode,
		Data:     name,
		DataAtom: atom.Lookup([]byte(name)),
		Attr:     attrs,
	}
}
