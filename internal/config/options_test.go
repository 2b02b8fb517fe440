package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	cerrors "github.com/conneroisu/concat/internal/errors"
)

func TestNewAppliesDefaults(t *testing.T) {
	opts, err := New(Options{FilesToConcat: []string{"./a.js"}, OutputPath: "static"})
	require.NoError(t, err)

	assert.Equal(t, "[name].js", opts.FileName)
	assert.Equal(t, "result", opts.Name)
	assert.Equal(t, InjectPrepend, opts.InjectType)
	assert.Equal(t, "md5", opts.HashFunction)
	assert.Equal(t, "hex", opts.HashDigest)
	assert.Equal(t, "static/", opts.OutputPath)
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{name: "missing inputs", opts: Options{}},
		{name: "empty inputs", opts: Options{FilesToConcat: []string{}}},
		{name: "blank specifier", opts: Options{FilesToConcat: []string{"a.js", " "}}},
		{name: "bad inject type", opts: Options{FilesToConcat: []string{"a.js"}, InjectType: "middle"}},
		{name: "bad hash function", opts: Options{FilesToConcat: []string{"a.js"}, HashFunction: "crc7"}},
		{name: "bad digest", opts: Options{FilesToConcat: []string{"a.js"}, HashDigest: "latin1"}},
		{name: "two hash slots", opts: Options{FilesToConcat: []string{"a.js"}, FileName: "[hash].[hash:4].js"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			require.Error(t, err)
			assert.ErrorIs(t, err, cerrors.ErrConfig)
		})
	}
}

func TestEnsureTrailingSlash(t *testing.T) {
	assert.Equal(t, "", EnsureTrailingSlash(""))
	assert.Equal(t, "js/", EnsureTrailingSlash("js"))
	assert.Equal(t, "js/", EnsureTrailingSlash("js/"))
}

func TestMinifyOptionsYAML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected MinifyOptions
	}{
		{name: "true", input: "uglify: true", expected: MinifyAll(true)},
		{name: "false", input: "uglify: false", expected: MinifyOptions{}},
		{
			name:     "record",
			input:    "uglify:\n  target: es2015",
			expected: MinifyOptions{Enabled: true, Whitespace: true, Identifiers: true, Syntax: true, Target: "es2015"},
		},
		{
			name:     "record with opt-out",
			input:    "uglify:\n  identifiers: false\n  keepNames: true",
			expected: MinifyOptions{Enabled: true, Whitespace: true, Syntax: true, KeepNames: true},
		},
		{
			name:     "record disabled",
			input:    "uglify:\n  enabled: false\n  syntax: true",
			expected: MinifyOptions{Syntax: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts Options
			require.NoError(t, yaml.Unmarshal([]byte(tt.input), &opts))
			assert.Equal(t, tt.expected, opts.Uglify)
		})
	}
}

func TestPublicPathYAML(t *testing.T) {
	var opts Options

	require.NoError(t, yaml.Unmarshal([]byte(`publicPath: /static`), &opts))
	assert.Equal(t, PublicPathValue("/static"), opts.PublicPath)

	opts = Options{}
	require.NoError(t, yaml.Unmarshal([]byte(`publicPath: false`), &opts))
	assert.Equal(t, PublicPathDisabled(), opts.PublicPath)

	opts = Options{}
	require.NoError(t, yaml.Unmarshal([]byte(`name: x`), &opts))
	assert.False(t, opts.PublicPath.Set)

	assert.Error(t, yaml.Unmarshal([]byte(`publicPath: true`), &opts))
}

const sampleProject = `
context: ./web
html:
  template: index.tmpl.html
  publicPath: /assets
bundles:
  - name: vendor
    fileName: "[name].[hash:8].js"
    filesToConcat:
      - ./vendor/jquery.js
      - ./vendor/plugins/*.js
    uglify: true
    sourceMap: true
    outputPath: js
    publicPath: false
    attributes:
      defer: ""
  - filesToConcat: [./legacy.js]
    injectType: append
`

func TestParseProject(t *testing.T) {
	project, err := Parse([]byte(sampleProject))
	require.NoError(t, err)

	assert.Equal(t, "./web", project.Context)
	assert.Equal(t, "dist", project.Output)
	require.NotNil(t, project.HTML)
	assert.Equal(t, "index.html", project.HTML.Filename)
	require.NotNil(t, project.HTML.PublicPath)
	assert.Equal(t, "/assets", *project.HTML.PublicPath)

	require.Len(t, project.Bundles, 2)
	vendor := project.Bundles[0]
	assert.Equal(t, "vendor", vendor.Name)
	assert.Equal(t, "js/", vendor.OutputPath)
	assert.True(t, vendor.Uglify.Enabled)
	assert.True(t, vendor.PublicPath.Disabled)
	assert.Equal(t, map[string]string{"defer": ""}, vendor.Attributes)

	legacy := project.Bundles[1]
	assert.Equal(t, "result", legacy.Name)
	assert.Equal(t, InjectAppend, legacy.InjectType)
}

func TestParseProjectRejectsDuplicateNames(t *testing.T) {
	_, err := Parse([]byte("bundles:\n  - filesToConcat: [a.js]\n  - filesToConcat: [b.js]\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, cerrors.ErrConfig)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestLoadFromViper(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	SetDefaults(v)
	require.NoError(t, v.ReadConfig(strings.NewReader(sampleProject)))

	project, err := LoadFrom(v)
	require.NoError(t, err)

	require.Len(t, project.Bundles, 2)
	vendor := project.Bundles[0]
	assert.Equal(t, []string{"./vendor/jquery.js", "./vendor/plugins/*.js"}, vendor.FilesToConcat)
	assert.Equal(t, "[name].[hash:8].js", vendor.FileName)
	assert.Equal(t, MinifyAll(true), vendor.Uglify)
	assert.True(t, vendor.SourceMap)
	assert.Equal(t, PublicPathDisabled(), vendor.PublicPath)
	assert.Equal(t, "dist", project.Output)
}

func TestLoadFromViperMinifyRecord(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	SetDefaults(v)
	require.NoError(t, v.ReadConfig(strings.NewReader(`
bundles:
  - filesToConcat: [a.js]
    uglify:
      target: es2015
  - name: second
    filesToConcat: [b.js]
    uglify:
      identifiers: false
      keepNames: true
`)))

	project, err := LoadFrom(v)
	require.NoError(t, err)
	require.Len(t, project.Bundles, 2)

	assert.Equal(t, MinifyOptions{Enabled: true, Whitespace: true, Identifiers: true, Syntax: true, Target: "es2015"},
		project.Bundles[0].Uglify)
	assert.Equal(t, MinifyOptions{Enabled: true, Whitespace: true, Syntax: true, KeepNames: true},
		project.Bundles[1].Uglify)
}

func TestProjectMarshalRoundTrip(t *testing.T) {
	project, err := Parse([]byte(sampleProject))
	require.NoError(t, err)

	out, err := project.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), "uglify: true")
	assert.Contains(t, string(out), "publicPath: false")

	again, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, project.Bundles, again.Bundles)
}
