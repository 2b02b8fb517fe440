// Package config provides the option model of a concat plugin instance and
// the project file of the bundled CLI host.
//
// Plugin options are immutable once New has validated them. The project
// file is loaded with Viper so every value can be overridden through
// CONCAT_ environment variables or command-line flags.
package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/conneroisu/concat/internal/contenthash"
	cerrors "github.com/conneroisu/concat/internal/errors"
	"github.com/conneroisu/concat/internal/naming"
)

// InjectType controls where the HTML boundary places the artifact reference.
type InjectType string

const (
	InjectPrepend InjectType = "prepend"
	InjectAppend  InjectType = "append"
	InjectNone    InjectType = "none"
)

// Defaults applied by WithDefaults.
const (
	DefaultName         = "result"
	DefaultFileName     = naming.DefaultTemplate
	DefaultHashFunction = contenthash.MD5
	DefaultHashDigest   = contenthash.Hex
)

// Options configures one plugin instance, which produces one artifact.
type Options struct {
	FilesToConcat []string          `yaml:"filesToConcat" mapstructure:"filesToConcat"`
	FileName      string            `yaml:"fileName,omitempty" mapstructure:"fileName"`
	Name          string            `yaml:"name,omitempty" mapstructure:"name"`
	UseHash       bool              `yaml:"useHash,omitempty" mapstructure:"useHash"`
	HashFunction  string            `yaml:"hashFunction,omitempty" mapstructure:"hashFunction"`
	HashDigest    string            `yaml:"hashDigest,omitempty" mapstructure:"hashDigest"`
	Uglify        MinifyOptions     `yaml:"uglify,omitempty" mapstructure:"uglify"`
	SourceMap     bool              `yaml:"sourceMap,omitempty" mapstructure:"sourceMap"`
	OutputPath    string            `yaml:"outputPath,omitempty" mapstructure:"outputPath"`
	InjectType    InjectType        `yaml:"injectType,omitempty" mapstructure:"injectType"`
	PublicPath    PublicPath        `yaml:"publicPath,omitempty" mapstructure:"publicPath"`
	Attributes    map[string]string `yaml:"attributes,omitempty" mapstructure:"attributes"`
}

// MinifyOptions is the record form of the uglify option. A plain boolean
// enables or disables every transformation at once.
type MinifyOptions struct {
	Enabled       bool   `yaml:"enabled" mapstructure:"enabled"`
	Whitespace    bool   `yaml:"whitespace" mapstructure:"whitespace"`
	Identifiers   bool   `yaml:"identifiers" mapstructure:"identifiers"`
	Syntax        bool   `yaml:"syntax" mapstructure:"syntax"`
	KeepNames     bool   `yaml:"keepNames,omitempty" mapstructure:"keepNames"`
	Target        string `yaml:"target,omitempty" mapstructure:"target"`
	LegalComments string `yaml:"legalComments,omitempty" mapstructure:"legalComments"`
}

// MinifyAll returns the record equivalent of `uglify: enabled`.
func MinifyAll(enabled bool) MinifyOptions {
	return MinifyOptions{
		Enabled:     enabled,
		Whitespace:  enabled,
		Identifiers: enabled,
		Syntax:      enabled,
	}
}

// IsZero lets yaml omit a disabled minifier.
func (m MinifyOptions) IsZero() bool {
	return m == MinifyOptions{}
}

// UnmarshalYAML accepts either a boolean or a mapping. A mapping enables
// minification unless it sets enabled: false, and transformations it does
// not mention follow enabled.
func (m *MinifyOptions) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var enabled bool
		if err := node.Decode(&enabled); err != nil {
			return fmt.Errorf("uglify: %w", err)
		}
		*m = MinifyAll(enabled)

		return nil
	}

	var record struct {
		Enabled       *bool  `yaml:"enabled"`
		Whitespace    *bool  `yaml:"whitespace"`
		Identifiers   *bool  `yaml:"identifiers"`
		Syntax        *bool  `yaml:"syntax"`
		KeepNames     bool   `yaml:"keepNames"`
		Target        string `yaml:"target"`
		LegalComments string `yaml:"legalComments"`
	}
	if err := node.Decode(&record); err != nil {
		return fmt.Errorf("uglify: %w", err)
	}

	enabled := record.Enabled == nil || *record.Enabled
	*m = MinifyOptions{
		Enabled:       enabled,
		Whitespace:    boolOr(record.Whitespace, enabled),
		Identifiers:   boolOr(record.Identifiers, enabled),
		Syntax:        boolOr(record.Syntax, enabled),
		KeepNames:     record.KeepNames,
		Target:        record.Target,
		LegalComments: record.LegalComments,
	}

	return nil
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}

	return *b
}

// MarshalYAML writes the boolean form whenever it is lossless.
func (m MinifyOptions) MarshalYAML() (interface{}, error) {
	if m == MinifyAll(m.Enabled) {
		return m.Enabled, nil
	}
	type plain MinifyOptions

	return plain(m), nil
}

// PublicPath is either unset, explicitly false, or a URL prefix.
type PublicPath struct {
	Set      bool   `mapstructure:"set"`
	Disabled bool   `mapstructure:"disabled"`
	Value    string `mapstructure:"value"`
}

// PublicPathValue returns a PublicPath set to prefix.
func PublicPathValue(prefix string) PublicPath {
	return PublicPath{Set: true, Value: prefix}
}

// PublicPathDisabled returns the `publicPath: false` form.
func PublicPathDisabled() PublicPath {
	return PublicPath{Set: true, Disabled: true}
}

// IsZero lets yaml omit an unset public path.
func (p PublicPath) IsZero() bool {
	return !p.Set
}

// UnmarshalYAML accepts a string or the boolean false.
func (p *PublicPath) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("publicPath: expected a string or false")
	}
	if node.Tag == "!!bool" {
		var b bool
		if err := node.Decode(&b); err != nil {
			return fmt.Errorf("publicPath: %w", err)
		}
		if b {
			return fmt.Errorf("publicPath: true is not a valid value")
		}
		*p = PublicPathDisabled()

		return nil
	}
	if node.Tag == "!!null" {
		*p = PublicPath{}

		return nil
	}
	*p = PublicPathValue(node.Value)

	return nil
}

// MarshalYAML writes false or the prefix.
func (p PublicPath) MarshalYAML() (interface{}, error) {
	if p.Disabled {
		return false, nil
	}

	return p.Value, nil
}

// WithDefaults returns a copy of o with defaults filled in.
func (o Options) WithDefaults() Options {
	if o.FileName == "" {
		o.FileName = DefaultFileName
	}
	if o.Name == "" {
		o.Name = DefaultName
	}
	if o.InjectType == "" {
		o.InjectType = InjectPrepend
	}
	if o.HashFunction == "" {
		o.HashFunction = DefaultHashFunction
	}
	if o.HashDigest == "" {
		o.HashDigest = DefaultHashDigest
	}
	o.OutputPath = EnsureTrailingSlash(o.OutputPath)
	o.FilesToConcat = append([]string(nil), o.FilesToConcat...)
	if o.Attributes != nil {
		attrs := make(map[string]string, len(o.Attributes))
		for k, v := range o.Attributes {
			attrs[k] = v
		}
		o.Attributes = attrs
	}

	return o
}

// Validate checks o for schema violations.
func (o Options) Validate() error {
	if len(o.FilesToConcat) == 0 {
		return cerrors.NewConfigError(cerrors.ErrCodeNoInputs,
			"option filesToConcat is required and should not be empty")
	}
	for i, spec := range o.FilesToConcat {
		if strings.TrimSpace(spec) == "" {
			return cerrors.NewConfigError(cerrors.ErrCodeConfigInvalid,
				fmt.Sprintf("filesToConcat[%d] is empty", i)).WithContext("index", i)
		}
	}

	names, hashes := naming.CountPlaceholders(o.FileName)
	if names > 1 || hashes > 1 {
		return cerrors.NewConfigError(cerrors.ErrCodeConfigInvalid,
			"fileName may contain at most one [name] and one [hash] placeholder").
			WithContext("fileName", o.FileName)
	}

	switch o.InjectType {
	case InjectPrepend, InjectAppend, InjectNone:
	default:
		return cerrors.NewConfigError(cerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("injectType must be prepend, append or none, got %q", o.InjectType)).
			WithContext("injectType", string(o.InjectType))
	}

	if err := contenthash.ValidateAlgorithm(o.HashFunction); err != nil {
		return err
	}
	if err := contenthash.ValidateDigest(o.HashDigest); err != nil {
		return err
	}

	return nil
}

// New applies defaults and validates. The returned Options must not be
// mutated afterwards.
func New(o Options) (Options, error) {
	o = o.WithDefaults()
	if err := o.Validate(); err != nil {
		return Options{}, err
	}

	return o, nil
}

// EnsureTrailingSlash appends "/" to a non-empty string lacking one.
func EnsureTrailingSlash(s string) string {
	if s != "" && !strings.HasSuffix(s, "/") {
		return s + "/"
	}

	return s
}
