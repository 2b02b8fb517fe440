package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	cerrors "github.com/conneroisu/concat/internal/errors"
)

// Project is the .concat.yml file read by the CLI host.
type Project struct {
	Context string      `yaml:"context" mapstructure:"context"`
	Output  string      `yaml:"output" mapstructure:"output"`
	HTML    *HTMLConfig `yaml:"html,omitempty" mapstructure:"html"`
	Bundles []Options   `yaml:"bundles" mapstructure:"bundles"`
}

// HTMLConfig configures the HTML document generated by the host.
type HTMLConfig struct {
	Template   string   `yaml:"template,omitempty" mapstructure:"template"`
	Filename   string   `yaml:"filename,omitempty" mapstructure:"filename"`
	PublicPath *string  `yaml:"publicPath,omitempty" mapstructure:"publicPath"`
	Scripts    []string `yaml:"scripts,omitempty" mapstructure:"scripts"`
}

// Project defaults.
const (
	DefaultContext      = "."
	DefaultOutput       = "dist"
	DefaultHTMLFilename = "index.html"
)

// SetDefaults registers project defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("context", DefaultContext)
	v.SetDefault("output", DefaultOutput)
}

// Load reads the project from the global viper instance.
func Load() (*Project, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom decodes a project from v and validates every bundle.
func LoadFrom(v *viper.Viper) (*Project, error) {
	var project Project

	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		minifyOptionsHook,
		publicPathHook,
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&project, hooks); err != nil {
		return nil, cerrors.NewConfigError(cerrors.ErrCodeConfigInvalid, "cannot decode configuration").
			WithContext("cause", err.Error())
	}

	if err := project.normalize(); err != nil {
		return nil, err
	}

	return &project, nil
}

// Parse decodes a project from YAML bytes.
func Parse(data []byte) (*Project, error) {
	var project Project
	if err := yaml.Unmarshal(data, &project); err != nil {
		return nil, cerrors.NewConfigError(cerrors.ErrCodeConfigInvalid, "cannot parse configuration: "+err.Error())
	}
	if err := project.normalize(); err != nil {
		return nil, err
	}

	return &project, nil
}

// ParseFile reads and decodes a project file.
func ParseFile(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cerrors.NewConfigError(cerrors.ErrCodeConfigInvalid, "cannot read configuration").
			WithFile(path).
			WithContext("cause", err.Error())
	}

	return Parse(data)
}

// Marshal renders the project as YAML.
func (p *Project) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}

func (p *Project) normalize() error {
	if p.Context == "" {
		p.Context = DefaultContext
	}
	if p.Output == "" {
		p.Output = DefaultOutput
	}
	if p.HTML != nil && p.HTML.Filename == "" {
		p.HTML.Filename = DefaultHTMLFilename
	}
	if len(p.Bundles) == 0 {
		return cerrors.NewConfigError(cerrors.ErrCodeNoInputs, "configuration defines no bundles")
	}

	seen := make(map[string]bool, len(p.Bundles))
	for i := range p.Bundles {
		bundle, err := New(p.Bundles[i])
		if err != nil {
			return fmt.Errorf("bundles[%d]: %w", i, err)
		}
		if seen[bundle.Name] {
			return cerrors.NewConfigError(cerrors.ErrCodeConfigInvalid,
				fmt.Sprintf("bundles[%d]: duplicate bundle name %q", i, bundle.Name))
		}
		seen[bundle.Name] = true
		p.Bundles[i] = bundle
	}

	return nil
}

var (
	minifyOptionsType = reflect.TypeOf(MinifyOptions{})
	publicPathType    = reflect.TypeOf(PublicPath{})
)

// minifyOptionsHook maps `uglify: true|false|{...}` onto MinifyOptions.
func minifyOptionsHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != minifyOptionsType {
		return data, nil
	}

	switch v := data.(type) {
	case bool:
		return map[string]interface{}{
			"enabled":     v,
			"whitespace":  v,
			"identifiers": v,
			"syntax":      v,
		}, nil
	case map[string]interface{}:
		record := make(map[string]interface{}, len(v)+4)
		for k, val := range v {
			record[strings.ToLower(k)] = val
		}

		enabled := true
		if e, ok := record["enabled"].(bool); ok {
			enabled = e
		}
		record["enabled"] = enabled
		for _, k := range []string{"whitespace", "identifiers", "syntax"} {
			if _, ok := record[k]; !ok {
				record[k] = enabled
			}
		}

		return record, nil
	default:
		return data, nil
	}
}

// publicPathHook maps `publicPath: false|"/prefix"` onto PublicPath.
func publicPathHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != publicPathType {
		return data, nil
	}

	switch v := data.(type) {
	case bool:
		if v {
			return nil, fmt.Errorf("publicPath: true is not a valid value")
		}

		return map[string]interface{}{"set": true, "disabled": true}, nil
	case string:
		return map[string]interface{}{"set": true, "value": v}, nil
	default:
		return data, nil
	}
}
