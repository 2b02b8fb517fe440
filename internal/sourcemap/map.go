// Package sourcemap reads, builds and writes version 3 source maps.
//
// Only the subset needed to concatenate fragments is implemented: indexed
// maps with sections are rejected, and generated columns are counted in
// UTF-16 code units as the format requires.
package sourcemap

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DataURLPrefix starts an inline source map reference.
const DataURLPrefix = "data:application/json;base64,"

// ErrUnsupported is returned for maps this package cannot combine.
var ErrUnsupported = errors.New("unsupported source map")

// Map is the JSON form of a version 3 source map.
type Map struct {
	Version        int      `json:"version"`
	File           string   `json:"file,omitempty"`
	SourceRoot     string   `json:"sourceRoot,omitempty"`
	Sources        []string `json:"sources"`
	SourcesContent []string `json:"sourcesContent,omitempty"`
	Names          []string `json:"names"`
	Mappings       string   `json:"mappings"`
}

// Parse decodes and validates a source map.
func Parse(data []byte) (*Map, error) {
	var raw struct {
		Map
		Sections json.RawMessage `json:"sections"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode source map: %w", err)
	}

	if len(raw.Sections) > 0 {
		return nil, fmt.Errorf("%w: indexed map", ErrUnsupported)
	}
	if raw.Version != 3 {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupported, raw.Version)
	}

	m := raw.Map
	if err := m.validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// ParseDataURL decodes the payload of an inline base64 reference. The
// DataURLPrefix is optional.
func ParseDataURL(url string) (*Map, error) {
	payload := strings.TrimPrefix(url, DataURLPrefix)

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, fmt.Errorf("decode inline source map: %w", err)
		}
	}

	return Parse(data)
}

// Marshal encodes the map as JSON.
func (m *Map) Marshal() ([]byte, error) {
	out := *m
	if out.Sources == nil {
		out.Sources = []string{}
	}
	if out.Names == nil {
		out.Names = []string{}
	}

	return json.Marshal(&out)
}

// DataURL returns the map as an inline base64 reference.
func (m *Map) DataURL() (string, error) {
	data, err := m.Marshal()
	if err != nil {
		return "", err
	}

	return DataURLPrefix + base64.StdEncoding.EncodeToString(data), nil
}

// SourcePath returns source i with the source root applied.
func (m *Map) SourcePath(i int) string {
	if m.SourceRoot == "" {
		return m.Sources[i]
	}

	root := m.SourceRoot
	if !strings.HasSuffix(root, "/") {
		root += "/"
	}

	return root + m.Sources[i]
}

// SourceContent returns the embedded content of source i, if any.
func (m *Map) SourceContent(i int) string {
	if i < len(m.SourcesContent) {
		return m.SourcesContent[i]
	}

	return ""
}

func (m *Map) validate() error {
	lines, err := decodeMappings(m.Mappings)
	if err != nil {
		return fmt.Errorf("decode mappings: %w", err)
	}

	return m.checkIndexes(lines)
}

func (m *Map) checkIndexes(lines [][]segment) error {
	for i, segs := range lines {
		for _, seg := range segs {
			if seg.source >= len(m.Sources) || (seg.source < 0 && seg.source != -1) {
				return fmt.Errorf("line %d: source index %d out of range", i+1, seg.source)
			}
			if seg.name >= len(m.Names) || (seg.name < 0 && seg.name != -1) {
				return fmt.Errorf("line %d: name index %d out of range", i+1, seg.name)
			}
			if seg.genCol < 0 || seg.srcLine < 0 || seg.srcCol < 0 {
				return fmt.Errorf("line %d: negative position", i+1)
			}
		}
	}

	return nil
}
