package sourcemap

import (
	"strings"
	"unicode/utf16"
)

// Builder accumulates the map of a concatenation, one fragment at a time.
// Fragments must be added in output order.
type Builder struct {
	file string

	sources   []string
	contents  []string
	sourceIdx map[string]int
	names     []string
	nameIdx   map[string]int

	lines [][]segment
	line  int
	col   int
}

// NewBuilder creates a Builder for the generated file named file.
func NewBuilder(file string) *Builder {
	return &Builder{
		file:      file,
		sourceIdx: make(map[string]int),
		nameIdx:   make(map[string]int),
	}
}

// AddIdentity appends content that maps line for line onto source.
func (b *Builder) AddIdentity(source, content string) {
	idx := b.addSource(source, content)

	for line, start := 0, 0; ; line++ {
		end := strings.IndexByte(content[start:], '\n')
		text := content[start:]
		if end >= 0 {
			text = content[start : start+end]
		}

		if text != "" {
			col := 0
			if line == 0 {
				col = b.col
			}
			b.add(b.line+line, segment{genCol: col, source: idx, srcLine: line, name: -1})
		}

		if end < 0 {
			break
		}
		start += end + 1
	}

	b.advance(content)
}

// AddMapped appends content whose positions are described by m. On error
// nothing is added.
func (b *Builder) AddMapped(content string, m *Map) error {
	lines, err := decodeMappings(m.Mappings)
	if err != nil {
		return err
	}
	if err := m.checkIndexes(lines); err != nil {
		return err
	}

	sources := make([]int, len(m.Sources))
	for i := range m.Sources {
		sources[i] = b.addSource(m.SourcePath(i), m.SourceContent(i))
	}
	names := make([]int, len(m.Names))
	for i, name := range m.Names {
		names[i] = b.addName(name)
	}

	for i, segs := range lines {
		for _, seg := range segs {
			out := segment{genCol: seg.genCol, source: -1, name: -1}
			if i == 0 {
				out.genCol += b.col
			}
			if seg.source >= 0 {
				out.source = sources[seg.source]
				out.srcLine = seg.srcLine
				out.srcCol = seg.srcCol
			}
			if seg.name >= 0 {
				out.name = names[seg.name]
			}
			b.add(b.line+i, out)
		}
	}

	b.advance(content)

	return nil
}

// AddUnmapped appends content that has no original position, such as a
// separator.
func (b *Builder) AddUnmapped(content string) {
	b.advance(content)
}

// Map returns the accumulated map.
func (b *Builder) Map() *Map {
	lines := b.lines
	for len(lines) > 0 && len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}

	return &Map{
		Version:        3,
		File:           b.file,
		Sources:        append([]string{}, b.sources...),
		SourcesContent: append([]string{}, b.contents...),
		Names:          append([]string{}, b.names...),
		Mappings:       encodeMappings(lines),
	}
}

func (b *Builder) addSource(source, content string) int {
	if idx, ok := b.sourceIdx[source]; ok {
		if b.contents[idx] == "" {
			b.contents[idx] = content
		}

		return idx
	}

	idx := len(b.sources)
	b.sourceIdx[source] = idx
	b.sources = append(b.sources, source)
	b.contents = append(b.contents, content)

	return idx
}

func (b *Builder) addName(name string) int {
	if idx, ok := b.nameIdx[name]; ok {
		return idx
	}

	idx := len(b.names)
	b.nameIdx[name] = idx
	b.names = append(b.names, name)

	return idx
}

func (b *Builder) add(line int, seg segment) {
	for len(b.lines) <= line {
		b.lines = append(b.lines, nil)
	}
	b.lines[line] = append(b.lines[line], seg)
}

func (b *Builder) advance(content string) {
	last := strings.LastIndexByte(content, '\n')
	if last < 0 {
		b.col += utf16Len(content)

		return
	}

	b.line += strings.Count(content, "\n")
	b.col = utf16Len(content[last+1:])
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}

	return n
}
