package sourcemap

import (
	"encoding/base64"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVLQ(t *testing.T) {
	testCases := []struct {
		value   int
		encoded string
	}{
		{0, "A"},
		{1, "C"},
		{-1, "D"},
		{15, "e"},
		{16, "gB"},
		{-16, "hB"},
		{123, "2H"},
		{1000, "w+B"},
	}

	for _, tc := range testCases {
		t.Run(tc.encoded, func(t *testing.T) {
			assert.Equal(t, tc.encoded, string(appendVLQ(nil, tc.value)))

			values, err := decodeField(tc.encoded)
			require.NoError(t, err)
			assert.Equal(t, []int{tc.value}, values)
		})
	}
}

func TestVLQRoundTrip(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("decode inverts encode", prop.ForAll(
		func(values []int) bool {
			var buf []byte
			for _, v := range values {
				buf = appendVLQ(buf, v)
			}

			decoded, err := decodeField(string(buf))
			if err != nil {
				return false
			}

			return len(values) == 0 && len(decoded) == 0 || assert.ObjectsAreEqual(values, decoded)
		},
		gen.SliceOf(gen.IntRange(-1<<30, 1<<30)),
	))

	properties.TestingRun(t)
}

func TestDecodeFieldErrors(t *testing.T) {
	_, err := decodeField("g")
	assert.Error(t, err, "continuation without a following digit")

	_, err = decodeField("A!")
	assert.Error(t, err)

	_, err = decodeMappings("AA")
	assert.Error(t, err, "two-field segments are invalid")
}

func TestDecodeMappings(t *testing.T) {
	lines, err := decodeMappings("AAAA,EAAE;AACC;;A")
	require.NoError(t, err)
	require.Len(t, lines, 4)

	assert.Equal(t, []segment{
		{genCol: 0, source: 0, srcLine: 0, srcCol: 0, name: -1},
		{genCol: 2, source: 0, srcLine: 0, srcCol: 2, name: -1},
	}, lines[0])
	assert.Equal(t, []segment{{genCol: 0, source: 0, srcLine: 1, srcCol: 3, name: -1}}, lines[1])
	assert.Empty(t, lines[2])
	assert.Equal(t, []segment{{genCol: 0, source: -1, name: -1}}, lines[3])

	assert.Equal(t, "AAAA,EAAE;AACC;;A", encodeMappings(lines))
}

func TestParse(t *testing.T) {
	m, err := Parse([]byte(`{"version":3,"sources":["a.ts"],"names":["x"],"mappings":"AAAAA","sourcesContent":["let x"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.ts"}, m.Sources)
	assert.Equal(t, "let x", m.SourceContent(0))
	assert.Equal(t, "", m.SourceContent(3))

	testCases := []struct {
		name string
		json string
	}{
		{"not json", `{`},
		{"wrong version", `{"version":2,"sources":[],"names":[],"mappings":""}`},
		{"indexed", `{"version":3,"sections":[{"offset":{"line":0,"column":0}}]}`},
		{"source out of range", `{"version":3,"sources":[],"names":[],"mappings":"AAAA"}`},
		{"name out of range", `{"version":3,"sources":["a"],"names":[],"mappings":"AAAAA"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.json))
			assert.Error(t, err)
		})
	}
}

func TestParseDataURL(t *testing.T) {
	raw := `{"version":3,"sources":["in.js"],"names":[],"mappings":"AAAA"}`

	m, err := ParseDataURL(DataURLPrefix + base64.StdEncoding.EncodeToString([]byte(raw)))
	require.NoError(t, err)
	assert.Equal(t, []string{"in.js"}, m.Sources)

	m, err = ParseDataURL(base64.RawStdEncoding.EncodeToString([]byte(raw)))
	require.NoError(t, err)
	assert.Equal(t, "AAAA", m.Mappings)

	_, err = ParseDataURL("%%%")
	assert.Error(t, err)
}

func TestSourcePath(t *testing.T) {
	m := &Map{SourceRoot: "src", Sources: []string{"a.ts"}}
	assert.Equal(t, "src/a.ts", m.SourcePath(0))

	m.SourceRoot = ""
	assert.Equal(t, "a.ts", m.SourcePath(0))
}

func TestBuilderIdentity(t *testing.T) {
	b := NewBuilder("result.js")
	b.AddIdentity("lib/a.js", "var a=1;")
	b.AddUnmapped("\n")
	b.AddIdentity("lib/b.js", "var b=2;\nvar c=3;\n")

	m := b.Map()
	assert.Equal(t, 3, m.Version)
	assert.Equal(t, "result.js", m.File)
	assert.Equal(t, []string{"lib/a.js", "lib/b.js"}, m.Sources)
	assert.Equal(t, []string{"var a=1;", "var b=2;\nvar c=3;\n"}, m.SourcesContent)
	assert.Equal(t, "AAAA;ACAA;AACA", m.Mappings)
}

func TestBuilderSameLineOffsets(t *testing.T) {
	b := NewBuilder("out.js")
	b.AddIdentity("a.js", "ab")
	b.AddIdentity("b.js", "cd")

	lines, err := decodeMappings(b.Map().Mappings)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0][1].genCol)
	assert.Equal(t, 1, lines[0][1].source)
}

func TestBuilderCountsUTF16Columns(t *testing.T) {
	b := NewBuilder("out.js")
	b.AddUnmapped("é😀")
	b.AddIdentity("a.js", "x")

	lines, err := decodeMappings(b.Map().Mappings)
	require.NoError(t, err)
	assert.Equal(t, 3, lines[0][0].genCol)
}

func TestBuilderMapped(t *testing.T) {
	inner := &Map{
		Version:        3,
		Sources:        []string{"a.ts"},
		SourcesContent: []string{"const a = 1"},
		Names:          []string{"a"},
		Mappings:       "AAAAA;AACA",
	}

	b := NewBuilder("out.js")
	b.AddIdentity("head.js", "head;")
	require.NoError(t, b.AddMapped("var a=1;\na;", inner))
	b.AddIdentity("tail.js", "\ntail;")

	m := b.Map()
	assert.Equal(t, []string{"head.js", "a.ts", "tail.js"}, m.Sources)
	assert.Equal(t, []string{"a"}, m.Names)

	lines, err := decodeMappings(m.Mappings)
	require.NoError(t, err)
	require.Len(t, lines, 3)

	assert.Equal(t, segment{genCol: 5, source: 1, srcLine: 0, srcCol: 0, name: 0}, lines[0][1])
	assert.Equal(t, segment{genCol: 0, source: 1, srcLine: 1, srcCol: 0, name: -1}, lines[1][0])
	assert.Equal(t, segment{genCol: 0, source: 2, srcLine: 1, srcCol: 0, name: -1}, lines[2][0])
}

func TestBuilderMappedRejectsBadMap(t *testing.T) {
	b := NewBuilder("out.js")
	err := b.AddMapped("x", &Map{Version: 3, Mappings: "AAAA"})
	require.Error(t, err)

	assert.Empty(t, b.Map().Sources)
	assert.Equal(t, "", b.Map().Mappings)
}

func TestMarshalAndDataURL(t *testing.T) {
	m := &Map{Version: 3, Mappings: ""}

	data, err := m.Marshal()
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":3,"sources":[],"names":[],"mappings":""}`, string(data))

	url, err := m.DataURL()
	require.NoError(t, err)

	back, err := ParseDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, 3, back.Version)
}
