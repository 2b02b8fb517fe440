package sourcemap

import (
	"errors"
	"fmt"
	"strings"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

const (
	vlqShift        = 5
	vlqContinuation = 1 << vlqShift
	vlqMask         = vlqContinuation - 1
)

var errVLQOverflow = errors.New("vlq value overflows int")

var decodeTable = func() [256]int8 {
	var table [256]int8
	for i := range table {
		table[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		table[alphabet[i]] = int8(i)
	}

	return table
}()

// segment is one decoded mapping. source and name are -1 when absent.
type segment struct {
	genCol  int
	source  int
	srcLine int
	srcCol  int
	name    int
}

func appendVLQ(dst []byte, value int) []byte {
	u := value << 1
	if value < 0 {
		u = (-value << 1) | 1
	}

	for {
		digit := u & vlqMask
		u >>= vlqShift
		if u > 0 {
			digit |= vlqContinuation
		}
		dst = append(dst, alphabet[digit])
		if u == 0 {
			return dst
		}
	}
}

func decodeField(field string) ([]int, error) {
	values := make([]int, 0, 5)

	for pos := 0; pos < len(field); {
		result, shift := 0, 0
		for {
			if pos >= len(field) {
				return nil, fmt.Errorf("truncated vlq in %q", field)
			}
			digit := decodeTable[field[pos]]
			if digit < 0 {
				return nil, fmt.Errorf("invalid base64 character %q in %q", field[pos], field)
			}
			pos++

			result |= int(digit&vlqMask) << shift
			if digit&vlqContinuation == 0 {
				break
			}
			shift += vlqShift
			if shift > 60 {
				return nil, errVLQOverflow
			}
		}

		if result&1 == 1 {
			values = append(values, -(result >> 1))
		} else {
			values = append(values, result>>1)
		}
	}

	return values, nil
}

// decodeMappings expands a mappings string into absolute segments, one slice
// per generated line.
func decodeMappings(mappings string) ([][]segment, error) {
	var (
		lines                   [][]segment
		source, srcLine, srcCol int
		name                    int
	)

	for _, line := range strings.Split(mappings, ";") {
		var segs []segment
		genCol := 0

		for _, field := range strings.Split(line, ",") {
			if field == "" {
				continue
			}

			values, err := decodeField(field)
			if err != nil {
				return nil, err
			}

			switch len(values) {
			case 1, 4, 5:
			default:
				return nil, fmt.Errorf("segment %q has %d fields", field, len(values))
			}

			genCol += values[0]
			seg := segment{genCol: genCol, source: -1, name: -1}

			if len(values) >= 4 {
				source += values[1]
				srcLine += values[2]
				srcCol += values[3]
				seg.source, seg.srcLine, seg.srcCol = source, srcLine, srcCol
			}
			if len(values) == 5 {
				name += values[4]
				seg.name = name
			}

			segs = append(segs, seg)
		}

		lines = append(lines, segs)
	}

	return lines, nil
}

func encodeMappings(lines [][]segment) string {
	var (
		buf                     []byte
		source, srcLine, srcCol int
		name                    int
	)

	for i, segs := range lines {
		if i > 0 {
			buf = append(buf, ';')
		}

		genCol := 0
		for j, seg := range segs {
			if j > 0 {
				buf = append(buf, ',')
			}

			buf = appendVLQ(buf, seg.genCol-genCol)
			genCol = seg.genCol

			if seg.source < 0 {
				continue
			}
			buf = appendVLQ(buf, seg.source-source)
			buf = appendVLQ(buf, seg.srcLine-srcLine)
			buf = appendVLQ(buf, seg.srcCol-srcCol)
			source, srcLine, srcCol = seg.source, seg.srcLine, seg.srcCol

			if seg.name < 0 {
				continue
			}
			buf = appendVLQ(buf, seg.name-name)
			name = seg.name
		}
	}

	return string(buf)
}
