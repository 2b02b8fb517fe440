package staleness

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestFirstCheckAlwaysChanged(t *testing.T) {
	d := NewAt(epoch)

	current := map[string]time.Time{"/src/a.js": epoch.Add(-time.Hour)}
	assert.True(t, d.HasChanged(current, []string{"/src/a.js"}))
	assert.False(t, d.HasChanged(current, []string{"/src/a.js"}))
}

func TestEmptyTimestampsAlwaysChanged(t *testing.T) {
	d := NewAt(epoch)

	d.HasChanged(map[string]time.Time{"/src/a.js": epoch}, []string{"/src/a.js"})
	assert.True(t, d.HasChanged(nil, []string{"/src/a.js"}))
	assert.True(t, d.HasChanged(map[string]time.Time{}, []string{"/src/a.js"}))
}

func TestHasChanged(t *testing.T) {
	resolved := []string{"/src/a.js", "/src/b.js"}

	testCases := []struct {
		name     string
		prev     map[string]time.Time
		current  map[string]time.Time
		expected bool
	}{
		{
			name:     "unchanged inputs",
			prev:     map[string]time.Time{"/src/a.js": epoch.Add(time.Minute)},
			current:  map[string]time.Time{"/src/a.js": epoch.Add(time.Minute)},
			expected: false,
		},
		{
			name:     "input touched after last check",
			prev:     map[string]time.Time{"/src/a.js": epoch.Add(time.Minute)},
			current:  map[string]time.Time{"/src/a.js": epoch.Add(2 * time.Minute)},
			expected: true,
		},
		{
			name:     "new input newer than construction",
			prev:     map[string]time.Time{"/src/a.js": epoch},
			current:  map[string]time.Time{"/src/b.js": epoch.Add(time.Second)},
			expected: true,
		},
		{
			name:     "new input older than construction",
			prev:     map[string]time.Time{"/src/a.js": epoch},
			current:  map[string]time.Time{"/src/b.js": epoch.Add(-time.Second)},
			expected: false,
		},
		{
			name:     "unrelated file changed",
			prev:     map[string]time.Time{"/src/other.js": epoch},
			current:  map[string]time.Time{"/src/other.js": epoch.Add(time.Hour)},
			expected: false,
		},
		{
			name:     "unknown current timestamp",
			prev:     map[string]time.Time{"/src/a.js": epoch.Add(time.Minute)},
			current:  map[string]time.Time{"/src/a.js": {}},
			expected: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := NewAt(epoch)
			d.HasChanged(tc.prev, resolved)

			assert.Equal(t, tc.expected, d.HasChanged(tc.current, resolved))
		})
	}
}

func TestSnapshotReplacedEveryCall(t *testing.T) {
	d := NewAt(epoch)

	d.HasChanged(map[string]time.Time{"/src/a.js": epoch, "/src/b.js": epoch}, nil)
	d.HasChanged(map[string]time.Time{"/src/c.js": epoch}, nil)

	assert.Equal(t, map[string]time.Time{"/src/c.js": epoch}, d.Snapshot())
}

func TestRepeatedCheckIsClean(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("second identical check reports no change", prop.ForAll(
		func(offsets []int64) bool {
			current := make(map[string]time.Time, len(offsets))
			resolved := make([]string, 0, len(offsets))
			for i, off := range offsets {
				file := "/src/" + string(rune('a'+i%26)) + ".js"
				current[file] = epoch.Add(time.Duration(off) * time.Millisecond)
				resolved = append(resolved, file)
			}

			d := NewAt(epoch)
			d.HasChanged(current, resolved)

			return !d.HasChanged(current, resolved) || len(current) == 0
		},
		gen.SliceOf(gen.Int64Range(1, 1_000_000)),
	))

	properties.TestingRun(t)
}
