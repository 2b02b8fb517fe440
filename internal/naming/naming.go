// Package naming turns an output file name template into the final artifact
// name for one generation.
//
// Templates understand [name], [hash] and [hash:N]; [hash:0] is empty. The
// derived name is cached until Invalidate so that every hook asking for the
// name within one generation observes the same value.
package naming

import (
	"path"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/conneroisu/concat/internal/contenthash"
)

// DefaultTemplate is used when no file name template is configured.
const DefaultTemplate = "[name].js"

var (
	nameRe = regexp.MustCompile(`\[name\]`)
	hashRe = regexp.MustCompile(`\[hash(?::(\d+))?\]`)
)

// HasHashPlaceholder reports whether template contains [hash] or [hash:N].
func HasHashPlaceholder(template string) bool {
	return hashRe.MatchString(template)
}

// CountPlaceholders returns the number of [name] and hash placeholders.
func CountPlaceholders(template string) (names, hashes int) {
	return len(nameRe.FindAllStringIndex(template, -1)), len(hashRe.FindAllStringIndex(template, -1))
}

// Engine derives file names for a single plugin instance.
type Engine struct {
	name     string
	template string
	useHash  bool
	hasher   *contenthash.Hasher

	mu     sync.Mutex
	cached string
	valid  bool
}

// NewEngine creates an Engine. hasher may be nil when the template has no
// hash placeholder and useHash is false.
func NewEngine(name, template string, useHash bool, hasher *contenthash.Hasher) *Engine {
	if template == "" {
		template = DefaultTemplate
	}

	return &Engine{
		name:     name,
		template: template,
		useHash:  useHash,
		hasher:   hasher,
	}
}

// Derive returns the file name for content using the configured template.
func (e *Engine) Derive(content []byte) (string, error) {
	return e.DeriveWith(content, e.template)
}

// DeriveWith returns the file name for content using template. Once a name
// has been derived for the current generation it is returned unchanged.
func (e *Engine) DeriveWith(content []byte, template string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.valid {
		return e.cached, nil
	}

	fileName := template
	if e.useHash || HasHashPlaceholder(fileName) {
		if e.hasher == nil {
			h, err := contenthash.New("", "")
			if err != nil {
				return "", err
			}
			e.hasher = h
		}

		digest, err := e.hasher.Sum(content)
		if err != nil {
			return "", err
		}
		fileName = replaceHash(withHashSlot(fileName), digest)
	}

	fileName = replaceFirst(nameRe, fileName, e.name)

	e.cached = fileName
	e.valid = true

	return fileName, nil
}

// Current returns the name derived for this generation, if any.
func (e *Engine) Current() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.cached, e.valid
}

// Invalidate starts a new generation: the next Derive recomputes the hash
// and the name.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	e.valid = false
	if e.hasher != nil {
		e.hasher.Invalidate()
	}
	e.mu.Unlock()
}

// withHashSlot synthesizes a [hash] slot in front of the extension when
// the template has none.
func withHashSlot(template string) string {
	if HasHashPlaceholder(template) {
		return template
	}

	ext := path.Ext(template)
	if ext == "" || ext == template {
		return template + ".[hash]"
	}

	return strings.TrimSuffix(template, ext) + ".[hash]" + ext
}

func replaceHash(template, digest string) string {
	loc := hashRe.FindStringSubmatchIndex(template)
	if loc == nil {
		return template
	}

	length := len(digest)
	if loc[2] >= 0 {
		if n, err := strconv.Atoi(template[loc[2]:loc[3]]); err == nil && n < length {
			length = n
		}
	}

	return template[:loc[0]] + digest[:length] + template[loc[1]:]
}

func replaceFirst(re *regexp.Regexp, s, replacement string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}

	return s[:loc[0]] + replacement + s[loc[1]:]
}
