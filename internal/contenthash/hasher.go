// Package contenthash computes the digest used to fingerprint a combined
// artifact. The digest depends on the concatenated bytes only.
package contenthash

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"hash"
	"sort"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"

	cerrors "github.com/conneroisu/concat/internal/errors"
)

// Supported algorithms.
const (
	MD5      = "md5"
	SHA1     = "sha1"
	SHA256   = "sha256"
	SHA512   = "sha512"
	XXHash64 = "xxhash64"
)

// Supported digest encodings.
const (
	Hex    = "hex"
	Base64 = "base64"
)

var algorithms = map[string]func() hash.Hash{
	MD5:      md5.New,
	SHA1:     sha1.New,
	SHA256:   sha256.New,
	SHA512:   sha512.New,
	XXHash64: func() hash.Hash { return xxhash.New() },
}

// urlSafe replaces the characters of standard base64 that are unsafe in
// file names and URLs. Padding is dropped.
var urlSafe = strings.NewReplacer("/", "_", "+", "-", "=", "")

// Algorithms lists the accepted algorithm names in sorted order.
func Algorithms() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// ValidateAlgorithm reports whether name is a supported hash function.
func ValidateAlgorithm(name string) error {
	if _, ok := algorithms[name]; !ok {
		return cerrors.NewConfigError(cerrors.ErrCodeUnsupportedHash,
			"unsupported hashFunction "+name+" (want one of "+strings.Join(Algorithms(), ", ")+")")
	}

	return nil
}

// ValidateDigest reports whether name is a supported digest encoding.
func ValidateDigest(name string) error {
	if name != Hex && name != Base64 {
		return cerrors.NewConfigError(cerrors.ErrCodeUnsupportedDigest,
			"unsupported hashDigest "+name+" (want hex or base64)")
	}

	return nil
}

// Sum hashes content with the named algorithm and encodes it with the named
// digest. base64 output is made URL and filesystem safe.
func Sum(content []byte, algorithm, digest string) (string, error) {
	if err := ValidateAlgorithm(algorithm); err != nil {
		return "", err
	}
	if err := ValidateDigest(digest); err != nil {
		return "", err
	}

	h := algorithms[algorithm]()
	h.Write(content)
	sum := h.Sum(nil)

	if digest == Base64 {
		return urlSafe.Replace(base64.StdEncoding.EncodeToString(sum)), nil
	}

	return hex.EncodeToString(sum), nil
}

// Hasher caches the digest of the current generation. Invalidate must be
// called whenever a rebuild produces new content.
type Hasher struct {
	algorithm string
	digest    string

	mu     sync.Mutex
	cached string
	valid  bool
}

// New creates a Hasher. Empty names fall back to md5 and hex.
func New(algorithm, digest string) (*Hasher, error) {
	if algorithm == "" {
		algorithm = MD5
	}
	if digest == "" {
		digest = Hex
	}
	if err := ValidateAlgorithm(algorithm); err != nil {
		return nil, err
	}
	if err := ValidateDigest(digest); err != nil {
		return nil, err
	}

	return &Hasher{algorithm: algorithm, digest: digest}, nil
}

// Sum returns the digest of content, or the cached digest of this generation.
func (h *Hasher) Sum(content []byte) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.valid {
		return h.cached, nil
	}

	sum, err := Sum(content, h.algorithm, h.digest)
	if err != nil {
		return "", err
	}
	h.cached = sum
	h.valid = true

	return sum, nil
}

// Invalidate drops the cached digest.
func (h *Hasher) Invalidate() {
	h.mu.Lock()
	h.valid = false
	h.cached = ""
	h.mu.Unlock()
}
