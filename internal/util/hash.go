//nolint:revive // util is a common package name for shared utilities
package util

import (
	"bytes"
	"crypto/sha1" //nolint:gosec // upstream manifests publish SHA-1 digests
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// HashAlgorithm selects the digest used to verify downloads
type HashAlgorithm int

const (
	HashNone HashAlgorithm = iota
	HashSHA1
	HashSHA256
)

func (a HashAlgorithm) String() string {
	switch a {
	case HashSHA1:
		return "sha1"
	case HashSHA256:
		return "sha256"
	default:
		return "none"
	}
}

func (a HashAlgorithm) newHash() hash.Hash {
	switch a {
	case HashSHA1:
		return sha1.New() //nolint:gosec // integrity check only
	case HashSHA256:
		return sha256.New()
	default:
		return nil
	}
}

// ComputeHash digests r with alg. HashNone yields a nil digest.
func ComputeHash(r io.Reader, alg HashAlgorithm) ([]byte, error) {
	h := alg.newHash()
	if h == nil {
		return nil, nil
	}
	if _, err := io.Copy(h, r); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

// ComputeFileHash digests the file at path
func ComputeFileHash(path string, alg HashAlgorithm) ([]byte, error) {
	f, err := os.Open(path) //nolint:gosec // path is produced by the downloader
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ComputeHash(f, alg)
}

// HexToBytes decodes a hex digest, tolerating surrounding whitespace and the
// "<digest>  <filename>" layout of Maven checksum sidecars.
func HexToBytes(s string) ([]byte, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty digest")
	}
	b, err := hex.DecodeString(strings.ToLower(fields[0]))
	if err != nil {
		return nil, fmt.Errorf("invalid digest %q: %w", fields[0], err)
	}
	return b, nil
}

// HashEqual reports whether two digests match
func HashEqual(a, b []byte) bool {
	return len(a) > 0 && bytes.Equal(a, b)
}
