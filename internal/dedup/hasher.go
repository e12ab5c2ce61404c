package dedup

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"
)

const (
	HashSHA256 = "sha256"
	HashMD5    = "md5"
)

type Hasher struct {
	algorithm string
	newHash   func() hash.Hash
}

// NewHasher accepts "sha256" (also the default for "") and "md5".
func NewHasher(algorithm string) (*Hasher, error) {
	switch strings.ToLower(algorithm) {
	case HashSHA256, "":
		return &Hasher{algorithm: HashSHA256, newHash: sha256.New}, nil
	case HashMD5:
		return &Hasher{algorithm: HashMD5, newHash: md5.New}, nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %q", algorithm)
	}
}

func (h *Hasher) Algorithm() string {
	return h.algorithm
}

// ComputeHash hashes parts in order. Parts are length-prefixed so that
// ("ab", "c") and ("a", "bc") differ.
func (h *Hasher) ComputeHash(parts ...string) string {
	sum := h.newHash()
	for _, part := range parts {
		fmt.Fprintf(sum, "%d:%s|", len(part), part)
	}
	return hex.EncodeToString(sum.Sum(nil))
}
