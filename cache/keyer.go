package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
)

// Request discriminators. Each is hashed ahead of the items so that a single
// text, a one-item batch and a name never share a key.
const (
	discriminatorSingle = "single"
	discriminatorBatch  = "batch"
	discriminatorNamed  = "named"
)

// KeyEncoder derives deterministic cache keys from requests.
//
// Contract:
// - Determinism: the same request always produces the same key.
// - Sensitivity: any difference in content, order, or request kind produces
//   a different key. No normalization of case or whitespace is applied.
// - Concurrency: implementations must be safe for concurrent use.
type KeyEncoder interface {
	// EncodeText returns the key for a single text.
	EncodeText(text string) Key

	// EncodeBatch returns the key for an ordered list of texts.
	EncodeBatch(texts []string) Key

	// EncodeNamed returns the key for a named document, such as a
	// definition map.
	EncodeNamed(name string) Key
}

// DefaultKeyEncoder generates SHA-256 based cache keys.
type DefaultKeyEncoder struct{}

// NewKeyEncoder creates a new default key encoder.
func NewKeyEncoder() *DefaultKeyEncoder {
	return &DefaultKeyEncoder{}
}

// EncodeText returns the key for a single text.
func (e *DefaultKeyEncoder) EncodeText(text string) Key {
	return encode(discriminatorSingle, []string{text})
}

// EncodeBatch returns the key for an ordered list of texts.
func (e *DefaultKeyEncoder) EncodeBatch(texts []string) Key {
	return encode(discriminatorBatch, texts)
}

// EncodeNamed returns the key for a named document.
func (e *DefaultKeyEncoder) EncodeNamed(name string) Key {
	return encode(discriminatorNamed, []string{name})
}

// encode hashes the canonical form of a request:
//
//	discriminator | count | len(item0) | item0 | len(item1) | item1 ...
//
// where count and lengths are 8-byte little-endian integers. Length prefixes
// make the encoding unambiguous for any item content.
func encode(discriminator string, items []string) Key {
	h := sha256.New()
	writeLen(h, len(discriminator))
	h.Write([]byte(discriminator))
	writeLen(h, len(items))
	for _, item := range items {
		writeLen(h, len(item))
		h.Write([]byte(item))
	}
	return Key(hex.EncodeToString(h.Sum(nil)))
}

func writeLen(h hash.Hash, n int) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(n))
	h.Write(buf[:])
}

// Ensure DefaultKeyEncoder implements KeyEncoder
var _ KeyEncoder = (*DefaultKeyEncoder)(nil)
