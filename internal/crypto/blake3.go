// Package crypto provides the BLAKE3 hashing and keyed-MAC primitives
// shared by the PAKE, key schedule, and message codec layers.
package crypto

import (
	"lukechampine.com/blake3"
)

// Blake3Hash computes a standard 32-byte BLAKE3 hash of data.
func Blake3Hash(data []byte) []byte {
	h := blake3.Sum256(data)
	return h[:]
}

// Blake3HashSize computes a BLAKE3 hash of data at an arbitrary output
// size, using BLAKE3's native extendable-output mode.
func Blake3HashSize(data []byte, size int) []byte {
	h := blake3.New(size, nil)
	h.Write(data)
	return h.Sum(nil)
}

// Blake3DeriveKey derives a size-byte key from material, domain-separated
// by context. Distinct contexts over the same material always yield
// independent outputs.
func Blake3DeriveKey(context string, material []byte, size int) []byte {
	h := blake3.New(size, nil)
	h.Write([]byte(context))
	h.Write(material)
	return h.Sum(nil)
}

// Blake3MAC computes a 32-byte keyed MAC over message under key.
func Blake3MAC(key, message []byte) []byte {
	h := blake3.New(32, key)
	h.Write(message)
	return h.Sum(nil)
}
