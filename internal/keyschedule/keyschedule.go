// Package keyschedule derives the three session sub-keys from a PAKE
// shared secret, a transport address, and a session timestamp.
package keyschedule

import (
	"encoding/binary"

	"github.com/revery-project/revery/internal/crypto"
)

// versionPrefix domain-separates this derivation from any future
// protocol revision; changing it flips every sub-key.
const versionPrefix = "revery-v0"

const (
	tagAuth       = "authentication"
	tagEncryption = "encryption"
	tagSigning    = "signing"
)

// KeySize is the length in bytes of each derived sub-key.
const KeySize = 32

// Keys holds the three independent sub-keys derived for a session.
// All three must be zeroed together when the owning conversation is
// dropped.
type Keys struct {
	Auth       [KeySize]byte
	Encryption [KeySize]byte
	Signing    [KeySize]byte
}

// Zero overwrites all three keys with zero bytes.
func (k *Keys) Zero() {
	for i := range k.Auth {
		k.Auth[i] = 0
	}
	for i := range k.Encryption {
		k.Encryption[i] = 0
	}
	for i := range k.Signing {
		k.Signing[i] = 0
	}
}

// Derive computes (auth_key, encryption_key, signing_key) from
// (shared_secret, address, timestamp): each sub-key is the 32-byte
// BLAKE3 hash of the version prefix, the shared secret, the address,
// and the little-endian timestamp, followed by that key's domain tag.
func Derive(sharedSecret []byte, address string, timestamp uint64) Keys {
	base := baseInput(sharedSecret, address, timestamp)
	n := len(base)

	var keys Keys
	copy(keys.Auth[:], crypto.Blake3Hash(append(base[:n:n], tagAuth...)))
	copy(keys.Encryption[:], crypto.Blake3Hash(append(base[:n:n], tagEncryption...)))
	copy(keys.Signing[:], crypto.Blake3Hash(append(base[:n:n], tagSigning...)))
	return keys
}

// baseInput concatenates the input every sub-key hash starts with.
// Hashing base‖tag in one pass gives the same digest as absorbing
// base into an incremental hasher, cloning it, and appending the tag,
// so no hasher cloning is needed. Every sub-key depends on every one
// of shared_secret/address/timestamp/version, and changing any of
// them flips all three.
func baseInput(sharedSecret []byte, address string, timestamp uint64) []byte {
	var tsBuf [8]byte
	binary.LittleEndian.PutUint64(tsBuf[:], timestamp)

	material := make([]byte, 0, len(versionPrefix)+len(sharedSecret)+len(address)+len(tsBuf))
	material = append(material, versionPrefix...)
	material = append(material, sharedSecret...)
	material = append(material, address...)
	material = append(material, tsBuf[:]...)

	return material
}
