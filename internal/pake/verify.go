package pake

import (
	"crypto/subtle"

	"github.com/revery-project/revery/internal/crypto"
	"github.com/revery-project/revery/internal/revery"
)

// Verification is the mutual-challenge message exchanged after both
// sides have derived a key schedule but before any chat traffic: each
// side sends Challenge(auth_key) and checks the peer's challenge
// against its own. Operating on the *derived* auth_key, rather than
// the raw PAKE shared secret, keeps this check bound to the specific
// session (address + timestamp) the key schedule mixed in.
type Verification struct {
	ChallengeHash []byte
}

// Challenge computes the challenge both sides send during mutual
// verification.
func Challenge(authKey [32]byte) Verification {
	return Verification{ChallengeHash: crypto.Blake3MAC(authKey[:], []byte("revery-auth-challenge"))}
}

// VerifyChallenge checks a peer's challenge against the challenge this
// side computes from its own auth_key. Comparison is constant-time so
// a byte-by-byte timing side channel can't leak which prefix of the
// challenge an attacker has already guessed. A mismatch reports
// InvalidState, not AuthenticationFailed: by this point the PAKE
// itself already completed without error on both sides (a wrong
// password only surfaces here, once the derived auth_key disagrees).
func VerifyChallenge(authKey [32]byte, peer Verification) error {
	want := Challenge(authKey)
	if subtle.ConstantTimeCompare(want.ChallengeHash, peer.ChallengeHash) != 1 {
		return revery.New(revery.KindInvalidState, nil)
	}
	return nil
}

// VerifyChallengeHash is VerifyChallenge for callers that have already
// computed their own Verification (e.g. to send it before checking the
// peer's, per the host's send-then-receive ordering).
func VerifyChallengeHash(ours, peer Verification) error {
	if subtle.ConstantTimeCompare(ours.ChallengeHash, peer.ChallengeHash) != 1 {
		return revery.New(revery.KindInvalidState, nil)
	}
	return nil
}
