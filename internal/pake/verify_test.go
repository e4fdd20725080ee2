package pake

import "testing"

func TestChallengeMutualAgreement(t *testing.T) {
	var key [32]byte
	for i := range key {
		key[i] = byte(i)
	}

	peer := Challenge(key)

	if err := VerifyChallenge(key, peer); err != nil {
		t.Fatalf("VerifyChallenge with matching key: %v", err)
	}
}

func TestChallengeRejectsMismatchedKey(t *testing.T) {
	var key1, key2 [32]byte
	for i := range key1 {
		key1[i] = byte(i)
		key2[i] = byte(i + 1)
	}

	peer := Challenge(key2)
	if err := VerifyChallenge(key1, peer); err == nil {
		t.Fatal("expected verification failure with mismatched auth keys")
	}
}
