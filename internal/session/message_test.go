package session

import (
	"bytes"
	"testing"
)

func testKeys() (encryption, signing [32]byte) {
	for i := range encryption {
		encryption[i] = 0x02
	}
	for i := range signing {
		signing[i] = 0x03
	}
	return
}

func TestMessageEncryptDecryptRoundTrip(t *testing.T) {
	enc, sign := testKeys()

	tests := []struct {
		name      string
		plaintext string
	}{
		{"empty", ""},
		{"short", "hello"},
		{"unicode", "héllo wörld 🎉"},
		{"long", string(bytes.Repeat([]byte("x"), 4096))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Encrypt(1, 1000, ContentText, []byte(tt.plaintext), &enc, &sign)

			if bytes.Equal(m.Payload, []byte(tt.plaintext)) && len(tt.plaintext) > 0 {
				t.Fatal("ciphertext should not equal plaintext")
			}

			got, err := Decrypt(&m, &enc, &sign)
			if err != nil {
				t.Fatalf("Decrypt: %v", err)
			}
			if string(got) != tt.plaintext {
				t.Fatalf("Decrypt() = %q, want %q", got, tt.plaintext)
			}
		})
	}
}

func TestMessageForgeryIndistinguishable(t *testing.T) {
	enc, sign := testKeys()

	original := Encrypt(5, 2000, ContentText, []byte("the real message"), &enc, &sign)
	forged := Encrypt(5, 2000, ContentText, []byte("a completely different message"), &enc, &sign)

	if original.Sequence != forged.Sequence || original.Timestamp != forged.Timestamp {
		t.Fatal("forged message must share sequence and timestamp with the original")
	}
	if len(original.MAC) != len(forged.MAC) {
		t.Fatal("forged MAC must be the same size as a genuine MAC")
	}

	gotOriginal, err := Decrypt(&original, &enc, &sign)
	if err != nil {
		t.Fatalf("decrypt original: %v", err)
	}
	gotForged, err := Decrypt(&forged, &enc, &sign)
	if err != nil {
		t.Fatalf("decrypt forged: %v", err)
	}
	if string(gotOriginal) == string(gotForged) {
		t.Fatal("original and forged plaintexts should differ")
	}
}

func TestHMACPreventsTampering(t *testing.T) {
	enc, sign := testKeys()
	m := Encrypt(1, 1000, ContentText, []byte("don't touch this"), &enc, &sign)

	tampered := m
	tampered.Payload = append([]byte(nil), m.Payload...)
	tampered.Payload[0] ^= 0xFF

	if _, err := Decrypt(&tampered, &enc, &sign); err == nil {
		t.Fatal("expected MAC verification failure after payload tampering")
	}
}

func TestHMACPreventsMetadataTampering(t *testing.T) {
	enc, sign := testKeys()
	m := Encrypt(1, 1000, ContentText, []byte("metadata matters"), &enc, &sign)

	tests := []struct {
		name   string
		mutate func(*Message)
	}{
		{"sequence", func(m *Message) { m.Sequence++ }},
		{"timestamp", func(m *Message) { m.Timestamp++ }},
		{"content_type", func(m *Message) { m.ContentType = ContentImage }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tampered := m
			tt.mutate(&tampered)
			if _, err := Decrypt(&tampered, &enc, &sign); err == nil {
				t.Fatalf("expected MAC verification failure after mutating %s", tt.name)
			}
		})
	}
}

func TestMessageWrongKeyFailsVerification(t *testing.T) {
	enc, sign := testKeys()
	m := Encrypt(1, 1000, ContentText, []byte("secret"), &enc, &sign)

	wrongSign := sign
	wrongSign[0] ^= 0xFF

	if _, err := Decrypt(&m, &enc, &wrongSign); err == nil {
		t.Fatal("expected MAC verification failure with wrong signing key")
	}
}
