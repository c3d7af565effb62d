package sshcore

import (
	"bytes"
	"testing"
)

// verify that a server offering a key-exchange algorithm other than
// curve25519-sha256 first fails negotiation, per spec §8 scenario 2, before
// any keys are installed.
func TestCheckNegotiationKexMismatch(t *testing.T) {
	client := &kexInitMsg{
		KexAlgos:                []string{kexAlgoCurve25519},
		ServerHostKeyAlgos:      []string{hostKeyAlgoEd25519},
		CiphersClientServer:     []string{cipherAlgoAES256CTR},
		CiphersServerClient:     []string{cipherAlgoAES256CTR},
		MACsClientServer:        []string{macAlgoHMACSHA256},
		MACsServerClient:        []string{macAlgoHMACSHA256},
		CompressionClientServer: []string{compressionNone},
		CompressionServerClient: []string{compressionNone},
	}
	server := &kexInitMsg{
		KexAlgos:                []string{"diffie-hellman-group14-sha256", kexAlgoCurve25519},
		ServerHostKeyAlgos:      []string{hostKeyAlgoEd25519},
		CiphersClientServer:     []string{cipherAlgoAES256CTR},
		CiphersServerClient:     []string{cipherAlgoAES256CTR},
		MACsClientServer:        []string{macAlgoHMACSHA256},
		MACsServerClient:        []string{macAlgoHMACSHA256},
		CompressionClientServer: []string{compressionNone},
		CompressionServerClient: []string{compressionNone},
	}
	err := checkNegotiation(client, server)
	if err == nil {
		t.Fatal("checkNegotiation accepted a server whose first kex preference differs from the client's offer")
	}
	negErr, ok := err.(*NegotiationError)
	if !ok {
		t.Fatalf("checkNegotiation returned %T, want *NegotiationError", err)
	}
	if negErr.List != "kex" {
		t.Fatalf("NegotiationError.List = %q, want %q", negErr.List, "kex")
	}
}

// verify that matching single-element lists on every negotiated category
// succeed.
func TestCheckNegotiationMatch(t *testing.T) {
	m := &kexInitMsg{
		KexAlgos:                []string{kexAlgoCurve25519},
		ServerHostKeyAlgos:      []string{hostKeyAlgoEd25519},
		CiphersClientServer:     []string{cipherAlgoAES256CTR},
		CiphersServerClient:     []string{cipherAlgoAES256CTR},
		MACsClientServer:        []string{macAlgoHMACSHA256},
		MACsServerClient:        []string{macAlgoHMACSHA256},
		CompressionClientServer: []string{compressionNone},
		CompressionServerClient: []string{compressionNone},
	}
	if err := checkNegotiation(m, m); err != nil {
		t.Fatalf("checkNegotiation rejected identical offers: %v", err)
	}
}

// verify that deriveKey is deterministic: the same (mpintK, H, sessionID,
// letter, length) inputs always produce the same output, which the NEWKEYS
// barrier relies on to derive identical keys for both call sites.
func TestDeriveKeyDeterministic(t *testing.T) {
	mpintK := []byte{0x01, 0x02, 0x03}
	h := []byte{0xaa, 0xbb, 0xcc}
	sessionID := []byte{0xde, 0xad, 0xbe, 0xef}

	a := deriveKey(mpintK, h, sessionID, 'A', 32)
	b := deriveKey(mpintK, h, sessionID, 'A', 32)
	if !bytes.Equal(a, b) {
		t.Fatal("deriveKey is not deterministic for identical inputs")
	}

	c := deriveKey(mpintK, h, sessionID, 'B', 32)
	if bytes.Equal(a, c) {
		t.Fatal("deriveKey produced identical output for different letters")
	}
}

// verify that deriveKey extends past one SHA-256 block when asked for more
// than 32 bytes (spec §4.3 step 5's iterative scheme).
func TestDeriveKeyExtends(t *testing.T) {
	mpintK := []byte{0x01}
	h := []byte{0x02}
	sessionID := []byte{0x03}

	out := deriveKey(mpintK, h, sessionID, 'C', 48)
	if len(out) != 48 {
		t.Fatalf("deriveKey returned %d bytes, want 48", len(out))
	}
	first32 := deriveKey(mpintK, h, sessionID, 'C', 32)
	if !bytes.Equal(out[:32], first32) {
		t.Fatal("deriveKey's extended output does not share a prefix with its 32-byte output")
	}
}

// verify that allZero correctly distinguishes an all-zero buffer from one
// with a single nonzero byte, the check kexCurve25519 relies on to reject a
// degenerate Curve25519 shared secret.
func TestAllZero(t *testing.T) {
	if !allZero(make([]byte, 32)) {
		t.Fatal("allZero(32 zero bytes) = false, want true")
	}
	withOne := make([]byte, 32)
	withOne[31] = 1
	if allZero(withOne) {
		t.Fatal("allZero reported true for a buffer with a nonzero byte")
	}
}
