package sshcore

// Small helpers around stdlib primitives. The primitives themselves
// (Curve25519 scalar multiply, Ed25519, SHA-256, AES, HMAC, constant-time
// compare, secure randomness) are explicitly out of this core's scope per
// spec §1 — this file only orchestrates them the way spec §4 requires.

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
)

// newAESCTR builds the AES-256-CTR keystream context for one direction
// (spec §3 "cipher_tx/cipher_rx"): a 32-byte key and a 128-bit counter
// seeded from the derived IV. The returned cipher.Stream carries its
// counter across every subsequent packet in that direction, exactly as
// spec §4.1 describes ("cipher_tx/cipher_rx... key + 128-bit counter").
func newAESCTR(key, iv []byte) (cipher.Stream, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &CryptoError{Detail: "AES-256 key setup failed: " + err.Error()}
	}
	return cipher.NewCTR(block, iv), nil
}

// hostKeyFingerprint renders an OpenSSH-style SHA256 fingerprint of a host
// key, given its SSH wire-encoded key blob, for the trust-on-first-use log
// line spec §4.3's note calls for. It is a logging convenience, not part of
// the wire protocol.
func hostKeyFingerprint(pub []byte) string {
	sum := sha256.Sum256(pub)
	return "SHA256:" + base64.RawStdEncoding.EncodeToString(sum[:])
}
