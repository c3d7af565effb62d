package sshcore

// Identity loading is deliberately minimal: spec §1 excludes "key-pair
// generation and OpenSSH-format public-key text encoding" as a caller-side
// collaborator, and this core "only consumes the signing primitive." An
// identity file here is the raw 32-byte Ed25519 seed (the same bytes
// ed25519.GenerateKey's second return value would produce); parsing the
// full OpenSSH private-key container format belongs to that excluded
// collaborator, not to this repository.

import (
	"crypto/ed25519"
	"fmt"
	"os"
)

// LoadIdentity reads a raw 32-byte Ed25519 seed from path and expands it
// into a signing key.
func LoadIdentity(path string) (ed25519.PrivateKey, error) {
	seed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sshcore: reading identity file: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("sshcore: identity file must contain exactly %d raw seed bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}
