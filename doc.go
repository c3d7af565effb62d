// Package sshcore implements the core of a minimal SSH 2.0 client: version
// exchange, algorithm negotiation, a Curve25519 key exchange, Ed25519
// host-key verification (opportunistic, trust-on-first-use) and client
// authentication, AES-256-CTR encryption with HMAC-SHA-256 integrity in
// both directions, and a single "session" channel on which one remote
// command is run, with its stdout, stderr, and exit status relayed back to
// the caller.
//
// sshcore offers exactly one algorithm per negotiation category:
//
//	key exchange: curve25519-sha256
//	host key:     ssh-ed25519
//	cipher:       aes256-ctr
//	mac:          hmac-sha2-256
//	compression:  none
//
// It does not implement multiple simultaneous channels, server-mode
// operation, algorithm agility, PTY allocation, compression, or proactive
// rekeying. It consumes the cryptographic primitives (Curve25519, Ed25519,
// SHA-256, AES, HMAC, constant-time comparison, secure randomness) from the
// standard library and golang.org/x/crypto; it does not reimplement them.
//
// The connection is single-threaded and fully synchronous: every operation
// blocks on the underlying Stream, and there is no background reader or
// task scheduler.
package sshcore
