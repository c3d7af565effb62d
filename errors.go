package sshcore

import "fmt"

// ProtocolError reports malformed framing, an unexpected message type for
// the connection's current state, or any other violation of the wire
// protocol. It is always fatal: the connection that produced it must not be
// reused.
type ProtocolError struct {
	Detail string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sshcore: protocol violation: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("sshcore: protocol violation: %s", e.Detail)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// CryptoError reports a MAC mismatch, a host-key signature that failed to
// verify, or a zero Curve25519 shared secret. Reported distinctly for
// operator diagnosis, though (per spec §7) never in a way that leaks which
// byte of a MAC or signature actually differed.
type CryptoError struct {
	Detail string
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("sshcore: cryptographic failure: %s", e.Detail)
}

// NegotiationError reports that the server's first preference in some
// KEXINIT name-list did not match the client's sole offer. Occurs before any
// keys are installed.
type NegotiationError struct {
	List           string
	ClientOffered  string
	ServerPrefered string
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("sshcore: negotiation failed for %s: client offered %q, server preferred %q",
		e.List, e.ClientOffered, e.ServerPrefered)
}

// AuthError reports a USERAUTH_FAILURE response.
type AuthError struct {
	Methods        []string
	PartialSuccess bool
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("sshcore: authentication failed, remaining methods %v (partial success: %v)",
		e.Methods, e.PartialSuccess)
}

// DisconnectError reports a DISCONNECT message from the peer.
type DisconnectError struct {
	Reason      uint32
	Description string
}

func (e *DisconnectError) Error() string {
	return fmt.Sprintf("sshcore: remote disconnect (reason %d): %s", e.Reason, e.Description)
}

// ChannelError reports CHANNEL_OPEN_FAILURE or CHANNEL_FAILURE for the one
// exec request this core issues.
type ChannelError struct {
	Detail string
	Reason uint32
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("sshcore: channel failure: %s (reason %d)", e.Detail, e.Reason)
}

// IOError wraps a failure of the underlying byte stream (short read, broken
// pipe, or a read-deadline expiry surfaced by the stream).
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("sshcore: i/o error during %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Usage errors report caller misuse rather than anything on the wire, so
// they are not part of the protocol taxonomy in spec §7. They guard the
// façade's single-use contract (spec §9, Open Question (a)) and report an
// incomplete or invalid CLIConfig.
type usageError string

func (e usageError) Error() string { return string(e) }

// ErrConnectionAlreadyRun is returned by Run when called a second time on
// the same Connection, whether or not the first call succeeded. A second
// call is a usage error, not a protocol retry: decided per spec §9 Open
// Question (a) rather than left ambiguous.
const ErrConnectionAlreadyRun = usageError("sshcore: Run already called on this connection")
