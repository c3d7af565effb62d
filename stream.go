package sshcore

import "time"

// Stream is the opaque duplex byte stream this core treats as its
// transport (spec §1 "the underlying reliable byte stream" — an excluded
// collaborator). Any socket-like type satisfies it; net.Conn does.
type Stream interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetReadDeadline(t time.Time) error
}
