package sshcore

// Connection façade (spec §4.6): the single entry point, wrapping the
// transport handshake and authentication inline in the constructor, and
// exposing Run and MutateStream as the only subsequent operations.

import (
	"crypto/ed25519"
	"time"

	"github.com/sirupsen/logrus"
)

// Credentials are supplied by the caller (spec §3 "Credentials"). Signer is
// an Ed25519 signing key whose Public() half is sent as the client's
// authentication public key; key-pair generation and OpenSSH-format public
// key rendering are an excluded collaborator (spec §1).
type Credentials struct {
	Username string
	Signer   ed25519.PrivateKey
}

func (cr Credentials) publicKey() ed25519.PublicKey {
	return cr.Signer.Public().(ed25519.PublicKey)
}

// RunResult is returned by Run (spec §6). ExitSignal is a SPEC_FULL
// addition: the spec's exported surface has no field for the exit-signal
// channel request spec §4.5 step 3 requires this core to observe, so it is
// added here rather than silently discarded.
type RunResult struct {
	Stdout     []byte
	Stderr     []byte
	ExitStatus *uint32
	ExitSignal string
}

// Option configures a Connection at construction time.
type Option func(*Connection)

// WithLogger injects a logrus.FieldLogger for handshake/auth/channel
// tracing. The default is a logrus.New() logger at Info level.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Connection) { c.log = l }
}

// WithReadTimeout sets the underlying stream's read deadline to d after the
// moment New is called (spec §5 "Suspension points"). The deadline is set
// once and is not renewed per read: it covers the handshake, authentication
// and any later Run together, and a read still blocked when it passes fails
// with an *IOError. MutateStream can move it. Zero (the default) leaves the
// stream's existing deadline untouched.
func WithReadTimeout(d time.Duration) Option {
	return func(c *Connection) { c.readTimeout = d }
}

// WithMetrics attaches a Metrics recorder; nil (the default) disables
// metrics recording entirely.
func WithMetrics(m *Metrics) Option {
	return func(c *Connection) { c.metrics = m }
}

// Connection is the SSH client state machine (spec §3 "Connection state").
// It strictly owns stream and, between CHANNEL_OPEN and CHANNEL_CLOSE, the
// single channel state — no cyclic references, no shared resources (spec
// §9).
type Connection struct {
	stream Stream
	log    logrus.FieldLogger
	metrics *Metrics

	readTimeout time.Duration

	clientIdent []byte
	serverIdent []byte

	tx direction
	rx direction

	sessionID []byte

	creds Credentials

	ch  *channelState
	ran bool
}

// New performs the full transport handshake and publickey authentication
// before returning, per spec §4.6: a Connection is never returned
// unauthenticated.
func New(stream Stream, creds Credentials, opts ...Option) (*Connection, error) {
	c := &Connection{
		stream: stream,
		log:    newDefaultLogger(),
		creds:  creds,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.readTimeout > 0 {
		if err := stream.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return nil, &IOError{Op: "set read deadline", Err: err}
		}
	}

	if err := c.handshake(); err != nil {
		c.log.WithError(err).Error("transport handshake failed")
		return nil, err
	}
	if err := c.authenticate(); err != nil {
		c.log.WithError(err).Error("authentication failed")
		return nil, err
	}
	c.log.Info("ssh connection established")
	return c, nil
}

// MutateStream gives the caller scoped mutable access to the underlying
// stream, primarily to adjust read-deadlines between calls (spec §4.6,
// §6).
func (c *Connection) MutateStream(f func(Stream) error) error {
	return f(c.stream)
}

// Run opens a fresh session channel, execs command, and relays its output
// (spec §4.5, §4.6). Only one Run call is supported per Connection; a
// second call is a usage error (spec §9 Open Question (a), decided in
// SPEC_FULL.md).
func (c *Connection) Run(command string) (*RunResult, error) {
	if c.ran {
		return nil, ErrConnectionAlreadyRun
	}
	c.ran = true

	if err := c.openChannel(); err != nil {
		return nil, err
	}
	if err := c.execCommand(command); err != nil {
		return nil, err
	}
	return c.relayLoop()
}
