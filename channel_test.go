package sshcore

import (
	"bytes"
	"net"
	"testing"
)

func newTestConnectionPair(t *testing.T) (*Connection, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { client.Close(); server.Close() })
	c := &Connection{
		stream: client,
		log:    newDefaultLogger(),
		ch: &channelState{
			localID:        0,
			remoteID:       0,
			localWindow:    initialWindowSize,
			localMaxPacket: localMaxPacketSize,
			remoteWindow:   initialWindowSize,
		},
	}
	return c, server
}

// verify that a data packet arriving after CHANNEL_EOF is rejected as a
// protocol violation, per spec §3 invariant 6.
func TestAcceptChannelDataAfterEOFRejected(t *testing.T) {
	c, server := newTestConnectionPair(t)
	go discardReads(server)
	c.ch.eofReceived = true

	var buf bytes.Buffer
	if err := c.acceptChannelData(&buf, 10); err == nil {
		t.Fatal("acceptChannelData accepted a data packet after CHANNEL_EOF")
	}
}

// verify that a data packet larger than local_window is rejected rather
// than underflowing the window counter.
func TestAcceptChannelDataWindowUnderflowRejected(t *testing.T) {
	c, server := newTestConnectionPair(t)
	go discardReads(server)
	c.ch.localWindow = 4

	var buf bytes.Buffer
	if err := c.acceptChannelData(&buf, 100); err == nil {
		t.Fatal("acceptChannelData accepted a packet that would underflow local_window")
	}
}

// verify that local_window is replenished with a CHANNEL_WINDOW_ADJUST once
// it drops below half of its initial size.
func TestAcceptChannelDataRefillsWindow(t *testing.T) {
	c, server := newTestConnectionPair(t)

	recvErr := make(chan error, 1)
	var adj *channelWindowAdjustMsg
	go func() {
		rx := &direction{}
		packet, err := rx.readPacket(server)
		if err != nil {
			recvErr <- err
			return
		}
		adj, err = parseChannelWindowAdjustMsg(packet)
		recvErr <- err
	}()

	c.ch.localWindow = 1 // force below windowRefillThreshold
	consumed := uint32(1)
	if err := c.acceptChannelData(&c.ch.stdout, consumed); err != nil {
		t.Fatalf("acceptChannelData: %v", err)
	}
	if err := <-recvErr; err != nil {
		t.Fatalf("reading window-adjust packet: %v", err)
	}
	if adj == nil {
		t.Fatal("no CHANNEL_WINDOW_ADJUST was sent")
	}
	if c.ch.localWindow != initialWindowSize {
		t.Fatalf("localWindow = %d after refill, want %d", c.ch.localWindow, initialWindowSize)
	}
}

// verify that handleChannelRequest records an exit-status request without
// treating it as terminal for the relay loop.
func TestHandleChannelRequestExitStatus(t *testing.T) {
	c, server := newTestConnectionPair(t)
	go discardReads(server)

	payload := []byte{msgChannelRequest}
	payload = putUint32(payload, 0)
	payload = putString(payload, []byte("exit-status"))
	payload = putBool(payload, false)
	payload = putUint32(payload, 0)

	terminal, err := c.handleChannelRequest(payload)
	if err != nil {
		t.Fatalf("handleChannelRequest: %v", err)
	}
	if terminal {
		t.Fatal("exit-status reported as terminal")
	}
	if c.ch.exitStatus == nil || *c.ch.exitStatus != 0 {
		t.Fatalf("exitStatus = %v, want 0", c.ch.exitStatus)
	}
}

// verify that handleChannelRequest records an exit-signal request and
// reports it as terminal.
func TestHandleChannelRequestExitSignal(t *testing.T) {
	c, server := newTestConnectionPair(t)
	go discardReads(server)

	payload := []byte{msgChannelRequest}
	payload = putUint32(payload, 0)
	payload = putString(payload, []byte("exit-signal"))
	payload = putBool(payload, false)
	payload = putString(payload, []byte("TERM"))
	payload = putBool(payload, false)
	payload = putString(payload, nil)
	payload = putString(payload, nil)

	terminal, err := c.handleChannelRequest(payload)
	if err != nil {
		t.Fatalf("handleChannelRequest: %v", err)
	}
	if !terminal {
		t.Fatal("exit-signal not reported as terminal")
	}
	if c.ch.exitSignal != "TERM" {
		t.Fatalf("exitSignal = %q, want %q", c.ch.exitSignal, "TERM")
	}
}

// verify that an unrecognized request type with want_reply set gets a
// CHANNEL_FAILURE response.
func TestHandleChannelRequestUnknownSendsFailure(t *testing.T) {
	c, server := newTestConnectionPair(t)

	recvErr := make(chan error, 1)
	go func() {
		rx := &direction{}
		packet, err := rx.readPacket(server)
		if err != nil {
			recvErr <- err
			return
		}
		if len(packet) < 1 || packet[0] != msgChannelFailure {
			recvErr <- &ProtocolError{Detail: "expected CHANNEL_FAILURE"}
			return
		}
		recvErr <- nil
	}()

	payload := []byte{msgChannelRequest}
	payload = putUint32(payload, 0)
	payload = putString(payload, []byte("pty-req"))
	payload = putBool(payload, true)

	if _, err := c.handleChannelRequest(payload); err != nil {
		t.Fatalf("handleChannelRequest: %v", err)
	}
	if err := <-recvErr; err != nil {
		t.Fatalf("expected a CHANNEL_FAILURE reply: %v", err)
	}
}

func discardReads(conn net.Conn) {
	buf := make([]byte, 4096)
	for {
		if _, err := conn.Read(buf); err != nil {
			return
		}
	}
}
