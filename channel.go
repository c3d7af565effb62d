package sshcore

// Channel layer (spec §4.5): opens one "session" channel, execs a single
// command, and relays data/extended-data/window-adjust/request/eof/close
// traffic until the channel closes.

import (
	"bytes"

	"github.com/sirupsen/logrus"
)

const (
	initialWindowSize = 1 << 21 // 2 MiB local flow-control budget.
	localMaxPacketSize = 1 << 15 // 32 KiB, per spec §4.5 step 1.
	windowRefillThreshold = initialWindowSize / 2
)

// channelState is the single-channel state (spec §3 "Channel state"). It
// is created in openChannel and lives only for the duration of one Run
// call; this core never opens a second channel (spec §1 Non-goals).
type channelState struct {
	localID, remoteID             uint32
	localWindow, remoteWindow     uint32
	localMaxPacket, remoteMaxPacket uint32

	stdout, stderr bytes.Buffer

	exitStatus *uint32
	exitSignal string

	eofSent, eofReceived     bool
	closeSent, closeReceived bool
}

func (c *Connection) openChannel() error {
	ch := &channelState{
		localID:        0,
		localWindow:    initialWindowSize,
		localMaxPacket: localMaxPacketSize,
	}
	req := &channelOpenMsg{
		ChanType:      "session",
		SenderChannel: ch.localID,
		WindowSize:    ch.localWindow,
		MaxPacketSize: ch.localMaxPacket,
	}
	if err := c.writePacket(req.marshal()); err != nil {
		return err
	}

	for {
		packet, err := c.readPacket()
		if err != nil {
			return err
		}
		switch packet[0] {
		case msgChannelOpenConfirm:
			confirm, err := parseChannelOpenConfirmMsg(packet)
			if err != nil {
				return err
			}
			ch.remoteID = confirm.SenderChannel
			ch.remoteWindow = confirm.WindowSize
			ch.remoteMaxPacket = confirm.MaxPacketSize
			c.ch = ch
			return nil
		case msgChannelOpenFailure:
			failure, err := parseChannelOpenFailureMsg(packet)
			if err != nil {
				return err
			}
			c.log.WithFields(logrus.Fields{
				"reason":  failure.Reason,
				"message": failure.Message,
			}).Warn("CHANNEL_OPEN_FAILURE")
			return &ChannelError{Detail: "CHANNEL_OPEN_FAILURE: " + failure.Message, Reason: failure.Reason}
		case msgDisconnect:
			return c.disconnectError(packet)
		case msgIgnore, msgDebug:
			continue
		default:
			return &ProtocolError{Detail: "unexpected message awaiting CHANNEL_OPEN_CONFIRMATION"}
		}
	}
}

func (c *Connection) execCommand(command string) error {
	req := &execRequestMsg{RecipientChannel: c.ch.remoteID, Command: command}
	if err := c.writePacket(req.marshal()); err != nil {
		return err
	}
	for {
		packet, err := c.readPacket()
		if err != nil {
			return err
		}
		switch packet[0] {
		case msgChannelSuccess:
			return nil
		case msgChannelFailure:
			c.log.Warn("exec request rejected (CHANNEL_FAILURE)")
			return &ChannelError{Detail: "exec request rejected (CHANNEL_FAILURE)"}
		case msgDisconnect:
			return c.disconnectError(packet)
		case msgIgnore, msgDebug:
			continue
		default:
			return &ProtocolError{Detail: "unexpected message awaiting exec CHANNEL_SUCCESS"}
		}
	}
}

// relayLoop implements spec §4.5 step 3-4. On a remote DISCONNECT, the
// partial output captured so far is returned alongside the error (spec §9
// Open Question (b), decided in SPEC_FULL.md) rather than discarded.
func (c *Connection) relayLoop() (*RunResult, error) {
	ch := c.ch
	for {
		packet, err := c.readPacket()
		if err != nil {
			return c.partialResult(), err
		}

		switch packet[0] {
		case msgChannelData:
			data, err := parseChannelDataMsg(packet)
			if err != nil {
				return c.partialResult(), err
			}
			if err := c.acceptChannelData(&ch.stdout, uint32(len(data.Data))); err != nil {
				return c.partialResult(), err
			}
			ch.stdout.Write(data.Data)
			if c.metrics != nil {
				c.metrics.BytesRelayed.WithLabelValues("stdout").Add(float64(len(data.Data)))
			}

		case msgChannelExtendedData:
			data, err := parseChannelExtendedDataMsg(packet)
			if err != nil {
				return c.partialResult(), err
			}
			if err := c.acceptChannelData(&ch.stderr, uint32(len(data.Data))); err != nil {
				return c.partialResult(), err
			}
			if data.DataTypeCode == 1 {
				ch.stderr.Write(data.Data)
				if c.metrics != nil {
					c.metrics.BytesRelayed.WithLabelValues("stderr").Add(float64(len(data.Data)))
				}
			}

		case msgChannelWindowAdjust:
			adj, err := parseChannelWindowAdjustMsg(packet)
			if err != nil {
				return c.partialResult(), err
			}
			ch.remoteWindow += adj.BytesToAdd

		case msgChannelRequest:
			// exit-signal is "terminal" per spec §4.5 step 3, but the
			// server still owns EOF/CLOSE, so the loop keeps relaying
			// until one of those arrives.
			if _, err := c.handleChannelRequest(packet); err != nil {
				return c.partialResult(), err
			}

		case msgChannelEOF:
			ch.eofReceived = true

		case msgChannelClose:
			ch.closeReceived = true
			if !ch.closeSent {
				closeMsg := &channelCloseMsg{RecipientChannel: ch.remoteID}
				if err := c.writePacket(closeMsg.marshal()); err != nil {
					return c.partialResult(), err
				}
				ch.closeSent = true
			}
			return c.partialResult(), nil

		case msgDisconnect:
			return c.partialResult(), c.disconnectError(packet)

		case msgIgnore, msgDebug:
			continue

		case msgUnimplemented:
			return c.partialResult(), &ProtocolError{Detail: "server sent UNIMPLEMENTED during channel relay"}

		default:
			return c.partialResult(), &ProtocolError{Detail: "unexpected message during channel relay"}
		}
	}
}

// acceptChannelData enforces spec §3 invariant 6 / §8: a data packet after
// EOF is a protocol violation, and local_window must never underflow.
func (c *Connection) acceptChannelData(into *bytes.Buffer, length uint32) error {
	ch := c.ch
	if ch.eofReceived {
		return &ProtocolError{Detail: "data packet received after CHANNEL_EOF"}
	}
	if length > ch.localMaxPacket {
		return &ProtocolError{Detail: "data packet exceeds local_max_packet"}
	}
	if length > ch.localWindow {
		return &ProtocolError{Detail: "data packet would underflow local_window"}
	}
	ch.localWindow -= length

	if ch.localWindow < windowRefillThreshold {
		refill := initialWindowSize - ch.localWindow
		adj := &channelWindowAdjustMsg{RecipientChannel: ch.remoteID, BytesToAdd: refill}
		if err := c.writePacket(adj.marshal()); err != nil {
			return err
		}
		ch.localWindow += refill
		if c.metrics != nil {
			c.metrics.WindowAdjustsSent.Inc()
		}
	}
	return nil
}

// handleChannelRequest processes exit-status and exit-signal (spec §4.5
// step 3); any other request type is rejected with CHANNEL_FAILURE if the
// server asked for a reply, matching the reference mainLoop's handling of
// unrecognized global requests.
func (c *Connection) handleChannelRequest(packet []byte) (terminal bool, err error) {
	req, err := parseChannelRequestMsg(packet)
	if err != nil {
		return false, err
	}
	switch req.RequestType {
	case "exit-status":
		status, _, ok := parseUint32(req.TypeSpecificData)
		if !ok {
			return false, &ProtocolError{Detail: "malformed exit-status request"}
		}
		c.ch.exitStatus = &status
		return false, nil
	case "exit-signal":
		name, rest, ok := parseString(req.TypeSpecificData)
		if !ok {
			return false, &ProtocolError{Detail: "malformed exit-signal request"}
		}
		_ = rest
		c.ch.exitSignal = string(name)
		return true, nil
	default:
		if req.WantReply {
			failure := &channelFailureMsg{RecipientChannel: c.ch.remoteID}
			if err := c.writePacket(failure.marshal()); err != nil {
				return false, err
			}
		}
		return false, nil
	}
}

func (c *Connection) partialResult() *RunResult {
	if c.ch == nil {
		return &RunResult{}
	}
	return &RunResult{
		Stdout:     append([]byte(nil), c.ch.stdout.Bytes()...),
		Stderr:     append([]byte(nil), c.ch.stderr.Bytes()...),
		ExitStatus: c.ch.exitStatus,
		ExitSignal: c.ch.exitSignal,
	}
}
