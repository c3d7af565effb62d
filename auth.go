package sshcore

// Authentication (spec §4.4): ssh-userauth service request followed by a
// single publickey attempt with an Ed25519 signature over the canonical
// session-signature blob.

import (
	"crypto/ed25519"

	"github.com/sirupsen/logrus"
)

func (c *Connection) authenticate() error {
	if err := c.requestService(serviceUserAuth); err != nil {
		return err
	}

	pubBlob := ed25519PublicKeyBlob(c.creds.publicKey())
	signed := buildAuthSignatureBlob(c.sessionID, c.creds.Username, pubBlob)
	sig := ed25519.Sign(c.creds.Signer, signed)

	req := &publicKeyUserAuthRequestMsg{
		User:      c.creds.Username,
		Service:   serviceSSHConn,
		Algo:      hostKeyAlgoEd25519,
		PubKey:    pubBlob,
		Signature: ed25519SignatureBlob(sig),
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
		case msgUserAuthSuccess:
			c.log.Info("authenticated as " + c.creds.Username)
			return nil
		case msgUserAuthFailure:
			failure, err := parseUserAuthFailureMsg(packet)
			if err != nil {
				return err
			}
			c.log.WithFields(logrus.Fields{
				"methods":         failure.Methods,
				"partial_success": failure.PartialSuccess,
			}).Warn("userauth failure")
			return &AuthError{Methods: failure.Methods, PartialSuccess: failure.PartialSuccess}
		case msgUserAuthBanner:
			// Discarded per spec §7: "A USERAUTH_BANNER received before
			// success is discarded (not surfaced)."
			continue
		case msgDisconnect:
			return c.disconnectError(packet)
		case msgIgnore, msgDebug:
			continue
		default:
			return &ProtocolError{Detail: "unexpected message during authentication"}
		}
	}
}

func (c *Connection) requestService(service string) error {
	req := &serviceRequestMsg{Service: service}
	if err := c.writePacket(req.marshal()); err != nil {
		return err
	}
	for {
		packet, err := c.readPacket()
		if err != nil {
			return err
		}
		switch packet[0] {
		case msgServiceAccept:
			accept, err := parseServiceAcceptMsg(packet)
			if err != nil {
				return err
			}
			if accept.Service != service {
				return &ProtocolError{Detail: "SERVICE_ACCEPT for unexpected service " + accept.Service}
			}
			return nil
		case msgDisconnect:
			return c.disconnectError(packet)
		case msgIgnore, msgDebug:
			continue
		default:
			return &ProtocolError{Detail: "unexpected message awaiting SERVICE_ACCEPT"}
		}
	}
}

// buildAuthSignatureBlob builds the canonical blob signed for publickey
// authentication (spec §4.4 step 2):
//
//	string(session_id) || byte(USERAUTH_REQUEST) || string(username) ||
//	string("ssh-connection") || string("publickey") || boolean(true) ||
//	string("ssh-ed25519") || string(pubkey_blob)
func buildAuthSignatureBlob(sessionID []byte, username string, pubKeyBlob []byte) []byte {
	buf := putString(nil, sessionID)
	buf = putByte(buf, msgUserAuthRequest)
	buf = putString(buf, []byte(username))
	buf = putString(buf, []byte(serviceSSHConn))
	buf = putString(buf, []byte(authMethodPubKey))
	buf = putBool(buf, true)
	buf = putString(buf, []byte(hostKeyAlgoEd25519))
	buf = putString(buf, pubKeyBlob)
	return buf
}

func (c *Connection) disconnectError(packet []byte) error {
	d, err := parseDisconnectMsg(packet)
	if err != nil {
		return err
	}
	c.log.WithFields(logrus.Fields{
		"reason":      d.Reason,
		"description": d.Description,
	}).Warn("received DISCONNECT")
	return &DisconnectError{Reason: d.Reason, Description: d.Description}
}
