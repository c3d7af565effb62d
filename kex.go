package sshcore

// Transport handshake (spec §4.3): identification-string exchange, KEXINIT
// negotiation (one algorithm per list, the cipher suite spec §1 allows),
// Curve25519 ECDH, host-key signature verification over the exchange hash,
// key derivation, and the NEWKEYS barrier.

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"hash"
	"io"
	"math/big"

	"golang.org/x/crypto/curve25519"

	"github.com/sirupsen/logrus"
)

const maxIdentLineLen = 255

func (c *Connection) handshake() error {
	magics, err := c.exchangeIdentification()
	if err != nil {
		return err
	}

	clientKex, clientKexPayload, err := c.sendKexInit()
	if err != nil {
		return err
	}
	magics.clientKexInit = clientKexPayload

	serverKexPayload, err := c.readPacket()
	if err != nil {
		return err
	}
	magics.serverKexInit = serverKexPayload

	serverKex, err := parseKexInitMsg(serverKexPayload)
	if err != nil {
		return err
	}
	if err := checkNegotiation(clientKex, serverKex); err != nil {
		c.log.WithField("err", err).Warn("KEXINIT negotiation failed")
		return err
	}

	h, K, hostKey, sig, err := c.kexCurve25519(magics)
	if err != nil {
		return err
	}

	hostPub, err := parseEd25519PublicKeyBlob(hostKey)
	if err != nil {
		return err
	}
	rawSig, err := parseEd25519SignatureBlob(sig)
	if err != nil {
		return err
	}
	if !ed25519.Verify(hostPub, h, rawSig) {
		c.log.Warn("host key signature verification failed")
		return &CryptoError{Detail: "host key signature verification failed"}
	}
	c.log.WithField("fingerprint", hostKeyFingerprint(hostKey)).Info("host key accepted (trust-on-first-use)")

	c.sessionID = h

	return c.newKeys(K, h)
}

type handshakeMagics struct {
	clientVersion, serverVersion []byte
	clientKexInit, serverKexInit []byte
}

func (c *Connection) exchangeIdentification() (*handshakeMagics, error) {
	ident := []byte(clientIdentification)
	c.clientIdent = ident
	if _, err := c.stream.Write(append(append([]byte{}, ident...), '\r', '\n')); err != nil {
		return nil, &IOError{Op: "write identification string", Err: err}
	}

	for {
		line, err := c.readIdentLine()
		if err != nil {
			return nil, err
		}
		if len(line) >= 4 && string(line[:4]) == "SSH-" {
			if len(line) < 8 || string(line[:8]) != "SSH-2.0-" {
				return nil, &ProtocolError{Detail: "unsupported protocol version: " + string(line)}
			}
			c.serverIdent = line
			return &handshakeMagics{clientVersion: c.clientIdent, serverVersion: c.serverIdent}, nil
		}
		// Lines not beginning with "SSH-" are pre-handshake banners and are
		// discarded per spec §4.3 step 1.
	}
}

func (c *Connection) readIdentLine() ([]byte, error) {
	var line []byte
	buf := make([]byte, 1)
	for {
		if _, err := io.ReadFull(c.stream, buf); err != nil {
			return nil, &IOError{Op: "read identification line", Err: err}
		}
		if buf[0] == '\n' {
			if len(line) > 0 && line[len(line)-1] == '\r' {
				line = line[:len(line)-1]
			}
			return line, nil
		}
		line = append(line, buf[0])
		if len(line) > maxIdentLineLen {
			return nil, &ProtocolError{Detail: "identification line too long"}
		}
	}
}

func (c *Connection) sendKexInit() (*kexInitMsg, []byte, error) {
	var cookie [16]byte
	if _, err := io.ReadFull(rand.Reader, cookie[:]); err != nil {
		return nil, nil, &IOError{Op: "generate KEXINIT cookie", Err: err}
	}
	m := &kexInitMsg{
		Cookie:                  cookie,
		KexAlgos:                []string{kexAlgoCurve25519},
		ServerHostKeyAlgos:      []string{hostKeyAlgoEd25519},
		CiphersClientServer:     []string{cipherAlgoAES256CTR},
		CiphersServerClient:     []string{cipherAlgoAES256CTR},
		MACsClientServer:        []string{macAlgoHMACSHA256},
		MACsServerClient:        []string{macAlgoHMACSHA256},
		CompressionClientServer: []string{compressionNone},
		CompressionServerClient: []string{compressionNone},
		LanguagesClientServer:   nil,
		LanguagesServerClient:   nil,
		FirstKexFollows:         false,
		Reserved:                0,
	}
	payload := m.marshal()
	if err := c.writePacket(payload); err != nil {
		return nil, nil, err
	}
	return m, payload, nil
}

func checkNegotiation(client, server *kexInitMsg) error {
	checks := []struct {
		name           string
		clientOffer    string
		serverPreflist []string
	}{
		{"kex", client.KexAlgos[0], server.KexAlgos},
		{"host key", client.ServerHostKeyAlgos[0], server.ServerHostKeyAlgos},
		{"cipher client->server", client.CiphersClientServer[0], server.CiphersClientServer},
		{"cipher server->client", client.CiphersServerClient[0], server.CiphersServerClient},
		{"mac client->server", client.MACsClientServer[0], server.MACsClientServer},
		{"mac server->client", client.MACsServerClient[0], server.MACsServerClient},
		{"compression client->server", client.CompressionClientServer[0], server.CompressionClientServer},
		{"compression server->client", client.CompressionServerClient[0], server.CompressionServerClient},
	}
	for _, chk := range checks {
		if len(chk.serverPreflist) == 0 || chk.serverPreflist[0] != chk.clientOffer {
			var serverPref string
			if len(chk.serverPreflist) > 0 {
				serverPref = chk.serverPreflist[0]
			}
			return &NegotiationError{List: chk.name, ClientOffered: chk.clientOffer, ServerPrefered: serverPref}
		}
	}
	return nil
}

// kexCurve25519 performs spec §4.3 steps 3-4: the ECDH exchange and
// exchange-hash computation. It returns H, the shared secret K (raw
// bytes), and the server's host-key/signature blobs for the caller to
// verify.
func (c *Connection) kexCurve25519(magics *handshakeMagics) (h, K, hostKey, sig []byte, err error) {
	var scalar [32]byte
	if _, err = io.ReadFull(rand.Reader, scalar[:]); err != nil {
		return nil, nil, nil, nil, &IOError{Op: "generate ephemeral scalar", Err: err}
	}
	defer zeroBytes(scalar[:])

	qc, err := curve25519.X25519(scalar[:], curve25519.Basepoint)
	if err != nil {
		return nil, nil, nil, nil, &CryptoError{Detail: "curve25519 base-point multiplication failed"}
	}

	init := &kexECDHInitMsg{ClientPubKey: qc}
	if err = c.writePacket(init.marshal()); err != nil {
		return nil, nil, nil, nil, err
	}

	packet, err := c.readPacket()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	reply, err := parseKexECDHReplyMsg(packet)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	sharedSecret, err := curve25519.X25519(scalar[:], reply.ServerPubKey)
	if err != nil {
		return nil, nil, nil, nil, &CryptoError{Detail: "curve25519 shared-secret computation failed"}
	}
	if allZero(sharedSecret) {
		return nil, nil, nil, nil, &CryptoError{Detail: "curve25519 shared secret is all-zero"}
	}

	hh := sha256.New()
	writeHashString(hh, magics.clientVersion)
	writeHashString(hh, magics.serverVersion)
	writeHashString(hh, magics.clientKexInit)
	writeHashString(hh, magics.serverKexInit)
	writeHashString(hh, reply.HostKey)
	writeHashString(hh, qc)
	writeHashString(hh, reply.ServerPubKey)
	hh.Write(putMPInt(nil, new(big.Int).SetBytes(sharedSecret)))

	return hh.Sum(nil), sharedSecret, reply.HostKey, reply.Signature, nil
}

func writeHashString(h hash.Hash, b []byte) {
	h.Write(putString(nil, b))
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// newKeys sends NEWKEYS, installs the send-side keys immediately, then
// waits for the server's NEWKEYS before installing the receive side (spec
// §4.3 step 6; spec §3 invariant 4).
func (c *Connection) newKeys(K, H []byte) error {
	mpintK := putMPInt(nil, new(big.Int).SetBytes(K))
	defer zeroBytes(mpintK)
	defer zeroBytes(K)

	ivC := deriveKey(mpintK, H, c.sessionID, 'A', 16)
	ivS := deriveKey(mpintK, H, c.sessionID, 'B', 16)
	keyC := deriveKey(mpintK, H, c.sessionID, 'C', 32)
	keyS := deriveKey(mpintK, H, c.sessionID, 'D', 32)
	macC := deriveKey(mpintK, H, c.sessionID, 'E', 32)
	macS := deriveKey(mpintK, H, c.sessionID, 'F', 32)
	defer zeroBytes(ivC)
	defer zeroBytes(ivS)
	defer zeroBytes(keyC)
	defer zeroBytes(keyS)

	if err := c.writePacket([]byte{msgNewKeys}); err != nil {
		return err
	}

	txCipher, err := newAESCTR(keyC, ivC)
	if err != nil {
		return err
	}
	c.tx.cipher = txCipher
	c.tx.macKey = macC

	packet, err := c.readPacket()
	if err != nil {
		return err
	}
	if len(packet) != 1 || packet[0] != msgNewKeys {
		if len(packet) > 0 {
			return &ProtocolError{Detail: "expected NEWKEYS before any other packet"}
		}
		return &ProtocolError{Detail: "expected NEWKEYS"}
	}

	rxCipher, err := newAESCTR(keyS, ivS)
	if err != nil {
		return err
	}
	c.rx.cipher = rxCipher
	c.rx.macKey = macS
	return nil
}

// deriveKey implements spec §4.3 step 5: K1 = SHA256(mpintK || H || letter
// || session_id), extended with K_{n+1} = SHA256(mpintK || H || K1 || ... ||
// Kn) until length bytes are available.
func deriveKey(mpintK, H, sessionID []byte, letter byte, length int) []byte {
	h := sha256.New()
	h.Write(mpintK)
	h.Write(H)
	h.Write([]byte{letter})
	h.Write(sessionID)
	digest := h.Sum(nil)
	out := append([]byte{}, digest...)
	for len(out) < length {
		h := sha256.New()
		h.Write(mpintK)
		h.Write(H)
		h.Write(out)
		out = append(out, h.Sum(nil)...)
	}
	return out[:length]
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
