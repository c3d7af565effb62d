package sshcore

import (
	"bytes"
	"net"
	"testing"
)

// verify that a packet written in plaintext (no cipher, no MAC, the
// pre-NEWKEYS state) round-trips through readPacket.
func TestPacketRoundTripPlaintext(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	tx := &direction{}
	rx := &direction{}

	payload := []byte{msgKexInit, 1, 2, 3, 4, 5}
	done := make(chan error, 1)
	go func() { done <- tx.writePacket(client, payload) }()

	got, err := rx.readPacket(server)
	if err != nil {
		t.Fatalf("readPacket: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("writePacket: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("readPacket = %x, want %x", got, payload)
	}
	if rx.seq != 1 || tx.seq != 1 {
		t.Fatalf("sequence numbers not advanced: tx=%d rx=%d", tx.seq, rx.seq)
	}
}

// verify that a packet round-trips once both sides have AES-256-CTR and
// HMAC-SHA-256 keys installed, matching the post-NEWKEYS state.
func TestPacketRoundTripCiphered(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	key := bytes.Repeat([]byte{0x11}, 32)
	iv := bytes.Repeat([]byte{0x22}, 16)
	macKey := bytes.Repeat([]byte{0x33}, 32)

	txCipher, err := newAESCTR(key, iv)
	if err != nil {
		t.Fatalf("newAESCTR: %v", err)
	}
	rxCipher, err := newAESCTR(key, iv)
	if err != nil {
		t.Fatalf("newAESCTR: %v", err)
	}
	tx := &direction{cipher: txCipher, macKey: macKey}
	rx := &direction{cipher: rxCipher, macKey: macKey}

	payload := []byte{msgChannelData, 0, 0, 0, 0, 0, 0, 0, 4, 'a', 'b', 'c', 'd'}
	done := make(chan error, 1)
	go func() { done <- tx.writePacket(client, payload) }()

	got, err := rx.readPacket(server)
	if err != nil {
		t.Fatalf("readPacket: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("writePacket: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("readPacket = %x, want %x", got, payload)
	}
}

// verify that a flipped bit in the MAC is detected as spec §8 scenario 3
// requires: readPacket must return a CryptoError, never the tampered
// payload.
func TestPacketRejectsTamperedMAC(t *testing.T) {
	key := bytes.Repeat([]byte{0x44}, 32)
	iv := bytes.Repeat([]byte{0x55}, 16)
	macKey := bytes.Repeat([]byte{0x66}, 32)

	txCipher, err := newAESCTR(key, iv)
	if err != nil {
		t.Fatalf("newAESCTR: %v", err)
	}
	rxCipher, err := newAESCTR(key, iv)
	if err != nil {
		t.Fatalf("newAESCTR: %v", err)
	}
	tx := &direction{cipher: txCipher, macKey: macKey}
	rx := &direction{cipher: rxCipher, macKey: macKey}

	payload := []byte{msgChannelData, 1, 2, 3}

	var buf bytes.Buffer
	if err := tx.writePacket(&buf, payload); err != nil {
		t.Fatalf("writePacket: %v", err)
	}
	record := buf.Bytes()
	record[len(record)-1] ^= 0x01

	if _, err := rx.readPacket(bytes.NewReader(record)); err == nil {
		t.Fatal("readPacket accepted a packet with a tampered MAC")
	} else if _, ok := err.(*CryptoError); !ok {
		t.Fatalf("readPacket returned %T, want *CryptoError", err)
	}
}

// verify that a packet length outside the bounds of spec §4.1 is rejected
// before any MAC or cipher work is attempted.
func TestPacketRejectsLengthOutOfRange(t *testing.T) {
	rx := &direction{}
	var buf bytes.Buffer
	buf.Write(putUint32(nil, 0))
	buf.Write(make([]byte, 4))
	if _, err := rx.readPacket(&buf); err == nil {
		t.Fatal("readPacket accepted a zero packet length")
	}
}
