package sshcore

// Wire primitive encoders and decoders for the SSH binary protocol: byte,
// uint32, string (length-prefixed bytes), mpint, name-list, and boolean
// (spec §4.2). Decoders follow the teacher-adjacent convention of returning
// (value, rest, ok) rather than panicking on malformed input, so a single
// malformed field degrades to a plain ProtocolError at the call site instead
// of a runtime panic.

import (
	"math/big"
	"strings"
)

func putByte(buf []byte, b byte) []byte {
	return append(buf, b)
}

func putBool(buf []byte, b bool) []byte {
	if b {
		return append(buf, 1)
	}
	return append(buf, 0)
}

func putUint32(buf []byte, v uint32) []byte {
	return append(buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func putString(buf []byte, s []byte) []byte {
	buf = putUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func putNameList(buf []byte, names []string) []byte {
	return putString(buf, []byte(strings.Join(names, ",")))
}

// putMPInt encodes n as an SSH mpint: two's-complement big-endian, with a
// leading zero byte whenever the high bit of the first byte would otherwise
// be set, and the empty string for zero (spec §4.2, §8 round-trip property).
// Negative mpints are not needed anywhere in this protocol (the shared
// secret K is always non-negative), so they are rejected rather than
// silently mis-encoded.
func putMPInt(buf []byte, n *big.Int) []byte {
	if n.Sign() == 0 {
		return putString(buf, nil)
	}
	if n.Sign() < 0 {
		panic("sshcore: putMPInt given a negative integer")
	}
	b := n.Bytes()
	if b[0]&0x80 != 0 {
		b = append([]byte{0}, b...)
	}
	return putString(buf, b)
}

func parseByte(in []byte) (byte, []byte, bool) {
	if len(in) < 1 {
		return 0, nil, false
	}
	return in[0], in[1:], true
}

func parseBool(in []byte) (bool, []byte, bool) {
	b, rest, ok := parseByte(in)
	if !ok {
		return false, nil, false
	}
	return b != 0, rest, true
}

func parseUint32(in []byte) (uint32, []byte, bool) {
	if len(in) < 4 {
		return 0, nil, false
	}
	v := uint32(in[0])<<24 | uint32(in[1])<<16 | uint32(in[2])<<8 | uint32(in[3])
	return v, in[4:], true
}

func parseString(in []byte) ([]byte, []byte, bool) {
	length, rest, ok := parseUint32(in)
	if !ok || uint64(length) > uint64(len(rest)) {
		return nil, nil, false
	}
	return rest[:length], rest[length:], true
}

func parseNameList(in []byte) ([]string, []byte, bool) {
	s, rest, ok := parseString(in)
	if !ok {
		return nil, nil, false
	}
	if len(s) == 0 {
		return nil, rest, true
	}
	return strings.Split(string(s), ","), rest, true
}

func parseMPInt(in []byte) (*big.Int, []byte, bool) {
	s, rest, ok := parseString(in)
	if !ok {
		return nil, nil, false
	}
	return new(big.Int).SetBytes(s), rest, true
}
