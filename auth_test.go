package sshcore

import (
	"bytes"
	"testing"
)

// verify that buildAuthSignatureBlob lays out its fields in the exact order
// spec §4.4 step 2 requires, since a server verifies the signature over
// these bytes byte-for-byte.
func TestBuildAuthSignatureBlob(t *testing.T) {
	sessionID := []byte{0x01, 0x02, 0x03}
	username := "alice"
	pubBlob := []byte{0xaa, 0xbb}

	got := buildAuthSignatureBlob(sessionID, username, pubBlob)

	want := putString(nil, sessionID)
	want = putByte(want, msgUserAuthRequest)
	want = putString(want, []byte(username))
	want = putString(want, []byte(serviceSSHConn))
	want = putString(want, []byte(authMethodPubKey))
	want = putBool(want, true)
	want = putString(want, []byte(hostKeyAlgoEd25519))
	want = putString(want, pubBlob)

	if !bytes.Equal(got, want) {
		t.Fatalf("buildAuthSignatureBlob = %x, want %x", got, want)
	}
}

// verify that a USERAUTH_FAILURE payload parses into the methods list and
// partial-success flag the façade surfaces as *AuthError.
func TestParseUserAuthFailure(t *testing.T) {
	payload := []byte{msgUserAuthFailure}
	payload = putNameList(payload, []string{"publickey", "password"})
	payload = putBool(payload, false)

	m, err := parseUserAuthFailureMsg(payload)
	if err != nil {
		t.Fatalf("parseUserAuthFailureMsg: %v", err)
	}
	if len(m.Methods) != 2 || m.Methods[0] != "publickey" || m.Methods[1] != "password" {
		t.Fatalf("parseUserAuthFailureMsg.Methods = %v", m.Methods)
	}
	if m.PartialSuccess {
		t.Fatal("parseUserAuthFailureMsg.PartialSuccess = true, want false")
	}
}

// verify that the ed25519 public-key and signature blob helpers round-trip.
func TestEd25519BlobRoundTrip(t *testing.T) {
	pub := bytes.Repeat([]byte{0x07}, 32)
	blob := ed25519PublicKeyBlob(pub)
	got, err := parseEd25519PublicKeyBlob(blob)
	if err != nil {
		t.Fatalf("parseEd25519PublicKeyBlob: %v", err)
	}
	if !bytes.Equal(got, pub) {
		t.Fatalf("parseEd25519PublicKeyBlob = %x, want %x", got, pub)
	}

	sig := bytes.Repeat([]byte{0x09}, 64)
	sigBlob := ed25519SignatureBlob(sig)
	gotSig, err := parseEd25519SignatureBlob(sigBlob)
	if err != nil {
		t.Fatalf("parseEd25519SignatureBlob: %v", err)
	}
	if !bytes.Equal(gotSig, sig) {
		t.Fatalf("parseEd25519SignatureBlob = %x, want %x", gotSig, sig)
	}
}

// verify that a host key blob with the wrong algorithm name is rejected.
func TestParseEd25519PublicKeyBlobWrongAlgo(t *testing.T) {
	blob := putString(nil, []byte("ssh-rsa"))
	blob = putString(blob, bytes.Repeat([]byte{0x01}, 32))
	if _, err := parseEd25519PublicKeyBlob(blob); err == nil {
		t.Fatal("parseEd25519PublicKeyBlob accepted a non-ed25519 algorithm name")
	}
}
