package sshcore

// Message type bytes from RFC 4253/4252/4254. The dispatcher (in kex.go,
// auth.go, channel.go) is a tagged variant over this byte with a
// hand-rolled parser per message: the algorithm set this core offers is
// fixed (spec §1), so interface-style polymorphism over message kinds buys
// nothing (spec §9 "Polymorphism").
const (
	msgDisconnect    = 1
	msgIgnore        = 2
	msgUnimplemented = 3
	msgDebug         = 4

	msgServiceRequest = 5
	msgServiceAccept  = 6

	msgKexInit = 20
	msgNewKeys = 21

	msgKexECDHInit  = 30
	msgKexECDHReply = 31

	msgUserAuthRequest = 50
	msgUserAuthFailure = 51
	msgUserAuthSuccess = 52
	msgUserAuthBanner  = 53

	msgGlobalRequest  = 80
	msgRequestSuccess = 81
	msgRequestFailure = 82

	msgChannelOpen         = 90
	msgChannelOpenConfirm  = 91
	msgChannelOpenFailure  = 92
	msgChannelWindowAdjust = 93
	msgChannelData         = 94
	msgChannelExtendedData = 95
	msgChannelEOF          = 96
	msgChannelClose        = 97
	msgChannelRequest      = 98
	msgChannelSuccess      = 99
	msgChannelFailure      = 100
)

// The one-algorithm-per-list cipher suite this core offers (spec §1, §4.3
// step 2). Non-goal: algorithm agility beyond this suite.
const (
	kexAlgoCurve25519  = "curve25519-sha256"
	hostKeyAlgoEd25519 = "ssh-ed25519"
	cipherAlgoAES256CTR = "aes256-ctr"
	macAlgoHMACSHA256   = "hmac-sha2-256"
	compressionNone     = "none"

	serviceUserAuth  = "ssh-userauth"
	serviceSSHConn   = "ssh-connection"
	authMethodPubKey = "publickey"

	clientIdentification = "SSH-2.0-sshcore_1.0"
)

type kexInitMsg struct {
	Cookie                  [16]byte
	KexAlgos                []string
	ServerHostKeyAlgos      []string
	CiphersClientServer     []string
	CiphersServerClient     []string
	MACsClientServer        []string
	MACsServerClient        []string
	CompressionClientServer []string
	CompressionServerClient []string
	LanguagesClientServer   []string
	LanguagesServerClient   []string
	FirstKexFollows         bool
	Reserved                uint32
}

func (m *kexInitMsg) marshal() []byte {
	buf := []byte{msgKexInit}
	buf = append(buf, m.Cookie[:]...)
	buf = putNameList(buf, m.KexAlgos)
	buf = putNameList(buf, m.ServerHostKeyAlgos)
	buf = putNameList(buf, m.CiphersClientServer)
	buf = putNameList(buf, m.CiphersServerClient)
	buf = putNameList(buf, m.MACsClientServer)
	buf = putNameList(buf, m.MACsServerClient)
	buf = putNameList(buf, m.CompressionClientServer)
	buf = putNameList(buf, m.CompressionServerClient)
	buf = putNameList(buf, m.LanguagesClientServer)
	buf = putNameList(buf, m.LanguagesServerClient)
	buf = putBool(buf, m.FirstKexFollows)
	buf = putUint32(buf, m.Reserved)
	return buf
}

func parseKexInitMsg(payload []byte) (*kexInitMsg, error) {
	if len(payload) < 1 || payload[0] != msgKexInit {
		return nil, &ProtocolError{Detail: "expected KEXINIT"}
	}
	b := payload[1:]
	m := &kexInitMsg{}
	if len(b) < 16 {
		return nil, &ProtocolError{Detail: "KEXINIT truncated cookie"}
	}
	copy(m.Cookie[:], b[:16])
	b = b[16:]

	fields := []*[]string{
		&m.KexAlgos, &m.ServerHostKeyAlgos,
		&m.CiphersClientServer, &m.CiphersServerClient,
		&m.MACsClientServer, &m.MACsServerClient,
		&m.CompressionClientServer, &m.CompressionServerClient,
		&m.LanguagesClientServer, &m.LanguagesServerClient,
	}
	var ok bool
	for _, f := range fields {
		*f, b, ok = parseNameList(b)
		if !ok {
			return nil, &ProtocolError{Detail: "KEXINIT truncated name-list"}
		}
	}
	m.FirstKexFollows, b, ok = parseBool(b)
	if !ok {
		return nil, &ProtocolError{Detail: "KEXINIT missing first_kex_packet_follows"}
	}
	m.Reserved, _, ok = parseUint32(b)
	if !ok {
		return nil, &ProtocolError{Detail: "KEXINIT missing reserved field"}
	}
	return m, nil
}

type kexECDHInitMsg struct {
	ClientPubKey []byte
}

func (m *kexECDHInitMsg) marshal() []byte {
	buf := []byte{msgKexECDHInit}
	return putString(buf, m.ClientPubKey)
}

type kexECDHReplyMsg struct {
	HostKey      []byte
	ServerPubKey []byte
	Signature    []byte
}

func parseKexECDHReplyMsg(payload []byte) (*kexECDHReplyMsg, error) {
	if len(payload) < 1 || payload[0] != msgKexECDHReply {
		return nil, &ProtocolError{Detail: "expected KEX_ECDH_REPLY"}
	}
	b := payload[1:]
	m := &kexECDHReplyMsg{}
	var ok bool
	m.HostKey, b, ok = parseString(b)
	if !ok {
		return nil, &ProtocolError{Detail: "KEX_ECDH_REPLY missing host key"}
	}
	m.ServerPubKey, b, ok = parseString(b)
	if !ok {
		return nil, &ProtocolError{Detail: "KEX_ECDH_REPLY missing server public value"}
	}
	m.Signature, _, ok = parseString(b)
	if !ok {
		return nil, &ProtocolError{Detail: "KEX_ECDH_REPLY missing signature"}
	}
	return m, nil
}

// ed25519PublicKeyBlob returns the SSH-encoded "ssh-ed25519" || pubkey blob
// used both as the host-key and client public-key wire representation (spec
// §4.3 step 3, §4.4 step 2).
func ed25519PublicKeyBlob(pub []byte) []byte {
	buf := putString(nil, []byte(hostKeyAlgoEd25519))
	return putString(buf, pub)
}

// parseEd25519PublicKeyBlob parses a "ssh-ed25519" || pubkey blob and
// returns the raw 32-byte public key.
func parseEd25519PublicKeyBlob(blob []byte) ([]byte, error) {
	algo, rest, ok := parseString(blob)
	if !ok || string(algo) != hostKeyAlgoEd25519 {
		return nil, &ProtocolError{Detail: "host key blob is not ssh-ed25519"}
	}
	pub, _, ok := parseString(rest)
	if !ok || len(pub) != 32 {
		return nil, &ProtocolError{Detail: "malformed ssh-ed25519 public key"}
	}
	return pub, nil
}

// ed25519SignatureBlob wire-encodes a raw signature as
// string("ssh-ed25519") || string(64-byte signature) (spec §4.4 step 2).
func ed25519SignatureBlob(sig []byte) []byte {
	buf := putString(nil, []byte(hostKeyAlgoEd25519))
	return putString(buf, sig)
}

func parseEd25519SignatureBlob(blob []byte) ([]byte, error) {
	algo, rest, ok := parseString(blob)
	if !ok || string(algo) != hostKeyAlgoEd25519 {
		return nil, &ProtocolError{Detail: "signature blob is not ssh-ed25519"}
	}
	sig, _, ok := parseString(rest)
	if !ok || len(sig) != 64 {
		return nil, &ProtocolError{Detail: "malformed ssh-ed25519 signature"}
	}
	return sig, nil
}

type serviceRequestMsg struct {
	Service string
}

func (m *serviceRequestMsg) marshal() []byte {
	buf := []byte{msgServiceRequest}
	return putString(buf, []byte(m.Service))
}

type serviceAcceptMsg struct {
	Service string
}

func parseServiceAcceptMsg(payload []byte) (*serviceAcceptMsg, error) {
	if len(payload) < 1 || payload[0] != msgServiceAccept {
		return nil, &ProtocolError{Detail: "expected SERVICE_ACCEPT"}
	}
	s, _, ok := parseString(payload[1:])
	if !ok {
		return nil, &ProtocolError{Detail: "SERVICE_ACCEPT missing service name"}
	}
	return &serviceAcceptMsg{Service: string(s)}, nil
}

// publicKeyUserAuthRequestMsg is the one USERAUTH_REQUEST variant this core
// ever sends: method "publickey" with has_signature = true (spec §4.4
// step 2).
type publicKeyUserAuthRequestMsg struct {
	User      string
	Service   string
	Algo      string
	PubKey    []byte
	Signature []byte
}

func (m *publicKeyUserAuthRequestMsg) marshal() []byte {
	buf := []byte{msgUserAuthRequest}
	buf = putString(buf, []byte(m.User))
	buf = putString(buf, []byte(m.Service))
	buf = putString(buf, []byte(authMethodPubKey))
	buf = putBool(buf, true)
	buf = putString(buf, []byte(m.Algo))
	buf = putString(buf, m.PubKey)
	buf = putString(buf, m.Signature)
	return buf
}

type userAuthFailureMsg struct {
	Methods        []string
	PartialSuccess bool
}

func parseUserAuthFailureMsg(payload []byte) (*userAuthFailureMsg, error) {
	if len(payload) < 1 || payload[0] != msgUserAuthFailure {
		return nil, &ProtocolError{Detail: "expected USERAUTH_FAILURE"}
	}
	b := payload[1:]
	methods, b, ok := parseNameList(b)
	if !ok {
		return nil, &ProtocolError{Detail: "USERAUTH_FAILURE missing method name-list"}
	}
	partial, _, ok := parseBool(b)
	if !ok {
		return nil, &ProtocolError{Detail: "USERAUTH_FAILURE missing partial-success flag"}
	}
	return &userAuthFailureMsg{Methods: methods, PartialSuccess: partial}, nil
}

type disconnectMsg struct {
	Reason      uint32
	Description string
	Language    string
}

func parseDisconnectMsg(payload []byte) (*disconnectMsg, error) {
	if len(payload) < 1 || payload[0] != msgDisconnect {
		return nil, &ProtocolError{Detail: "expected DISCONNECT"}
	}
	b := payload[1:]
	reason, b, ok := parseUint32(b)
	if !ok {
		return nil, &ProtocolError{Detail: "DISCONNECT missing reason code"}
	}
	desc, b, ok := parseString(b)
	if !ok {
		return nil, &ProtocolError{Detail: "DISCONNECT missing description"}
	}
	lang, _, _ := parseString(b)
	return &disconnectMsg{Reason: reason, Description: string(desc), Language: string(lang)}, nil
}

// --- channel layer messages (spec §4.5) ---

type channelOpenMsg struct {
	ChanType      string
	SenderChannel uint32
	WindowSize    uint32
	MaxPacketSize uint32
}

func (m *channelOpenMsg) marshal() []byte {
	buf := []byte{msgChannelOpen}
	buf = putString(buf, []byte(m.ChanType))
	buf = putUint32(buf, m.SenderChannel)
	buf = putUint32(buf, m.WindowSize)
	buf = putUint32(buf, m.MaxPacketSize)
	return buf
}

type channelOpenConfirmMsg struct {
	RecipientChannel uint32
	SenderChannel    uint32
	WindowSize       uint32
	MaxPacketSize    uint32
}

func parseChannelOpenConfirmMsg(payload []byte) (*channelOpenConfirmMsg, error) {
	if len(payload) < 1 || payload[0] != msgChannelOpenConfirm {
		return nil, &ProtocolError{Detail: "expected CHANNEL_OPEN_CONFIRMATION"}
	}
	b := payload[1:]
	m := &channelOpenConfirmMsg{}
	var ok bool
	m.RecipientChannel, b, ok = parseUint32(b)
	if !ok {
		return nil, &ProtocolError{Detail: "CHANNEL_OPEN_CONFIRMATION truncated"}
	}
	m.SenderChannel, b, ok = parseUint32(b)
	if !ok {
		return nil, &ProtocolError{Detail: "CHANNEL_OPEN_CONFIRMATION truncated"}
	}
	m.WindowSize, b, ok = parseUint32(b)
	if !ok {
		return nil, &ProtocolError{Detail: "CHANNEL_OPEN_CONFIRMATION truncated"}
	}
	m.MaxPacketSize, _, ok = parseUint32(b)
	if !ok {
		return nil, &ProtocolError{Detail: "CHANNEL_OPEN_CONFIRMATION truncated"}
	}
	return m, nil
}

type channelOpenFailureMsg struct {
	RecipientChannel uint32
	Reason           uint32
	Message          string
	Language         string
}

func parseChannelOpenFailureMsg(payload []byte) (*channelOpenFailureMsg, error) {
	if len(payload) < 1 || payload[0] != msgChannelOpenFailure {
		return nil, &ProtocolError{Detail: "expected CHANNEL_OPEN_FAILURE"}
	}
	b := payload[1:]
	m := &channelOpenFailureMsg{}
	var ok bool
	m.RecipientChannel, b, ok = parseUint32(b)
	if !ok {
		return nil, &ProtocolError{Detail: "CHANNEL_OPEN_FAILURE truncated"}
	}
	m.Reason, b, ok = parseUint32(b)
	if !ok {
		return nil, &ProtocolError{Detail: "CHANNEL_OPEN_FAILURE truncated"}
	}
	msg, b, ok := parseString(b)
	if ok {
		m.Message = string(msg)
	}
	lang, _, ok := parseString(b)
	if ok {
		m.Language = string(lang)
	}
	return m, nil
}

type channelWindowAdjustMsg struct {
	RecipientChannel uint32
	BytesToAdd       uint32
}

func (m *channelWindowAdjustMsg) marshal() []byte {
	buf := []byte{msgChannelWindowAdjust}
	buf = putUint32(buf, m.RecipientChannel)
	buf = putUint32(buf, m.BytesToAdd)
	return buf
}

func parseChannelWindowAdjustMsg(payload []byte) (*channelWindowAdjustMsg, error) {
	b := payload[1:]
	m := &channelWindowAdjustMsg{}
	var ok bool
	m.RecipientChannel, b, ok = parseUint32(b)
	if !ok {
		return nil, &ProtocolError{Detail: "CHANNEL_WINDOW_ADJUST truncated"}
	}
	m.BytesToAdd, _, ok = parseUint32(b)
	if !ok {
		return nil, &ProtocolError{Detail: "CHANNEL_WINDOW_ADJUST truncated"}
	}
	return m, nil
}

type channelDataMsg struct {
	RecipientChannel uint32
	Data             []byte
}

func parseChannelDataMsg(payload []byte) (*channelDataMsg, error) {
	b := payload[1:]
	m := &channelDataMsg{}
	var ok bool
	m.RecipientChannel, b, ok = parseUint32(b)
	if !ok {
		return nil, &ProtocolError{Detail: "CHANNEL_DATA truncated"}
	}
	m.Data, _, ok = parseString(b)
	if !ok {
		return nil, &ProtocolError{Detail: "CHANNEL_DATA truncated"}
	}
	return m, nil
}

type channelExtendedDataMsg struct {
	RecipientChannel uint32
	DataTypeCode     uint32
	Data             []byte
}

func parseChannelExtendedDataMsg(payload []byte) (*channelExtendedDataMsg, error) {
	b := payload[1:]
	m := &channelExtendedDataMsg{}
	var ok bool
	m.RecipientChannel, b, ok = parseUint32(b)
	if !ok {
		return nil, &ProtocolError{Detail: "CHANNEL_EXTENDED_DATA truncated"}
	}
	m.DataTypeCode, b, ok = parseUint32(b)
	if !ok {
		return nil, &ProtocolError{Detail: "CHANNEL_EXTENDED_DATA truncated"}
	}
	m.Data, _, ok = parseString(b)
	if !ok {
		return nil, &ProtocolError{Detail: "CHANNEL_EXTENDED_DATA truncated"}
	}
	return m, nil
}

type channelEOFMsg struct {
	RecipientChannel uint32
}

func parseChannelEOFMsg(payload []byte) (*channelEOFMsg, error) {
	recip, _, ok := parseUint32(payload[1:])
	if !ok {
		return nil, &ProtocolError{Detail: "CHANNEL_EOF truncated"}
	}
	return &channelEOFMsg{RecipientChannel: recip}, nil
}

type channelCloseMsg struct {
	RecipientChannel uint32
}

func (m *channelCloseMsg) marshal() []byte {
	buf := []byte{msgChannelClose}
	return putUint32(buf, m.RecipientChannel)
}

func parseChannelCloseMsg(payload []byte) (*channelCloseMsg, error) {
	recip, _, ok := parseUint32(payload[1:])
	if !ok {
		return nil, &ProtocolError{Detail: "CHANNEL_CLOSE truncated"}
	}
	return &channelCloseMsg{RecipientChannel: recip}, nil
}

// execRequestMsg is the one CHANNEL_REQUEST variant this core ever sends.
type execRequestMsg struct {
	RecipientChannel uint32
	Command          string
}

func (m *execRequestMsg) marshal() []byte {
	buf := []byte{msgChannelRequest}
	buf = putUint32(buf, m.RecipientChannel)
	buf = putString(buf, []byte("exec"))
	buf = putBool(buf, true)
	buf = putString(buf, []byte(m.Command))
	return buf
}

// channelRequestMsg is the generic shape of an inbound CHANNEL_REQUEST; the
// relay loop (channel.go) re-parses the type-specific tail itself once it
// knows RequestType (spec §4.5 step 3: exit-status, exit-signal).
type channelRequestMsg struct {
	RecipientChannel uint32
	RequestType      string
	WantReply        bool
	TypeSpecificData []byte
}

func parseChannelRequestMsg(payload []byte) (*channelRequestMsg, error) {
	b := payload[1:]
	m := &channelRequestMsg{}
	var ok bool
	m.RecipientChannel, b, ok = parseUint32(b)
	if !ok {
		return nil, &ProtocolError{Detail: "CHANNEL_REQUEST truncated"}
	}
	var rt []byte
	rt, b, ok = parseString(b)
	if !ok {
		return nil, &ProtocolError{Detail: "CHANNEL_REQUEST truncated"}
	}
	m.RequestType = string(rt)
	m.WantReply, b, ok = parseBool(b)
	if !ok {
		return nil, &ProtocolError{Detail: "CHANNEL_REQUEST truncated"}
	}
	m.TypeSpecificData = b
	return m, nil
}

func (m *channelSuccessMsg) marshal() []byte {
	buf := []byte{msgChannelSuccess}
	return putUint32(buf, m.RecipientChannel)
}

type channelSuccessMsg struct {
	RecipientChannel uint32
}

type channelFailureMsg struct {
	RecipientChannel uint32
}

func (m *channelFailureMsg) marshal() []byte {
	buf := []byte{msgChannelFailure}
	return putUint32(buf, m.RecipientChannel)
}
