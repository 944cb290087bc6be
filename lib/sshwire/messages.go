package sshwire

import (
	"bytes"

	"github.com/gravitational/trace"
)

// MessageID identifies an SSH binary packet's payload type. See RFC
// 4253 §12 for the canonical ID ranges; this covers the full closed
// union of IDs this server understands and produces.
type MessageID byte

const (
	MsgDisconnect      MessageID = 1
	MsgIgnore          MessageID = 2
	MsgUnimplemented   MessageID = 3
	MsgDebug           MessageID = 4
	MsgServiceRequest  MessageID = 5
	MsgServiceAccept   MessageID = 6
	MsgKexInit         MessageID = 20
	MsgNewKeys         MessageID = 21
	MsgKexECDHInit     MessageID = 30
	MsgKexECDHReply    MessageID = 31
	MsgUserauthRequest MessageID = 50
	MsgUserauthFailure MessageID = 51
	MsgUserauthSuccess MessageID = 52
	MsgUserauthBanner  MessageID = 53
	MsgGlobalRequest   MessageID = 80
	MsgRequestSuccess  MessageID = 81
	MsgRequestFailure  MessageID = 82

	MsgChannelOpen             MessageID = 90
	MsgChannelOpenConfirmation MessageID = 91
	MsgChannelOpenFailure      MessageID = 92
	MsgChannelWindowAdjust     MessageID = 93
	MsgChannelData             MessageID = 94
	MsgChannelExtendedData     MessageID = 95
	MsgChannelEOF              MessageID = 96
	MsgChannelClose            MessageID = 97
	MsgChannelRequest          MessageID = 98
	MsgChannelSuccess          MessageID = 99
	MsgChannelFailure          MessageID = 100
)

// Disconnect is message ID 1.
type Disconnect struct {
	ReasonCode  uint32
	Description string
	LanguageTag string
}

// SSH disconnect reason codes this server sends (RFC 4253 §11.1).
const (
	DisconnectProtocolError       uint32 = 2
	DisconnectKeyExchangeFailed   uint32 = 3
	DisconnectMACError            uint32 = 5
	DisconnectByApplication       uint32 = 11
)

func (d Disconnect) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(MsgDisconnect))
	WriteUint32(&buf, d.ReasonCode)
	WriteString(&buf, d.Description)
	WriteString(&buf, d.LanguageTag)
	return buf.Bytes()
}

// Ignore is message ID 2: a no-op payload either side may send, e.g.
// as padding against traffic analysis. This server never sends one
// but accepts them silently.
type Ignore struct {
	Data []byte
}

func ParseIgnore(payload []byte) (Ignore, error) {
	data, err := ReadBytes(bytes.NewReader(payload))
	return Ignore{Data: data}, trace.Wrap(err)
}

func (i Ignore) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(MsgIgnore))
	WriteBytes(&buf, i.Data)
	return buf.Bytes()
}

// Unimplemented is message ID 3: sent in reply to a packet whose
// sequence number the receiver didn't understand.
type Unimplemented struct {
	SequenceNumber uint32
}

func (u Unimplemented) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(MsgUnimplemented))
	WriteUint32(&buf, u.SequenceNumber)
	return buf.Bytes()
}

// Debug is message ID 4: an optional diagnostic string. This server
// never sends one but accepts them silently.
type Debug struct {
	AlwaysDisplay bool
	Message       string
	LanguageTag   string
}

func ParseDebug(payload []byte) (Debug, error) {
	r := bytes.NewReader(payload)
	var d Debug
	var always [1]byte
	if _, err := r.Read(always[:]); err != nil {
		return d, trace.Wrap(err)
	}
	d.AlwaysDisplay = always[0] != 0
	var err error
	if d.Message, err = ReadString(r); err != nil {
		return d, trace.Wrap(err)
	}
	if d.LanguageTag, err = ReadString(r); err != nil {
		return d, trace.Wrap(err)
	}
	return d, nil
}

func (d Debug) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(MsgDebug))
	if d.AlwaysDisplay {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	WriteString(&buf, d.Message)
	WriteString(&buf, d.LanguageTag)
	return buf.Bytes()
}

// KexInit is message ID 20: the algorithm-negotiation payload. This
// server offers exactly one algorithm per category (curve25519-sha256,
// ssh-ed25519, aes128-ctr, hmac-sha2-256, none compression), so the
// name-lists always carry a single entry, but the wire format still
// carries full lists for interoperability with real clients.
type KexInit struct {
	Cookie                  [16]byte
	KexAlgorithms           []string
	ServerHostKeyAlgorithms []string
	EncCSAlgorithms         []string
	EncSCAlgorithms         []string
	MacCSAlgorithms         []string
	MacSCAlgorithms         []string
	CompCSAlgorithms        []string
	CompSCAlgorithms        []string
	LanguagesCS             []string
	LanguagesSC             []string
	FirstKexPacketFollows   bool
}

func (k KexInit) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(MsgKexInit))
	buf.Write(k.Cookie[:])
	WriteNameList(&buf, k.KexAlgorithms)
	WriteNameList(&buf, k.ServerHostKeyAlgorithms)
	WriteNameList(&buf, k.EncCSAlgorithms)
	WriteNameList(&buf, k.EncSCAlgorithms)
	WriteNameList(&buf, k.MacCSAlgorithms)
	WriteNameList(&buf, k.MacSCAlgorithms)
	WriteNameList(&buf, k.CompCSAlgorithms)
	WriteNameList(&buf, k.CompSCAlgorithms)
	WriteNameList(&buf, k.LanguagesCS)
	WriteNameList(&buf, k.LanguagesSC)
	if k.FirstKexPacketFollows {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	WriteUint32(&buf, 0) // reserved
	return buf.Bytes()
}

// ParseKexInit decodes a KexInit payload. payload does not include the
// leading message-ID byte.
func ParseKexInit(payload []byte) (KexInit, error) {
	r := bytes.NewReader(payload)
	var k KexInit
	if _, err := r.Read(k.Cookie[:]); err != nil {
		return k, trace.Wrap(err, "reading kexinit cookie")
	}
	lists := []*[]string{
		&k.KexAlgorithms, &k.ServerHostKeyAlgorithms,
		&k.EncCSAlgorithms, &k.EncSCAlgorithms,
		&k.MacCSAlgorithms, &k.MacSCAlgorithms,
		&k.CompCSAlgorithms, &k.CompSCAlgorithms,
		&k.LanguagesCS, &k.LanguagesSC,
	}
	for _, l := range lists {
		names, err := ReadNameList(r)
		if err != nil {
			return k, trace.Wrap(err, "reading kexinit name-list")
		}
		*l = names
	}
	var flag [1]byte
	if _, err := r.Read(flag[:]); err != nil {
		return k, trace.Wrap(err, "reading kexinit first-packet-follows flag")
	}
	k.FirstKexPacketFollows = flag[0] != 0
	return k, nil
}

// KexECDHInit is message ID 30.
type KexECDHInit struct {
	ClientPublicKey []byte
}

func ParseKexECDHInit(payload []byte) (KexECDHInit, error) {
	r := bytes.NewReader(payload)
	key, err := ReadBytes(r)
	if err != nil {
		return KexECDHInit{}, trace.Wrap(err, "reading kex ecdh init public key")
	}
	return KexECDHInit{ClientPublicKey: key}, nil
}

func (k KexECDHInit) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(MsgKexECDHInit))
	WriteBytes(&buf, k.ClientPublicKey)
	return buf.Bytes()
}

// KexECDHReply is message ID 31.
type KexECDHReply struct {
	ServerPublicHostKey []byte
	ServerPublicKey     []byte
	Signature           []byte
}

func (k KexECDHReply) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(MsgKexECDHReply))
	WriteBytes(&buf, k.ServerPublicHostKey)
	WriteBytes(&buf, k.ServerPublicKey)
	WriteBytes(&buf, k.Signature)
	return buf.Bytes()
}

// NewKeys is message ID 21; it has no payload beyond the ID.
func NewKeysMarshal() []byte {
	return []byte{byte(MsgNewKeys)}
}

// ServiceRequest is message ID 5.
type ServiceRequest struct {
	ServiceName string
}

func ParseServiceRequest(payload []byte) (ServiceRequest, error) {
	name, err := ReadString(bytes.NewReader(payload))
	if err != nil {
		return ServiceRequest{}, trace.Wrap(err, "reading service request name")
	}
	return ServiceRequest{ServiceName: name}, nil
}

// ServiceAccept is message ID 6.
type ServiceAccept struct {
	ServiceName string
}

func (s ServiceAccept) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(MsgServiceAccept))
	WriteString(&buf, s.ServiceName)
	return buf.Bytes()
}

// UserauthBanner is message ID 53.
type UserauthBanner struct {
	Message     string
	LanguageTag string
}

func (u UserauthBanner) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(MsgUserauthBanner))
	WriteString(&buf, u.Message)
	WriteString(&buf, u.LanguageTag)
	return buf.Bytes()
}

// UserauthRequest is message ID 50. Only the fields this server
// inspects are decoded; the method-specific trailer (password,
// publickey blob, etc.) is ignored since every request is accepted.
type UserauthRequest struct {
	Username    string
	ServiceName string
	MethodName  string
}

func ParseUserauthRequest(payload []byte) (UserauthRequest, error) {
	r := bytes.NewReader(payload)
	var u UserauthRequest
	var err error
	if u.Username, err = ReadString(r); err != nil {
		return u, trace.Wrap(err, "reading userauth username")
	}
	if u.ServiceName, err = ReadString(r); err != nil {
		return u, trace.Wrap(err, "reading userauth service name")
	}
	if u.MethodName, err = ReadString(r); err != nil {
		return u, trace.Wrap(err, "reading userauth method name")
	}
	return u, nil
}

// UserauthSuccess is message ID 52; no payload beyond the ID.
func UserauthSuccessMarshal() []byte {
	return []byte{byte(MsgUserauthSuccess)}
}

// GlobalRequest is message ID 80. This server has no global requests
// it acts on (no port forwarding, no tcpip-forward); every one it
// receives that wants a reply gets a RequestFailure.
type GlobalRequest struct {
	RequestName string
	WantReply   bool
	Trailer     []byte
}

func ParseGlobalRequest(payload []byte) (GlobalRequest, error) {
	r := bytes.NewReader(payload)
	var g GlobalRequest
	var err error
	if g.RequestName, err = ReadString(r); err != nil {
		return g, trace.Wrap(err)
	}
	var wantReply [1]byte
	if _, err := r.Read(wantReply[:]); err != nil {
		return g, trace.Wrap(err)
	}
	g.WantReply = wantReply[0] != 0
	rest := make([]byte, r.Len())
	if _, err := r.Read(rest); err != nil && len(rest) > 0 {
		return g, trace.Wrap(err)
	}
	g.Trailer = rest
	return g, nil
}

func (g GlobalRequest) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(MsgGlobalRequest))
	WriteString(&buf, g.RequestName)
	if g.WantReply {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	buf.Write(g.Trailer)
	return buf.Bytes()
}

// RequestSuccess and RequestFailure (IDs 81/82) reply to a
// GlobalRequest; this server only ever sends RequestFailure, since it
// has no global request type it honors.
type RequestSuccess struct{ Trailer []byte }
type RequestFailure struct{}

func (r RequestSuccess) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(MsgRequestSuccess))
	buf.Write(r.Trailer)
	return buf.Bytes()
}

func (RequestFailure) Marshal() []byte {
	return []byte{byte(MsgRequestFailure)}
}

// ChannelOpen is message ID 90.
type ChannelOpen struct {
	ChannelType       string
	SenderChannel     uint32
	InitialWindowSize uint32
	MaxPacketSize     uint32
}

func ParseChannelOpen(payload []byte) (ChannelOpen, error) {
	r := bytes.NewReader(payload)
	var c ChannelOpen
	var err error
	if c.ChannelType, err = ReadString(r); err != nil {
		return c, trace.Wrap(err, "reading channel type")
	}
	if c.SenderChannel, err = ReadUint32(r); err != nil {
		return c, trace.Wrap(err, "reading sender channel")
	}
	if c.InitialWindowSize, err = ReadUint32(r); err != nil {
		return c, trace.Wrap(err, "reading initial window size")
	}
	if c.MaxPacketSize, err = ReadUint32(r); err != nil {
		return c, trace.Wrap(err, "reading max packet size")
	}
	return c, nil
}

// ChannelOpenConfirmation is message ID 91.
type ChannelOpenConfirmation struct {
	RecipientChannel  uint32
	SenderChannel     uint32
	InitialWindowSize uint32
	MaxPacketSize     uint32
}

func (c ChannelOpenConfirmation) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(MsgChannelOpenConfirmation))
	WriteUint32(&buf, c.RecipientChannel)
	WriteUint32(&buf, c.SenderChannel)
	WriteUint32(&buf, c.InitialWindowSize)
	WriteUint32(&buf, c.MaxPacketSize)
	return buf.Bytes()
}

// ChannelOpenFailure is message ID 92.
type ChannelOpenFailure struct {
	RecipientChannel uint32
	ReasonCode       uint32
	Description      string
	LanguageTag      string
}

func (c ChannelOpenFailure) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(MsgChannelOpenFailure))
	WriteUint32(&buf, c.RecipientChannel)
	WriteUint32(&buf, c.ReasonCode)
	WriteString(&buf, c.Description)
	WriteString(&buf, c.LanguageTag)
	return buf.Bytes()
}

// ChannelWindowAdjust is message ID 93.
type ChannelWindowAdjust struct {
	RecipientChannel uint32
	BytesToAdd       uint32
}

func ParseChannelWindowAdjust(payload []byte) (ChannelWindowAdjust, error) {
	r := bytes.NewReader(payload)
	var c ChannelWindowAdjust
	var err error
	if c.RecipientChannel, err = ReadUint32(r); err != nil {
		return c, trace.Wrap(err)
	}
	if c.BytesToAdd, err = ReadUint32(r); err != nil {
		return c, trace.Wrap(err)
	}
	return c, nil
}

func (c ChannelWindowAdjust) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(MsgChannelWindowAdjust))
	WriteUint32(&buf, c.RecipientChannel)
	WriteUint32(&buf, c.BytesToAdd)
	return buf.Bytes()
}

// ChannelData is message ID 94.
type ChannelData struct {
	RecipientChannel uint32
	Data             []byte
}

func ParseChannelData(payload []byte) (ChannelData, error) {
	r := bytes.NewReader(payload)
	var c ChannelData
	var err error
	if c.RecipientChannel, err = ReadUint32(r); err != nil {
		return c, trace.Wrap(err)
	}
	if c.Data, err = ReadBytes(r); err != nil {
		return c, trace.Wrap(err)
	}
	return c, nil
}

func (c ChannelData) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(MsgChannelData))
	WriteUint32(&buf, c.RecipientChannel)
	WriteBytes(&buf, c.Data)
	return buf.Bytes()
}

// ChannelExtendedData is message ID 95, used by clients to carry
// stderr (SSH_EXTENDED_DATA_STDERR = 1). This server never opens a
// channel that produces extended data, but a conforming client may
// still send one; it's decodable rather than falling through to the
// unknown-message disconnect.
type ChannelExtendedData struct {
	RecipientChannel uint32
	DataTypeCode     uint32
	Data             []byte
}

func ParseChannelExtendedData(payload []byte) (ChannelExtendedData, error) {
	r := bytes.NewReader(payload)
	var c ChannelExtendedData
	var err error
	if c.RecipientChannel, err = ReadUint32(r); err != nil {
		return c, trace.Wrap(err)
	}
	if c.DataTypeCode, err = ReadUint32(r); err != nil {
		return c, trace.Wrap(err)
	}
	if c.Data, err = ReadBytes(r); err != nil {
		return c, trace.Wrap(err)
	}
	return c, nil
}

func (c ChannelExtendedData) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(MsgChannelExtendedData))
	WriteUint32(&buf, c.RecipientChannel)
	WriteUint32(&buf, c.DataTypeCode)
	WriteBytes(&buf, c.Data)
	return buf.Bytes()
}

// ChannelEOF and ChannelClose (IDs 96/97) carry only the recipient
// channel number.
type ChannelEOF struct{ RecipientChannel uint32 }
type ChannelClose struct{ RecipientChannel uint32 }

func ParseChannelEOF(payload []byte) (ChannelEOF, error) {
	n, err := ReadUint32(bytes.NewReader(payload))
	return ChannelEOF{RecipientChannel: n}, trace.Wrap(err)
}

func ParseChannelClose(payload []byte) (ChannelClose, error) {
	n, err := ReadUint32(bytes.NewReader(payload))
	return ChannelClose{RecipientChannel: n}, trace.Wrap(err)
}

func (c ChannelEOF) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(MsgChannelEOF))
	WriteUint32(&buf, c.RecipientChannel)
	return buf.Bytes()
}

func (c ChannelClose) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(MsgChannelClose))
	WriteUint32(&buf, c.RecipientChannel)
	return buf.Bytes()
}

// ChannelRequest is message ID 98. The request-type-specific trailer
// (pty-req dimensions, window-change dimensions, exec command, ...) is
// kept as raw bytes for the caller to decode further, since only a
// handful of request types carry payload this server inspects.
type ChannelRequest struct {
	RecipientChannel uint32
	RequestType      string
	WantReply        bool
	Trailer          []byte
}

func ParseChannelRequest(payload []byte) (ChannelRequest, error) {
	r := bytes.NewReader(payload)
	var c ChannelRequest
	var err error
	if c.RecipientChannel, err = ReadUint32(r); err != nil {
		return c, trace.Wrap(err)
	}
	if c.RequestType, err = ReadString(r); err != nil {
		return c, trace.Wrap(err)
	}
	var wantReply [1]byte
	if _, err := r.Read(wantReply[:]); err != nil {
		return c, trace.Wrap(err)
	}
	c.WantReply = wantReply[0] != 0
	rest := make([]byte, r.Len())
	if _, err := r.Read(rest); err != nil && len(rest) > 0 {
		return c, trace.Wrap(err)
	}
	c.Trailer = rest
	return c, nil
}

// PTYRequest decodes the trailer of a "pty-req" ChannelRequest.
type PTYRequest struct {
	TermEnv      string
	WidthChars   uint32
	HeightChars  uint32
	WidthPixels  uint32
	HeightPixels uint32
}

func ParsePTYRequest(trailer []byte) (PTYRequest, error) {
	r := bytes.NewReader(trailer)
	var p PTYRequest
	var err error
	if p.TermEnv, err = ReadString(r); err != nil {
		return p, trace.Wrap(err)
	}
	if p.WidthChars, err = ReadUint32(r); err != nil {
		return p, trace.Wrap(err)
	}
	if p.HeightChars, err = ReadUint32(r); err != nil {
		return p, trace.Wrap(err)
	}
	if p.WidthPixels, err = ReadUint32(r); err != nil {
		return p, trace.Wrap(err)
	}
	if p.HeightPixels, err = ReadUint32(r); err != nil {
		return p, trace.Wrap(err)
	}
	return p, nil
}

// WindowChangeRequest decodes the trailer of a "window-change"
// ChannelRequest — identical layout to PTYRequest minus the term name.
type WindowChangeRequest struct {
	WidthChars   uint32
	HeightChars  uint32
	WidthPixels  uint32
	HeightPixels uint32
}

func ParseWindowChangeRequest(trailer []byte) (WindowChangeRequest, error) {
	r := bytes.NewReader(trailer)
	var w WindowChangeRequest
	var err error
	if w.WidthChars, err = ReadUint32(r); err != nil {
		return w, trace.Wrap(err)
	}
	if w.HeightChars, err = ReadUint32(r); err != nil {
		return w, trace.Wrap(err)
	}
	if w.WidthPixels, err = ReadUint32(r); err != nil {
		return w, trace.Wrap(err)
	}
	if w.HeightPixels, err = ReadUint32(r); err != nil {
		return w, trace.Wrap(err)
	}
	return w, nil
}

// ChannelSuccess and ChannelFailure (IDs 99/100) carry only the
// recipient channel number.
type ChannelSuccess struct{ RecipientChannel uint32 }
type ChannelFailure struct{ RecipientChannel uint32 }

func (c ChannelSuccess) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(MsgChannelSuccess))
	WriteUint32(&buf, c.RecipientChannel)
	return buf.Bytes()
}

func (c ChannelFailure) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(MsgChannelFailure))
	WriteUint32(&buf, c.RecipientChannel)
	return buf.Bytes()
}
