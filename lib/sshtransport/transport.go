// Package sshtransport implements the SSH binary packet protocol's
// record layer: payload framing/padding and, once keys are
// established, AES-128-CTR encryption with an HMAC-SHA-256 MAC per
// direction. See RFC 4253 §6.
package sshtransport

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"io"

	"github.com/gravitational/trace"
)

// cipherBlockSize is the block size of the cipher in use once keys
// are established; 8 is used beforehand per RFC 4253 §6.
const cipherBlockSize = 16
const initialBlockSize = 8
const macSize = sha256.Size

// Keys holds the six per-direction keys derived by the key-exchange
// KDF (see lib/sshkex), keyed by the RFC 4253 §7.2 letters.
type Keys struct {
	IVClientToServer  []byte // A
	IVServerToClient  []byte // B
	EncClientToServer []byte // C
	EncServerToClient []byte // D
	IntClientToServer []byte // E
	IntServerToClient []byte // F
}

// Reader reads SSH binary packets from an underlying io.Reader,
// optionally decrypting and MAC-verifying them once EnableEncryption
// has been called.
type Reader struct {
	r      io.Reader
	stream cipher.Stream
	macKey []byte
	seqNum uint32
}

// NewReader returns a Reader that reads unencrypted packets.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// EnableEncryption switches the reader to AES-128-CTR decryption with
// HMAC-SHA-256 verification, using the given key and IV. Takes effect
// starting with the next packet read.
func (rd *Reader) EnableEncryption(key, iv, macKey []byte) error {
	block, err := aes.NewCipher(key)
	if err != nil {
		return trace.Wrap(err, "constructing AES cipher")
	}
	rd.stream = cipher.NewCTR(block, iv)
	rd.macKey = macKey
	return nil
}

func (rd *Reader) blockSize() int {
	if rd.stream == nil {
		return initialBlockSize
	}
	return cipherBlockSize
}

func (rd *Reader) decrypt(b []byte) {
	if rd.stream != nil {
		rd.stream.XORKeyStream(b, b)
	}
}

// ReadPacket reads and decodes the next SSH binary packet, returning
// its payload (the message-ID byte and everything after it, with
// length, padding and MAC stripped). Returns an error — and the
// connection must be closed without replying — if the packet is
// malformed or (with encryption enabled) the MAC doesn't verify.
func (rd *Reader) ReadPacket() ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(rd.r, lenBuf[:]); err != nil {
		return nil, trace.Wrap(err, "reading packet length")
	}
	rd.decrypt(lenBuf[:])
	packetLength := binary.BigEndian.Uint32(lenBuf[:])
	if packetLength == 0 || packetLength > 1<<20 {
		return nil, trace.BadParameter("invalid ssh packet length %d", packetLength)
	}

	body := make([]byte, packetLength)
	if _, err := io.ReadFull(rd.r, body); err != nil {
		return nil, trace.Wrap(err, "reading packet body")
	}
	rd.decrypt(body)

	paddingLength := int(body[0])
	if paddingLength+1 > len(body) {
		return nil, trace.BadParameter("invalid ssh padding length %d", paddingLength)
	}
	payload := body[1 : len(body)-paddingLength]

	if rd.macKey != nil {
		var mac [macSize]byte
		if _, err := io.ReadFull(rd.r, mac[:]); err != nil {
			return nil, trace.Wrap(err, "reading packet mac")
		}
		if !verifyMAC(rd.macKey, rd.seqNum, lenBuf[:], body, mac[:]) {
			return nil, trace.BadParameter("ssh packet mac verification failed")
		}
	}
	rd.seqNum++

	payloadCopy := make([]byte, len(payload))
	copy(payloadCopy, payload)
	return payloadCopy, nil
}

func verifyMAC(key []byte, seqNum uint32, lenBuf, body, mac []byte) bool {
	h := hmac.New(sha256.New, key)
	var seqBuf [4]byte
	binary.BigEndian.PutUint32(seqBuf[:], seqNum)
	h.Write(seqBuf[:])
	h.Write(lenBuf)
	h.Write(body)
	return hmac.Equal(h.Sum(nil), mac)
}

// Writer writes SSH binary packets to an underlying io.Writer,
// optionally encrypting and MACing them once EnableEncryption has
// been called.
type Writer struct {
	w      io.Writer
	stream cipher.Stream
	macKey []byte
	seqNum uint32
}

// NewWriter returns a Writer that writes unencrypted packets.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// EnableEncryption switches the writer to AES-128-CTR encryption with
// an HMAC-SHA-256 MAC, using the given key and IV. Takes effect
// starting with the next packet written.
func (wr *Writer) EnableEncryption(key, iv, macKey []byte) error {
	block, err := aes.NewCipher(key)
	if err != nil {
		return trace.Wrap(err, "constructing AES cipher")
	}
	wr.stream = cipher.NewCTR(block, iv)
	wr.macKey = macKey
	return nil
}

func (wr *Writer) blockSize() int {
	if wr.stream == nil {
		return initialBlockSize
	}
	return cipherBlockSize
}

// WritePacket frames payload (which must already include its leading
// message-ID byte) into an SSH binary packet and writes it out.
func (wr *Writer) WritePacket(payload []byte) error {
	blockSize := wr.blockSize()

	// padding_length = blockSize - (payload.len() + 5) % blockSize; if < 4, += blockSize.
	paddingLength := blockSize - (len(payload)+5)%blockSize
	if paddingLength < 4 {
		paddingLength += blockSize
	}
	padding := make([]byte, paddingLength)
	if _, err := rand.Read(padding); err != nil {
		return trace.Wrap(err, "generating ssh packet padding")
	}

	packetLength := uint32(len(payload) + paddingLength + 1)

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], packetLength)

	body := make([]byte, 0, packetLength)
	body = append(body, byte(paddingLength))
	body = append(body, payload...)
	body = append(body, padding...)

	var mac []byte
	if wr.macKey != nil {
		var seqBuf [4]byte
		binary.BigEndian.PutUint32(seqBuf[:], wr.seqNum)
		h := hmac.New(sha256.New, wr.macKey)
		h.Write(seqBuf[:])
		h.Write(lenBuf[:])
		h.Write(body)
		mac = h.Sum(nil)
	}

	var out bytes.Buffer
	out.Write(lenBuf[:])
	out.Write(body)
	if wr.stream != nil {
		encrypted := out.Bytes()
		wr.stream.XORKeyStream(encrypted, encrypted)
	}
	if mac != nil {
		out.Write(mac)
	}

	if _, err := wr.w.Write(out.Bytes()); err != nil {
		return trace.Wrap(err, "writing ssh packet")
	}
	wr.seqNum++
	return nil
}
