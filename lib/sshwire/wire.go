// Package sshwire implements the primitive wire encodings used by the
// SSH binary packet protocol: length-prefixed strings and byte
// strings, name-lists, and the multiple-precision integer encoding
// used by the key exchange and key-derivation math. See RFC 4251 §5.
package sshwire

import (
	"bytes"
	"encoding/binary"
	"io"
	"math/big"
	"strings"

	"github.com/gravitational/trace"
)

// ReadUint32 reads a 4-byte big-endian unsigned integer.
func ReadUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, trace.Wrap(err, "reading uint32")
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// WriteUint32 writes v as a 4-byte big-endian unsigned integer.
func WriteUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

// ReadBytes reads a uint32-length-prefixed byte string.
func ReadBytes(r io.Reader) ([]byte, error) {
	n, err := ReadUint32(r)
	if err != nil {
		return nil, trace.Wrap(err, "reading byte string length")
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, trace.Wrap(err, "reading byte string contents")
	}
	return data, nil
}

// WriteBytes writes a byte string as a uint32 length prefix followed
// by its contents.
func WriteBytes(buf *bytes.Buffer, data []byte) {
	WriteUint32(buf, uint32(len(data)))
	buf.Write(data)
}

// ReadString reads a uint32-length-prefixed UTF-8 string.
func ReadString(r io.Reader) (string, error) {
	data, err := ReadBytes(r)
	if err != nil {
		return "", trace.Wrap(err, "reading string")
	}
	return string(data), nil
}

// WriteString writes s as a length-prefixed byte string.
func WriteString(buf *bytes.Buffer, s string) {
	WriteBytes(buf, []byte(s))
}

// ReadNameList reads a comma-separated name-list. An empty string
// decodes to an empty (non-nil) slice, per RFC 4251 §5.
func ReadNameList(r io.Reader) ([]string, error) {
	s, err := ReadString(r)
	if err != nil {
		return nil, trace.Wrap(err, "reading name-list")
	}
	if s == "" {
		return []string{}, nil
	}
	return strings.Split(s, ","), nil
}

// WriteNameList writes names as a comma-joined name-list.
func WriteNameList(buf *bytes.Buffer, names []string) {
	WriteString(buf, strings.Join(names, ","))
}

// WriteMPInt writes v as an SSH multiple-precision integer: a
// length-prefixed two's-complement big-endian byte string, with a
// leading zero byte inserted whenever the high bit of the first
// significant byte would otherwise be set (so the value always reads
// as non-negative). v must be non-negative; this codec is only ever
// used for the shared secret and host-key-derivation values, which
// are always positive.
func WriteMPInt(buf *bytes.Buffer, v *big.Int) {
	if v.Sign() == 0 {
		WriteBytes(buf, nil)
		return
	}
	b := v.Bytes()
	// big.Int.Bytes never has leading zero bytes, but strip any just
	// in case a caller hands us one (matches the original's explicit
	// skip-leading-zeros step).
	for len(b) > 0 && b[0] == 0 {
		b = b[1:]
	}
	if len(b) > 0 && b[0]&0x80 != 0 {
		padded := make([]byte, len(b)+1)
		copy(padded[1:], b)
		b = padded
	}
	WriteBytes(buf, b)
}

// ReadMPInt reads an SSH multiple-precision integer.
func ReadMPInt(r io.Reader) (*big.Int, error) {
	b, err := ReadBytes(r)
	if err != nil {
		return nil, trace.Wrap(err, "reading mpint")
	}
	return new(big.Int).SetBytes(b), nil
}
