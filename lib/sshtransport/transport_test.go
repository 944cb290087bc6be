package sshtransport

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlaintextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WritePacket([]byte{1, 2, 3}))

	r := NewReader(&buf)
	got, err := r.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, got)
}

func TestEncryptedRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, 16)
	iv := bytes.Repeat([]byte{0x22}, 16)
	macKey := bytes.Repeat([]byte{0x33}, 32)

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.EnableEncryption(key, iv, macKey))
	require.NoError(t, w.WritePacket([]byte("hello ssh")))
	require.NoError(t, w.WritePacket([]byte("second packet")))

	r := NewReader(&buf)
	require.NoError(t, r.EnableEncryption(key, iv, macKey))

	got1, err := r.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte("hello ssh"), got1)

	got2, err := r.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte("second packet"), got2)
}

func TestEncryptedTamperedMACFails(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, 16)
	iv := bytes.Repeat([]byte{0x22}, 16)
	macKey := bytes.Repeat([]byte{0x33}, 32)

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.EnableEncryption(key, iv, macKey))
	require.NoError(t, w.WritePacket([]byte("hello ssh")))

	tampered := buf.Bytes()
	tampered[len(tampered)-1] ^= 0xff

	r := NewReader(bytes.NewReader(tampered))
	require.NoError(t, r.EnableEncryption(key, iv, macKey))
	_, err := r.ReadPacket()
	require.Error(t, err)
}

func TestPaddingLengthMinimum(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	// payload length chosen so that (len+5)%8==4, giving exactly the minimum 4 bytes of padding.
	payload := make([]byte, 7)
	require.NoError(t, w.WritePacket(payload))

	r := NewReader(&buf)
	got, err := r.ReadPacket()
	require.NoError(t, err)
	require.Len(t, got, 7)
}
