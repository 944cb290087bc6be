package sshwire

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	WriteString(&buf, "ssh-ed25519")
	got, err := ReadString(&buf)
	require.NoError(t, err)
	require.Equal(t, "ssh-ed25519", got)
}

func TestBytesRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	WriteBytes(&buf, []byte{1, 2, 3, 4})
	got, err := ReadBytes(&buf)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, got)
}

func TestNameListRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	WriteNameList(&buf, []string{"curve25519-sha256", "ssh-ed25519"})
	got, err := ReadNameList(&buf)
	require.NoError(t, err)
	require.Equal(t, []string{"curve25519-sha256", "ssh-ed25519"}, got)
}

func TestNameListEmpty(t *testing.T) {
	var buf bytes.Buffer
	WriteNameList(&buf, nil)
	got, err := ReadNameList(&buf)
	require.NoError(t, err)
	require.Equal(t, []string{}, got)
}

func TestWriteMPIntHighBitPadding(t *testing.T) {
	// 0x80 has its high bit set, so the encoding must prepend a zero byte.
	var buf bytes.Buffer
	WriteMPInt(&buf, big.NewInt(0x80))
	length, err := ReadUint32(&buf)
	require.NoError(t, err)
	require.EqualValues(t, 2, length)
	rest := buf.Bytes()
	require.Equal(t, []byte{0x00, 0x80}, rest)
}

func TestWriteMPIntNoPaddingNeeded(t *testing.T) {
	var buf bytes.Buffer
	WriteMPInt(&buf, big.NewInt(0x7f))
	length, err := ReadUint32(&buf)
	require.NoError(t, err)
	require.EqualValues(t, 1, length)
	require.Equal(t, []byte{0x7f}, buf.Bytes())
}

func TestMPIntRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := new(big.Int).SetBytes([]byte{0xff, 0x01, 0x02})
	WriteMPInt(&buf, want)
	got, err := ReadMPInt(&buf)
	require.NoError(t, err)
	require.Equal(t, 0, want.Cmp(got))
}

func TestWriteMPIntZero(t *testing.T) {
	var buf bytes.Buffer
	WriteMPInt(&buf, big.NewInt(0))
	length, err := ReadUint32(&buf)
	require.NoError(t, err)
	require.EqualValues(t, 0, length)
}
