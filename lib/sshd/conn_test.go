package sshd

import (
	"bufio"
	"bytes"
	"crypto/ed25519"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mat-1/protocols/lib/sitedata"
	"github.com/mat-1/protocols/lib/sshkex"
	"github.com/mat-1/protocols/lib/sshtransport"
	"github.com/mat-1/protocols/lib/sshwire"
)

// testClient plays the client side of the handshake by hand, using
// the same lib/sshwire, lib/sshtransport and lib/sshkex packages the
// server is built on - exercising the whole stack against itself
// end-to-end over an in-memory net.Pipe.
type testClient struct {
	conn   net.Conn
	reader *sshtransport.Reader
	writer *sshtransport.Writer

	clientVersion string
	serverVersion string
	sessionID     []byte
}

func newTestClient(t *testing.T, conn net.Conn, hostPub ed25519.PublicKey) *testClient {
	tc := &testClient{conn: conn, clientVersion: "SSH-2.0-testclient"}

	br := bufio.NewReader(conn)
	line, err := br.ReadString('\n')
	require.NoError(t, err)
	tc.serverVersion = trimCRLF(line)

	_, err = fmt.Fprintf(conn, "%s\r\n", tc.clientVersion)
	require.NoError(t, err)

	rest := make([]byte, br.Buffered())
	_, _ = io.ReadFull(br, rest)
	tc.reader = sshtransport.NewReader(io.MultiReader(bytes.NewReader(rest), conn))
	tc.writer = sshtransport.NewWriter(conn)

	tc.handshake(t, hostPub)
	return tc
}

func (tc *testClient) handshake(t *testing.T, hostPub ed25519.PublicKey) {
	serverKexPayload, err := tc.reader.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, sshwire.MsgKexInit, sshwire.MessageID(serverKexPayload[0]))

	cookie, err := sshkex.GenerateCookie()
	require.NoError(t, err)
	clientInit := sshwire.KexInit{
		Cookie:                  cookie,
		KexAlgorithms:           []string{sshkex.KexAlgorithm},
		ServerHostKeyAlgorithms: []string{sshkex.HostKeyAlgorithm},
		EncCSAlgorithms:         []string{sshkex.CipherAlgorithm},
		EncSCAlgorithms:         []string{sshkex.CipherAlgorithm},
		MacCSAlgorithms:         []string{sshkex.MACAlgorithm},
		MacSCAlgorithms:         []string{sshkex.MACAlgorithm},
		CompCSAlgorithms:        []string{sshkex.CompAlgorithm},
		CompSCAlgorithms:        []string{sshkex.CompAlgorithm},
	}
	clientKexPayload := clientInit.Marshal()
	require.NoError(t, tc.writer.WritePacket(clientKexPayload))

	ourScalar, ourPublic, err := sshkex.GenerateEphemeralKeypair()
	require.NoError(t, err)
	require.NoError(t, tc.writer.WritePacket(sshwire.KexECDHInit{ClientPublicKey: ourPublic[:]}.Marshal()))

	replyPayload, err := tc.reader.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, sshwire.MsgKexECDHReply, sshwire.MessageID(replyPayload[0]))
	hostKeyBlob, serverPublicKey, signature := parseECDHReply(t, replyPayload[1:])
	require.Equal(t, sshkex.HostKeyBlob(hostPub), hostKeyBlob)

	sharedSecret, err := sshkex.SharedSecret(ourScalar, serverPublicKey)
	require.NoError(t, err)

	exchangeHash := sshkex.ComputeExchangeHash(sshkex.ExchangeHashInput{
		ClientID:             tc.clientVersion,
		ServerID:             tc.serverVersion,
		ClientKexInitPayload: clientKexPayload,
		ServerKexInitPayload: serverKexPayload,
		HostKeyBlob:          hostKeyBlob,
		ClientEphemeral:      ourPublic[:],
		ServerEphemeral:      serverPublicKey,
		SharedSecret:         sharedSecret,
	})
	tc.sessionID = exchangeHash

	rawSig := parseSignatureBlob(t, signature)
	require.True(t, ed25519.Verify(hostPub, exchangeHash, rawSig), "server signature must verify")

	newKeysPayload, err := tc.reader.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, sshwire.MsgNewKeys, sshwire.MessageID(newKeysPayload[0]))
	require.NoError(t, tc.writer.WritePacket(sshwire.NewKeysMarshal()))

	keys := sshkex.DeriveKeys(sharedSecret, exchangeHash, tc.sessionID)
	require.NoError(t, tc.writer.EnableEncryption(keys.EncClientToServer, keys.IVClientToServer, keys.IntClientToServer))
	require.NoError(t, tc.reader.EnableEncryption(keys.EncServerToClient, keys.IVServerToClient, keys.IntServerToClient))
}

func parseECDHReply(t *testing.T, payload []byte) (hostKeyBlob, serverPublicKey, signature []byte) {
	r := bytes.NewReader(payload)
	var err error
	hostKeyBlob, err = sshwire.ReadBytes(r)
	require.NoError(t, err)
	serverPublicKey, err = sshwire.ReadBytes(r)
	require.NoError(t, err)
	signature, err = sshwire.ReadBytes(r)
	require.NoError(t, err)
	return hostKeyBlob, serverPublicKey, signature
}

// parseSignatureBlob strips the "ssh-ed25519" name-string prefix off a
// signature blob, returning the raw 64-byte ed25519 signature.
func parseSignatureBlob(t *testing.T, blob []byte) []byte {
	r := bytes.NewReader(blob)
	_, err := sshwire.ReadString(r)
	require.NoError(t, err)
	sig, err := sshwire.ReadBytes(r)
	require.NoError(t, err)
	return sig
}

func (tc *testClient) authenticate(t *testing.T) {
	req := sshwire.ServiceRequest{ServiceName: "ssh-userauth"}
	require.NoError(t, tc.writer.WritePacket(req.Marshal()))

	acceptPayload, err := tc.reader.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, sshwire.MsgServiceAccept, sshwire.MessageID(acceptPayload[0]))

	bannerPayload, err := tc.reader.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, sshwire.MsgUserauthBanner, sshwire.MessageID(bannerPayload[0]))

	var buf bytes.Buffer
	buf.WriteByte(byte(sshwire.MsgUserauthRequest))
	sshwire.WriteString(&buf, "anyone")
	sshwire.WriteString(&buf, "ssh-connection")
	sshwire.WriteString(&buf, "password")
	require.NoError(t, tc.writer.WritePacket(buf.Bytes()))

	successPayload, err := tc.reader.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, sshwire.MsgUserauthSuccess, sshwire.MessageID(successPayload[0]))
}

func (tc *testClient) openSessionChannel(t *testing.T) {
	open := sshwire.ChannelOpen{
		ChannelType:       "session",
		SenderChannel:     0,
		InitialWindowSize: 1 << 20,
		MaxPacketSize:     1 << 14,
	}
	require.NoError(t, tc.writer.WritePacket(open.Marshal()))

	confirmPayload, err := tc.reader.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, sshwire.MsgChannelOpenConfirmation, sshwire.MessageID(confirmPayload[0]))
}

func (tc *testClient) sendChannelRequest(t *testing.T, requestType string, trailer []byte, wantReply bool) {
	var buf bytes.Buffer
	buf.WriteByte(byte(sshwire.MsgChannelRequest))
	sshwire.WriteUint32(&buf, 0)
	sshwire.WriteString(&buf, requestType)
	if wantReply {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	buf.Write(trailer)
	require.NoError(t, tc.writer.WritePacket(buf.Bytes()))
}

func (tc *testClient) readExpect(t *testing.T, want sshwire.MessageID) []byte {
	payload, err := tc.reader.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, want, sshwire.MessageID(payload[0]))
	return payload[1:]
}

func TestFullHandshakeAndShellSession(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	hostPub, hostKey, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	data := &sitedata.SiteData{
		Blog: []sitedata.Post{{Title: "Hello", Slug: "hello"}},
	}

	done := make(chan error, 1)
	go func() {
		done <- Serve(serverConn, hostKey, data, nil)
	}()

	tc := newTestClient(t, clientConn, hostPub)
	tc.authenticate(t)
	tc.openSessionChannel(t)

	ptyTrailer := ptyTrailerBytes("xterm", 80, 24)
	tc.sendChannelRequest(t, "pty-req", ptyTrailer, true)
	tc.readExpect(t, sshwire.MsgChannelSuccess)

	tc.sendChannelRequest(t, "shell", nil, true)
	tc.readExpect(t, sshwire.MsgChannelSuccess)

	screen := tc.readExpect(t, sshwire.MsgChannelData)
	require.Contains(t, string(screen), "matdoes.dev")

	clientConn.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not exit after client disconnect")
	}
}

func ptyTrailerBytes(term string, width, height uint32) []byte {
	var buf bytes.Buffer
	sshwire.WriteString(&buf, term)
	sshwire.WriteUint32(&buf, width)
	sshwire.WriteUint32(&buf, height)
	sshwire.WriteUint32(&buf, 0)
	sshwire.WriteUint32(&buf, 0)
	sshwire.WriteString(&buf, "")
	return buf.Bytes()
}
