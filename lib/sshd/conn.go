// Package sshd implements enough of the SSH-2 transport and
// connection protocols (RFC 4253/4254) to drive an interactive
// tui.Session over a single "session" channel: version exchange, one
// fixed key-exchange algorithm suite, always-accept userauth, and the
// pty-req/shell/window-change/data channel lifecycle. It does not
// implement port forwarding, exec of arbitrary commands, or any
// authentication method beyond "let everyone in".
package sshd

import (
	"bufio"
	"crypto/ed25519"
	"fmt"
	"io"
	"net"

	"github.com/gravitational/trace"
	"github.com/sirupsen/logrus"

	"github.com/mat-1/protocols/lib/sitedata"
	"github.com/mat-1/protocols/lib/sshkex"
	"github.com/mat-1/protocols/lib/sshtransport"
	"github.com/mat-1/protocols/lib/sshwire"
	"github.com/mat-1/protocols/lib/tui"
)

// ServerVersion is the identification string sent during the initial
// version exchange (RFC 4253 §4.2).
const ServerVersion = "SSH-2.0-matssh_1.0"

// sessionChannelType is the only channel type this server accepts.
const sessionChannelType = "session"

const (
	sessionWindowSize = 1 << 20
	sessionMaxPacket  = 1 << 14
)

// Serve drives one SSH connection to completion: version exchange,
// key exchange, userauth, and the session channel lifecycle. It
// blocks until the client disconnects or an unrecoverable protocol
// error occurs, and never returns an error for an ordinary client
// disconnect.
func Serve(conn net.Conn, hostKey ed25519.PrivateKey, data *sitedata.SiteData, log logrus.FieldLogger) error {
	defer conn.Close()
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}

	c := &connState{
		conn:    conn,
		hostKey: hostKey,
		data:    data,
		log:     log,
		reader:  sshtransport.NewReader(conn),
		writer:  sshtransport.NewWriter(conn),
	}
	if err := c.exchangeVersions(); err != nil {
		return trace.Wrap(err, "ssh version exchange")
	}
	if err := c.keyExchange(); err != nil {
		return trace.Wrap(err, "ssh key exchange")
	}
	if err := c.serviceAndAuth(); err != nil {
		return trace.Wrap(err, "ssh service/userauth")
	}
	return c.channelLoop()
}

type connState struct {
	conn    net.Conn
	hostKey ed25519.PrivateKey
	data    *sitedata.SiteData
	log     logrus.FieldLogger

	reader *sshtransport.Reader
	writer *sshtransport.Writer

	clientVersion string
	serverVersion string

	clientKexInitPayload []byte
	serverKexInitPayload []byte
	sessionID            []byte

	channelOpen   bool
	recipientID   uint32 // client's channel number, used as RecipientChannel in our replies
	localID       uint32 // our channel number, always 0: only one channel is ever opened
	peerWindow    uint32 // bytes we may still send before needing a ChannelWindowAdjust
	peerMaxPacket uint32
	session       *tui.Session
}

// exchangeVersions sends our identification string and reads the
// client's, per RFC 4253 §4.2. Both sides' lines are fed into the key
// exchange hash later, so they're kept verbatim (minus the trailing
// CR/LF).
func (c *connState) exchangeVersions() error {
	c.serverVersion = ServerVersion
	if _, err := fmt.Fprintf(c.conn, "%s\r\n", ServerVersion); err != nil {
		return trace.Wrap(err, "writing ssh version string")
	}

	br := bufio.NewReader(c.conn)
	line, err := br.ReadString('\n')
	if err != nil {
		return trace.Wrap(err, "reading ssh version string")
	}
	c.clientVersion = trimCRLF(line)

	// anything buffered past the version line belongs to the binary
	// packet protocol; splice it back in front of the raw connection
	// reads that follow.
	if br.Buffered() > 0 {
		rest := make([]byte, br.Buffered())
		io.ReadFull(br, rest)
		c.reader = sshtransport.NewReader(io.MultiReader(newBytesReader(rest), c.conn))
	}
	return nil
}

func trimCRLF(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// bytesReader is a trivial io.Reader over a fixed byte slice; used to
// splice pre-read bytes back onto a net.Conn without an extra
// dependency.
type bytesReader struct {
	b []byte
}

func newBytesReader(b []byte) io.Reader { return &bytesReader{b: b} }

func (r *bytesReader) Read(p []byte) (int, error) {
	if len(r.b) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.b)
	r.b = r.b[n:]
	return n, nil
}
