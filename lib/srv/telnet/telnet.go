// Package telnet serves an interactive tui.Session over the Telnet
// protocol (RFC 854), negotiating character-at-a-time mode, a
// suppressed "go ahead", and NAWS window-size reporting (RFC 1073).
package telnet

import (
	"net"

	"github.com/gravitational/trace"
	"github.com/sirupsen/logrus"

	"github.com/mat-1/protocols/lib/metrics"
	"github.com/mat-1/protocols/lib/sitedata"
	"github.com/mat-1/protocols/lib/tui"
)

// Telnet command/option bytes this server speaks (RFC 854/855/1073).
const (
	iac  = 255
	will = 251
	wont = 252
	do   = 253
	dont = 254
	sb   = 250
	se   = 240

	optEcho   = 1
	optSuppGA = 3
	optNAWS   = 31
)

// Serve accepts and handles Telnet connections off l until it's
// closed.
func Serve(l net.Listener, data *sitedata.SiteData, log logrus.FieldLogger) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			return trace.Wrap(err)
		}
		go handleConn(conn, data, log)
	}
}

func handleConn(conn net.Conn, data *sitedata.SiteData, log logrus.FieldLogger) {
	defer conn.Close()
	defer metrics.RecoverConnection("telnet", log)
	metrics.ConnectionsTotal.WithLabelValues("telnet").Inc()

	negotiate(conn)

	session := tui.NewSession(data)
	if _, err := conn.Write([]byte(session.OnOpen())); err != nil {
		return
	}

	fsm := newTelnetFSM(session)
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			if log != nil {
				log.WithError(err).Debug("telnet connection closed")
			}
			return
		}
		out := fsm.feed(buf[:n])
		if out != "" {
			if _, err := conn.Write([]byte(out)); err != nil {
				return
			}
		}
		if fsm.quit {
			return
		}
	}
}

// negotiate sends the opening option offers. This server doesn't wait
// for or validate the client's replies: real telnet clients either
// honor WILL ECHO/SUPPRESS-GO-AHEAD or fall back to line mode, and
// either way the byte stream this server gets is something
// tui.DecodeKeys can make sense of.
func negotiate(conn net.Conn) {
	conn.Write([]byte{iac, will, optEcho})
	conn.Write([]byte{iac, will, optSuppGA})
	conn.Write([]byte{iac, do, optNAWS})
}

// telnetFSM strips IAC command sequences (including NAWS
// subnegotiation) out of an incoming telnet byte stream, forwarding
// whatever's left to tui.DecodeKeys, and applies any window-size
// change it decodes to the session directly.
type telnetFSM struct {
	session  *tui.Session
	state    int
	sbOption byte
	sbData   []byte
	quit     bool
}

func newTelnetFSM(session *tui.Session) *telnetFSM {
	return &telnetFSM{session: session}
}

const (
	stateNormal = iota
	stateIAC
	stateOption
	stateSubOption
	stateSub
	stateSubIAC
)

func (f *telnetFSM) feed(data []byte) string {
	var plain []byte
	var out string
	for _, b := range data {
		switch f.state {
		case stateNormal:
			if b == iac {
				f.state = stateIAC
			} else {
				plain = append(plain, b)
			}
		case stateIAC:
			switch b {
			case will, wont, do, dont:
				f.state = stateOption
			case sb:
				f.state = stateSubOption
				f.sbData = nil
			default:
				f.state = stateNormal
			}
		case stateOption:
			// client is (dis)agreeing to an option this server offered;
			// nothing further to do until a subnegotiation (if any)
			// arrives.
			f.state = stateNormal
		case stateSubOption:
			f.sbOption = b
			f.state = stateSub
		case stateSub:
			if b == iac {
				f.state = stateSubIAC
			} else {
				f.sbData = append(f.sbData, b)
			}
		case stateSubIAC:
			if b == se {
				if f.sbOption == optNAWS && len(f.sbData) >= 4 {
					width := int(f.sbData[0])<<8 | int(f.sbData[1])
					height := int(f.sbData[2])<<8 | int(f.sbData[3])
					if width > 0 && height > 0 {
						out += f.session.Resize(width, height)
					}
				}
				f.state = stateNormal
			} else if b == iac {
				f.sbData = append(f.sbData, iac)
				f.state = stateSub
			} else {
				f.state = stateNormal
			}
		}
	}

	for _, key := range tui.DecodeKeys(plain) {
		if key.Kind == tui.KeyCtrlC || key.Kind == tui.KeyCtrlD {
			f.quit = true
			out += f.session.OnClose()
			return out
		}
		out += f.session.OnKeystroke(key)
	}
	return out
}
