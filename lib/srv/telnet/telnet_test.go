package telnet

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mat-1/protocols/lib/sitedata"
	"github.com/mat-1/protocols/lib/tui"
)

func TestFeedStripsOptionNegotiation(t *testing.T) {
	session := tui.NewSession(&sitedata.SiteData{})
	session.OnOpen()
	fsm := newTelnetFSM(session)

	// client replies WONT ECHO, then sends a plain Tab keystroke.
	data := []byte{iac, wont, optEcho, 0x09}
	out := fsm.feed(data)
	require.Equal(t, 0, session.FocusedLink) // Tab focused the first link
	require.NotEmpty(t, out)
}

func TestFeedNAWSSubnegotiationResizes(t *testing.T) {
	session := tui.NewSession(&sitedata.SiteData{})
	fsm := newTelnetFSM(session)

	data := []byte{iac, sb, optNAWS, 0, 100, 0, 40, iac, se}
	fsm.feed(data)
	require.Equal(t, 100, session.Width)
	require.Equal(t, 40, session.Height)
}

func TestFeedCtrlCSignalsQuit(t *testing.T) {
	session := tui.NewSession(&sitedata.SiteData{})
	fsm := newTelnetFSM(session)
	fsm.feed([]byte{0x03})
	require.True(t, fsm.quit)
}

func TestFeedNAWSByteStuffedIACDoesNotTerminateEarly(t *testing.T) {
	session := tui.NewSession(&sitedata.SiteData{})
	fsm := newTelnetFSM(session)
	// a literal 0xFF width-high-byte must be escaped as IAC IAC on the
	// wire; a naive scanner for a bare IAC would see the first 0xFF
	// and end the subnegotiation early.
	data := []byte{iac, sb, optNAWS, 255, 255, 0, 0, 40, iac, se}
	fsm.feed(data)
	require.Equal(t, 0xFF00, session.Width)
	require.Equal(t, 40, session.Height)
}
