package sshd

import (
	"github.com/gravitational/trace"

	"github.com/mat-1/protocols/lib/sshwire"
	"github.com/mat-1/protocols/lib/tui"
)

const (
	ptyRequestType          = "pty-req"
	shellRequestType        = "shell"
	execRequestType         = "exec"
	windowChangeRequestType = "window-change"
)

// channelLoop drives the connection once userauth has succeeded:
// exactly one "session" channel may be opened, after which
// pty-req/shell/window-change requests and channel data are handled
// until the client closes the channel or the connection.
//
// A second KEXINIT arriving once this loop is running is a rekey
// attempt. This server never renegotiates keys mid-session: it sends
// a DISCONNECT and closes instead of silently ignoring or crashing on
// the unexpected message.
func (c *connState) channelLoop() error {
	c.peerWindow = 0
	for {
		payload, err := c.reader.ReadPacket()
		if err != nil {
			c.log.Debug("ssh connection closed")
			return nil // ordinary disconnect
		}
		id := sshwire.MessageID(payload[0])
		switch id {
		case sshwire.MsgKexInit:
			return c.rejectRekey()
		case sshwire.MsgChannelOpen:
			if err := c.handleChannelOpen(payload[1:]); err != nil {
				return trace.Wrap(err)
			}
		case sshwire.MsgChannelRequest:
			if err := c.handleChannelRequest(payload[1:]); err != nil {
				return trace.Wrap(err)
			}
		case sshwire.MsgChannelData:
			if err := c.handleChannelData(payload[1:]); err != nil {
				return trace.Wrap(err)
			}
		case sshwire.MsgChannelWindowAdjust:
			adj, err := sshwire.ParseChannelWindowAdjust(payload[1:])
			if err != nil {
				return trace.Wrap(err)
			}
			c.peerWindow += adj.BytesToAdd
		case sshwire.MsgChannelEOF, sshwire.MsgChannelClose:
			return nil
		case sshwire.MsgDisconnect:
			return nil
		case sshwire.MsgIgnore, sshwire.MsgDebug, sshwire.MsgUnimplemented, sshwire.MsgChannelExtendedData:
			// no state change; these carry no meaning this server acts on.
		case sshwire.MsgGlobalRequest:
			if err := c.handleGlobalRequest(payload[1:]); err != nil {
				return trace.Wrap(err)
			}
		default:
			return c.disconnectUnknownMessage(id)
		}
	}
}

// rejectRekey handles an unexpected second KEXINIT by disconnecting
// cleanly instead of attempting to renegotiate keys.
func (c *connState) rejectRekey() error {
	d := sshwire.Disconnect{
		ReasonCode:  sshwire.DisconnectProtocolError,
		Description: "rekeying is not supported",
		LanguageTag: "en",
	}
	c.writer.WritePacket(d.Marshal())
	return trace.BadParameter("client attempted to rekey; disconnecting")
}

// disconnectUnknownMessage handles a message ID outside the closed set
// this server understands: per the transport's message model, this is
// connection-fatal rather than something to silently tolerate.
func (c *connState) disconnectUnknownMessage(id sshwire.MessageID) error {
	d := sshwire.Disconnect{
		ReasonCode:  sshwire.DisconnectProtocolError,
		Description: "unknown message type",
		LanguageTag: "en",
	}
	c.writer.WritePacket(d.Marshal())
	return trace.BadParameter("unknown ssh message id %d; disconnecting", id)
}

// handleGlobalRequest always fails: this server has no global request
// type it honors (no tcpip-forward, no keepalive extension).
func (c *connState) handleGlobalRequest(payload []byte) error {
	req, err := sshwire.ParseGlobalRequest(payload)
	if err != nil {
		return trace.Wrap(err)
	}
	if !req.WantReply {
		return nil
	}
	return trace.Wrap(c.writer.WritePacket(sshwire.RequestFailure{}.Marshal()))
}

func (c *connState) handleChannelOpen(payload []byte) error {
	open, err := sshwire.ParseChannelOpen(payload)
	if err != nil {
		return trace.Wrap(err)
	}
	if open.ChannelType != sessionChannelType || c.channelOpen {
		failure := sshwire.ChannelOpenFailure{
			RecipientChannel: open.SenderChannel,
			ReasonCode:       2, // SSH_OPEN_ADMINISTRATIVELY_PROHIBITED
			Description:      "only one session channel is supported",
			LanguageTag:      "en",
		}
		return trace.Wrap(c.writer.WritePacket(failure.Marshal()))
	}

	c.channelOpen = true
	c.recipientID = open.SenderChannel
	c.localID = 0
	c.peerWindow = open.InitialWindowSize
	c.peerMaxPacket = open.MaxPacketSize

	confirm := sshwire.ChannelOpenConfirmation{
		RecipientChannel:  open.SenderChannel,
		SenderChannel:     c.localID,
		InitialWindowSize: sessionWindowSize,
		MaxPacketSize:     sessionMaxPacket,
	}
	return trace.Wrap(c.writer.WritePacket(confirm.Marshal()))
}

func (c *connState) handleChannelRequest(payload []byte) error {
	req, err := sshwire.ParseChannelRequest(payload)
	if err != nil {
		return trace.Wrap(err)
	}
	if !c.channelOpen || req.RecipientChannel != c.localID {
		return c.maybeFail(req)
	}

	switch req.RequestType {
	case ptyRequestType:
		pty, err := sshwire.ParsePTYRequest(req.Trailer)
		if err != nil {
			return c.maybeFail(req)
		}
		c.session = tui.NewSession(c.data)
		if pty.WidthChars > 0 && pty.HeightChars > 0 {
			c.session.Resize(int(pty.WidthChars), int(pty.HeightChars))
		}
		return c.succeed(req)

	case shellRequestType, execRequestType:
		if c.session == nil {
			c.session = tui.NewSession(c.data)
		}
		if err := c.succeed(req); err != nil {
			return err
		}
		return c.sendToClient([]byte(c.session.OnOpen()))

	case windowChangeRequestType:
		wc, err := sshwire.ParseWindowChangeRequest(req.Trailer)
		if err != nil {
			return c.maybeFail(req)
		}
		if c.session == nil {
			return nil
		}
		out := c.session.Resize(int(wc.WidthChars), int(wc.HeightChars))
		return c.sendToClient([]byte(out))

	default:
		return c.maybeFail(req)
	}
}

func (c *connState) succeed(req sshwire.ChannelRequest) error {
	if !req.WantReply {
		return nil
	}
	return trace.Wrap(c.writer.WritePacket(sshwire.ChannelSuccess{RecipientChannel: c.recipientID}.Marshal()))
}

func (c *connState) maybeFail(req sshwire.ChannelRequest) error {
	if !req.WantReply {
		return nil
	}
	return trace.Wrap(c.writer.WritePacket(sshwire.ChannelFailure{RecipientChannel: c.recipientID}.Marshal()))
}

func (c *connState) handleChannelData(payload []byte) error {
	data, err := sshwire.ParseChannelData(payload)
	if err != nil {
		return trace.Wrap(err)
	}
	if !c.channelOpen || data.RecipientChannel != c.localID || c.session == nil {
		return nil
	}

	for _, key := range tui.DecodeKeys(data.Data) {
		if key.Kind == tui.KeyCtrlC || key.Kind == tui.KeyCtrlD {
			c.sendToClient([]byte(c.session.OnClose()))
			closeMsg := sshwire.ChannelClose{RecipientChannel: c.recipientID}
			c.writer.WritePacket(closeMsg.Marshal())
			return trace.BadParameter("client requested disconnect")
		}
		out := c.session.OnKeystroke(key)
		if out != "" {
			if err := c.sendToClient([]byte(out)); err != nil {
				return err
			}
		}
	}
	return nil
}

// sendToClient writes data as one or more ChannelData messages, never
// sending more than the client's advertised receive window or max
// packet size in one go. Real terminal output from this TUI is tiny
// (well under a megabyte), so this never blocks waiting for a
// ChannelWindowAdjust in practice, but the accounting is still
// correct if a pathologically small window were ever advertised.
func (c *connState) sendToClient(data []byte) error {
	for len(data) > 0 {
		if c.peerWindow == 0 {
			// nothing left to send until the client tops up the
			// window; drop the remainder rather than block forever.
			return nil
		}
		chunk := data
		if uint32(len(chunk)) > c.peerMaxPacket {
			chunk = chunk[:c.peerMaxPacket]
		}
		if uint32(len(chunk)) > c.peerWindow {
			chunk = chunk[:c.peerWindow]
		}
		msg := sshwire.ChannelData{RecipientChannel: c.recipientID, Data: chunk}
		if err := c.writer.WritePacket(msg.Marshal()); err != nil {
			return trace.Wrap(err, "writing channel data")
		}
		c.peerWindow -= uint32(len(chunk))
		data = data[len(chunk):]
	}
	return nil
}
