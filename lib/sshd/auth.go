package sshd

import (
	"github.com/gravitational/trace"

	"github.com/mat-1/protocols/lib/sshwire"
)

// serviceAndAuth handles the ssh-userauth service request and accepts
// the first userauth request it sees, regardless of method or
// credentials: this server has nothing worth protecting behind a
// password, and the point is to let anyone in to look around.
func (c *connState) serviceAndAuth() error {
	payload, err := c.reader.ReadPacket()
	if err != nil {
		return trace.Wrap(err, "reading service request")
	}
	if sshwire.MessageID(payload[0]) != sshwire.MsgServiceRequest {
		return trace.BadParameter("expected SERVICE_REQUEST, got message id %d", payload[0])
	}
	req, err := sshwire.ParseServiceRequest(payload[1:])
	if err != nil {
		return trace.Wrap(err)
	}
	if req.ServiceName != "ssh-userauth" {
		return trace.BadParameter("unexpected service request %q", req.ServiceName)
	}
	if err := c.writer.WritePacket(sshwire.ServiceAccept{ServiceName: req.ServiceName}.Marshal()); err != nil {
		return trace.Wrap(err, "writing service accept")
	}

	banner := sshwire.UserauthBanner{
		Message:     "Welcome. Any username/password gets you in - there's nothing private here.\r\n",
		LanguageTag: "en",
	}
	if err := c.writer.WritePacket(banner.Marshal()); err != nil {
		return trace.Wrap(err, "writing userauth banner")
	}

	for {
		payload, err := c.reader.ReadPacket()
		if err != nil {
			return trace.Wrap(err, "reading userauth request")
		}
		if sshwire.MessageID(payload[0]) != sshwire.MsgUserauthRequest {
			return trace.BadParameter("expected USERAUTH_REQUEST, got message id %d", payload[0])
		}
		if _, err := sshwire.ParseUserauthRequest(payload[1:]); err != nil {
			return trace.Wrap(err)
		}
		if err := c.writer.WritePacket(sshwire.UserauthSuccessMarshal()); err != nil {
			return trace.Wrap(err, "writing userauth success")
		}
		return nil
	}
}
