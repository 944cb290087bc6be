package sshd

import (
	"crypto/ed25519"

	"github.com/gravitational/trace"

	"github.com/mat-1/protocols/lib/sshkex"
	"github.com/mat-1/protocols/lib/sshwire"
)

// keyExchange runs the curve25519-sha256/ssh-ed25519 key exchange and
// enables encryption on both directions of the transport. Called once
// per connection, immediately after the version exchange; a later
// KEXINIT from the client is not renegotiated (see rejectRekey).
func (c *connState) keyExchange() error {
	cookie, err := sshkex.GenerateCookie()
	if err != nil {
		return trace.Wrap(err)
	}
	serverInit := sshwire.KexInit{
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
	c.serverKexInitPayload = serverInit.Marshal()
	if err := c.writer.WritePacket(c.serverKexInitPayload); err != nil {
		return trace.Wrap(err, "writing server kexinit")
	}

	payload, err := c.reader.ReadPacket()
	if err != nil {
		return trace.Wrap(err, "reading client kexinit")
	}
	if sshwire.MessageID(payload[0]) != sshwire.MsgKexInit {
		return trace.BadParameter("expected KEXINIT, got message id %d", payload[0])
	}
	c.clientKexInitPayload = payload

	clientInit, err := sshwire.ParseKexInit(payload[1:])
	if err != nil {
		return trace.Wrap(err, "parsing client kexinit")
	}
	if err := c.checkAlgorithmsSupported(clientInit); err != nil {
		d := sshwire.Disconnect{
			ReasonCode:  sshwire.DisconnectKeyExchangeFailed,
			Description: err.Error(),
			LanguageTag: "en",
		}
		c.writer.WritePacket(d.Marshal())
		return trace.Wrap(err)
	}

	ecdhInitPayload, err := c.reader.ReadPacket()
	if err != nil {
		return trace.Wrap(err, "reading kex ecdh init")
	}
	if sshwire.MessageID(ecdhInitPayload[0]) != sshwire.MsgKexECDHInit {
		return trace.BadParameter("expected KEX_ECDH_INIT, got message id %d", ecdhInitPayload[0])
	}
	ecdhInit, err := sshwire.ParseKexECDHInit(ecdhInitPayload[1:])
	if err != nil {
		return trace.Wrap(err)
	}

	ourScalar, ourPublic, err := sshkex.GenerateEphemeralKeypair()
	if err != nil {
		return trace.Wrap(err)
	}
	sharedSecret, err := sshkex.SharedSecret(ourScalar, ecdhInit.ClientPublicKey)
	if err != nil {
		return trace.Wrap(err, "computing shared secret")
	}

	pub := c.hostKey.Public().(ed25519.PublicKey)
	hostKeyBlob := sshkex.HostKeyBlob(pub)
	exchangeHash := sshkex.ComputeExchangeHash(sshkex.ExchangeHashInput{
		ClientID:             c.clientVersion,
		ServerID:             c.serverVersion,
		ClientKexInitPayload: c.clientKexInitPayload,
		ServerKexInitPayload: c.serverKexInitPayload,
		HostKeyBlob:          hostKeyBlob,
		ClientEphemeral:      ecdhInit.ClientPublicKey,
		ServerEphemeral:      ourPublic[:],
		SharedSecret:         sharedSecret,
	})

	if c.sessionID == nil {
		c.sessionID = exchangeHash
	}

	reply := sshwire.KexECDHReply{
		ServerPublicHostKey: hostKeyBlob,
		ServerPublicKey:     ourPublic[:],
		Signature:           sshkex.Signature(c.hostKey, exchangeHash),
	}
	if err := c.writer.WritePacket(reply.Marshal()); err != nil {
		return trace.Wrap(err, "writing kex ecdh reply")
	}
	if err := c.writer.WritePacket(sshwire.NewKeysMarshal()); err != nil {
		return trace.Wrap(err, "writing server newkeys")
	}

	newKeysPayload, err := c.reader.ReadPacket()
	if err != nil {
		return trace.Wrap(err, "reading client newkeys")
	}
	if sshwire.MessageID(newKeysPayload[0]) != sshwire.MsgNewKeys {
		return trace.BadParameter("expected NEWKEYS, got message id %d", newKeysPayload[0])
	}

	keys := sshkex.DeriveKeys(sharedSecret, exchangeHash, c.sessionID)
	if err := c.reader.EnableEncryption(keys.EncClientToServer, keys.IVClientToServer, keys.IntClientToServer); err != nil {
		return trace.Wrap(err, "enabling read encryption")
	}
	if err := c.writer.EnableEncryption(keys.EncServerToClient, keys.IVServerToClient, keys.IntServerToClient); err != nil {
		return trace.Wrap(err, "enabling write encryption")
	}
	return nil
}

// checkAlgorithmsSupported verifies that client, for every algorithm
// category, offers this server's fixed choice somewhere in its
// preference list. This server never negotiates down to anything
// else, so a category missing our one supported algorithm can't reach
// agreement at all.
func (c *connState) checkAlgorithmsSupported(client sshwire.KexInit) error {
	categories := []struct {
		name   string
		offers []string
		want   string
	}{
		{"kex", client.KexAlgorithms, sshkex.KexAlgorithm},
		{"host key", client.ServerHostKeyAlgorithms, sshkex.HostKeyAlgorithm},
		{"client-to-server cipher", client.EncCSAlgorithms, sshkex.CipherAlgorithm},
		{"server-to-client cipher", client.EncSCAlgorithms, sshkex.CipherAlgorithm},
		{"client-to-server mac", client.MacCSAlgorithms, sshkex.MACAlgorithm},
		{"server-to-client mac", client.MacSCAlgorithms, sshkex.MACAlgorithm},
		{"client-to-server compression", client.CompCSAlgorithms, sshkex.CompAlgorithm},
		{"server-to-client compression", client.CompSCAlgorithms, sshkex.CompAlgorithm},
	}
	for _, cat := range categories {
		if !containsString(cat.offers, cat.want) {
			return trace.BadParameter("no common %s algorithm: client offered %v, server only supports %q", cat.name, cat.offers, cat.want)
		}
	}
	return nil
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
