// Package sshkex implements curve25519-sha256 key exchange, the
// ssh-ed25519 host key, and the RFC 4253 §7.2 key derivation function
// that turns a shared secret and exchange hash into the six
// directional cipher/MAC/IV keys.
package sshkex

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"io"
	"math/big"
	"os"
	"path/filepath"

	"github.com/gravitational/trace"
	"golang.org/x/crypto/curve25519"

	"github.com/mat-1/protocols/lib/sshtransport"
	"github.com/mat-1/protocols/lib/sshwire"
)

// HostKeyAlgorithm and KexAlgorithm are the sole algorithm this server
// offers in each category, advertised in KexInit.
const (
	KexAlgorithm     = "curve25519-sha256"
	HostKeyAlgorithm = "ssh-ed25519"
	CipherAlgorithm  = "aes128-ctr"
	MACAlgorithm     = "hmac-sha2-256"
	CompAlgorithm    = "none"
)

// LoadHostKey reads an ed25519 key from path, either as a 32-byte seed
// or as the 64-byte private key form, generating and persisting a new
// one if the file doesn't exist.
func LoadHostKey(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		switch len(data) {
		case ed25519.PrivateKeySize:
			return ed25519.PrivateKey(data), nil
		case ed25519.SeedSize:
			return ed25519.NewKeyFromSeed(data), nil
		}
		return nil, trace.BadParameter("ssh host key file %q has unexpected size %d", path, len(data))
	}
	if !os.IsNotExist(err) {
		return nil, trace.Wrap(err, "reading ssh host key")
	}

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, trace.Wrap(err, "generating ssh host key")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, trace.Wrap(err, "creating ssh host key directory")
	}
	if err := os.WriteFile(path, priv, 0o600); err != nil {
		return nil, trace.Wrap(err, "persisting ssh host key")
	}
	return priv, nil
}

// GenerateCookie returns 16 random bytes for a KexInit message.
func GenerateCookie() ([16]byte, error) {
	var cookie [16]byte
	if _, err := io.ReadFull(rand.Reader, cookie[:]); err != nil {
		return cookie, trace.Wrap(err, "generating kex cookie")
	}
	return cookie, nil
}

// GenerateEphemeralKeypair returns a fresh X25519 scalar/point pair
// for one key exchange.
func GenerateEphemeralKeypair() (scalar, public [32]byte, err error) {
	if _, err = io.ReadFull(rand.Reader, scalar[:]); err != nil {
		return scalar, public, trace.Wrap(err, "generating ephemeral scalar")
	}
	pub, err := curve25519.X25519(scalar[:], curve25519.Basepoint)
	if err != nil {
		return scalar, public, trace.Wrap(err, "computing ephemeral public key")
	}
	copy(public[:], pub)
	return scalar, public, nil
}

// SharedSecret computes the X25519 shared point between our scalar and
// the peer's public key, encoded as the big-endian integer the SSH
// KDF treats it as (mpint of the little-endian curve point,
// reinterpreted big-endian per the original implementation this was
// ported from).
func SharedSecret(ourScalar [32]byte, peerPublic []byte) (*big.Int, error) {
	shared, err := curve25519.X25519(ourScalar[:], peerPublic)
	if err != nil {
		return nil, trace.Wrap(err, "computing x25519 shared secret")
	}
	return new(big.Int).SetBytes(shared), nil
}

// HostKeyBlob builds the "ssh-ed25519" public-key wire blob: a
// name-string followed by the raw 32-byte public key.
func HostKeyBlob(pub ed25519.PublicKey) []byte {
	var buf bytes.Buffer
	sshwire.WriteString(&buf, HostKeyAlgorithm)
	sshwire.WriteBytes(&buf, pub)
	return buf.Bytes()
}

// Signature builds the "ssh-ed25519" signature wire blob over
// toSign, using the host private key.
func Signature(priv ed25519.PrivateKey, toSign []byte) []byte {
	sig := ed25519.Sign(priv, toSign)
	var buf bytes.Buffer
	sshwire.WriteString(&buf, HostKeyAlgorithm)
	sshwire.WriteBytes(&buf, sig)
	return buf.Bytes()
}

// ExchangeHashInput carries every field that's hashed into the
// exchange hash H, in wire order, per RFC 4253 §8 (adapted for the
// ed25519/curve25519 combination this server speaks).
type ExchangeHashInput struct {
	ClientID          string
	ServerID          string
	ClientKexInitPayload []byte
	ServerKexInitPayload []byte
	HostKeyBlob       []byte
	ClientEphemeral   []byte
	ServerEphemeral   []byte
	SharedSecret      *big.Int // nil on the very first message, set once known
}

// ComputeExchangeHash computes H = SHA256(client_id || server_id ||
// client_kexinit || server_kexinit || host_key || client_ephemeral ||
// server_ephemeral [|| mpint(shared_secret)]).
func ComputeExchangeHash(in ExchangeHashInput) []byte {
	var buf bytes.Buffer
	sshwire.WriteString(&buf, in.ClientID)
	sshwire.WriteString(&buf, in.ServerID)
	sshwire.WriteBytes(&buf, in.ClientKexInitPayload)
	sshwire.WriteBytes(&buf, in.ServerKexInitPayload)
	sshwire.WriteBytes(&buf, in.HostKeyBlob)
	sshwire.WriteBytes(&buf, in.ClientEphemeral)
	sshwire.WriteBytes(&buf, in.ServerEphemeral)
	if in.SharedSecret != nil {
		sshwire.WriteMPInt(&buf, in.SharedSecret)
	}
	sum := sha256.Sum256(buf.Bytes())
	return sum[:]
}

// DeriveKeys runs the RFC 4253 §7.2 KDF for all six keys, given the
// shared secret, exchange hash H and session identifier (H of the
// first key exchange, fixed for the lifetime of the connection).
func DeriveKeys(sharedSecret *big.Int, exchangeHash, sessionID []byte) sshtransport.Keys {
	return sshtransport.Keys{
		IVClientToServer:  deriveKey(sharedSecret, exchangeHash, 'A', sessionID, 16),
		IVServerToClient:  deriveKey(sharedSecret, exchangeHash, 'B', sessionID, 16),
		EncClientToServer: deriveKey(sharedSecret, exchangeHash, 'C', sessionID, 16),
		EncServerToClient: deriveKey(sharedSecret, exchangeHash, 'D', sessionID, 16),
		IntClientToServer: deriveKey(sharedSecret, exchangeHash, 'E', sessionID, 32),
		IntServerToClient: deriveKey(sharedSecret, exchangeHash, 'F', sessionID, 32),
	}
}

// deriveKey implements K = HASH(K || H || X || session_id), extended
// with K1 = HASH(K || H || K) ... Ki = HASH(K || H || K1 || .. || Ki-1)
// until it is at least keyLength bytes long, then truncated.
func deriveKey(sharedSecret *big.Int, exchangeHash []byte, letter byte, sessionID []byte, keyLength int) []byte {
	var seed bytes.Buffer
	sshwire.WriteMPInt(&seed, sharedSecret)
	seed.Write(exchangeHash)
	seed.WriteByte(letter)
	seed.Write(sessionID)
	sum := sha256.Sum256(seed.Bytes())
	key := append([]byte{}, sum[:]...)

	for len(key) < keyLength {
		var next bytes.Buffer
		sshwire.WriteMPInt(&next, sharedSecret)
		next.Write(exchangeHash)
		next.Write(key)
		more := sha256.Sum256(next.Bytes())
		key = append(key, more[:]...)
	}
	return key[:keyLength]
}
