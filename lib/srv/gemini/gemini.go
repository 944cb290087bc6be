// Package gemini serves SiteData over the Gemini protocol: TLS on
// (by default) port 1965, a single CRLF-terminated request line
// carrying an absolute gemini:// URL, and a "<status> <meta>\r\n"
// response header followed by the body. See gemini://gemini.circumlunar.space/docs/specification/.
package gemini

import (
	"bufio"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"io"
	"math/big"
	"mime"
	"net"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/gravitational/trace"
	"github.com/sirupsen/logrus"

	"github.com/mat-1/protocols/lib/gemtext"
	"github.com/mat-1/protocols/lib/metrics"
	"github.com/mat-1/protocols/lib/sitedata"
)

const (
	statusSuccess       = 20
	statusTemporaryFail = 40
	statusNotFound      = 51
	statusBadRequest    = 59
	statusProxyRefused  = 53
)

// maxRequestLine bounds how much of a misbehaving/malicious client's
// request this server will buffer before giving up, per the spec's
// 1024-byte request line limit.
const maxRequestLine = 1024

// LoadOrGenerateCert reads a self-signed ed25519 certificate and key
// from pubPath/keyPath (DER-encoded), generating and persisting a new
// pair if either file is missing.
func LoadOrGenerateCert(pubPath, keyPath, hostname string) (tls.Certificate, error) {
	certDER, errCert := os.ReadFile(pubPath)
	keyDER, errKey := os.ReadFile(keyPath)
	if errCert == nil && errKey == nil {
		priv, err := x509.ParsePKCS8PrivateKey(keyDER)
		if err != nil {
			return tls.Certificate{}, trace.Wrap(err, "parsing gemini tls key")
		}
		return tls.Certificate{Certificate: [][]byte{certDER}, PrivateKey: priv}, nil
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return tls.Certificate{}, trace.Wrap(err, "generating gemini tls key")
	}
	template := &x509.Certificate{
		SerialNumber: bigOne(),
		Subject:      pkixName(hostname),
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().AddDate(10, 0, 0),
		DNSNames:     []string{hostname},
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, pub, priv)
	if err != nil {
		return tls.Certificate{}, trace.Wrap(err, "creating gemini tls certificate")
	}
	keyBytes, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return tls.Certificate{}, trace.Wrap(err, "marshaling gemini tls key")
	}
	if err := os.MkdirAll(path.Dir(pubPath), 0o755); err != nil {
		return tls.Certificate{}, trace.Wrap(err)
	}
	if err := os.WriteFile(pubPath, der, 0o644); err != nil {
		return tls.Certificate{}, trace.Wrap(err, "persisting gemini tls certificate")
	}
	if err := os.WriteFile(keyPath, keyBytes, 0o600); err != nil {
		return tls.Certificate{}, trace.Wrap(err, "persisting gemini tls key")
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv}, nil
}

// Serve accepts and handles Gemini connections off l until it's
// closed. l must already be wrapped in tls.NewListener by the caller.
func Serve(l net.Listener, data *sitedata.SiteData, hostname string, log logrus.FieldLogger) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			return trace.Wrap(err)
		}
		go handleConn(conn, data, hostname, log)
	}
}

func handleConn(conn net.Conn, data *sitedata.SiteData, hostname string, log logrus.FieldLogger) {
	defer conn.Close()
	defer metrics.RecoverConnection("gemini", log)
	metrics.ConnectionsTotal.WithLabelValues("gemini").Inc()
	conn.SetDeadline(time.Now().Add(30 * time.Second))

	br := bufio.NewReaderSize(conn, maxRequestLine)
	raw, err := br.ReadSlice('\n')
	if err != nil {
		writeHeader(conn, statusBadRequest, "request line too long or malformed")
		return
	}
	line := strings.TrimRight(string(raw), "\r\n")

	u, err := url.Parse(line)
	if err != nil || u.Scheme != "gemini" {
		writeHeader(conn, statusBadRequest, "expected an absolute gemini:// URL")
		return
	}
	if u.Hostname() != hostname {
		writeHeader(conn, statusProxyRefused, "wrong host")
		return
	}

	status, meta, body := route(u.Path, data, hostname)
	writeHeader(conn, status, meta)
	if status == statusSuccess && body != nil {
		io.Copy(conn, body)
	}
	if log != nil {
		log.WithField("path", u.Path).WithField("status", status).Debug("gemini request")
	}
}

func route(reqPath string, data *sitedata.SiteData, hostname string) (status int, meta string, body io.Reader) {
	clean := strings.TrimPrefix(path.Clean("/"+reqPath), "/")
	switch {
	case clean == "" || clean == "/":
		return statusSuccess, "text/gemini", strings.NewReader(gemtext.Index(hostname))
	case clean == "blog":
		return statusSuccess, "text/gemini", strings.NewReader(gemtext.BlogIndex(data))
	case clean == "projects":
		return statusSuccess, "text/gemini", strings.NewReader(gemtext.Projects(data))
	case strings.HasPrefix(clean, "media/"):
		return serveMedia(strings.TrimPrefix(clean, "media/"))
	default:
		post, ok := data.FindPost(clean)
		if !ok {
			return statusNotFound, "not found", nil
		}
		return statusSuccess, "text/gemini", strings.NewReader(gemtext.Post(post))
	}
}

func serveMedia(rel string) (int, string, io.Reader) {
	if !safeRelativePath(rel) {
		return statusNotFound, "not found", nil
	}
	f, err := os.Open(path.Join("data/media", rel))
	if err != nil {
		return statusNotFound, "not found", nil
	}
	contentType := mime.TypeByExtension(path.Ext(rel))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return statusSuccess, contentType, f
}

// safeRelativePath requires every component of rel to be an ordinary
// path segment - no "." or ".." - so a media selector can never escape
// the media directory. See lib/gophertext.SafeSelectorPath for the
// equivalent Gopher-side check and the bug this guards against.
func safeRelativePath(rel string) bool {
	if rel == "" {
		return false
	}
	for _, part := range strings.Split(rel, "/") {
		switch part {
		case "", ".", "..":
			return false
		}
	}
	return true
}

func writeHeader(w io.Writer, status int, meta string) {
	fmt.Fprintf(w, "%d %s\r\n", status, meta)
}

func bigOne() *big.Int { return big.NewInt(1) }

func pkixName(hostname string) pkix.Name {
	return pkix.Name{CommonName: hostname}
}
