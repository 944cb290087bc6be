// Package gopher serves SiteData over the Gopher protocol (RFC 1436):
// a single CRLF-terminated selector line in, a menu or file body out.
package gopher

import (
	"bufio"
	"io"
	"net"
	"os"
	"path"
	"strings"
	"time"

	"github.com/gravitational/trace"
	"github.com/sirupsen/logrus"

	"github.com/mat-1/protocols/lib/gophertext"
	"github.com/mat-1/protocols/lib/metrics"
	"github.com/mat-1/protocols/lib/sitedata"
)

const maxSelectorLine = 1024

// Serve accepts and handles Gopher connections off l until it's
// closed.
func Serve(l net.Listener, data *sitedata.SiteData, hostname string, port int, log logrus.FieldLogger) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			return trace.Wrap(err)
		}
		go handleConn(conn, data, hostname, port, log)
	}
}

func handleConn(conn net.Conn, data *sitedata.SiteData, hostname string, port int, log logrus.FieldLogger) {
	defer conn.Close()
	defer metrics.RecoverConnection("gopher", log)
	metrics.ConnectionsTotal.WithLabelValues("gopher").Inc()
	conn.SetDeadline(time.Now().Add(30 * time.Second))

	br := bufio.NewReaderSize(conn, maxSelectorLine)
	line, err := br.ReadString('\n')
	if err != nil {
		return
	}
	selector := strings.TrimRight(line, "\r\n")

	body := route(selector, data, hostname, port)
	io.Copy(conn, strings.NewReader(body))
	if log != nil {
		log.WithField("selector", selector).Debug("gopher request")
	}
}

func route(selector string, data *sitedata.SiteData, hostname string, port int) string {
	clean := strings.TrimPrefix(selector, "/")
	switch {
	case clean == "":
		return gophertext.Index(hostname, port)
	case clean == "blog":
		return gophertext.BlogIndex(data, hostname, port)
	case clean == "projects":
		return gophertext.Projects(data, hostname, port)
	case strings.HasPrefix(clean, "media/"):
		return serveMedia(strings.TrimPrefix(clean, "media/"))
	default:
		post, ok := data.FindPost(clean)
		if !ok {
			return "Not found.\r\n"
		}
		return gophertext.Post(post)
	}
}

func serveMedia(rel string) string {
	if !gophertext.SafeSelectorPath(rel) {
		return "Not found.\r\n"
	}
	contents, err := os.ReadFile(path.Join("data/media", rel))
	if err != nil {
		return "Not found.\r\n"
	}
	return string(contents)
}
