// Package finger serves SiteData over the Finger protocol (RFC 1288):
// a single CRLF-terminated query line in, a plain-text body out.
package finger

import (
	"bufio"
	"io"
	"net"
	"strings"
	"time"

	"github.com/gravitational/trace"
	"github.com/sirupsen/logrus"

	"github.com/mat-1/protocols/lib/fingertext"
	"github.com/mat-1/protocols/lib/metrics"
	"github.com/mat-1/protocols/lib/sitedata"
)

const maxQueryLine = 512

// Serve accepts and handles Finger connections off l until it's
// closed.
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
	defer metrics.RecoverConnection("finger", log)
	metrics.ConnectionsTotal.WithLabelValues("finger").Inc()
	conn.SetDeadline(time.Now().Add(10 * time.Second))

	br := bufio.NewReaderSize(conn, maxQueryLine)
	line, err := br.ReadString('\n')
	if err != nil {
		return
	}
	query := strings.TrimRight(line, "\r\n")

	io.WriteString(conn, response(query, data, hostname)+"\r\n")
	if log != nil {
		log.WithField("query", query).Debug("finger request")
	}
}

// response routes a finger request the same way the Gemini and Gopher
// formatters route theirs: the empty token is the site index, "blog"
// and "projects" are their indices, and anything else is tried as a
// post slug.
func response(query string, data *sitedata.SiteData, hostname string) string {
	token := strings.TrimSpace(query)
	switch token {
	case "":
		return fingertext.Index(hostname)
	case "blog":
		return fingertext.BlogIndex(data, hostname)
	case "projects":
		return fingertext.Projects(data, hostname)
	default:
		post, ok := data.FindPost(token)
		if !ok {
			return fingertext.NotFound
		}
		return fingertext.Post(post, hostname)
	}
}
