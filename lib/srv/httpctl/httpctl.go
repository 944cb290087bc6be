// Package httpctl serves the tiny QOTD control surface: a hand-rolled
// request-line/header/body parser for GET and POST /qotd, plus
// Prometheus's own handler mounted at /metrics. It is not a general
// HTTP server - malformed requests simply close the connection.
package httpctl

import (
	"bufio"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gravitational/trace"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/mat-1/protocols/lib/metrics"
	"github.com/mat-1/protocols/lib/srv/qotd"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// Serve accepts connections off l, routing "/metrics" to promhttp and
// everything else to the hand-rolled QOTD handler.
func Serve(l net.Listener, store *qotd.Store, secret func() (string, error), persist func(string) error, log logrus.FieldLogger) error {
	metricsHandler := promhttp.Handler()
	for {
		conn, err := l.Accept()
		if err != nil {
			return trace.Wrap(err)
		}
		go handleConn(conn, store, secret, persist, metricsHandler, log)
	}
}

func handleConn(conn net.Conn, store *qotd.Store, secret func() (string, error), persist func(string) error, metricsHandler http.Handler, log logrus.FieldLogger) {
	defer conn.Close()
	defer metrics.RecoverConnection("http", log)
	metrics.ConnectionsTotal.WithLabelValues("http").Inc()
	conn.SetDeadline(time.Now().Add(10 * time.Second))

	br := bufio.NewReader(conn)
	req, err := parseRequest(br)
	if err != nil {
		if log != nil {
			log.WithError(err).Debug("httpctl malformed request")
		}
		return
	}

	if req.path == "/metrics" {
		if metricsHandler != nil {
			metricsHandler.ServeHTTP(&responseWriterAdapter{conn: conn}, req.toHTTPRequest())
		}
		return
	}

	if req.path != "/qotd" {
		writeResponse(conn, 404, "Not Found", "not found")
		return
	}

	switch req.method {
	case "GET":
		writeResponse(conn, 200, "OK", store.Message())
	case "POST":
		handlePost(conn, req, store, secret, persist)
	default:
		writeResponse(conn, 404, "Not Found", "not found")
	}
}

func handlePost(conn net.Conn, req *request, store *qotd.Store, secret func() (string, error), persist func(string) error) {
	want, err := secret()
	if err != nil {
		writeResponse(conn, 403, "Forbidden", "forbidden")
		return
	}
	want = strings.TrimSpace(want)

	got := req.query.Get("secret")
	if got == "" || got != want {
		writeResponse(conn, 403, "Forbidden", "forbidden")
		return
	}

	message := "Quote of the day:\n" + req.body
	if !strings.HasSuffix(message, "\n") {
		message += "\n"
	}

	if persist != nil {
		if err := persist(message); err != nil {
			writeResponse(conn, 403, "Forbidden", "forbidden")
			return
		}
	}
	store.SetMessage(message)
	writeResponse(conn, 200, "OK", "ok")
}

type request struct {
	method string
	path   string
	query  url.Values
	header http.Header
	body   string
}

func (r *request) toHTTPRequest() *http.Request {
	req, _ := http.NewRequest(r.method, r.path, strings.NewReader(r.body))
	req.Header = r.header
	return req
}

func parseRequest(br *bufio.Reader) (*request, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return nil, trace.Wrap(err)
	}
	line = strings.TrimRight(line, "\r\n")
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return nil, trace.BadParameter("malformed request line %q", line)
	}
	method, target := fields[0], fields[1]

	u, err := url.Parse(target)
	if err != nil {
		return nil, trace.Wrap(err)
	}

	header := make(http.Header)
	for {
		hline, err := br.ReadString('\n')
		if err != nil {
			return nil, trace.Wrap(err)
		}
		hline = strings.TrimRight(hline, "\r\n")
		if hline == "" {
			break
		}
		colon := strings.IndexByte(hline, ':')
		if colon < 0 {
			return nil, trace.BadParameter("malformed header %q", hline)
		}
		key := strings.TrimSpace(hline[:colon])
		val := strings.TrimSpace(hline[colon+1:])
		header.Add(key, val)
	}

	var body string
	if cl := header.Get("Content-Length"); cl != "" {
		n, err := strconv.Atoi(cl)
		if err != nil || n < 0 || n > maxBodyBytes {
			return nil, trace.BadParameter("invalid content-length %q", cl)
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, trace.Wrap(err)
		}
		body = string(buf)
	}

	return &request{method: method, path: u.Path, query: u.Query(), header: header, body: body}, nil
}

func writeResponse(conn net.Conn, status int, statusText, body string) {
	io.WriteString(conn, "HTTP/1.1 "+strconv.Itoa(status)+" "+statusText+"\r\n")
	io.WriteString(conn, "Content-Type: text/plain; charset=utf-8\r\n")
	io.WriteString(conn, "Content-Length: "+strconv.Itoa(len(body))+"\r\n")
	io.WriteString(conn, "Connection: close\r\n\r\n")
	io.WriteString(conn, body)
}

// responseWriterAdapter lets promhttp.Handler (which wants an
// http.ResponseWriter) write directly to the raw connection, since
// this listener doesn't run a net/http.Server.
type responseWriterAdapter struct {
	conn        net.Conn
	header      http.Header
	wroteHeader bool
}

func (w *responseWriterAdapter) Header() http.Header {
	if w.header == nil {
		w.header = make(http.Header)
	}
	return w.header
}

func (w *responseWriterAdapter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(200)
	}
	return w.conn.Write(b)
}

func (w *responseWriterAdapter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	io.WriteString(w.conn, "HTTP/1.1 "+strconv.Itoa(status)+" "+http.StatusText(status)+"\r\n")
	for k, vs := range w.header {
		for _, v := range vs {
			io.WriteString(w.conn, k+": "+v+"\r\n")
		}
	}
	io.WriteString(w.conn, "Connection: close\r\n\r\n")
}
