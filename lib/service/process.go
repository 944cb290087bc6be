// Package service owns the process-wide listener runtime: it binds
// every protocol's listener, registers it so tests and ListenerAddr
// callers can find the bound address, and runs each accept loop in
// its own goroutine. A bind failure disables only that one protocol;
// it is logged and counted, never fatal to the rest of the process.
package service

import (
	"crypto/ed25519"
	"crypto/tls"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gravitational/trace"
	"github.com/sirupsen/logrus"

	protocols "github.com/mat-1/protocols"
	"github.com/mat-1/protocols/lib/config"
	"github.com/mat-1/protocols/lib/logutils"
	"github.com/mat-1/protocols/lib/metrics"
	"github.com/mat-1/protocols/lib/sitedata"
	"github.com/mat-1/protocols/lib/srv/finger"
	"github.com/mat-1/protocols/lib/srv/gemini"
	"github.com/mat-1/protocols/lib/srv/gopher"
	"github.com/mat-1/protocols/lib/srv/httpctl"
	"github.com/mat-1/protocols/lib/srv/qotd"
	"github.com/mat-1/protocols/lib/srv/telnet"
	"github.com/mat-1/protocols/lib/sshd"
	"github.com/mat-1/protocols/lib/sshkex"
)

// Process owns every listener this daemon binds and the shared state
// (SiteData, QOTD store, host keys) their handlers read from.
type Process struct {
	sync.Mutex

	Config *config.Config
	Data   *sitedata.SiteData

	HostKey     ed25519.PrivateKey
	GeminiCert  tls.Certificate
	QOTD        *qotd.Store
	RateLimiter *qotd.RateLimiter

	registeredListeners   []registeredListener
	registeredPacketConns []registeredPacketConn
}

// NewProcess builds a Process from cfg and data, loading or generating
// the SSH host key and Gemini TLS certificate on disk under
// cfg.DataDir, and seeding the QOTD store from disk if present.
func NewProcess(cfg *config.Config, data *sitedata.SiteData) (*Process, error) {
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}

	hostKey, err := sshkex.LoadHostKey(cfg.DataPath(protocols.SSHHostKeyFile))
	if err != nil {
		return nil, trace.Wrap(err, "loading ssh host key")
	}

	cert, err := gemini.LoadOrGenerateCert(
		cfg.DataPath(protocols.GeminiCertPubFile),
		cfg.DataPath(protocols.GeminiCertKeyFile),
		cfg.Hostname,
	)
	if err != nil {
		return nil, trace.Wrap(err, "loading gemini certificate")
	}

	message, err := os.ReadFile(cfg.DataPath(protocols.QOTDMessageFile))
	if err != nil {
		message = []byte("Quote of the day:\nHello, world.\n")
	}

	return &Process{
		Config:      cfg,
		Data:        data,
		HostKey:     hostKey,
		GeminiCert:  cert,
		QOTD:        qotd.NewStore(string(message)),
		RateLimiter: qotd.NewRateLimiter(120, time.Minute, nil),
	}, nil
}

// Start binds and serves every listener. It returns once every
// listener has either bound successfully (and is now serving in its
// own goroutine) or failed to bind (and been logged/counted as
// disabled); it does not block waiting for the listeners to stop.
func (process *Process) Start() error {
	cfg := process.Config

	process.startStream(protocols.ComponentGemini, ListenerGemini, cfg.Port(protocols.GeminiPort, protocols.DebugGeminiPort), func(l net.Listener, log logrus.FieldLogger) error {
		tlsListener := tls.NewListener(l, &tls.Config{Certificates: []tls.Certificate{process.GeminiCert}})
		return gemini.Serve(tlsListener, process.Data, cfg.Hostname, log)
	})

	process.startStream(protocols.ComponentGopher, ListenerGopher, cfg.Port(protocols.GopherPort, protocols.DebugGopherPort), func(l net.Listener, log logrus.FieldLogger) error {
		return gopher.Serve(l, process.Data, cfg.Hostname, cfg.Port(protocols.GopherPort, protocols.DebugGopherPort), log)
	})

	process.startStream(protocols.ComponentFinger, ListenerFinger, cfg.Port(protocols.FingerPort, protocols.DebugFingerPort), func(l net.Listener, log logrus.FieldLogger) error {
		return finger.Serve(l, process.Data, cfg.Hostname, log)
	})

	process.startStream(protocols.ComponentTelnet, ListenerTelnet, cfg.Port(protocols.TelnetPort, protocols.DebugTelnetPort), func(l net.Listener, log logrus.FieldLogger) error {
		return telnet.Serve(l, process.Data, log)
	})

	process.startStream(protocols.ComponentSSH, ListenerSSH, cfg.Port(protocols.SSHPort, protocols.DebugSSHPort), func(l net.Listener, log logrus.FieldLogger) error {
		return process.serveSSH(l, log)
	})

	process.startStream("qotd_tcp", ListenerQOTDTCP, cfg.Port(protocols.QOTDPort, protocols.DebugQOTDPort), func(l net.Listener, log logrus.FieldLogger) error {
		return qotd.ServeTCP(l, process.QOTD, log)
	})

	process.startPacket("qotd_udp", ListenerQOTDUDP, cfg.Port(protocols.QOTDPort, protocols.DebugQOTDPort), func(conn net.PacketConn, log logrus.FieldLogger) error {
		return qotd.ServeUDP(conn, process.QOTD, process.RateLimiter, log)
	})

	process.startStream(protocols.ComponentHTTP, ListenerHTTP, cfg.Port(protocols.HTTPPort, protocols.DebugHTTPPort), func(l net.Listener, log logrus.FieldLogger) error {
		return httpctl.Serve(l, process.QOTD, process.readSecret, process.persistMessage, log)
	})

	return nil
}

// serveSSH runs sshd's per-connection Serve in its own
// panic-recovering goroutine for every accepted connection; unlike
// the other protocols, sshd has no internal accept loop of its own.
func (process *Process) serveSSH(l net.Listener, log logrus.FieldLogger) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			return trace.Wrap(err)
		}
		go func() {
			defer metrics.RecoverConnection(protocols.ComponentSSH, log)
			metrics.ConnectionsTotal.WithLabelValues(protocols.ComponentSSH).Inc()
			if err := sshd.Serve(conn, process.HostKey, process.Data, log); err != nil && log != nil {
				log.WithError(err).Debug("ssh connection ended")
			}
		}()
	}
}

// startStream binds a TCP listener on port and runs serve in its own
// goroutine, logging and counting (rather than failing the process)
// if the bind itself fails.
func (process *Process) startStream(component string, typ ListenerType, port int, serve func(net.Listener, logrus.FieldLogger) error) {
	log := logutils.Component(component)

	l, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		metrics.ListenerBindFailuresTotal.WithLabelValues(component).Inc()
		log.WithError(err).Error("failed to bind listener; this protocol is disabled")
		return
	}
	process.addListener(typ, l)

	go func() {
		if err := serve(l, log); err != nil {
			log.WithError(err).Debug("listener stopped")
		}
	}()
}

// startPacket is startStream's UDP equivalent.
func (process *Process) startPacket(component string, typ ListenerType, port int, serve func(net.PacketConn, logrus.FieldLogger) error) {
	log := logutils.Component(component)

	conn, err := net.ListenPacket("udp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		metrics.ListenerBindFailuresTotal.WithLabelValues(component).Inc()
		log.WithError(err).Error("failed to bind packet listener; this protocol is disabled")
		return
	}
	process.addPacketConn(typ, conn)

	go func() {
		if err := serve(conn, log); err != nil {
			log.WithError(err).Debug("packet listener stopped")
		}
	}()
}

func (process *Process) readSecret() (string, error) {
	b, err := os.ReadFile(process.Config.DataPath(protocols.QOTDSecretFile))
	if err != nil {
		return "", trace.Wrap(err)
	}
	return string(b), nil
}

func (process *Process) persistMessage(message string) error {
	path := process.Config.DataPath(protocols.QOTDMessageFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return trace.Wrap(err)
	}
	return os.WriteFile(path, []byte(message), 0o644)
}
