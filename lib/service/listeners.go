package service

import (
	"net"

	"github.com/gravitational/trace"

	protocols "github.com/mat-1/protocols"
)

// ListenerType identifies one of the listeners registered in
// Process.registeredListeners or Process.registeredPacketConns.
type ListenerType string

var (
	ListenerGemini  = ListenerType(protocols.ComponentGemini)
	ListenerGopher  = ListenerType(protocols.ComponentGopher)
	ListenerFinger  = ListenerType(protocols.ComponentFinger)
	ListenerTelnet  = ListenerType(protocols.ComponentTelnet)
	ListenerSSH     = ListenerType(protocols.ComponentSSH)
	ListenerQOTDTCP = ListenerType(protocols.ComponentQOTD + "-tcp")
	ListenerQOTDUDP = ListenerType(protocols.ComponentQOTD + "-udp")
	ListenerHTTP    = ListenerType(protocols.ComponentHTTP)
)

// registeredListener pairs one bound stream listener with the
// protocol it serves.
type registeredListener struct {
	typ      ListenerType
	listener net.Listener
}

// registeredPacketConn is registeredListener's datagram equivalent;
// only QOTD's UDP side needs one.
type registeredPacketConn struct {
	typ  ListenerType
	conn net.PacketConn
}

func (process *Process) addListener(typ ListenerType, l net.Listener) {
	process.Lock()
	defer process.Unlock()
	process.registeredListeners = append(process.registeredListeners, registeredListener{typ: typ, listener: l})
}

func (process *Process) addPacketConn(typ ListenerType, conn net.PacketConn) {
	process.Lock()
	defer process.Unlock()
	process.registeredPacketConns = append(process.registeredPacketConns, registeredPacketConn{typ: typ, conn: conn})
}

// Close shuts down every registered listener and packet connection.
// Tests use this to release fixed debug-mode ports between runs; the
// running daemon never calls it.
func (process *Process) Close() error {
	process.Lock()
	defer process.Unlock()

	var firstErr error
	for _, l := range process.registeredListeners {
		if err := l.listener.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, p := range process.registeredPacketConns {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ListenerAddr returns the bound address of the named listener, or an
// error if it was never registered - either because it wasn't
// configured, or because binding it failed and the process disabled
// just that one protocol rather than exiting. Tests use this to find
// the address a listener actually bound to.
func (process *Process) ListenerAddr(typ ListenerType) (net.Addr, error) {
	process.Lock()
	defer process.Unlock()

	for _, l := range process.registeredListeners {
		if l.typ == typ {
			return l.listener.Addr(), nil
		}
	}
	for _, p := range process.registeredPacketConns {
		if p.typ == typ {
			return p.conn.LocalAddr(), nil
		}
	}
	return nil, trace.NotFound("no registered address for listener %q", typ)
}
