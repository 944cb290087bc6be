// Package qotd implements RFC 865 Quote of the Day over TCP and UDP,
// backed by a single shared message store so a quote posted through
// the HTTP control endpoint (see lib/srv/httpctl) is immediately
// visible to both transports - unlike the draft this was ported from,
// which kept one Qotd instance per protocol and let them drift out of
// sync.
package qotd

import (
	"net"
	"sync"
	"time"

	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/mat-1/protocols/lib/metrics"
)

const maxMessageBytes = 512

// Store holds the current quote of the day behind a single mutex
// shared by every caller - TCP, UDP and the HTTP control endpoint
// alike.
type Store struct {
	mu      sync.RWMutex
	message string
}

// NewStore returns a Store seeded with the given message.
func NewStore(message string) *Store {
	return &Store{message: message}
}

// Message returns the current quote.
func (s *Store) Message() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.message
}

// SetMessage replaces the current quote, truncating to maxMessageBytes
// per RFC 865's "no more than 512 characters" limit.
func (s *Store) SetMessage(message string) {
	if len(message) > maxMessageBytes {
		message = message[:maxMessageBytes]
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
}

// ServeTCP accepts connections off l, writes the current quote and
// closes - one quote per connection, per RFC 865.
func ServeTCP(l net.Listener, store *Store, log logrus.FieldLogger) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			return trace.Wrap(err)
		}
		go func() {
			defer conn.Close()
			defer metrics.RecoverConnection("qotd_tcp", log)
			metrics.ConnectionsTotal.WithLabelValues("qotd_tcp").Inc()
			conn.SetDeadline(time.Now().Add(5 * time.Second))
			conn.Write([]byte(store.Message()))
		}()
	}
}

// ServeUDP answers each datagram received on conn with the current
// quote, subject to limiter's global back-off, to blunt use of this
// server as a UDP amplification reflector.
func ServeUDP(conn net.PacketConn, store *Store, limiter *RateLimiter, log logrus.FieldLogger) error {
	buf := make([]byte, 512)
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			return trace.Wrap(err)
		}
		if n == 0 {
			continue
		}
		if !limiter.Allow() {
			if log != nil {
				log.Debug("qotd udp rate limited")
			}
			continue
		}
		metrics.ConnectionsTotal.WithLabelValues("qotd_udp").Inc()
		conn.WriteTo([]byte(store.Message()), addr)
	}
}

// maxRateLimiterEntries bounds the FIFO of request timestamps the
// rate limiter retains. The original this was ported from kept an
// unbounded slice, which a sustained flood would grow forever; one
// entry past the 120-request threshold is all eviction needs to keep
// around.
const maxRateLimiterEntries = 121

// RateLimiter implements the single global back-off described for
// the UDP listener: once more than max requests have landed within
// window, every further request is refused until the oldest recorded
// timestamp has aged out of the window. The FIFO holds at most
// maxRateLimiterEntries timestamps, so a max of maxRateLimiterEntries
// or more never trips the back-off.
type RateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	clock   clockwork.Clock
	hits    []time.Time
	backoff bool
}

// NewRateLimiter returns a limiter entering back-off once more than
// max requests arrive within window.
func NewRateLimiter(max int, window time.Duration, clock clockwork.Clock) *RateLimiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RateLimiter{max: max, window: window, clock: clock}
}

// Allow reports whether a request should be answered, recording it
// in the FIFO if so.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()

	if r.backoff {
		if len(r.hits) > 0 && now.Sub(r.hits[0]) < r.window {
			return false
		}
		r.backoff = false
		r.hits = nil
	}

	cutoff := now.Add(-r.window)
	i := 0
	for i < len(r.hits) && r.hits[i].Before(cutoff) {
		i++
	}
	r.hits = r.hits[i:]

	r.hits = append(r.hits, now)
	if len(r.hits) > maxRateLimiterEntries {
		r.hits = r.hits[len(r.hits)-maxRateLimiterEntries:]
	}

	if len(r.hits) > r.max {
		r.backoff = true
		return false
	}
	return true
}
