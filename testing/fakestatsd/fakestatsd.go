// Package fakestatsd captures statsd datagrams for tests. Point a real
// statsd client at Addr and inspect what arrived with Metrics or
// WaitForMetric.
package fakestatsd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/pluvio/dbx/testing/poll"
)

// Metric is one decoded statsd line. Value keeps the raw payload after
// the name, so a count of 1 arrives as "1|c|".
type Metric struct {
	Name  string
	Value string
	Tags  []string
}

// Server is a UDP listener that records every metric sent to it.
type Server struct {
	conn *net.UDPConn

	mu   sync.Mutex
	seen []Metric
}

// New starts a server on a loopback port. It is stopped when the test
// finishes.
func New(t testing.TB) *Server {
	t.Helper()

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	assert.NilError(t, err)

	s := &Server{conn: conn}
	go s.read()
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return s
}

// Addr is the host:port to hand to the client under test.
func (s *Server) Addr() string {
	return s.conn.LocalAddr().String()
}

// Metrics returns a copy of everything received so far, in arrival
// order.
func (s *Server) Metrics() []Metric {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Metric(nil), s.seen...)
}

// WaitForMetric blocks until a metric called name arrives, returning
// the first match. Clients flush on their own schedule, so name may
// show up well after the send call returned. The name must include any
// namespace the client prepends.
func (s *Server) WaitForMetric(ctx context.Context, name string, deadline time.Duration) (Metric, error) {
	var found Metric
	err := poll.WaitFor(ctx, deadline, func() (bool, error) {
		for _, m := range s.Metrics() {
			if m.Name == name {
				found = m
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		return Metric{}, fmt.Errorf("no metric %q arrived: %w", name, err)
	}
	return found, nil
}

func (s *Server) read() {
	buf := make([]byte, 64*1024)
	for {
		n, err := s.conn.Read(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		s.ingest(string(buf[:n]))
	}
}

// ingest records each non-empty line of a datagram. Clients batch
// several metrics into one packet separated by newlines.
func (s *Server) ingest(datagram string) {
	var batch []Metric
	for _, line := range strings.Split(datagram, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m, ok := parseLine(line); ok {
			batch = append(batch, m)
		}
	}
	if len(batch) == 0 {
		return
	}

	s.mu.Lock()
	s.seen = append(s.seen, batch...)
	s.mu.Unlock()
}

// parseLine splits "name:value|type|#tag,tag" into its parts. The
// value keeps everything between the first colon and the tag marker.
func parseLine(line string) (Metric, bool) {
	name, rest, ok := strings.Cut(line, ":")
	if !ok {
		return Metric{}, false
	}
	m := Metric{Name: name}
	var tags string
	m.Value, tags, ok = strings.Cut(rest, "#")
	if ok {
		m.Tags = strings.Split(tags, ",")
	}
	return m, true
}
