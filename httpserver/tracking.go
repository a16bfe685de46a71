package httpserver

import (
	"context"
	"math"
	"net"
	"net/url"
	"sync"
)

// trackedListener wraps a net.Listener to count accepted and active
// connections. Accepted connections are tracked until they are Closed.
type trackedListener struct {
	net.Listener

	mu       sync.RWMutex
	name     string
	accepted int
	active   int
	remotes  map[string]int
}

// Accept returns the next connection wrapped in a trackedConn, so that
// its Close can remove it from the listener's active set.
func (l *trackedListener) Accept() (net.Conn, error) {
	con, err := l.Listener.Accept()
	if err != nil {
		return con, err
	}
	tracked := &trackedConn{
		l:    l,
		Conn: con,
	}
	l.trackConn(tracked, true)

	return tracked, err
}

// MetricName satisfies MetricProducer.
func (l *trackedListener) MetricName() string {
	return l.name + "-listener"
}

// Gauges satisfies MetricProducer.
func (l *trackedListener) Gauges(_ context.Context) map[string]float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var maxPerRemote, minPerRemote int
	// guard so that with nothing active the min shows as zero
	if l.active > 0 {
		minPerRemote = math.MaxInt
		for _, c := range l.remotes {
			if c > maxPerRemote {
				maxPerRemote = c
			}
			if c < minPerRemote {
				minPerRemote = c
			}
		}
	}
	return map[string]float64{
		"number_of_remotes":  float64(len(l.remotes)),
		"total_connections":  float64(l.accepted),
		"active_connections": float64(l.active),
		// useful to see whether clients balance across instances
		"max_connections_per_remote": float64(maxPerRemote),
		"min_connections_per_remote": float64(minPerRemote),
	}
}

func (l *trackedListener) trackConn(c *trackedConn, add bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.remotes == nil {
		l.remotes = make(map[string]int)
	}
	// remote host (probably an ip) excluding the port
	host := (&url.URL{Host: c.RemoteAddr().String()}).Hostname()
	if add {
		l.accepted++
		l.active++
		l.remotes[host]++
	} else {
		l.active--
		l.remotes[host]--
		if l.remotes[host] == 0 {
			delete(l.remotes, host)
		}
	}
}

// trackedConn overrides Close to update the trackedListener.
type trackedConn struct {
	net.Conn

	l *trackedListener
}

func (c *trackedConn) Close() error {
	c.l.trackConn(c, false)
	return c.Conn.Close()
}
