// Package syncbuffer has a bytes.Buffer safe for concurrent use, for tests
// that capture o11y output written from other goroutines.
package syncbuffer

import (
	"bytes"
	"sync"
)

type SyncBuffer struct {
	mu  sync.RWMutex
	buf bytes.Buffer
}

func (s *SyncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.buf.Write(p)
}

func (s *SyncBuffer) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.buf.String()
}

func (s *SyncBuffer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf.Reset()
}
