package filehttp

import (
	"context"
	"net/http"
	"sync"
)

// sniffedTypes holds content types detected from bodies, keyed by content
// digest. It lives outside the cache and is emptied by a clear listener.
type sniffedTypes struct {
	mu    sync.Mutex
	types map[string]string
}

func newSniffedTypes() *sniffedTypes {
	return &sniffedTypes{types: make(map[string]string)}
}

func (s *sniffedTypes) lookup(sum string, body []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ct, ok := s.types[sum]; ok {
		return ct
	}
	ct := http.DetectContentType(body)
	s.types[sum] = ct
	return ct
}

func (s *sniffedTypes) reset(context.Context) error {
	s.mu.Lock()
	clear(s.types)
	s.mu.Unlock()
	return nil
}

func (s *sniffedTypes) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.types)
}
