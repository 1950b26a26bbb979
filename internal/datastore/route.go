package datastore

import (
	"context"
	"sync"
)

type servedKey struct{}

type pinKey struct{}

// Served records which backend answered the last Read, Lookup or Write made
// with a context returned by Track.
type Served struct {
	mu   sync.Mutex
	mode Mode
}

// Mode is empty until an operation has run.
func (s *Served) Mode() Mode {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Served) set(m Mode) {
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
}

// Track returns a context that reports the answering backend through the
// returned Served.
func Track(ctx context.Context) (context.Context, *Served) {
	s := &Served{}
	return context.WithValue(ctx, servedKey{}, s), s
}

// Pin routes operations made with ctx to mode. ModeFallback skips the
// primary entirely; ModePrimary keeps the usual fallback on failure. An
// empty mode returns ctx unchanged.
func Pin(ctx context.Context, mode Mode) context.Context {
	if mode == "" {
		return ctx
	}
	return context.WithValue(ctx, pinKey{}, mode)
}

func pinnedTo(ctx context.Context) Mode {
	m, _ := ctx.Value(pinKey{}).(Mode)
	return m
}

func markServed(ctx context.Context, m Mode) {
	if s, ok := ctx.Value(servedKey{}).(*Served); ok {
		s.set(m)
	}
}
