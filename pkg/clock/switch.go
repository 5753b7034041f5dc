package clock

import (
	"sort"
	"sync"
)

// Switch is a Visibility that is flipped programmatically, e.g. from an OS
// signal handler. When a Poster is given, listeners run on the poster's
// goroutine; otherwise they run synchronously inside Set.
type Switch struct {
	poster Poster

	mu       sync.Mutex
	hidden   bool
	seq      int
	watchers map[int]func(bool)
}

var _ Visibility = (*Switch)(nil)

func NewSwitch(p Poster) *Switch {
	return &Switch{poster: p, watchers: map[int]func(bool){}}
}

func (s *Switch) Hidden() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hidden
}

func (s *Switch) Watch(fn func(hidden bool)) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	s.seq++
	id := s.seq
	s.watchers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
		})
	}
}

// Set changes visibility. It reports false if the change could not be
// delivered because the poster has stopped.
func (s *Switch) Set(hidden bool) bool {
	s.mu.Lock()
	if s.hidden == hidden {
		s.mu.Unlock()
		return true
	}
	s.hidden = hidden
	ids := make([]int, 0, len(s.watchers))
	for id := range s.watchers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(bool), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.watchers[id])
	}
	s.mu.Unlock()

	deliver := func() {
		for _, fn := range fns {
			fn(hidden)
		}
	}
	if s.poster == nil {
		deliver()
		return true
	}
	return s.poster.Post(deliver)
}
