package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/adamtc007/data-designer-sub001/pkg/adl/grammar"
)

// MemorySource serves a fixed grammar definition from memory. It is the
// source for embedded use and for tests: Update swaps the definition and
// notifies watchers, which lets callers exercise the engine's reload path
// without touching the filesystem.
type MemorySource struct {
	mu   sync.Mutex
	def  *grammar.Definition
	subs []chan Event
}

// NewMemorySource creates an in-memory grammar source.
func NewMemorySource(def *grammar.Definition) *MemorySource {
	return &MemorySource{def: def}
}

// Load returns a copy of the stored definition.
func (s *MemorySource) Load(ctx context.Context) (*grammar.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.def == nil {
		return nil, fmt.Errorf("memory source holds no definition")
	}
	return s.def.Clone(), nil
}

// Watch returns a channel that carries one event per Update call. The
// channel is closed when the context is cancelled.
func (s *MemorySource) Watch(ctx context.Context) (<-chan Event, error) {
	ch := make(chan Event, 4)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		for i, sub := range s.subs {
			if sub == ch {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

// SetDefinition replaces the stored definition without notifying watchers.
func (s *MemorySource) SetDefinition(def *grammar.Definition) {
	s.mu.Lock()
	s.def = def
	s.mu.Unlock()
}

// Update replaces the stored definition and sends a modified event to every
// watcher. Watchers that have fallen behind miss the event; the engine
// reloads from Load on each event, so the latest definition still wins.
func (s *MemorySource) Update(def *grammar.Definition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.def = def
	for _, sub := range s.subs {
		select {
		case sub <- Event{Type: EventModified}:
		default:
		}
	}
}
