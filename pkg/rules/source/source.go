// Package source provides grammar definition sources for the rules engine.
// A source loads one grammar definition and optionally watches its backing
// store for changes, feeding reload events back to the engine.
package source

import (
	"context"

	"github.com/adamtc007/data-designer-sub001/pkg/adl/grammar"
)

// Source supplies the grammar definition an engine serves. Load fetches the
// current definition; Watch streams change events until the context is
// cancelled. The engine revalidates and recompiles on every event, so a
// source never has to guarantee the new content is valid.
type Source interface {
	// Load returns the current grammar definition.
	Load(ctx context.Context) (*grammar.Definition, error)

	// Watch returns a channel of change events. The channel is closed when
	// the context is cancelled or the source stops watching.
	Watch(ctx context.Context) (<-chan Event, error)
}

// Event describes a change to the grammar backing store.
type Event struct {
	// Type is the kind of change detected.
	Type EventType

	// Path is the file that changed, when the source is file-backed.
	Path string

	// Error is any error that occurred while watching.
	Error error
}

// EventType represents the type of grammar source event.
type EventType string

const (
	EventCreated  EventType = "created"
	EventModified EventType = "modified"
	EventRemoved  EventType = "removed"
)
