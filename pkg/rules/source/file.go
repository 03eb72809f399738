package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/adamtc007/data-designer-sub001/pkg/adl/grammar"
)

// FileConfig contains configuration for a file-backed grammar source.
type FileConfig struct {
	// Path is the YAML grammar document to load and watch.
	Path string

	// DebounceInterval is the quiet period required after a file change
	// before an event is emitted (default: 100ms). Editors often produce
	// several filesystem events per save.
	DebounceInterval time.Duration
}

// DefaultFileConfig returns the default file source configuration.
func DefaultFileConfig(path string) *FileConfig {
	return &FileConfig{
		Path:             path,
		DebounceInterval: 100 * time.Millisecond,
	}
}

// FileSource loads a grammar definition from a YAML document and watches it
// with fsnotify. Watch events are debounced so a burst of writes from one
// save triggers a single reload.
type FileSource struct {
	config *FileConfig
	logger *slog.Logger
}

// NewFileSource creates a file-backed grammar source.
func NewFileSource(config *FileConfig, logger *slog.Logger) (*FileSource, error) {
	if config == nil || config.Path == "" {
		return nil, fmt.Errorf("file source requires a path")
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = 100 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{
		config: config,
		logger: logger,
	}, nil
}

// Load reads and decodes the grammar document.
func (s *FileSource) Load(ctx context.Context) (*grammar.Definition, error) {
	data, err := os.ReadFile(s.config.Path)
	if err != nil {
		return nil, fmt.Errorf("reading grammar file: %w", err)
	}

	def, err := grammar.DecodeDefinition(data)
	if err != nil {
		return nil, fmt.Errorf("grammar file %q: %w", s.config.Path, err)
	}

	s.logger.Debug("grammar definition loaded",
		"path", s.config.Path,
		"name", def.Name,
		"rules", len(def.Rules),
	)
	return def, nil
}

// Watch starts an fsnotify watcher on the grammar file and returns a channel
// of debounced change events. The watcher subscribes to the parent directory
// so the subscription survives rename-style saves, and filters events down
// to the configured file. The channel is closed when the context is
// cancelled.
func (s *FileSource) Watch(ctx context.Context) (<-chan Event, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	dir := filepath.Dir(s.config.Path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	eventCh := make(chan Event, 4)
	debounce := NewDebouncer(s.config.DebounceInterval)

	s.logger.Info("grammar file watcher started",
		"path", s.config.Path,
		"debounce_ms", s.config.DebounceInterval.Milliseconds(),
	)

	go func() {
		defer func() {
			debounce.Stop()
			watcher.Close()
			close(eventCh)
		}()

		for {
			select {
			case <-ctx.Done():
				s.logger.Debug("grammar file watcher stopped")
				return

			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !s.matchesTarget(ev) {
					continue
				}

				s.logger.Debug("grammar file event",
					"path", ev.Name,
					"op", ev.Op.String(),
				)

				out := Event{Type: eventTypeFor(ev.Op), Path: ev.Name}
				debounce.Trigger(func() {
					select {
					case eventCh <- out:
					default:
					}
				})

			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Error("grammar file watcher error", "error", werr)
				select {
				case eventCh <- Event{Type: EventModified, Path: s.config.Path, Error: werr}:
				default:
				}
			}
		}
	}()

	return eventCh, nil
}

// matchesTarget filters directory events down to the watched file.
func (s *FileSource) matchesTarget(ev fsnotify.Event) bool {
	if ev.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}
	return filepath.Base(ev.Name) == filepath.Base(s.config.Path)
}

func eventTypeFor(op fsnotify.Op) EventType {
	switch {
	case op&fsnotify.Create == fsnotify.Create:
		return EventCreated
	case op&fsnotify.Remove == fsnotify.Remove, op&fsnotify.Rename == fsnotify.Rename:
		return EventRemoved
	default:
		return EventModified
	}
}

// Debouncer collects rapid events and triggers the callback only after a
// quiet period, preventing reload storms from editors that write in bursts.
type Debouncer struct {
	interval time.Duration
	timer    *time.Timer
	mu       sync.Mutex
	callback func()
	stopCh   chan struct{}
}

// NewDebouncer creates a new debouncer.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Trigger arms the debouncer with a new event. The callback runs after the
// debounce interval unless another Trigger arrives first.
func (d *Debouncer) Trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.callback = callback

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.interval, func() {
		select {
		case <-d.stopCh:
			return
		default:
			d.mu.Lock()
			cb := d.callback
			d.mu.Unlock()

			if cb != nil {
				cb()
			}
		}
	})
}

// Stop stops the debouncer and cancels any pending callback.
func (d *Debouncer) Stop() {
	close(d.stopCh)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
