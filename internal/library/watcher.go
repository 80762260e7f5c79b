package library

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"

	"madison-ai/internal/contextutil"
)

// Op describes what happened to a document file.
type Op int

const (
	// Changed covers creation, writes and renames onto a label.
	Changed Op = iota
	// Removed means the backing file is gone.
	Removed
)

func (o Op) String() string {
	if o == Removed {
		return "removed"
	}
	return "changed"
}

// Event reports a change to one document.
type Event struct {
	Label string
	Op    Op
}

// Watcher emits document events for the books directory.
type Watcher struct {
	watcher *fsnotify.Watcher
	root    string
}

// NewWatcher creates a watcher for the library's root directory.
func (l *Library) NewWatcher() (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{watcher: w, root: l.root}, nil
}

// Watch starts monitoring and returns a channel of events. The channel is
// closed when ctx is done or the watcher is stopped.
func (w *Watcher) Watch(ctx context.Context) (<-chan Event, error) {
	if err := w.watcher.Add(w.root); err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", w.root, err)
	}

	logger := contextutil.LoggerFromContext(ctx)
	events := make(chan Event, 100)

	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !IsDocumentFile(event.Name) {
					continue
				}

				var op Op
				switch {
				case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
					op = Changed
				case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
					op = Removed
				default:
					continue
				}

				select {
				case events <- Event{Label: LabelFromPath(event.Name), Op: op}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				logger.WarnContext(ctx, "file watcher error", "dir", w.root, "error", err)
			}
		}
	}()

	return events, nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}
