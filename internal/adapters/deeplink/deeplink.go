// Package deeplink delivers one-shot "activate session" requests from
// outside the process. External tools (or a second crewdeck invocation)
// write a session id to a well-known handoff file; this watcher picks it
// up, consumes the file, and emits the id exactly once.
package deeplink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// maxHandoffSize bounds reads of the handoff file; a session id is tiny.
const maxHandoffSize = 4096

// Watcher watches the handoff file and emits activate requests.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	requests chan string

	mu     sync.Mutex
	cancel context.CancelFunc
	closed bool
}

// Watch starts watching the handoff file at path. The file's directory is
// created if missing; any id already sitting in the file is delivered
// immediately.
func Watch(path string) (*Watcher, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create handoff dir: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory, not the file: the file may not exist yet, and
	// editors/writers often replace rather than modify.
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:     path,
		watcher:  fsw,
		requests: make(chan string, 4),
		cancel:   cancel,
	}

	// Deliver a request left from before this process started.
	w.consume()

	go w.loop(ctx)
	log.Debug().Str("path", path).Msg("deep link watcher started")
	return w, nil
}

// Requests returns the channel of session ids to activate.
func (w *Watcher) Requests() <-chan string {
	return w.requests
}

// Close stops the watcher. Safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	w.cancel()
	return w.watcher.Close()
}

// loop forwards handoff writes until the context ends.
func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.consume()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("deep link watcher error")
		}
	}
}

// consume reads, removes, and emits the handoff file's content. Removing
// the file is what makes the request one-shot at the filesystem level.
func (w *Watcher) consume() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return
	}
	_ = os.Remove(w.path)

	if len(data) > maxHandoffSize {
		log.Warn().Int("size", len(data)).Msg("handoff file too large, ignoring")
		return
	}
	id := strings.TrimSpace(string(data))
	if id == "" {
		return
	}

	select {
	case w.requests <- id:
	default:
		log.Warn().Str("session_id", id).Msg("dropping activate request, queue full")
	}
}
