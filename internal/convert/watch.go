package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/banshee-data/nocap/internal/security"
)

// DefaultSettle is how long an inbox file must go without writes before it is
// converted.
const DefaultSettle = 250 * time.Millisecond

// Watcher converts every archive that lands in an inbox directory.
type Watcher struct {
	Converter *Converter
	Inbox     string
	Outbox    string
	Settle    time.Duration
	// OnResult, when set, is called after every conversion attempt.
	OnResult func(Result, error)

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewWatcher returns a watcher with the default settle delay.
func NewWatcher(c *Converter, inbox, outbox string) *Watcher {
	return &Watcher{Converter: c, Inbox: inbox, Outbox: outbox, Settle: DefaultSettle}
}

func isArchive(name string) bool {
	base := filepath.Base(name)
	return strings.EqualFold(filepath.Ext(base), ".json") && !strings.HasPrefix(base, ".")
}

// Run converts the archives already in the inbox, then watches it until ctx
// is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.Inbox, 0o755); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.Inbox); err != nil {
		return fmt.Errorf("watch %s: %w", w.Inbox, err)
	}

	w.mu.Lock()
	w.pending = make(map[string]*time.Timer)
	w.mu.Unlock()
	defer w.stopPending()

	existing, err := filepath.Glob(filepath.Join(w.Inbox, "*.json"))
	if err != nil {
		return err
	}
	for _, path := range existing {
		if isArchive(path) {
			w.schedule(path)
		}
	}
	logf("watching %s for archives (outbox %s)", w.Inbox, w.Outbox)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				if isArchive(event.Name) {
					w.schedule(event.Name)
				}
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logf("watcher error: %v", err)
		}
	}
}

// schedule (re)arms the settle timer for path.
func (w *Watcher) schedule(path string) {
	settle := w.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(settle)
		return
	}
	w.pending[path] = time.AfterFunc(settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.convert(path)
	})
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) convert(path string) {
	res := Result{Input: path}
	err := security.ValidatePathWithinDirectory(path, w.Inbox)
	if err == nil {
		res, err = w.Converter.ConvertFile(path, w.Outbox)
	}
	if err != nil {
		logf("convert %s: %v", filepath.Base(path), err)
	} else {
		logf("converted %s -> %s (%d frames)", filepath.Base(path), res.Output, res.Frames)
	}
	if w.OnResult != nil {
		w.OnResult(res, err)
	}
}
