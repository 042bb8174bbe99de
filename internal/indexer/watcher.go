package indexer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"random-pictures/internal/logging"
	"random-pictures/internal/metrics"
)

// Default settle time between the last filesystem event and the nudge.
const defaultDebounce = 250 * time.Millisecond

// Watcher turns filesystem events under the root into early scan requests.
// Polling stays the source of truth; a missed or coalesced event only means
// the change is picked up on the next tick instead.
type Watcher struct {
	root     string
	nudge    func()
	debounce time.Duration
	limiter  *rate.Limiter
}

// NewWatcher creates a Watcher that calls nudge at most once per
// minInterval, after events have been quiet for the debounce period.
func NewWatcher(root string, minInterval time.Duration, nudge func()) *Watcher {
	if minInterval <= 0 {
		minInterval = DefaultInterval
	}
	return &Watcher{
		root:     root,
		nudge:    nudge,
		debounce: defaultDebounce,
		limiter:  rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

// Run watches the root and its category directories until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	watched := 0
	if err := fw.Add(w.root); err != nil {
		return err
	}
	watched++

	entries, err := os.ReadDir(w.root)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() && !isHidden(entry.Name()) {
			if err := fw.Add(filepath.Join(w.root, entry.Name())); err != nil {
				logging.Warn("Watcher: cannot watch %s: %v", entry.Name(), err)
				continue
			}
			watched++
		}
	}
	metrics.WatchedDirectories.Set(float64(watched))
	defer metrics.WatchedDirectories.Set(0)

	logging.Info("Watching %s (%d directories)", w.root, watched)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	reserved := false

	for {
		select {
		case <-ctx.Done():
			logging.Info("Watcher stopped")
			return nil

		case <-timer.C:
			if !reserved {
				if delay := w.limiter.Reserve().Delay(); delay > 0 {
					// Too soon after the previous nudge; the reservation
					// holds our slot until the limiter allows it.
					reserved = true
					timer.Reset(delay)
					continue
				}
			}
			reserved = false
			logging.Debug("Watcher: filesystem changed, requesting scan")
			w.nudge()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			metrics.WatcherEventsTotal.WithLabelValues(opName(ev.Op)).Inc()

			if ev.Op&fsnotify.Create != 0 && filepath.Dir(ev.Name) == filepath.Clean(w.root) {
				if info, statErr := os.Lstat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := fw.Add(ev.Name); addErr != nil {
						logging.Warn("Watcher: cannot watch new category %s: %v", ev.Name, addErr)
					} else {
						watched++
						metrics.WatchedDirectories.Set(float64(watched))
					}
				}
			}

			if !reserved {
				timer.Reset(w.debounce)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			metrics.WatcherErrors.Inc()
			logging.Warn("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	return !isHidden(filepath.Base(ev.Name))
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func opName(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	case op&fsnotify.Write != 0:
		return "write"
	default:
		return "chmod"
	}
}
