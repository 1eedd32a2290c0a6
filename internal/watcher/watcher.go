package watcher

import (
	"dropwatch/internal/logger"
	"dropwatch/internal/model"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher turns fsnotify notifications for one or more directory trees into
// a stream of model.WatchEvent.
//
// The stream has room for a single element and sends block until the
// consumer takes it, so a slow consumer stalls the watcher rather than
// losing events.
type Watcher struct {
	fw      *fsnotify.Watcher
	log     *zap.Logger
	eventCh chan model.WatchEvent
	doneCh  chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
}

func New(log *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Watcher{
		fw:      fw,
		log:     logger.OrNop(log),
		eventCh: make(chan model.WatchEvent, 1),
		doneCh:  make(chan struct{}),
	}, nil
}

// Watch adds dir and every directory below it. The first successful call
// starts delivering events.
func (w *Watcher) Watch(dir string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absDir)
	if err != nil {
		return fmt.Errorf("watch root not found: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch root %s is not a directory", absDir)
	}

	if err := w.addRecursive(absDir); err != nil {
		return err
	}

	w.startOnce.Do(func() {
		go w.run()
	})

	w.log.Info("watching",
		zap.String("dir", absDir))
	return nil
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if err := w.fw.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
			w.log.Debug("watching directory",
				zap.String("path", path))
		}

		return nil
	})
}

func (w *Watcher) run() {
	defer close(w.eventCh)

	for {
		select {
		case <-w.doneCh:
			w.log.Info("watcher stopping")
			return

		case fsEvent, ok := <-w.fw.Events:
			if !ok {
				return
			}

			kind := toEventKind(fsEvent.Op)
			if kind == model.EventCreate {
				w.watchIfDir(fsEvent.Name)
			}

			event := model.FileEvent{
				Kind:      kind,
				Paths:     []string{fsEvent.Name},
				Timestamp: time.Now(),
			}

			if !w.emit(model.WatchEvent{Event: event}) {
				return
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}

			if !w.emit(model.WatchEvent{Err: err}) {
				return
			}
		}
	}
}

// watchIfDir extends the watch to a directory created under a root.
func (w *Watcher) watchIfDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}

	if err := w.addRecursive(path); err != nil {
		w.log.Warn("failed to watch new directory",
			zap.String("path", path),
			zap.Error(err))
		return
	}

	w.log.Debug("added new directory to watch",
		zap.String("path", path))
}

func (w *Watcher) emit(ev model.WatchEvent) bool {
	select {
	case w.eventCh <- ev:
		return true
	case <-w.doneCh:
		return false
	}
}

// Events is closed once the watcher stops.
func (w *Watcher) Events() <-chan model.WatchEvent {
	return w.eventCh
}

func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.doneCh)
		_ = w.fw.Close()

		// Nothing to drain if no root was ever added.
		w.startOnce.Do(func() {
			close(w.eventCh)
		})
	})
}

func toEventKind(op fsnotify.Op) model.EventKind {
	if op.Has(fsnotify.Create) {
		return model.EventCreate
	}

	return model.EventOther
}
