package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/mike-ai-lab/ConstructLM-sub002/internal/metrics"
)

// ChangeHandler receives the freshly loaded configuration after the file changes
type ChangeHandler func(*Config)

// Watcher reloads the config file when it changes on disk. The parent
// directory is watched so editors that replace the file by rename still
// trigger a reload.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	debounce time.Duration

	mu       sync.Mutex
	handlers []ChangeHandler
	started  bool
	// stopCh and doneCh belong to the current run; Start replaces them
	stopCh chan struct{}
	doneCh chan struct{}
}

func NewWatcher(path string, logger *zap.Logger) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		path:     filepath.Clean(path),
		watcher:  fw,
		logger:   logger,
		debounce: 50 * time.Millisecond,
	}, nil
}

// OnChange registers a handler; handlers run in registration order
func (w *Watcher) OnChange(h ChangeHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, h)
}

// Start begins watching. It is a no-op when already started; a stopped
// watcher can be started again.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	if w.watcher == nil {
		fw, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create file watcher: %w", err)
		}
		w.watcher = fw
	}
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch config directory: %w", err)
	}
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.started = true
	go w.loop(w.watcher, w.stopCh, w.doneCh)

	w.logger.Info("Configuration watcher started", zap.String("path", w.path))
	return nil
}

// Stop ends the watch loop and waits for it to exit
func (w *Watcher) Stop() error {
	w.mu.Lock()
	fw, stopCh, doneCh, running := w.watcher, w.stopCh, w.doneCh, w.started
	w.watcher = nil
	w.started = false
	w.mu.Unlock()

	if fw == nil {
		return nil
	}
	if !running {
		return fw.Close()
	}
	close(stopCh)
	err := fw.Close()
	<-doneCh
	return err
}

func (w *Watcher) loop(fw *fsnotify.Watcher, stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Config watch loop panicked", zap.Any("panic", r))
		}
	}()

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	for {
		select {
		case <-stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("Config file event",
				zap.String("file", event.Name),
				zap.String("op", event.Op.String()))
			// Coalesce the burst of writes editors produce into one reload
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerCh = timer.C
		case <-timerCh:
			timerCh = nil
			w.reload()
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Error("Config watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0
}

func (w *Watcher) reload() {
	cfg, err := LoadFile(w.path)
	if err != nil {
		metrics.ConfigReloads.WithLabelValues("invalid").Inc()
		w.logger.Error("Config reload failed; keeping previous settings",
			zap.String("path", w.path),
			zap.Error(err))
		return
	}
	metrics.ConfigReloads.WithLabelValues("ok").Inc()

	w.mu.Lock()
	handlers := append([]ChangeHandler(nil), w.handlers...)
	w.mu.Unlock()

	for _, h := range handlers {
		h(cfg)
	}
	w.logger.Info("Configuration reloaded",
		zap.String("path", w.path),
		zap.Float64("pdf.viewport_scale", cfg.PDF.ViewportScale),
		zap.Int("pdf.min_quote_runes", cfg.PDF.MinQuoteRunes),
		zap.Bool("matcher.containment", cfg.Matcher.Containment))
}
