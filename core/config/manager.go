package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// reloadDebounce coalesces bursts of fsnotify events from editors that
// write config files in several steps.
const reloadDebounce = 100 * time.Millisecond

// Manager loads configuration and serves an atomic snapshot of it.
// Watchers registered with OnChange run after every successful reload.
type Manager struct {
	path      string
	current   atomic.Pointer[Config]
	watcherMu sync.RWMutex
	watchers  []func(*Config)
	stopWatch chan struct{}
	watchOnce sync.Once
}

// NewManager creates a manager for the config file at path. The file is
// optional; defaults and environment variables apply regardless.
func NewManager(path string) *Manager {
	m := &Manager{
		path:      path,
		stopWatch: make(chan struct{}),
	}
	m.current.Store(Default())
	return m
}

// Config returns the current configuration snapshot.
func (m *Manager) Config() *Config {
	return m.current.Load()
}

// Load reads the config file (if present), overlays the environment, and
// publishes the new snapshot.
func (m *Manager) Load() error {
	cfg := Default()

	if err := m.loadFile(cfg); err != nil {
		return fmt.Errorf("config file: %w", err)
	}
	applyEnvironment(cfg)

	m.current.Store(cfg)
	m.notifyWatchers(cfg)
	return nil
}

func (m *Manager) loadFile(cfg *Config) error {
	if m.path == "" {
		return nil
	}
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// OnChange registers a callback invoked with each new snapshot.
func (m *Manager) OnChange(fn func(*Config)) {
	m.watcherMu.Lock()
	defer m.watcherMu.Unlock()
	m.watchers = append(m.watchers, fn)
}

func (m *Manager) notifyWatchers(cfg *Config) {
	m.watcherMu.RLock()
	defer m.watcherMu.RUnlock()
	for _, fn := range m.watchers {
		fn(cfg)
	}
}

// Watch reloads the configuration when the file changes on disk. The
// watcher observes the parent directory because editors typically
// replace config files by rename. Errors during reload keep the previous
// snapshot.
func (m *Manager) Watch() error {
	if m.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(m.path), err)
	}

	go m.watchLoop(watcher)
	return nil
}

func (m *Manager) watchLoop(watcher *fsnotify.Watcher) {
	defer watcher.Close()

	var timer *time.Timer
	target := filepath.Clean(m.path)

	for {
		select {
		case <-m.stopWatch:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() {
				_ = m.Load()
			})
		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Close stops the file watcher.
func (m *Manager) Close() {
	m.watchOnce.Do(func() {
		close(m.stopWatch)
	})
}
