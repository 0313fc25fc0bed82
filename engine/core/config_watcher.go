package core

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FnOnReload receives the freshly parsed configuration.
type FnOnReload func(cfg *Config)

// ConfigWatcher re-reads a config file whenever it changes on disk and hands
// the result to a callback. Only the live-tunable fields (clear color, log
// level) are expected to take effect; the rest needs a restart.
type ConfigWatcher struct {
	path     string
	onReload FnOnReload

	fsnotify *fsnotify.Watcher
	done     chan struct{}
	wg       sync.WaitGroup

	mutex    sync.Mutex
	isClosed bool
	current  *Config
}

func NewConfigWatcher(path string, current *Config, onReload FnOnReload) (*ConfigWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory, editors usually replace files instead of writing them.
	if err := fsWatch.Add(filepath.Dir(abs)); err != nil {
		fsWatch.Close()
		return nil, err
	}

	cw := &ConfigWatcher{
		path:     abs,
		onReload: onReload,
		fsnotify: fsWatch,
		done:     make(chan struct{}),
		current:  current,
	}
	cw.wg.Add(1)
	go cw.start()
	return cw, nil
}

func (cw *ConfigWatcher) start() {
	defer cw.wg.Done()
	for {
		select {
		case e, ok := <-cw.fsnotify.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != cw.path {
				continue
			}
			// Handle create or modify events
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				cw.reload()
			}

		case err, ok := <-cw.fsnotify.Errors:
			if !ok {
				return
			}
			LogError("config watcher: %s", err)

		case <-cw.done:
			return
		}
	}
}

func (cw *ConfigWatcher) reload() {
	data, err := os.ReadFile(cw.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			LogWarn("config reload: %s", err)
		}
		return
	}
	next := DefaultConfig()
	if err := ParseConfig(data, next); err != nil {
		LogWarn("config reload rejected: %s", err)
		return
	}

	cw.mutex.Lock()
	prev := cw.current
	cw.current = next
	cw.mutex.Unlock()

	if prev != nil && (prev.Window != next.Window || restartOnly(prev.Renderer) != restartOnly(next.Renderer)) {
		LogWarn("config reload: only clear_color and log level apply without a restart")
	}
	LogInfo("config reloaded from %s", cw.path)
	cw.onReload(next)
}

// restartOnly blanks the fields that can change at runtime.
func restartOnly(rc RendererConfig) RendererConfig {
	rc.ClearColor = [4]float32{}
	return rc
}

// Current returns the last configuration that parsed successfully.
func (cw *ConfigWatcher) Current() *Config {
	cw.mutex.Lock()
	defer cw.mutex.Unlock()
	return cw.current
}

func (cw *ConfigWatcher) Close() error {
	cw.mutex.Lock()
	if cw.isClosed {
		cw.mutex.Unlock()
		return errors.New("config watcher already closed")
	}
	cw.isClosed = true
	cw.mutex.Unlock()

	close(cw.done)
	cw.wg.Wait()
	return cw.fsnotify.Close()
}
