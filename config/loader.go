package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"

	"browsergate/errors"
	"browsergate/logger"
)

// Load builds a Config by layering, in order: DefaultConfig, an optional
// YAML file at path (skipped if empty or missing), then BROWSERGATE_*
// environment variables. Each layer overrides the last, the teacher's
// config loading order.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(DefaultConfig), yaml.Parser()); err != nil {
		return nil, errors.InvalidConfig(fmt.Sprintf("parsing default config: %v", err))
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.InvalidConfig(fmt.Sprintf("loading config file %s: %v", path, err))
		}
	}

	if err := k.Load(env.Provider("BROWSERGATE_", ".", envKeyToKoanf), nil); err != nil {
		return nil, errors.InvalidConfig(fmt.Sprintf("loading environment overrides: %v", err))
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.InvalidConfig(fmt.Sprintf("unmarshalling config: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKeyToKoanf turns BROWSERGATE_POOL_MAX_BROWSERS into pool.max_browsers.
func envKeyToKoanf(s string) string {
	s = strings.TrimPrefix(s, "BROWSERGATE_")
	return strings.Replace(strings.ToLower(s), "_", ".", 1)
}

// Watcher reloads Config from path whenever it changes on disk, pushing
// each successfully-parsed revision to subscribers. Adapted from the
// teacher's dynamic_config.ConfigManager: a watcher-channel fan-out
// instead of a full-blown pub/sub bus, since the gateway has very few
// subscribers (cmd/gateway subscribes once, to re-register admission).
type Watcher struct {
	path string

	mu       sync.RWMutex
	current  *Config
	watchers []chan *Config
}

// NewWatcher loads path once and arms an fsnotify watch on it. Pass an
// empty path to disable file watching (env/default layers only).
func NewWatcher(path string) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{path: path, current: cfg}
	if path != "" {
		go w.watch()
	}
	return w, nil
}

// Current returns the most recently loaded Config.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Subscribe returns a channel that receives every successfully reloaded
// Config. The channel is buffered by one; a subscriber that falls behind
// only ever sees the latest revision.
func (w *Watcher) Subscribe() <-chan *Config {
	ch := make(chan *Config, 1)
	w.mu.Lock()
	w.watchers = append(w.watchers, ch)
	w.mu.Unlock()
	return ch
}

func (w *Watcher) watch() {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("config watcher: failed to start", err)
		return
	}
	defer fw.Close()

	if err := fw.Add(w.path); err != nil {
		logger.Error("config watcher: failed to watch file", err)
		return
	}

	for event := range fw.Events {
		if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			continue
		}
		cfg, err := Load(w.path)
		if err != nil {
			logger.Error("config watcher: reload failed, keeping previous config", err)
			continue
		}

		w.mu.Lock()
		w.current = cfg
		subs := append([]chan *Config(nil), w.watchers...)
		w.mu.Unlock()

		for _, ch := range subs {
			select {
			case ch <- cfg:
			default:
				<-ch
				ch <- cfg
			}
		}
		logger.Info("config reloaded", w.path)
	}
}
