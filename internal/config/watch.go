package config

import (
	"context"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-reads the config file on every write and hands the new
// value to onReload. It re-parses the whole file on each event rather
// than diffing individual keys; which fields take effect at runtime is
// decided by onReload (the app applies only the flipper entry of
// serial_port_mapping), and every other field keeps the value read at
// startup.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
}

// WatchFile starts watching path's containing directory for changes and
// invokes onReload with the freshly parsed Config after each write.
// Cancel ctx to stop watching.
func WatchFile(ctx context.Context, path string, onReload func(Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{path: path, watcher: fw}
	go func() {
		defer fw.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if ev.Name != path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					log.Printf("[config] reload of %s failed, keeping previous config: %v", path, err)
					continue
				}
				onReload(cfg)
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				log.Printf("[config] watch error: %v", err)
			}
		}
	}()
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
