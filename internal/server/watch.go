package server

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"gihan9a/entityschema/internal/metrics"
	"gihan9a/entityschema/internal/store"
)

// SetupWatchers recursively adds the data directory to the watcher
func (s *SchemaServer) SetupWatchers() error {
	if s.watcher == nil {
		return nil
	}
	return filepath.Walk(s.config.DataDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return s.watcher.Add(path)
		}
		return nil
	})
}

// Reload loads the data directory again and swaps it in. On failure the
// current store keeps being served.
func (s *SchemaServer) Reload() error {
	st, err := store.LoadDir(s.config.DataDir)
	if err != nil {
		metrics.Reloads.WithLabelValues("error").Inc()
		return err
	}
	metrics.Reloads.WithLabelValues("ok").Inc()
	s.Swap(st)
	return nil
}

// relevant reports whether a change to name can affect the store
func (s *SchemaServer) relevant(name string) bool {
	rel, err := filepath.Rel(s.config.DataDir, name)
	if err != nil {
		return false
	}
	return store.IsDataFile(rel)
}

// watchFiles reloads the store when schema data changes
func (s *SchemaServer) watchFiles() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}

			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := s.watcher.Add(event.Name); err != nil {
						slog.Warn("cannot watch new directory", "path", event.Name, "error", err)
					}
					continue
				}
			}

			if !s.relevant(event.Name) || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			slog.Info("schema data changed", "path", event.Name, "op", event.Op.String())
			if err := s.Reload(); err != nil {
				slog.Error("reload failed, keeping previous schema data", "error", err)
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}
