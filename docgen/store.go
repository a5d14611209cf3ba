package docgen

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// TemplateStore serves named DOCX templates from a directory and reloads
// them when the directory changes, so templates can be updated without a
// restart. Lookups are lock-cheap; the fsnotify goroutine is the only
// writer.
type TemplateStore struct {
	dir    string
	logger *slog.Logger

	mu        sync.RWMutex
	templates map[string][]byte

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewTemplateStore loads all .docx files from dir and starts watching it.
// The template name is the file name without extension.
func NewTemplateStore(dir string, logger *slog.Logger) (*TemplateStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &TemplateStore{
		dir:       dir,
		logger:    logger,
		templates: make(map[string][]byte),
		done:      make(chan struct{}),
	}
	if err := s.reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create template watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch template dir: %w", err)
	}
	s.watcher = watcher
	go s.watch()
	return s, nil
}

// Get returns the named template, or false when it does not exist.
func (s *TemplateStore) Get(name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.templates[name]
	return data, ok
}

// Names returns the available template names, sorted.
func (s *TemplateStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.templates))
	for name := range s.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close stops the watcher.
func (s *TemplateStore) Close() error {
	close(s.done)
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// reload replaces the template map from the directory contents.
func (s *TemplateStore) reload() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read template dir: %w", err)
	}

	templates := make(map[string][]byte)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".docx") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			s.logger.Warn("failed to read template", "file", entry.Name(), "error", err)
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".docx")
		templates[name] = data
	}

	s.mu.Lock()
	s.templates = templates
	s.mu.Unlock()
	s.logger.Info("templates loaded", "dir", s.dir, "count", len(templates))
	return nil
}

// watch reloads the store on any relevant directory event. A full reload
// per event is cheap at template-directory scale and sidesteps rename
// bookkeeping.
func (s *TemplateStore) watch() {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if err := s.reload(); err != nil {
				s.logger.Warn("template reload failed", "error", err)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("template watcher error", "error", err)
		}
	}
}
