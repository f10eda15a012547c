package admin

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"vankeyword/app/config"

	"github.com/elliotchance/pie/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/samber/do"
	"github.com/samber/oops"
)

var _ do.Shutdownable = (*Service)(nil)

// Service is the registry of privileged callers. The backing file holds either
// a single comma separated line or one id per line.
type Service struct {
	path string

	mu  sync.RWMutex
	ids []string

	watcher *fsnotify.Watcher
	done    chan struct{}
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	s, err := NewRegistry(cfg.Admin.File)
	if err != nil {
		return nil, err
	}

	if cfg.Admin.Watch {
		if err = s.Watch(); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func NewRegistry(path string) (*Service, error) {
	s := &Service{path: path}

	if err := s.Reload(); err != nil {
		return nil, err
	}

	return s, nil
}

func parse(text string) []string {
	lines := pie.Filter(
		pie.Map(strings.Split(text, "\n"), strings.TrimSpace),
		func(line string) bool { return line != "" },
	)
	if len(lines) == 0 {
		return nil
	}

	if strings.Contains(lines[0], ",") {
		lines = pie.Map(strings.Split(lines[0], ","), strings.TrimSpace)
	}

	var result []string
	for _, id := range lines {
		if id != "" && !pie.Contains(result, id) {
			result = append(result, id)
		}
	}

	return result
}

func (s *Service) Reload() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		data = nil
	} else if err != nil {
		return oops.In("admin").With("path", s.path).Wrapf(err, "failed to read admin list")
	}

	ids := parse(string(data))

	s.mu.Lock()
	s.ids = ids
	s.mu.Unlock()

	slog.Debug("Admin list loaded", "count", len(ids))

	return nil
}

func (s *Service) IsAdmin(id string) bool {
	if id == "" {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return pie.Contains(s.ids, id)
}

func (s *Service) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.ids)
}

// Add reports false when the id is already privileged.
func (s *Service) Add(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pie.Contains(s.ids, id) {
		return false, nil
	}

	ids := append(slices.Clone(s.ids), id)
	if err := s.persist(ids); err != nil {
		return false, err
	}
	s.ids = ids

	slog.Info("Admin added", "id", id, "telegram", true)

	return true, nil
}

// Remove reports false when the id was not privileged.
func (s *Service) Remove(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := pie.FindFirstUsing(s.ids, func(v string) bool { return v == id })
	if index < 0 {
		return false, nil
	}

	ids := slices.Delete(slices.Clone(s.ids), index, index+1)
	if err := s.persist(ids); err != nil {
		return false, err
	}
	s.ids = ids

	slog.Info("Admin removed", "id", id, "telegram", true)

	return true, nil
}

func (s *Service) persist(ids []string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return oops.In("admin").With("path", s.path).Wrapf(err, "failed to create admin dir")
	}

	if err := os.WriteFile(s.path, []byte(strings.Join(ids, ",")), 0644); err != nil {
		return oops.In("admin").With("path", s.path).Wrapf(err, "failed to write admin list")
	}

	return nil
}

// Watch reloads the list whenever the file is written, created or replaced.
// The parent directory is watched so editors that replace the file keep working.
func (s *Service) Watch() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return oops.In("admin").With("path", s.path).Wrapf(err, "failed to create admin dir")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return oops.In("admin").Wrapf(err, "failed to create watcher")
	}

	if err = watcher.Add(dir); err != nil {
		watcher.Close()
		return oops.In("admin").With("dir", dir).Wrapf(err, "failed to watch admin dir")
	}

	s.watcher = watcher
	s.done = make(chan struct{})

	go s.watchLoop()

	return nil
}

func (s *Service) watchLoop() {
	defer close(s.done)

	target := filepath.Clean(s.path)

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			if err := s.Reload(); err != nil {
				slog.Warn("Admin list reload failed", "error", err)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Admin watcher error", "error", err)
		}
	}
}

func (s *Service) Shutdown() error {
	if s.watcher == nil {
		return nil
	}

	err := s.watcher.Close()
	<-s.done
	s.watcher = nil

	return err
}
