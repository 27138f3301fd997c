package credential

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Store is the process-wide home of the single active credential. It is
// safe for concurrent use: reads take a snapshot, writes are serialized.
type Store struct {
	mu       sync.RWMutex
	path     string
	active   *Record
	watcher  *fsnotify.Watcher
	onChange func(*Record)
	log      *logrus.Entry
}

// NewStore constructs an empty store bound to the given credential file
// path. Call Load to populate it.
func NewStore(path string, log *logrus.Entry) *Store {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Store{path: path, log: log}
}

// Load populates the store from, in priority order: the inline
// GEMINI_CREDENTIALS env var, then the credential file. Tolerant parsing
// (per normalize) means a record missing everything but a refresh_token is
// still accepted; the caller is expected to refresh it promptly.
func (s *Store) Load() (*Record, error) {
	if env, ok := os.LookupEnv("GEMINI_CREDENTIALS"); ok && env != "" {
		rec, ok := normalize([]byte(env))
		if !ok {
			return nil, fmt.Errorf("credential: GEMINI_CREDENTIALS set but missing refresh_token")
		}
		rec.FromEnv = true
		s.setActive(rec)
		s.log.Info("loaded credential from GEMINI_CREDENTIALS")
		return rec.Clone(), nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("credential: reading %s: %w", s.path, err)
	}
	rec, ok := normalize(data)
	if !ok {
		return nil, fmt.Errorf("credential: %s has no usable refresh_token", s.path)
	}
	s.setActive(rec)
	s.log.WithField("path", s.path).Info("loaded credential from file")
	return rec.Clone(), nil
}

// Active returns a read-only snapshot of the current credential, or nil if
// none is loaded.
func (s *Store) Active() *Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active.Clone()
}

func (s *Store) setActive(rec *Record) {
	s.mu.Lock()
	s.active = rec
	s.mu.Unlock()
}

// SaveRefreshed writes back a credential whose access token (and expiry)
// changed as the result of a refresh. When the record originated from the
// environment the file is left untouched, except that a newly-discovered
// project id is still persisted so future processes don't have to
// rediscover it (spec.md 4.3).
func (s *Store) SaveRefreshed(rec *Record) error {
	s.setActive(rec)
	if rec.FromEnv {
		return nil
	}
	return s.writeAtomic(rec)
}

// SetProjectID records a newly-discovered project id on the active
// credential and persists it, honoring the env-sourced suppression rule.
func (s *Store) SetProjectID(projectID string) error {
	s.mu.Lock()
	if s.active == nil {
		s.mu.Unlock()
		return fmt.Errorf("credential: no active credential loaded")
	}
	s.active.ProjectID = projectID
	rec := s.active.Clone()
	s.mu.Unlock()

	return s.writeAtomic(rec)
}

func (s *Store) writeAtomic(rec *Record) error {
	b, err := marshal(rec)
	if err != nil {
		return fmt.Errorf("credential: marshal: %w", err)
	}
	dir := filepath.Dir(s.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("credential: mkdir %s: %w", dir, err)
		}
	}
	tmp, err := os.CreateTemp(dir, ".cred-*.tmp")
	if err != nil {
		return fmt.Errorf("credential: tempfile: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("credential: write tempfile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("credential: close tempfile: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("credential: chmod tempfile: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("credential: rename into place: %w", err)
	}
	return nil
}

// Watch starts an fsnotify watch on the credential file's directory,
// reloading the active credential whenever the file itself is written by
// another process (e.g. the gemini-auth CLI). onChange, if non-nil, is
// invoked with the freshly reloaded record after each successful reload.
func (s *Store) Watch(onChange func(*Record)) error {
	if _, ok := os.LookupEnv("GEMINI_CREDENTIALS"); ok {
		return nil // env-sourced credentials have no file to watch
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("credential: fsnotify: %w", err)
	}
	dir := filepath.Dir(s.path)
	if dir == "" {
		dir = "."
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("credential: watch %s: %w", dir, err)
	}
	s.watcher = w
	s.onChange = onChange

	go s.watchLoop()
	return nil
}

func (s *Store) watchLoop() {
	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}
	pending := false
	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !pending {
				pending = true
				debounce.Reset(300 * time.Millisecond)
			}
		case <-debounce.C:
			pending = false
			rec, ok := s.reload()
			if !ok {
				continue
			}
			if s.onChange != nil {
				s.onChange(rec)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.WithError(err).Warn("credential file watch error")
		}
	}
}

func (s *Store) reload() (*Record, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.log.WithError(err).Warn("credential file reload failed")
		return nil, false
	}
	rec, ok := normalize(data)
	if !ok {
		s.log.Warn("credential file reload: no usable refresh_token")
		return nil, false
	}
	s.setActive(rec)
	s.log.Info("reloaded credential after external file change")
	return rec.Clone(), true
}

// Close stops the file watcher, if any.
func (s *Store) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
