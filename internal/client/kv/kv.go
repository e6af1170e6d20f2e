// Package kv is the durable key-value contract the client persists its
// offline queue and ledger snapshot through.
package kv

import (
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "regexp"
    "sync"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("kv: key not found")

var reKey = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// Store is a durable key-value store. Set must not return before the value is
// durable.
type Store interface {
    Get(key string) ([]byte, error)
    Set(key string, value []byte) error
    Remove(key string) error
}

// Memory is a Store for tests and ephemeral sessions.
type Memory struct {
    mu sync.Mutex
    m  map[string][]byte
}

func NewMemory() *Memory { return &Memory{m: map[string][]byte{}} }

func (s *Memory) Get(key string) ([]byte, error) {
    s.mu.Lock(); defer s.mu.Unlock()
    v, ok := s.m[key]
    if !ok { return nil, ErrNotFound }
    return append([]byte(nil), v...), nil
}

func (s *Memory) Set(key string, value []byte) error {
    s.mu.Lock(); defer s.mu.Unlock()
    s.m[key] = append([]byte(nil), value...)
    return nil
}

func (s *Memory) Remove(key string) error {
    s.mu.Lock(); defer s.mu.Unlock()
    delete(s.m, key)
    return nil
}

// File stores each key as a file in one directory. Writes go to a temp file
// that is fsynced and renamed over the target, so a crash leaves either the
// old or the new value.
type File struct {
    dir string
    mu  sync.Mutex
}

// OpenFile creates dir if needed.
func OpenFile(dir string) (*File, error) {
    if err := os.MkdirAll(dir, 0o700); err != nil { return nil, fmt.Errorf("kv: create dir: %w", err) }
    return &File{dir: dir}, nil
}

func (s *File) path(key string) (string, error) {
    if !reKey.MatchString(key) { return "", fmt.Errorf("kv: invalid key %q", key) }
    return filepath.Join(s.dir, key+".json"), nil
}

func (s *File) Get(key string) ([]byte, error) {
    p, err := s.path(key)
    if err != nil { return nil, err }
    s.mu.Lock(); defer s.mu.Unlock()
    b, err := os.ReadFile(p)
    if errors.Is(err, os.ErrNotExist) { return nil, ErrNotFound }
    return b, err
}

func (s *File) Set(key string, value []byte) error {
    p, err := s.path(key)
    if err != nil { return err }
    s.mu.Lock(); defer s.mu.Unlock()
    tmp, err := os.CreateTemp(s.dir, "."+key+".*.tmp")
    if err != nil { return fmt.Errorf("kv: temp file: %w", err) }
    cleanup := func() { _ = os.Remove(tmp.Name()) }
    if _, err := tmp.Write(value); err != nil { tmp.Close(); cleanup(); return fmt.Errorf("kv: write %s: %w", key, err) }
    if err := tmp.Sync(); err != nil { tmp.Close(); cleanup(); return fmt.Errorf("kv: sync %s: %w", key, err) }
    if err := tmp.Close(); err != nil { cleanup(); return fmt.Errorf("kv: close %s: %w", key, err) }
    if err := os.Rename(tmp.Name(), p); err != nil { cleanup(); return fmt.Errorf("kv: rename %s: %w", key, err) }
    return syncDir(s.dir)
}

func (s *File) Remove(key string) error {
    p, err := s.path(key)
    if err != nil { return err }
    s.mu.Lock(); defer s.mu.Unlock()
    if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) { return fmt.Errorf("kv: remove %s: %w", key, err) }
    return syncDir(s.dir)
}

// syncDir makes a rename durable. Some platforms cannot fsync a directory;
// that is not treated as a failure.
func syncDir(dir string) error {
    d, err := os.Open(dir)
    if err != nil { return nil }
    defer d.Close()
    _ = d.Sync()
    return nil
}
