// Package server models an installed server: its persisted record, its
// install and launch strategies, and its running process.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sync"
)

// RecordFile is the name of the per-server property file
const RecordFile = "craftinstall.json"

// Record keys
const (
	KeySoftware      = "software"
	KeyVersion       = "version"
	KeyBuild         = "build"
	KeyLoaderVersion = "loaderVersion"
	KeyJavaPath      = "java.path"
	KeyJavaPreArgs   = "java.preArgs"
	KeyJavaPostArgs  = "java.postArgs"
)

// ChangeFunc observes committed record changes
type ChangeFunc func(key string, oldValue, newValue any)

// Record is a server's persisted property store. Reads and writes are safe
// for concurrent use; observers run after the change is saved and visible.
type Record struct {
	path string

	mu     sync.RWMutex
	values map[string]any

	obsMu     sync.Mutex
	observers []ChangeFunc
}

// OpenRecord loads dir's record, or returns an empty one if none exists yet
func OpenRecord(dir string) (*Record, error) {
	r := &Record{path: filepath.Join(dir, RecordFile), values: make(map[string]any)}

	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read server record: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &r.values); err != nil {
			return nil, fmt.Errorf("parse server record %s: %w", r.path, err)
		}
	}
	if r.values == nil {
		r.values = make(map[string]any)
	}
	return r, nil
}

// Path returns the record file location
func (r *Record) Path() string {
	return r.path
}

// Get returns a value
func (r *Record) Get(key string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[key]
	return v, ok
}

// GetString returns a string value or ""
func (r *Record) GetString(key string) string {
	v, _ := r.Get(key)
	s, _ := v.(string)
	return s
}

// GetStrings returns a string list value
func (r *Record) GetStrings(key string) []string {
	v, ok := r.Get(key)
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Set stores a value and saves the record
func (r *Record) Set(key string, value any) error {
	return r.Update(map[string]any{key: value})
}

// Update stores several values and saves them in one write. A nil value
// removes the key. Nothing changes in memory if the save fails.
func (r *Record) Update(values map[string]any) error {
	r.mu.Lock()
	next := maps.Clone(r.values)
	type change struct {
		key           string
		before, after any
	}
	var changes []change
	for k, v := range values {
		old := next[k]
		if v == nil {
			delete(next, k)
		} else {
			next[k] = v
		}
		changes = append(changes, change{key: k, before: old, after: v})
	}
	if err := writeJSON(r.path, next); err != nil {
		r.mu.Unlock()
		return err
	}
	r.values = next
	r.mu.Unlock()

	r.obsMu.Lock()
	observers := append([]ChangeFunc(nil), r.observers...)
	r.obsMu.Unlock()
	for _, c := range changes {
		for _, fn := range observers {
			fn(c.key, c.before, c.after)
		}
	}
	return nil
}

// OnChange registers fn for every committed change
func (r *Record) OnChange(fn ChangeFunc) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	r.observers = append(r.observers, fn)
}

// Snapshot returns a copy of every value
func (r *Record) Snapshot() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.values)
}

// writeJSON writes v to path through a temp file and rename
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode server record: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create server directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), RecordFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write server record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write server record: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace server record: %w", err)
	}
	return nil
}
