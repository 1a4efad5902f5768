// Package json implements [campus.KeyValueStore] as a JSON file. Every Set
// rewrites the file atomically.
package json

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/fwojciec/campus"
)

// Interface compliance check.
var _ campus.KeyValueStore = (*Preferences)(nil)

// envelope is the v1 wire format of the preferences file.
type envelope struct {
	Version int               `json:"version"`
	Values  map[string]string `json:"values"`
}

// Preferences is a file-backed key-value store.
type Preferences struct {
	path string

	mu     sync.Mutex
	values map[string]string
}

// Open loads the preferences file at path. A missing file is an empty
// store; it is created on the first Set.
func Open(path string) (*Preferences, error) {
	p := &Preferences{path: path, values: make(map[string]string)}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	values, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.values = values
	return p, nil
}

// Get returns the value stored under key.
func (p *Preferences) Get(key string) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.values[key]
	return v, ok, nil
}

// Set stores value under key and saves the file. On a failed save the
// in-memory value is left unchanged.
func (p *Preferences) Set(key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := maps.Clone(p.values)
	next[key] = value
	if err := Save(p.path, next); err != nil {
		return err
	}
	p.values = next
	return nil
}

// Marshal serializes values in v1 envelope format.
func Marshal(values map[string]string) ([]byte, error) {
	if values == nil {
		values = map[string]string{}
	}
	return json.MarshalIndent(envelope{Version: 1, Values: values}, "", "  ")
}

// Unmarshal deserializes values from v1 envelope format.
func Unmarshal(data []byte) (map[string]string, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != 1 {
		return nil, fmt.Errorf("unsupported envelope version: %d", env.Version)
	}
	if env.Values == nil {
		env.Values = map[string]string{}
	}
	return env.Values, nil
}

// Save writes values to path, creating parent directories as needed.
func Save(path string, values map[string]string) error {
	data, err := Marshal(values)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
