package db

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileCollection keeps all keys in one JSON document on disk.
type FileCollection struct {
	Path string
	mu   sync.Mutex
}

// NewFileCollection returns a collection stored at path.
func NewFileCollection(path string) *FileCollection {
	return &FileCollection{Path: path}
}

// Load returns the value stored under key.
func (c *FileCollection) Load(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	values, err := c.read()
	if err != nil {
		return nil, err
	}
	v, ok := values[key]
	if !ok {
		return nil, ErrStateNotFound
	}
	return []byte(v), nil
}

// Save stores value under key, rewriting the file.
func (c *FileCollection) Save(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	values, err := c.read()
	if err != nil {
		return err
	}
	values[key] = string(value)

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(c.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}
	tmp := c.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return os.Rename(tmp, c.Path)
}

func (c *FileCollection) read() (map[string]string, error) {
	values := map[string]string{}
	data, err := os.ReadFile(c.Path)
	if os.IsNotExist(err) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}
	return values, nil
}

// MemoryCollection keeps keys in memory only.
type MemoryCollection struct {
	mu     sync.Mutex
	values map[string][]byte
}

// NewMemoryCollection returns an empty in-memory collection.
func NewMemoryCollection() *MemoryCollection {
	return &MemoryCollection{values: make(map[string][]byte)}
}

// Load returns the value stored under key.
func (c *MemoryCollection) Load(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		return nil, ErrStateNotFound
	}
	return append([]byte(nil), v...), nil
}

// Save stores a copy of value under key.
func (c *MemoryCollection) Save(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = append([]byte(nil), value...)
	return nil
}
