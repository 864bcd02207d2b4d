package webdav

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Memory is an in-memory Transport double for tests. It records
// operations and supports failure injection per path.
type Memory struct {
	mu    sync.Mutex
	files map[string][]byte
	dirs  map[string]bool

	// PingErr, when set, is returned by Ping.
	PingErr error
	// WriteErrs maps a path to the error its next Write returns.
	WriteErrs map[string]error
	// ReadErrs maps a path to the error its next Read returns.
	ReadErrs map[string]error

	// Operation counters for idempotence assertions.
	Reads   int
	Writes  int
	Removes int
}

// NewMemory creates an empty in-memory transport.
func NewMemory() *Memory {
	return &Memory{
		files:     make(map[string][]byte),
		dirs:      make(map[string]bool),
		WriteErrs: make(map[string]error),
		ReadErrs:  make(map[string]error),
	}
}

// Ping implements Transport.
func (m *Memory) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.PingErr
}

// Read implements Transport.
func (m *Memory) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reads++
	if err, ok := m.ReadErrs[path]; ok {
		return nil, err
	}
	data, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Write implements Transport.
func (m *Memory) Write(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Writes++
	if err, ok := m.WriteErrs[path]; ok {
		return err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.files[path] = cp
	return nil
}

// Mkdir implements Transport; creating an existing collection succeeds.
func (m *Memory) Mkdir(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[strings.TrimSuffix(path, "/")] = true
	return nil
}

// Remove implements Transport; directories are removed recursively.
func (m *Memory) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Removes++
	trimmed := strings.TrimSuffix(path, "/")
	delete(m.files, trimmed)
	delete(m.dirs, trimmed)
	prefix := trimmed + "/"
	for p := range m.files {
		if strings.HasPrefix(p, prefix) {
			delete(m.files, p)
		}
	}
	for d := range m.dirs {
		if strings.HasPrefix(d, prefix) {
			delete(m.dirs, d)
		}
	}
	return nil
}

// Get returns the stored content at path for assertions.
func (m *Memory) Get(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	return data, ok
}

// Put seeds remote content for a test scenario.
func (m *Memory) Put(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = data
}

// Paths returns all stored file paths.
func (m *Memory) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.files))
	for p := range m.files {
		paths = append(paths, p)
	}
	return paths
}

// ResetCounters zeroes the operation counters.
func (m *Memory) ResetCounters() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reads, m.Writes, m.Removes = 0, 0, 0
}
