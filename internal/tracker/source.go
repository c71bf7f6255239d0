package tracker

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Source reads the current content of a document.
type Source interface {
	Read(path string) (string, error)
}

// FileSource reads documents from disk, relative to Root.
type FileSource struct {
	Root string
}

func (s FileSource) Read(path string) (string, error) {
	full := filepath.Join(s.Root, filepath.FromSlash(path))
	info, err := os.Stat(full)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// MemorySource serves document content from memory, falling back to another
// source for documents it does not hold. It models unsaved editor buffers.
type MemorySource struct {
	mu       sync.RWMutex
	docs     map[string]string
	fallback Source
}

// NewMemorySource creates a memory source. fallback may be nil.
func NewMemorySource(fallback Source) *MemorySource {
	return &MemorySource{docs: make(map[string]string), fallback: fallback}
}

// Set stores the content of a document.
func (s *MemorySource) Set(path, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[NormalizePath(path)] = content
}

// Delete forgets a document.
func (s *MemorySource) Delete(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, NormalizePath(path))
}

func (s *MemorySource) Read(path string) (string, error) {
	s.mu.RLock()
	content, ok := s.docs[NormalizePath(path)]
	s.mu.RUnlock()
	if ok {
		return content, nil
	}
	if s.fallback != nil {
		return s.fallback.Read(path)
	}
	return "", fmt.Errorf("%s: %w", path, os.ErrNotExist)
}
