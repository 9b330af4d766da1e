// Package media resolves sources to media files and cuts clips out of them
// with ffmpeg.
package media

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	apperrors "phrasecut/pkg/errors"
)

// VideoExtensions are scanned when no extension is configured.
var VideoExtensions = []string{".mp4", ".mkv", ".mov", ".webm", ".avi", ".m4v", ".mp3", ".wav", ".m4a"}

// Registry maps source ids to media file paths. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	paths map[string]string
}

func NewRegistry() *Registry {
	return &Registry{paths: make(map[string]string)}
}

func (r *Registry) Register(source, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths[source] = path
}

// Path returns the media file for source, or an error wrapping
// ErrMediaNotFound.
func (r *Registry) Path(source string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	path, ok := r.paths[source]
	if !ok {
		return "", fmt.Errorf("source %q: %w", source, apperrors.ErrMediaNotFound)
	}
	return path, nil
}

// Sources lists registered ids, sorted.
func (r *Registry) Sources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.paths))
	for id := range r.paths {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.paths)
}

// ScanDir registers every media file in dir under its file stem, the same id
// its subtitle file is indexed under. With an empty ext every extension in
// VideoExtensions is accepted; the first file found for a stem wins.
func ScanDir(dir, ext string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read media dir: %w", err)
	}
	accept := VideoExtensions
	if ext = strings.TrimSpace(ext); ext != "" {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		accept = []string{ext}
	}

	registry := NewRegistry()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		fileExt := filepath.Ext(name)
		if !slices.ContainsFunc(accept, func(e string) bool { return strings.EqualFold(e, fileExt) }) {
			continue
		}
		stem := strings.TrimSuffix(name, fileExt)
		if _, err := registry.Path(stem); err == nil {
			continue
		}
		registry.Register(stem, filepath.Join(dir, name))
	}
	return registry, nil
}
