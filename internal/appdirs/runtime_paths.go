package appdirs

import (
	"path/filepath"
	"strings"
)

const (
	IndexRootName  = "indices"
	ClipRootName   = "clips"
	UploadRootName = "uploads"
	dbFileName     = "phrasecut.db"
)

func IndexRootFor(paths Paths) string {
	return filepath.Join(normalizeOutputDir(paths.OutputDir), IndexRootName)
}

func ClipRootFor(paths Paths) string {
	return filepath.Join(normalizeOutputDir(paths.OutputDir), ClipRootName)
}

func UploadRootFor(paths Paths) string {
	return filepath.Join(normalizeOutputDir(paths.OutputDir), UploadRootName)
}

// RunDirFor is where the clips of a single run are written.
func RunDirFor(paths Paths, runID string) string {
	return filepath.Join(ClipRootFor(paths), runID)
}

func DBPathFor(paths Paths) string {
	return filepath.Join(normalizeCacheDir(paths.CacheDir), dbFileName)
}

func ResolveIndexRoot() (string, error) {
	paths, err := Resolve()
	if err != nil {
		return "", err
	}
	return IndexRootFor(paths), nil
}

func ResolveClipRoot() (string, error) {
	paths, err := Resolve()
	if err != nil {
		return "", err
	}
	return ClipRootFor(paths), nil
}

func ResolveDBPath() (string, error) {
	paths, err := Resolve()
	if err != nil {
		return "", err
	}
	return DBPathFor(paths), nil
}

func normalizeOutputDir(outputDir string) string {
	cleaned := strings.TrimSpace(outputDir)
	if cleaned == "" {
		return "."
	}
	return filepath.Clean(cleaned)
}

func normalizeCacheDir(cacheDir string) string {
	cleaned := strings.TrimSpace(cacheDir)
	if cleaned == "" {
		return "cache"
	}
	return filepath.Clean(cleaned)
}
