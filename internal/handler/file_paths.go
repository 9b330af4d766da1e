package handler

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"phrasecut/internal/appdirs"

	"github.com/samber/lo"
)

var appDirsResolver = appdirs.Resolve

// downloadRoots maps each public path prefix to the local directories it is
// served from, in lookup order.
func (h Handler) downloadRoots() map[string][]string {
	var clipDirs, uploadDirs []string
	if h.Service != nil {
		clipDirs = append(clipDirs, h.Service.ClipRoot)
	}
	if dirs, err := appDirsResolver(); err == nil {
		clipDirs = append(clipDirs, appdirs.ClipRootFor(dirs))
		uploadDirs = append(uploadDirs, appdirs.UploadRootFor(dirs))
	}
	return map[string][]string{
		appdirs.ClipRootName:   candidateDirs(append(clipDirs, appdirs.ClipRootName)...),
		appdirs.UploadRootName: candidateDirs(append(uploadDirs, appdirs.UploadRootName)...),
	}
}

func preferredUploadRoot() string {
	if dirs, err := appDirsResolver(); err == nil {
		return appdirs.UploadRootFor(dirs)
	}
	return appdirs.UploadRootName
}

// resolveDownloadPath maps "clips/<run>/<file>" or "uploads/<file>" to a
// local file. The first existing candidate wins; otherwise the first
// candidate is returned so the caller can answer 404.
func (h Handler) resolveDownloadPath(requested string) (string, bool) {
	requested = strings.Trim(strings.TrimSpace(filepath.ToSlash(requested)), "/")
	if requested == "" || hasParentTraversal(requested) {
		return "", false
	}
	alias, rel, _ := strings.Cut(requested, "/")
	dirs, known := h.downloadRoots()[alias]
	if !known || rel == "" {
		return "", false
	}

	var fallback string
	for _, dir := range dirs {
		candidate := filepath.Join(dir, filepath.FromSlash(rel))
		if !isPathWithinRoot(dir, candidate) {
			continue
		}
		if fallback == "" {
			fallback = candidate
		}
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return fallback, fallback != ""
}

// resolveIndexPaths maps subtitle paths sent to BuildIndex into the upload
// roots. Absolute paths must lie inside one of them. Relative paths, with or
// without the "uploads/" prefix, resolve like downloads. Everything else is
// returned as refused.
func (h Handler) resolveIndexPaths(paths []string) (resolved, refused []string) {
	roots := h.downloadRoots()[appdirs.UploadRootName]
	for _, requested := range paths {
		if local, ok := resolveUploadPath(roots, requested); ok {
			resolved = append(resolved, local)
		} else {
			refused = append(refused, requested)
		}
	}
	return resolved, refused
}

func resolveUploadPath(roots []string, requested string) (string, bool) {
	requested = strings.TrimSpace(requested)
	if requested == "" || hasParentTraversal(requested) {
		return "", false
	}
	if filepath.IsAbs(requested) {
		clean := filepath.Clean(requested)
		return clean, lo.SomeBy(roots, func(root string) bool {
			abs, err := filepath.Abs(root)
			return err == nil && isPathWithinRoot(abs, clean) && abs != clean
		})
	}

	rel := strings.TrimPrefix(filepath.ToSlash(requested), appdirs.UploadRootName+"/")
	var fallback string
	for _, root := range roots {
		candidate := filepath.Join(root, filepath.FromSlash(rel))
		if fallback == "" {
			fallback = candidate
		}
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return fallback, fallback != ""
}

func candidateDirs(values ...string) []string {
	return lo.Uniq(lo.FilterMap(values, func(value string, _ int) (string, bool) {
		value = strings.TrimSpace(value)
		return filepath.Clean(value), value != ""
	}))
}

func isPathWithinRoot(root, candidate string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(candidate))
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func hasParentTraversal(path string) bool {
	return slices.Contains(strings.Split(strings.ReplaceAll(path, "\\", "/"), "/"), "..")
}
