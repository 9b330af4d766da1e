package service

import (
	"fmt"
	"path/filepath"
	"strings"

	"phrasecut/config"
	"phrasecut/internal/appdirs"
)

var appDirsResolver = appdirs.Resolve

// resolveIndexRoot prefers the configured index dir over the app layout.
func resolveIndexRoot() (string, error) {
	if dir := strings.TrimSpace(config.Conf.App.IndexDir); dir != "" {
		return filepath.Clean(dir), nil
	}
	dirs, err := appDirsResolver()
	if err != nil {
		return "", err
	}
	return appdirs.IndexRootFor(dirs), nil
}

// resolveClipRoot prefers the configured output dir over the app layout.
func resolveClipRoot() (string, error) {
	if dir := strings.TrimSpace(config.Conf.App.OutputDir); dir != "" {
		return filepath.Join(filepath.Clean(dir), appdirs.ClipRootName), nil
	}
	dirs, err := appDirsResolver()
	if err != nil {
		return "", err
	}
	return appdirs.ClipRootFor(dirs), nil
}

func runDir(clipRoot, runID string) (string, error) {
	if strings.TrimSpace(runID) == "" {
		return "", fmt.Errorf("run id is empty")
	}
	return filepath.Join(clipRoot, runID), nil
}

// ClipDownloadPath turns a clip file under clipRoot into a slash separated
// path relative to the clip root's parent, e.g. "clips/<run>/<file>".
func ClipDownloadPath(clipRoot, localPath string) (string, error) {
	cleanedLocalPath := filepath.Clean(localPath)
	relPath, err := filepath.Rel(clipRoot, cleanedLocalPath)
	if err != nil {
		return "", err
	}
	if relPath == "." || relPath == "" {
		return "", fmt.Errorf("clip path %q is not a file path", localPath)
	}
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("clip path %q is outside clip root %q", localPath, clipRoot)
	}
	return filepath.ToSlash(filepath.Join(appdirs.ClipRootName, relPath)), nil
}
