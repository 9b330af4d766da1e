package appdirs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuntimePathDerivations(t *testing.T) {
	root := filepath.Join("var", "phrasecut")
	paths := Paths{
		OutputDir: filepath.Join(root, "output"),
		CacheDir:  filepath.Join(root, "cache"),
	}

	assert.Equal(t, filepath.Join(root, "output", "indices"), IndexRootFor(paths))
	assert.Equal(t, filepath.Join(root, "output", "clips"), ClipRootFor(paths))
	assert.Equal(t, filepath.Join(root, "output", "uploads"), UploadRootFor(paths))
	assert.Equal(t, filepath.Join(root, "output", "clips", "run_123"), RunDirFor(paths, "run_123"))
	assert.Equal(t, filepath.Join(root, "cache", "phrasecut.db"), DBPathFor(paths))
}

func TestRuntimePathDerivationsWithFallbacks(t *testing.T) {
	paths := Paths{OutputDir: "  ", CacheDir: ""}

	assert.Equal(t, "indices", IndexRootFor(paths))
	assert.Equal(t, "clips", ClipRootFor(paths))
	assert.Equal(t, filepath.Join("cache", "phrasecut.db"), DBPathFor(paths))
}
