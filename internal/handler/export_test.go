package handler

import (
	"testing"

	"phrasecut/internal/appdirs"
)

var ResolveDownloadPath = Handler.resolveDownloadPath

func SetAppDirsResolverForTest(t *testing.T, resolver func() (appdirs.Paths, error)) {
	t.Helper()
	original := appDirsResolver
	appDirsResolver = resolver
	t.Cleanup(func() { appDirsResolver = original })
}
