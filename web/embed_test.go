package web

import (
	"io/fs"
	"strings"
	"testing"
)

func TestFSContainsAssets(t *testing.T) {
	for _, name := range []string{"index.html", "app.js", "style.css"} {
		if _, err := fs.Stat(FS(), name); err != nil {
			t.Errorf("missing asset %s: %v", name, err)
		}
	}
}

func TestIndexHasCompletionFilters(t *testing.T) {
	index, err := fs.ReadFile(FS(), "index.html")
	if err != nil {
		t.Fatalf("ReadFile(index.html) failed: %v", err)
	}
	for _, want := range []string{`data-filter="all"`, `data-filter="active"`, `data-filter="completed"`, `id="left"`} {
		if !strings.Contains(string(index), want) {
			t.Errorf("index.html missing %s", want)
		}
	}

	app, err := fs.ReadFile(FS(), "app.js")
	if err != nil {
		t.Fatalf("ReadFile(app.js) failed: %v", err)
	}
	for _, want := range []string{"items left", "filters[filter]"} {
		if !strings.Contains(string(app), want) {
			t.Errorf("app.js missing %q", want)
		}
	}
}
