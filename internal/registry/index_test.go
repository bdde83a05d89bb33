package registry

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRenderIndex(t *testing.T) {
	infos := []PackageInfo{
		{Name: "testcrate_1", Vers: "0.1.1", Deps: []Dependency{}, Cksum: "aa", Features: map[string][]string{}},
		{Name: "testcrate_1", Vers: "0.1.2", Deps: []Dependency{}, Cksum: "bb", Features: map[string][]string{}, Yanked: true},
	}

	doc, err := RenderIndex(infos)
	if err != nil {
		t.Fatalf("RenderIndex: %v", err)
	}

	lines := strings.Split(doc, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d:\n%s", len(lines), doc)
	}
	for i, line := range lines {
		var rec PackageInfo
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", i, err)
		}
		if rec.Vers != infos[i].Vers || rec.Yanked != infos[i].Yanked {
			t.Fatalf("line %d mismatch: %+v", i, rec)
		}
	}
}

func TestRenderIndexEmpty(t *testing.T) {
	doc, err := RenderIndex(nil)
	if err != nil {
		t.Fatalf("RenderIndex: %v", err)
	}
	if doc != "" {
		t.Fatalf("expected empty document, got %q", doc)
	}
}

func TestIndexPath(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"a", "1/a"},
		{"ab", "2/ab"},
		{"abc", "3/a/abc"},
		{"abcd", "ab/cd/abcd"},
		{"testcrate_1", "te/st/testcrate_1"},
		{"serde", "se/rd/serde"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := IndexPath(tc.name); got != tc.want {
			t.Fatalf("IndexPath(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}
