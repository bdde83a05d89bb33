package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	cases := []struct {
		name string
		sql  string
		want int
	}{
		{"single", "create table t (id int);", 1},
		{"two", "create table a (id int);\ncreate table b (id int);", 2},
		{"no trailing semicolon", "create table t (id int)", 1},
		{"semicolon inside string", "insert into t values ('a;b'); select 1;", 2},
		{"empty", "   \n  ", 0},
	}
	for _, tc := range cases {
		got := splitStatements(tc.sql)
		if len(got) != tc.want {
			t.Fatalf("%s: got %d statements, want %d: %q", tc.name, len(got), tc.want, got)
		}
	}
}

func TestCollectSQLOrderAndFilter(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"0002_auth_tokens.up.sql",
		"0001_registry.up.sql",
		"0001_registry.down.sql",
		"notes.txt",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("select 1;"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	files, err := collectSQL(dir, ".up.sql")
	if err != nil {
		t.Fatalf("collectSQL: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if files[0].Base != "0001_registry.up.sql" || files[1].Base != "0002_auth_tokens.up.sql" {
		t.Fatalf("files out of order: %+v", files)
	}
	for _, f := range files {
		if strings.HasSuffix(f.Base, ".down.sql") {
			t.Fatalf("down migration leaked into up set: %+v", f)
		}
	}
}

func TestCollectSQLMissingDir(t *testing.T) {
	files, err := collectSQL(filepath.Join(t.TempDir(), "absent"), ".up.sql")
	if err != nil {
		t.Fatalf("collectSQL: %v", err)
	}
	if files != nil {
		t.Fatalf("expected no files, got %+v", files)
	}
}
