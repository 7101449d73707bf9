package database

import (
	"testing"
	"testing/fstest"
)

func TestMigrationFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"002_second.sql": {Data: []byte("SELECT 2;")},
		"001_first.sql":  {Data: []byte("SELECT 1;")},
		"README.md":      {Data: []byte("docs")},
		"abc_bad.sql":    {Data: []byte("SELECT 0;")},
		"010_tenth.sql":  {Data: []byte("SELECT 10;")},
		"embed.go":       {Data: []byte("package migrations")},
	}

	files, err := migrationFiles(fsys)
	if err != nil {
		t.Fatalf("migrationFiles: %v", err)
	}

	want := []migrationFile{
		{1, "001_first.sql"},
		{2, "002_second.sql"},
		{10, "010_tenth.sql"},
	}
	if len(files) != len(want) {
		t.Fatalf("expected %d files, got %+v", len(want), files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("file %d: expected %+v, got %+v", i, want[i], files[i])
		}
	}
}
