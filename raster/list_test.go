package raster

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestListRasters(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.tiff", "a.tif", "UPPER.TIF", "notes.txt", "scan.tif.bak", "c.tif"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "folder.tif"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := ListRasters(dir)
	if err != nil {
		t.Fatalf("ListRasters: %v", err)
	}
	want := []string{"a.tif", "b.tiff", "c.tif"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestListRasters_Empty(t *testing.T) {
	got, err := ListRasters(t.TempDir())
	if err != nil {
		t.Fatalf("ListRasters: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("got %#v, want empty slice", got)
	}
}

func TestListRasters_Unreadable(t *testing.T) {
	_, err := ListRasters(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, ErrDirUnreadable) {
		t.Fatalf("err = %v, want ErrDirUnreadable", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected wrapped os.ErrNotExist, got %v", err)
	}
}
