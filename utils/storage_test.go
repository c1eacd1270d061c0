package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStorage(t *testing.T) {
	dir := t.TempDir()
	ls := &LocalStorage{UploadDir: dir}

	path, err := ls.SaveFile("avatars/u1.jpeg", []byte("img"), "image/jpeg")
	if err != nil {
		t.Fatalf("SaveFile failed: %v", err)
	}
	if path != "/uploads/avatars/u1.jpeg" {
		t.Errorf("Expected public path '/uploads/avatars/u1.jpeg', got %s", path)
	}
	if _, err := os.Stat(filepath.Join(dir, "avatars", "u1.jpeg")); err != nil {
		t.Fatalf("Expected file on disk: %v", err)
	}

	if err := ls.DeleteFile(path); err != nil {
		t.Fatalf("DeleteFile failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "avatars", "u1.jpeg")); !os.IsNotExist(err) {
		t.Error("Expected file to be removed")
	}
	if err := ls.DeleteFile(path); err != nil {
		t.Errorf("Deleting a missing file should not fail, got %v", err)
	}
	if err := ls.DeleteFile("/uploads/../etc/passwd"); err != nil {
		t.Errorf("Traversal paths should be ignored, got %v", err)
	}
}
