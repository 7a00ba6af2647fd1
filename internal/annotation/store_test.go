package annotation

import (
	"os"
	"path/filepath"
	"testing"

	"BlockScreener/internal/model"
)

func TestOpen_MissingFileIsEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "custom_data.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.All()) != 0 {
		t.Errorf("expected empty store, got %v", s.All())
	}
}

func TestOpen_CorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom_data.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("expected error for corrupt file")
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom_data.json")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.SetText("600519", "白酒龙头"); err != nil {
		t.Fatalf("SetText: %v", err)
	}
	if _, err := s.SetPinned("600519", true); err != nil {
		t.Fatalf("SetPinned: %v", err)
	}
	if a, err := s.TogglePin("000001"); err != nil || !a.Pinned {
		t.Fatalf("TogglePin: %+v, %v", a, err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, ok := reopened.Get("600519")
	if !ok || got != (model.Annotation{Text: "白酒龙头", Pinned: true}) {
		t.Errorf("unexpected annotation after reopen: %+v", got)
	}
	if got, _ := reopened.Get("000001"); !got.Pinned || got.Text != "" {
		t.Errorf("unexpected annotation after reopen: %+v", got)
	}
}

func TestStore_DeleteIsExplicit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom_data.json")
	s, _ := Open(path)
	s.Put("600519", model.Annotation{Text: "x"})

	// Clearing fields keeps the entry.
	s.SetText("600519", "")
	if _, ok := s.Get("600519"); !ok {
		t.Fatal("cleared annotation should still exist")
	}

	if err := s.Delete("600519"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete("600519"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	reopened, _ := Open(path)
	if _, ok := reopened.Get("600519"); ok {
		t.Error("deleted annotation came back after reopen")
	}
}

func TestStore_WriteFailureRollsBack(t *testing.T) {
	dir := t.TempDir()
	// The target path is a directory, so the final rename fails.
	path := filepath.Join(dir, "notes")
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(path, "keep"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	s := &Store{notes: map[string]model.Annotation{"600519": {Text: "old"}}, filePath: path}

	if _, err := s.SetText("600519", "new"); err == nil {
		t.Fatal("expected write error")
	}
	if a, _ := s.Get("600519"); a.Text != "old" {
		t.Errorf("expected rollback to old text, got %q", a.Text)
	}
	if _, err := s.SetPinned("000001", true); err == nil {
		t.Fatal("expected write error")
	}
	if _, ok := s.Get("000001"); ok {
		t.Error("failed create should not leave an entry")
	}
	if err := s.Delete("600519"); err == nil {
		t.Fatal("expected write error")
	}
	if _, ok := s.Get("600519"); !ok {
		t.Error("failed delete should restore the entry")
	}
}

func TestStore_AllReturnsCopy(t *testing.T) {
	s, _ := Open(filepath.Join(t.TempDir(), "custom_data.json"))
	s.SetText("600519", "a")
	all := s.All()
	all["600519"] = model.Annotation{Text: "mutated"}
	if a, _ := s.Get("600519"); a.Text != "a" {
		t.Error("All leaked internal map")
	}
}
