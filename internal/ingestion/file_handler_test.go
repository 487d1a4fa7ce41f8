package ingestion

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFileHandler(t *testing.T) {
	fh := NewFileHandler("test_uploads")
	if fh == nil {
		t.Fatal("Expected non-nil FileHandler")
	}

	if fh.uploadsDir != "test_uploads" {
		t.Errorf("Expected uploadsDir 'test_uploads', got '%s'", fh.uploadsDir)
	}
}

func TestSaveUploadedFile(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "uploads")
	fh := NewFileHandler(tmpDir)

	path, err := fh.SaveUploadedFile("jane.json", strings.NewReader(`{"id":"1"}`))
	if err != nil {
		t.Fatalf("Failed to save file: %v", err)
	}

	expectedPath := filepath.Join(tmpDir, "jane.json")
	if path != expectedPath {
		t.Errorf("Expected path %s, got %s", expectedPath, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(data) != `{"id":"1"}` {
		t.Errorf("Unexpected content %q", string(data))
	}
}

func TestSaveUploadedFile_StripsDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	fh := NewFileHandler(tmpDir)

	path, err := fh.SaveUploadedFile("../../escape.json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("Failed to save file: %v", err)
	}

	if path != filepath.Join(tmpDir, "escape.json") {
		t.Errorf("Expected file inside uploads dir, got %s", path)
	}
}

func TestLoadCandidates(t *testing.T) {
	tmpDir := t.TempDir()

	single := `{"id": "c1", "personal_info": {"name": "John Doe"}, "total_years_experience": 4}`
	list := `[{"id": "c2", "personal_info": {"name": "Amy"}}, {"id": "c3", "personal_info": {"name": "Bo"}, "file_name": "bo.pdf"}]`

	os.WriteFile(filepath.Join(tmpDir, "a_john.json"), []byte(single), 0644)
	os.WriteFile(filepath.Join(tmpDir, "b_batch.json"), []byte(list), 0644)
	os.WriteFile(filepath.Join(tmpDir, "notes.txt"), []byte("ignored"), 0644)

	fh := NewFileHandler(tmpDir)
	candidates, err := fh.LoadCandidates()
	if err != nil {
		t.Fatalf("Failed to load candidates: %v", err)
	}

	if len(candidates) != 3 {
		t.Fatalf("Expected 3 candidates, got %d", len(candidates))
	}

	if candidates[0].PersonalInfo.Name != "John Doe" || candidates[0].ExperienceYears != 4 {
		t.Errorf("Unexpected first candidate: %+v", candidates[0])
	}
	if candidates[0].FileName != "a_john.json" {
		t.Errorf("Expected file name to default to source file, got %q", candidates[0].FileName)
	}
	if candidates[2].FileName != "bo.pdf" {
		t.Errorf("Expected explicit file name to be kept, got %q", candidates[2].FileName)
	}
}

func TestLoadCandidates_MissingDir(t *testing.T) {
	fh := NewFileHandler(filepath.Join(t.TempDir(), "missing"))

	candidates, err := fh.LoadCandidates()
	if err != nil {
		t.Fatalf("Expected no error for missing dir, got %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("Expected no candidates, got %d", len(candidates))
	}
}

func TestLoadCandidates_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, "broken.json"), []byte("{"), 0644)

	if _, err := NewFileHandler(tmpDir).LoadCandidates(); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestParseCandidates_Empty(t *testing.T) {
	if _, err := ParseCandidates([]byte("  \n")); err == nil {
		t.Error("Expected error for empty document")
	}
}

func TestClearUploads(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "uploads")

	os.MkdirAll(tmpDir, 0755)
	os.WriteFile(filepath.Join(tmpDir, "test.json"), []byte("{}"), 0644)

	fh := NewFileHandler(tmpDir)
	err := fh.ClearUploads()
	if err != nil {
		t.Fatalf("Failed to clear uploads: %v", err)
	}

	// Directory should exist but be empty
	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("Failed to read directory: %v", err)
	}

	if len(entries) != 0 {
		t.Errorf("Expected empty directory, got %d entries", len(entries))
	}
}
