package evaluationagent

import (
	"archive/zip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestBuildBundleProducesExactFourFiles(t *testing.T) {
	workDir := t.TempDir()
	weightsPath := filepath.Join(workDir, "weights.pth")
	if err := os.WriteFile(weightsPath, []byte("fake-weights"), 0o644); err != nil {
		t.Fatal(err)
	}

	labels := []string{"cats", "dogs", "birds"}
	zipPath := filepath.Join(workDir, "bundle.zip")

	if err := BuildBundle(workDir, weightsPath, labels, zipPath); err != nil {
		t.Fatalf("BuildBundle failed: %v", err)
	}

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("open bundle zip: %v", err)
	}
	defer r.Close()

	want := map[string]bool{"model.pth": false, "predict.py": false, "labels.json": false, "README.txt": false}
	for _, f := range r.File {
		if _, ok := want[f.Name]; !ok {
			t.Errorf("unexpected entry in bundle: %s", f.Name)
		}
		want[f.Name] = true

		if f.Name == "labels.json" {
			rc, err := f.Open()
			if err != nil {
				t.Fatal(err)
			}
			var got []string
			if err := json.NewDecoder(rc).Decode(&got); err != nil {
				t.Fatal(err)
			}
			rc.Close()
			if len(got) != len(labels) {
				t.Errorf("expected %d labels, got %d", len(labels), len(got))
			}
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("bundle missing expected entry: %s", name)
		}
	}
	if len(r.File) != 4 {
		t.Errorf("expected exactly 4 bundle entries, got %d", len(r.File))
	}
}
