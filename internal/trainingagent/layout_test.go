package trainingagent

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"automl-orchestrator/internal/errkind"
)

func mkClassDir(t *testing.T, root, class string, files []string) {
	t.Helper()
	dir := filepath.Join(root, class)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestClassifyLayoutRecognizesPreSplit(t *testing.T) {
	root := t.TempDir()
	os.MkdirAll(filepath.Join(root, "train"), 0o755)
	os.MkdirAll(filepath.Join(root, "val"), 0o755)
	os.MkdirAll(filepath.Join(root, "test"), 0o755)

	layout, err := ClassifyLayout(root)
	if err != nil {
		t.Fatal(err)
	}
	if layout != LayoutSplit {
		t.Errorf("expected LayoutSplit, got %v", layout)
	}
}

func TestClassifyLayoutRecognizesSingleRoot(t *testing.T) {
	root := t.TempDir()
	mkClassDir(t, root, "cats", []string{"a.jpg"})
	mkClassDir(t, root, "dogs", []string{"b.jpg"})

	layout, err := ClassifyLayout(root)
	if err != nil {
		t.Fatal(err)
	}
	if layout != LayoutSingleRoot {
		t.Errorf("expected LayoutSingleRoot, got %v", layout)
	}
}

func TestClassifyLayoutRejectsBadLayout(t *testing.T) {
	root := t.TempDir()
	os.WriteFile(filepath.Join(root, "data.csv"), []byte("a,b,c"), 0o644)

	_, err := ClassifyLayout(root)
	if err == nil {
		t.Fatal("expected an error for a layout with no directories")
	}
	ek, ok := errkind.As(err)
	if !ok || ek.Kind != errkind.BadDatasetLayout {
		t.Errorf("expected BadDatasetLayout, got %v", err)
	}
}

func TestAutoSplitIsDeterministic(t *testing.T) {
	root := t.TempDir()
	var files []string
	for i := 0; i < 100; i++ {
		files = append(files, filename(i))
	}
	mkClassDir(t, root, "cats", files)

	if err := AutoSplit(root, []string{"cats"}); err != nil {
		t.Fatal(err)
	}

	root2 := t.TempDir()
	mkClassDir(t, root2, "cats", files)
	if err := AutoSplit(root2, []string{"cats"}); err != nil {
		t.Fatal(err)
	}

	for _, split := range []string{"train", "val", "test"} {
		entries1, _ := os.ReadDir(filepath.Join(root, split, "cats"))
		entries2, _ := os.ReadDir(filepath.Join(root2, split, "cats"))
		if len(entries1) != len(entries2) {
			t.Errorf("split %s: expected identical counts across runs, got %d vs %d", split, len(entries1), len(entries2))
		}
	}
}

func TestAutoSplitProducesRoughlySeventyFifteenFifteen(t *testing.T) {
	root := t.TempDir()
	var files []string
	for i := 0; i < 1000; i++ {
		files = append(files, filename(i))
	}
	mkClassDir(t, root, "cats", files)

	if err := AutoSplit(root, []string{"cats"}); err != nil {
		t.Fatal(err)
	}

	trainEntries, _ := os.ReadDir(filepath.Join(root, "train", "cats"))
	if len(trainEntries) < 600 || len(trainEntries) > 800 {
		t.Errorf("expected roughly 70%% of files in train, got %d/1000", len(trainEntries))
	}
}

func filename(i int) string {
	return fmt.Sprintf("img%04d.jpg", i)
}
