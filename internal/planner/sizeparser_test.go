package planner

import "testing"

func TestParseMaxDatasetSizeGB(t *testing.T) {
	cases := []struct {
		utterance string
		wantGB    float64
		wantOK    bool
	}{
		{"dataset under 500MB", 0.5, true},
		{"Train a flower classifier with dataset not more than 1GB", 1, true},
		{"keep it under 2.5 GB please", 2.5, true},
		{"Train a model to classify tomato leaf diseases", 0, false},
		{"max 100mb", 100.0 / 1000, true},
		{"up to 4 gigabytes", 4, true},
		{"no more than 250 megabytes", 250.0 / 1000, true},
	}
	for _, c := range cases {
		gb, ok := ParseMaxDatasetSizeGB(c.utterance)
		if ok != c.wantOK {
			t.Errorf("ParseMaxDatasetSizeGB(%q) ok = %v, want %v", c.utterance, ok, c.wantOK)
			continue
		}
		if ok && gb != c.wantGB {
			t.Errorf("ParseMaxDatasetSizeGB(%q) = %v, want %v", c.utterance, gb, c.wantGB)
		}
	}
}

func TestParseMaxDatasetSizeGBIsIdempotent(t *testing.T) {
	utterance := "Train a flower classifier with dataset not more than 1GB"
	first, _ := ParseMaxDatasetSizeGB(utterance)
	second, _ := ParseMaxDatasetSizeGB(utterance)
	if first != second {
		t.Fatalf("expected idempotent parse, got %v then %v", first, second)
	}
}
