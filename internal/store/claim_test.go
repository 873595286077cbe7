package store

import "testing"

func TestIsValidAdvance(t *testing.T) {
	cases := []struct {
		name string
		from ProjectStatus
		to   ProjectStatus
		want bool
	}{
		{"draft to pending_dataset", StatusDraft, StatusPendingDataset, true},
		{"pending_dataset to pending_training", StatusPendingDataset, StatusPendingTraining, true},
		{"pending_training to pending_evaluation", StatusPendingTraining, StatusPendingEvaluation, true},
		{"pending_evaluation to completed", StatusPendingEvaluation, StatusCompleted, true},
		{"skip a step", StatusDraft, StatusPendingTraining, false},
		{"backward", StatusPendingTraining, StatusPendingDataset, false},
		{"any non-terminal to failed", StatusPendingTraining, StatusFailed, true},
		{"draft to failed", StatusDraft, StatusFailed, true},
		{"completed to failed", StatusCompleted, StatusFailed, false},
		{"failed to failed", StatusFailed, StatusFailed, false},
		{"completed to completed", StatusCompleted, StatusCompleted, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := IsValidAdvance(c.from, c.to); got != c.want {
				t.Errorf("IsValidAdvance(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
			}
		})
	}
}
