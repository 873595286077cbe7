package trainingagent

import (
	"context"
	"testing"
)

func TestFakeTrainerInvokesEpochCallback(t *testing.T) {
	trainer := &fakeTrainer{
		epochs: []EpochLog{{Epoch: 1, TrainLoss: 0.5, ValLoss: 0.6}, {Epoch: 2, TrainLoss: 0.3, ValLoss: 0.4}},
		result: TrainResult{FinalLoss: 0.3, TrainingSeconds: 12.5},
	}

	var seen []EpochLog
	result, err := trainer.Train(context.Background(), TrainRequest{}, func(e EpochLog) {
		seen = append(seen, e)
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 epoch callbacks, got %d", len(seen))
	}
	if result.FinalLoss != 0.3 {
		t.Errorf("expected final loss 0.3, got %v", result.FinalLoss)
	}
}

func TestFakeTrainerPropagatesError(t *testing.T) {
	trainer := &fakeTrainer{err: errTestTrainerFailed}
	_, err := trainer.Train(context.Background(), TrainRequest{}, nil)
	if err != errTestTrainerFailed {
		t.Fatalf("expected configured error, got %v", err)
	}
}

var errTestTrainerFailed = &testError{"trainer failed"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
