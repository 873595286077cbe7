package trainingagent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"automl-orchestrator/internal/errkind"
)

// TrainRequest is everything the external trainer process needs to run
// one fit, serialized as JSON on stdin by subprocessTrainer.
type TrainRequest struct {
	DatasetRoot   string
	ModelName     string
	NumClasses    int
	Epochs        int
	LearningRate  float64
	BatchSize     int
	OutputPath    string
	UseAccelerator bool
}

// TrainResult is the external trainer's final summary (spec.md §4.5 step
// 9's "final_loss, training_seconds" metadata).
type TrainResult struct {
	FinalLoss      float64
	TrainingSeconds float64
}

// EpochLog is one line of the trainer's per-epoch JSON-lines stdout
// (spec.md §4.5 step 7).
type EpochLog struct {
	Epoch    int     `json:"epoch"`
	TrainLoss float64 `json:"train_loss"`
	ValLoss   float64 `json:"val_loss"`
}

// Trainer is the boundary between Go orchestration and the actual model
// fit. Fine-tuning a torchvision-style classifier has no mature pure-Go
// equivalent, so the real work runs out-of-process.
type Trainer interface {
	Train(ctx context.Context, req TrainRequest, onEpoch func(EpochLog)) (TrainResult, error)
}

// subprocessTrainer shells out to a configured training entrypoint,
// streaming its JSON-lines stdout and parsing its final JSON summary.
type subprocessTrainer struct {
	command string
	logger  *zap.Logger
}

func NewSubprocessTrainer(command string, logger *zap.Logger) Trainer {
	return &subprocessTrainer{command: command, logger: logger}
}

func (t *subprocessTrainer) Train(ctx context.Context, req TrainRequest, onEpoch func(EpochLog)) (TrainResult, error) {
	parts := strings.Fields(t.command)
	if len(parts) == 0 {
		return TrainResult{}, errkind.New(errkind.Permanent, "trainer command is empty")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return TrainResult{}, errkind.Wrap(errkind.Permanent, "marshal train request", err)
	}

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Stdin = bytes.NewReader(payload)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return TrainResult{}, errkind.Wrap(errkind.Permanent, "attach trainer stdout", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return TrainResult{}, errkind.Wrap(errkind.Dependency, "start trainer process", err)
	}
	t.logger.Info("trainer process started", zap.String("model", req.ModelName), zap.Int("num_classes", req.NumClasses))

	var lastLine string
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lastLine = line

		var epoch EpochLog
		if err := json.Unmarshal([]byte(line), &epoch); err == nil && epoch.Epoch > 0 && onEpoch != nil {
			onEpoch(epoch)
		}
	}

	if err := cmd.Wait(); err != nil {
		return TrainResult{}, errkind.Wrap(errkind.Dependency, fmt.Sprintf("trainer process failed: %s", stderr.String()), err)
	}

	var result TrainResult
	if lastLine == "" {
		return TrainResult{}, errkind.New(errkind.Dependency, "trainer produced no output")
	}
	if err := json.Unmarshal([]byte(lastLine), &result); err != nil {
		return TrainResult{}, errkind.Wrap(errkind.Dependency, "parse trainer final summary", err)
	}
	return result, nil
}

// fakeTrainer is a deterministic in-process double used by workflow tests.
type fakeTrainer struct {
	epochs []EpochLog
	result TrainResult
	err    error
}

func (f *fakeTrainer) Train(ctx context.Context, req TrainRequest, onEpoch func(EpochLog)) (TrainResult, error) {
	if f.err != nil {
		return TrainResult{}, f.err
	}
	for _, e := range f.epochs {
		if onEpoch != nil {
			onEpoch(e)
		}
	}
	return f.result, nil
}
