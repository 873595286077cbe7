package evaluationagent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"automl-orchestrator/internal/errkind"
)

// subprocessEvaluator shells out to the same family of external process as
// the training agent's subprocessTrainer, scoring the rebuilt model and
// emitting its final JSON summary on stdout.
type subprocessEvaluator struct {
	command string
	logger  *zap.Logger
}

func NewSubprocessEvaluator(command string, logger *zap.Logger) Evaluator {
	return &subprocessEvaluator{command: command, logger: logger}
}

func (e *subprocessEvaluator) Evaluate(ctx context.Context, req EvalRequest) (EvalResult, error) {
	payload, err := json.Marshal(struct {
		Mode string `json:"mode"`
		EvalRequest
	}{Mode: "evaluate", EvalRequest: req})
	if err != nil {
		return EvalResult{}, errkind.Wrap(errkind.Permanent, "marshal eval request", err)
	}

	out, err := e.run(ctx, payload)
	if err != nil {
		return EvalResult{}, err
	}
	e.logger.Info("evaluator process completed", zap.String("model", req.ModelName))

	var result EvalResult
	if err := json.Unmarshal(out, &result); err != nil {
		return EvalResult{}, errkind.Wrap(errkind.Dependency, "parse evaluator summary", err)
	}
	return result, nil
}

// Predict drives the same external process in single-image mode: the
// "mode" discriminator tells it to load one image instead of walking a
// split directory, matching the shape the gateway's test-predict endpoint
// needs ({label, confidence}) rather than a batch of class reports.
func (e *subprocessEvaluator) Predict(ctx context.Context, req PredictRequest) (PredictResult, error) {
	payload, err := json.Marshal(struct {
		Mode string `json:"mode"`
		PredictRequest
	}{Mode: "predict", PredictRequest: req})
	if err != nil {
		return PredictResult{}, errkind.Wrap(errkind.Permanent, "marshal predict request", err)
	}

	out, err := e.run(ctx, payload)
	if err != nil {
		return PredictResult{}, err
	}
	e.logger.Info("evaluator process completed single-image predict", zap.String("model", req.ModelName))

	var result PredictResult
	if err := json.Unmarshal(out, &result); err != nil {
		return PredictResult{}, errkind.Wrap(errkind.Dependency, "parse predict result", err)
	}
	return result, nil
}

// run shells the given JSON payload to the configured command over stdin
// and returns its trimmed stdout, shared by Evaluate and Predict.
func (e *subprocessEvaluator) run(ctx context.Context, payload []byte) ([]byte, error) {
	parts := strings.Fields(e.command)
	if len(parts) == 0 {
		return nil, errkind.New(errkind.Permanent, "evaluator command is empty")
	}

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, errkind.Wrap(errkind.Dependency, fmt.Sprintf("evaluator process failed: %s", stderr.String()), err)
	}

	out := bytes.TrimSpace(stdout.Bytes())
	if len(out) == 0 {
		return nil, errkind.New(errkind.Dependency, "evaluator produced no output")
	}
	return out, nil
}
