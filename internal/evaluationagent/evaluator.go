// Package evaluationagent owns status = pending_evaluation: it scores the
// trained model, assembles the downloadable bundle, and advances the
// project to completed.
package evaluationagent

import "context"

// EvalRequest describes a scoring run: the rebuilt model's weights, the
// held-out split to score on, and the class index used during training.
type EvalRequest struct {
	DatasetRoot string
	ModelName   string
	WeightsPath string
	SplitDir    string
	Classes     []string
}

// ClassReport is the per-class precision/recall/F1 breakdown.
type ClassReport struct {
	ClassName string  `json:"class_name"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// EvalResult mirrors Trainer-Agent's evaluation_service metric set.
type EvalResult struct {
	Accuracy        float64       `json:"accuracy"`
	MacroPrecision  float64       `json:"macro_precision"`
	MacroRecall     float64       `json:"macro_recall"`
	MacroF1         float64       `json:"macro_f1"`
	PerClassReport  []ClassReport `json:"per_class_report"`
}

// PredictRequest scores a single image against an already-trained model,
// backing the gateway's admin-only test-predict endpoint (spec.md §4.7).
// Unlike EvalRequest it names one image rather than a split directory, and
// carries the class index directly since there is no dataset checkout to
// read it from.
type PredictRequest struct {
	ModelName   string
	WeightsPath string
	ImagePath   string
	Classes     []string
}

// PredictResult is the classifier's single-image verdict.
type PredictResult struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Evaluator scores a trained model, mirroring the Trainer boundary: Go
// orchestrates, an external process executes the scoring pass.
type Evaluator interface {
	Evaluate(ctx context.Context, req EvalRequest) (EvalResult, error)
	Predict(ctx context.Context, req PredictRequest) (PredictResult, error)
}

// fakeEvaluator is a deterministic test double.
type fakeEvaluator struct {
	result        EvalResult
	predictResult PredictResult
	err           error
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, req EvalRequest) (EvalResult, error) {
	if f.err != nil {
		return EvalResult{}, f.err
	}
	return f.result, nil
}

func (f *fakeEvaluator) Predict(ctx context.Context, req PredictRequest) (PredictResult, error) {
	if f.err != nil {
		return PredictResult{}, f.err
	}
	return f.predictResult, nil
}
