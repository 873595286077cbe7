// Package planner converts one free-text user utterance into a validated
// Plan and the Project row it seeds, following the shape of
// original_source/Planner-Agent/agent/planner/main.py's ProjectPlan
// schema but enforcing it in Go instead of trusting the LLM's JSON.
package planner

import (
	"strings"

	"automl-orchestrator/internal/errkind"
)

// supportedModels is the closed set spec §4.5 accepts; an LLM suggestion
// outside this set falls back to the default rather than failing the plan,
// since the model choice is advisory, not safety-critical.
var supportedModels = map[string]bool{
	"resnet18":        true,
	"resnet34":        true,
	"resnet50":        true,
	"mobilenet_v2":    true,
	"efficientnet_b0": true,
}

// Plan is the validated, structured record the planner hands to the rest
// of the pipeline — the only carrier between free-form human language and
// everything downstream.
type Plan struct {
	Name             string   `json:"name"`
	TaskType         string   `json:"task_type"`
	Framework        string   `json:"framework"`
	DatasetSource    string   `json:"dataset_source"`
	SearchKeywords   []string `json:"search_keywords"`
	PreferredModel   string   `json:"preferred_model"`
	TargetMetric     string   `json:"target_metric"`
	TargetValue      float64  `json:"target_value"`
	MaxDatasetSizeGB float64  `json:"max_dataset_size_gb"`
}

// ApplyDefaults fills every field the LLM omitted or got wrong, so the
// only way validation can still fail afterward is an utterance that
// yielded no usable keywords at all.
func (p *Plan) ApplyDefaults(utterance string) {
	p.Name = defaultedName(p.Name, p.SearchKeywords, utterance)
	if p.TaskType == "" {
		p.TaskType = "image_classification"
	}
	if p.Framework == "" {
		p.Framework = "pytorch"
	}
	if p.DatasetSource == "" {
		p.DatasetSource = "kaggle"
	}
	p.SearchKeywords = normalizeKeywords(p.SearchKeywords)
	if !supportedModels[p.PreferredModel] {
		p.PreferredModel = "resnet18"
	}
	if p.TargetMetric == "" {
		p.TargetMetric = "accuracy"
	}
	if p.TargetValue <= 0 || p.TargetValue > 1 {
		p.TargetValue = 0.9
	}

	// The deterministic parse always takes precedence over whatever the
	// LLM produced, so idempotent re-parsing of the same utterance (P5)
	// never depends on LLM non-determinism.
	if parsed, ok := ParseMaxDatasetSizeGB(utterance); ok {
		p.MaxDatasetSizeGB = parsed
	} else if p.MaxDatasetSizeGB <= 0 {
		p.MaxDatasetSizeGB = 50
	}
}

// Validate reports the one condition ApplyDefaults cannot repair: an
// utterance that produced no usable search keywords at all.
func (p *Plan) Validate() error {
	if len(p.Name) < 3 {
		return errkind.New(errkind.PlanInvalid, "project name too short after defaulting")
	}
	if len(p.Name) > 80 {
		p.Name = truncateRunes(p.Name, 80)
	}
	if len(p.SearchKeywords) == 0 {
		return errkind.New(errkind.PlanInvalid, "no search keywords extracted from utterance")
	}
	if len(p.SearchKeywords) > 8 {
		p.SearchKeywords = p.SearchKeywords[:8]
	}
	return nil
}

func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		norm := strings.ToLower(strings.TrimSpace(k))
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		out = append(out, norm)
	}
	return out
}

func defaultedName(name string, keywords []string, utterance string) string {
	name = strings.TrimSpace(name)
	if len(name) >= 3 {
		if len(name) > 60 {
			return truncateRunes(name, 60)
		}
		return name
	}
	if len(keywords) > 0 {
		if fromKeywords := titleCase(strings.Join(keywords, " ")); len(fromKeywords) >= 3 {
			return fromKeywords
		}
	}
	derived := strings.TrimSpace(utterance)
	if len(derived) > 60 {
		derived = truncateRunes(derived, 60)
	}
	if len(derived) < 3 {
		return "Untitled Project"
	}
	return derived
}

// truncateRunes cuts s to at most max runes, never splitting a multi-byte
// UTF-8 character the way a byte-index slice would.
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) == 0 {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	out := strings.Join(words, " ")
	if len(out) > 60 {
		out = out[:60]
	}
	return out
}
