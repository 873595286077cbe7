// Package trainingagent implements the agent owning
// status = pending_training (spec.md §4.5): validate the dataset layout,
// delegate the actual fit to an external trainer process, and record the
// resulting Model row.
package trainingagent

import "strings"

// supportedModels is the closed architecture set spec.md §4.5 names,
// ported from original_source/Trainer-Agent/agent/training/model_factory.py's
// get_supported_models.
var supportedModels = map[string]bool{
	"resnet18":        true,
	"resnet34":        true,
	"resnet50":        true,
	"mobilenet_v2":    true,
	"efficientnet_b0": true,
}

// modelAliases mirrors model_factory.py's model_aliases map: a handful of
// shorthand names resolve to one specific supported architecture.
var modelAliases = map[string]string{
	"efficientnet": "efficientnet_b0",
	"mobilenet":    "mobilenet_v2",
	"resnet":       "resnet18",
}

// ResolveModel normalizes a preferred_model value to a supported
// architecture name, applying aliases first. Returns false if the result
// still isn't supported.
func ResolveModel(name string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := modelAliases[lower]; ok {
		lower = alias
	}
	return lower, supportedModels[lower]
}
