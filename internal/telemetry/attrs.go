package telemetry

import "go.opentelemetry.io/otel/attribute"

// optional wraps a value that may or may not have been set, so that zero
// values (0, "", false) are distinguishable from "never set" when two
// SpanAttributes are merged. Mirrors crs-scheduler's internal/telemetry
// optional[T] helper.
type optional[T any] struct {
	value T
	isSet bool
}

func (o optional[T]) Set(v T) optional[T] {
	return optional[T]{value: v, isSet: true}
}

func mergeOptional[T any](base, override optional[T]) optional[T] {
	if override.isSet {
		return override
	}
	return base
}

// SpanAttributes carries the AutoML-domain fields a workflow step may want
// to attach to its span: which project/agent it belongs to, and whatever
// step-specific metrics apply (dataset size, accuracy, epoch, ...).
type SpanAttributes struct {
	Step WorkflowStep

	projectID     optional[string]
	agentName     optional[string]
	datasetSizeGB optional[float64]
	numClasses    optional[int64]
	modelName     optional[string]
	epoch         optional[int64]
	accuracy      optional[float64]

	extraAttributes map[string]any
}

// NewSpanAttributes starts a SpanAttributes for the given step with no
// fields set.
func NewSpanAttributes(step WorkflowStep) SpanAttributes {
	return SpanAttributes{Step: step}
}

// EmptySpanAttributes returns a SpanAttributes with no step and no fields,
// useful as a merge base.
func EmptySpanAttributes() SpanAttributes {
	return SpanAttributes{}
}

func (a SpanAttributes) WithProjectID(v string) SpanAttributes {
	a.projectID = a.projectID.Set(v)
	return a
}

func (a SpanAttributes) WithAgentName(v string) SpanAttributes {
	a.agentName = a.agentName.Set(v)
	return a
}

func (a SpanAttributes) WithDatasetSizeGB(v float64) SpanAttributes {
	a.datasetSizeGB = a.datasetSizeGB.Set(v)
	return a
}

func (a SpanAttributes) WithNumClasses(v int64) SpanAttributes {
	a.numClasses = a.numClasses.Set(v)
	return a
}

func (a SpanAttributes) WithModelName(v string) SpanAttributes {
	a.modelName = a.modelName.Set(v)
	return a
}

func (a SpanAttributes) WithEpoch(v int64) SpanAttributes {
	a.epoch = a.epoch.Set(v)
	return a
}

func (a SpanAttributes) WithAccuracy(v float64) SpanAttributes {
	a.accuracy = a.accuracy.Set(v)
	return a
}

// WithExtra attaches a free-form key/value, for step-specific data that
// doesn't warrant its own typed field.
func (a SpanAttributes) WithExtra(key string, value any) SpanAttributes {
	if a.extraAttributes == nil {
		a.extraAttributes = make(map[string]any, 1)
	}
	cp := make(map[string]any, len(a.extraAttributes)+1)
	for k, v := range a.extraAttributes {
		cp[k] = v
	}
	cp[key] = value
	a.extraAttributes = cp
	return a
}

// Merge layers override's set fields on top of a, keeping a's fields where
// override left them unset.
func (a SpanAttributes) Merge(override SpanAttributes) SpanAttributes {
	out := a
	if override.Step != 0 {
		out.Step = override.Step
	}
	out.projectID = mergeOptional(a.projectID, override.projectID)
	out.agentName = mergeOptional(a.agentName, override.agentName)
	out.datasetSizeGB = mergeOptional(a.datasetSizeGB, override.datasetSizeGB)
	out.numClasses = mergeOptional(a.numClasses, override.numClasses)
	out.modelName = mergeOptional(a.modelName, override.modelName)
	out.epoch = mergeOptional(a.epoch, override.epoch)
	out.accuracy = mergeOptional(a.accuracy, override.accuracy)

	if len(override.extraAttributes) > 0 {
		merged := make(map[string]any, len(a.extraAttributes)+len(override.extraAttributes))
		for k, v := range a.extraAttributes {
			merged[k] = v
		}
		for k, v := range override.extraAttributes {
			merged[k] = v
		}
		out.extraAttributes = merged
	}
	return out
}

// Attributes converts the set fields into OTel attribute.KeyValue pairs.
func (a SpanAttributes) Attributes() []attribute.KeyValue {
	kvs := []attribute.KeyValue{attribute.String("workflow.step", a.Step.String())}

	if a.projectID.isSet {
		kvs = append(kvs, attribute.String("automl.project_id", a.projectID.value))
	}
	if a.agentName.isSet {
		kvs = append(kvs, attribute.String("automl.agent_name", a.agentName.value))
	}
	if a.datasetSizeGB.isSet {
		kvs = append(kvs, attribute.Float64("automl.dataset_size_gb", a.datasetSizeGB.value))
	}
	if a.numClasses.isSet {
		kvs = append(kvs, attribute.Int64("automl.num_classes", a.numClasses.value))
	}
	if a.modelName.isSet {
		kvs = append(kvs, attribute.String("automl.model_name", a.modelName.value))
	}
	if a.epoch.isSet {
		kvs = append(kvs, attribute.Int64("automl.epoch", a.epoch.value))
	}
	if a.accuracy.isSet {
		kvs = append(kvs, attribute.Float64("automl.accuracy", a.accuracy.value))
	}

	for k, v := range a.extraAttributes {
		switch val := v.(type) {
		case string:
			kvs = append(kvs, attribute.String(k, val))
		case int:
			kvs = append(kvs, attribute.Int(k, val))
		case int64:
			kvs = append(kvs, attribute.Int64(k, val))
		case float64:
			kvs = append(kvs, attribute.Float64(k, val))
		case bool:
			kvs = append(kvs, attribute.Bool(k, val))
		default:
			kvs = append(kvs, attribute.String(k, "unrepresentable"))
		}
	}

	return kvs
}
