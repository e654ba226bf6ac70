package domain

// TaskType is a coarse category of a model request, used for route selection.
type TaskType string

const (
	TaskPlanning           TaskType = "planning"
	TaskCodeGeneration     TaskType = "code_generation"
	TaskAnalysis           TaskType = "analysis"
	TaskIntentDetection    TaskType = "intent_detection"
	TaskValidation         TaskType = "validation"
	TaskSummarization      TaskType = "summarization"
	TaskClassification     TaskType = "classification"
	TaskLongFormGeneration TaskType = "long_form_generation"
	TaskGeneral            TaskType = "general"
)

// RouteConfiguration maps a task category to a backend/model pair plus an
// optional single-hop fallback pair.
//
// Invariant: FallbackBackend and FallbackModel are both set or both empty,
// and the fallback backend differs from the primary when present.
type RouteConfiguration struct {
	Name            string   `yaml:"name"              json:"name"`
	TaskType        TaskType `yaml:"task_type"         json:"task_type"`
	PrimaryBackend  string   `yaml:"primary_backend"   json:"primary_backend"`
	PrimaryModel    string   `yaml:"primary_model"     json:"primary_model"`
	FallbackBackend string   `yaml:"fallback_backend"  json:"fallback_backend,omitempty"`
	FallbackModel   string   `yaml:"fallback_model"    json:"fallback_model,omitempty"`
	MaxLatencyMs    int      `yaml:"max_latency_ms"    json:"max_latency_ms,omitempty"`
	CostPer1KTokens float64  `yaml:"cost_per_1k_tokens" json:"cost_per_1k_tokens,omitempty"`
	Priority        int      `yaml:"priority"          json:"priority"`
	Enabled         bool     `yaml:"enabled"           json:"enabled"`
	MinimumQuality  float64  `yaml:"minimum_quality"   json:"minimum_quality"`
}

// HasFallback reports whether the route carries a fallback pair.
func (r RouteConfiguration) HasFallback() bool {
	return r.FallbackBackend != "" && r.FallbackModel != ""
}
