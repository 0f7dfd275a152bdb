package domain

// ModelConfig selects and parameterizes a regression model client.
type ModelConfig struct {
	Kind string // "http" | "naive"

	// HTTP parameters
	Endpoint  string // base URL of the model service
	TimeoutMs int64  // per-call timeout, 0 uses the client default
}

// Model kind constants
const (
	ModelKindHTTP  = "http"
	ModelKindNaive = "naive"
)
