package model

import (
	"errors"
	"fmt"
	"time"

	"ev-forecast-lab/internal/domain"
)

var (
	// ErrUnknownModelKind indicates an unrecognized model kind in config.
	ErrUnknownModelKind = errors.New("unknown model kind")

	// ErrMissingEndpoint indicates an HTTP model configured without an endpoint.
	ErrMissingEndpoint = errors.New("http model requires an endpoint")
)

// FromConfig builds a model client from configuration.
func FromConfig(cfg domain.ModelConfig) (Model, error) {
	switch cfg.Kind {
	case domain.ModelKindHTTP:
		if cfg.Endpoint == "" {
			return nil, ErrMissingEndpoint
		}
		var opts []HTTPOption
		if cfg.TimeoutMs > 0 {
			opts = append(opts, WithTimeout(time.Duration(cfg.TimeoutMs)*time.Millisecond))
		}
		return NewHTTPModel(cfg.Endpoint, opts...), nil

	case domain.ModelKindNaive:
		return NewNaiveModel(), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModelKind, cfg.Kind)
	}
}
