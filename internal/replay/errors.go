package replay

import "errors"

var (
	// ErrModelMismatch is returned when the replay model's identity
	// differs from the one recorded on the stored run.
	ErrModelMismatch = errors.New("replay model does not match stored run")

	// ErrNoHistory is returned when a run holds no HISTORICAL rows for
	// an entity, leaving nothing to rebuild the forecast input from.
	ErrNoHistory = errors.New("no historical points stored for entity")
)
