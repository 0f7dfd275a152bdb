package domain

// Entity represents one county in the forecast registry.
// Corresponds to entities table in PostgreSQL.
type Entity struct {
	Name      string // canonical county name, unique
	Code      int    // training-time integer encoding, unique
	CreatedAt int64  // record creation timestamp (ms)
}
