package inventory

import "context"

// ReadLevel defines the consistency requirements for inventory store reads.
type ReadLevel int

const (
	// StrongReads requires reads from the primary database to ensure
	// read-after-write consistency. This is the default for store operations
	// because managers perform read-check-write cycles and must see their own
	// writes immediately (deletion safety, loan eligibility).
	StrongReads ReadLevel = iota

	// RelaxedReads allows reads from replica databases, trading consistency
	// for performance. Suitable for projection rebuilds and list endpoints
	// that can tolerate slightly stale data.
	RelaxedReads
)

// contextKey is a private type to prevent context key collisions.
type contextKey string

// ReadLevelKey is the context key used to store read-level preferences.
const ReadLevelKey contextKey = "inventory.read_level"

// WithStrongReads returns a context that signals store reads must use the
// primary database. Managers set this inside their critical sections so that
// eligibility and deletion-safety decisions are never made on replica state.
func WithStrongReads(ctx context.Context) context.Context {
	return context.WithValue(ctx, ReadLevelKey, StrongReads)
}

// WithRelaxedReads returns a context that signals store reads may use replica
// databases. Used by the reconciliation cache rebuild and pure list queries.
func WithRelaxedReads(ctx context.Context) context.Context {
	return context.WithValue(ctx, ReadLevelKey, RelaxedReads)
}

// GetReadLevel extracts the read level from the context.
// If no read level is set it returns StrongReads as the safe default.
func GetReadLevel(ctx context.Context) ReadLevel {
	if level, ok := ctx.Value(ReadLevelKey).(ReadLevel); ok {
		return level
	}
	return StrongReads
}

// String provides a string representation of ReadLevel for logging and debugging.
func (r ReadLevel) String() string {
	switch r {
	case StrongReads:
		return "strong"
	case RelaxedReads:
		return "relaxed"
	default:
		return "unknown"
	}
}
