package inventory

// GuardMode selects how a guard's filter must resolve for a commit to proceed.
type GuardMode int

const (
	// GuardModeAbsent requires that NO record matches the guard filter.
	GuardModeAbsent GuardMode = iota

	// GuardModePresent requires that AT LEAST ONE record matches the guard filter.
	GuardModePresent
)

// Guard is a commit-time condition evaluated atomically with a guarded write.
//
// Guards are the mechanism that closes check-then-act races at the storage
// layer: a manager reads state, makes its decision, and then commits with the
// guards that must still hold for the decision to be valid. If any guard
// fails at commit time the engine writes nothing and returns ErrGuardViolated,
// so the caller can re-read and decide again.
type Guard struct {
	mode   GuardMode
	filter Filter
}

// GuardAbsent builds a guard requiring that no record matches the filter.
func GuardAbsent(filter Filter) Guard {
	return Guard{mode: GuardModeAbsent, filter: filter}
}

// GuardPresent builds a guard requiring that at least one record matches the filter.
func GuardPresent(filter Filter) Guard {
	return Guard{mode: GuardModePresent, filter: filter}
}

func (g Guard) Mode() GuardMode {
	return g.mode
}

func (g Guard) Filter() Filter {
	return g.filter
}
