package authz

// Predicate decides whether a request may proceed. Implementations must be
// safe for concurrent use; per-request state lives in the Input.
type Predicate interface {
	Evaluate(in *Input) bool
}

// Func adapts a function to Predicate.
type Func func(in *Input) bool

// Evaluate calls f.
func (f Func) Evaluate(in *Input) bool {
	return f(in)
}

// And is true when every predicate is true. Evaluation stops at the first
// false. And() with no predicates is true.
func And(predicates ...Predicate) Predicate {
	return Func(func(in *Input) bool {
		for _, p := range predicates {
			if !p.Evaluate(in) {
				return false
			}
		}
		return true
	})
}

// Or is true when any predicate is true. Evaluation stops at the first
// true. Or() with no predicates is false.
func Or(predicates ...Predicate) Predicate {
	return Func(func(in *Input) bool {
		for _, p := range predicates {
			if p.Evaluate(in) {
				return true
			}
		}
		return false
	})
}

// Allow is true for every request.
func Allow() Predicate {
	return Func(func(*Input) bool { return true })
}
