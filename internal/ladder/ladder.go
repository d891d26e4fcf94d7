// Package ladder evaluates ordered threshold tables.
package ladder

// Rung pairs a bound with the label returned when the bound is met.
type Rung[T any] struct {
	Bound float64
	Label T
}

// Below matches the first rung whose bound is strictly greater than the
// value. Rungs must be ordered by ascending bound.
type Below[T any] struct {
	Rungs    []Rung[T]
	Fallback T
}

func (b Below[T]) Eval(v float64) T {
	for _, r := range b.Rungs {
		if v < r.Bound {
			return r.Label
		}
	}
	return b.Fallback
}

// AtLeast matches the first rung whose bound is less than or equal to the
// value. Rungs must be ordered by descending bound.
type AtLeast[T any] struct {
	Rungs    []Rung[T]
	Fallback T
}

func (a AtLeast[T]) Eval(v float64) T {
	for _, r := range a.Rungs {
		if v >= r.Bound {
			return r.Label
		}
	}
	return a.Fallback
}

// Above matches the first rung whose bound is strictly less than the value.
// Rungs must be ordered by descending bound.
type Above[T any] struct {
	Rungs    []Rung[T]
	Fallback T
}

func (a Above[T]) Eval(v float64) T {
	for _, r := range a.Rungs {
		if v > r.Bound {
			return r.Label
		}
	}
	return a.Fallback
}
