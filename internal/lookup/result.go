// Package lookup contains the best-effort clients for the optional external
// services: drug nomenclature, drug label evidence and zero-shot classification.
// Every call returns a Result; a failure is an empty Result, never an error.
package lookup

// Result is the outcome of a best-effort lookup: either a value or nothing.
type Result[T any] struct {
	value T
	ok    bool
}

// Found wraps a successful lookup value.
func Found[T any](v T) Result[T] {
	return Result[T]{value: v, ok: true}
}

// Empty is the result of a lookup that produced nothing usable.
func Empty[T any]() Result[T] {
	return Result[T]{}
}

// Get returns the value and whether it is present.
func (r Result[T]) Get() (T, bool) { return r.value, r.ok }

// OK reports whether the lookup produced a value.
func (r Result[T]) OK() bool { return r.ok }

// OrElse returns the value, or def when the result is empty.
func (r Result[T]) OrElse(def T) T {
	if !r.ok {
		return def
	}
	return r.value
}

// LabelScore is one label/score pair from a classification service.
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Concept is a drug resolved by the nomenclature service.
type Concept struct {
	RxCUI string `json:"rxcui"`
	Name  string `json:"name"`
}

// LabelEvidence is the interaction and warning text of an official drug label.
type LabelEvidence struct {
	ID                string `json:"id"`
	Brand             string `json:"brand"`
	Generic           string `json:"generic"`
	Interactions      string `json:"interactions"`
	Warnings          string `json:"warnings"`
	Contraindications string `json:"contraindications"`
}
