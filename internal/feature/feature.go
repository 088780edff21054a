package feature

import "geosem/internal/rule"

// Function maps a candidate rule to a fixed-length feature vector.
type Function interface {
	Dim() int
	// Evaluate returns a vector of length Dim. Callers must not modify it.
	Evaluate(r rule.SemanticRule) []float64
}
