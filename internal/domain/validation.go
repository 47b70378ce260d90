package domain

import (
	"maps"

	"github.com/go-playground/validator/v10"
)

// validate is the package-level validator instance used for struct validation.
var validate = validator.New(validator.WithRequiredStructEnabled())

// cloneFeedback creates a deep copy of a feedback map to prevent aliasing.
// Returns nil for nil input to maintain consistency.
func cloneFeedback(m map[string]Feedback) map[string]Feedback {
	if m == nil {
		return nil
	}
	result := make(map[string]Feedback, len(m))
	maps.Copy(result, m)
	for id, fb := range result {
		result[id] = fb.clone()
	}
	return result
}

// cloneFloat returns a copy of the pointed-to value so snapshots never share it.
func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
