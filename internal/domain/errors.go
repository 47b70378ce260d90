package domain

import "errors"

// ErrInvalidQuestion indicates that a question failed validation.
var ErrInvalidQuestion = errors.New("invalid question")

// ErrInvalidEvaluation indicates that an evaluation contains invalid data.
var ErrInvalidEvaluation = errors.New("invalid evaluation")

// ErrInvalidFeedback indicates that reviewer feedback cannot be applied.
var ErrInvalidFeedback = errors.New("invalid feedback")

// ErrInvalidConfig indicates that the run configuration is invalid.
var ErrInvalidConfig = errors.New("invalid run configuration")

// ErrInvariant indicates that a session state breaks one of its structural invariants.
var ErrInvariant = errors.New("session state invariant violated")

// ErrInvalidInput indicates that an operation input failed validation.
var ErrInvalidInput = errors.New("invalid input")
