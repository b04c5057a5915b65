package spaced_repetition

import "errors"

// Sentinel errors; check with errors.Is.
var (
	ErrInvalidQuality = errors.New("spaced_repetition: invalid quality rating")
	ErrInvalidConfig  = errors.New("spaced_repetition: invalid scheduler config")
	ErrItemMismatch   = errors.New("spaced_repetition: review log belongs to another item")
)
