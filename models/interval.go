package models

import "time"

// checkInterval validates a [from, to] range where either end may be unknown.
func checkInterval(field string, from, to *time.Time) error {
	if from != nil && to != nil && to.Before(*from) {
		return invalid(field, ErrInvalidInterval)
	}
	return nil
}

// coversDate reports whether at falls inside [from, to]. Unknown ends are open.
func coversDate(from, to *time.Time, at time.Time) bool {
	if from != nil && at.Before(*from) {
		return false
	}
	if to != nil && at.After(*to) {
		return false
	}
	return true
}
