// Package clock supplies an injectable source of the current time, so a
// collaborator that stamps records with "now" (the in-memory executor)
// can be given a fixed instant in tests. The replay path does not use it:
// every order and decision timestamp there is derived from the bar being
// processed, not wall-clock time. The CLIs and the grid-search progress
// timer call time.Now directly.
package clock

import "time"

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// System is the real wall-clock implementation, reporting UTC.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// Fixed always reports the same instant, used by tests that need
// reproducible timestamps without faking time.Now globally.
type Fixed struct {
	At time.Time
}

func (f Fixed) Now() time.Time { return f.At }
