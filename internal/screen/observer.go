package screen

import "time"

// Observer receives timing for finished windows and lengths. Calls come
// from worker goroutines and must be safe for concurrent use.
type Observer interface {
	ObservePosition(length int, skipped bool, d time.Duration)
	ObserveLength(length, positions int, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObservePosition(int, bool, time.Duration) {}
func (nopObserver) ObserveLength(int, int, time.Duration)    {}
