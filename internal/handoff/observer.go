// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package handoff

// Observer is notified about attempt lifecycle events.
// AttemptFinished is called exactly once per started attempt, from whichever
// goroutine performed the terminal transition.
type Observer interface {
	AttemptStarted(Result)
	AttemptFinished(Result)
}

// NopObserver ignores all events.
type NopObserver struct{}

func (NopObserver) AttemptStarted(Result)  {}
func (NopObserver) AttemptFinished(Result) {}

// Observers fans events out to every member in order.
type Observers []Observer

// AttemptStarted implements Observer.
func (obs Observers) AttemptStarted(r Result) {
	for _, o := range obs {
		if o != nil {
			o.AttemptStarted(r)
		}
	}
}

// AttemptFinished implements Observer.
func (obs Observers) AttemptFinished(r Result) {
	for _, o := range obs {
		if o != nil {
			o.AttemptFinished(r)
		}
	}
}
