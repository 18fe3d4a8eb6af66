package service

import "github.com/jonboulle/clockwork"

// clock stamps prediction records and forecast generation times. Package-level
// so tests can freeze it without threading a clock through every constructor.
var clock clockwork.Clock = clockwork.NewRealClock()

// SetClock swaps the package clock. Pass nil to restore the real clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
