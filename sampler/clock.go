package sampler

import "time"

// SystemClock is the Clock backed by the runtime's time source. It works on
// both the host and TinyGo targets.
var SystemClock Clock = systemClock{}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }
