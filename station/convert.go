package station

import "time"

// KphPerHz is the anemometer calibration: one switch closure per second
// equals 2.4 km/h of wind.
const KphPerHz = 2.4

// vaneSector maps the wind vane's divider voltage (at Vref=3.3) to a compass
// direction. The vane's reed switches select one of 16 resistances; some
// intermediate values come from two switches closing at sector boundaries.
type vaneSector struct {
	volts   float64
	degrees float64
}

var vaneSectors = []vaneSector{
	{0.21, 112.5},
	{0.27, 67.5},
	{0.30, 90},
	{0.41, 157.5},
	{0.60, 135},
	{0.79, 202.5},
	{0.93, 180},
	{1.31, 22.5},
	{1.49, 45},
	{1.93, 247.5},
	{2.03, 225},
	{2.26, 337.5},
	{2.53, 0},
	{2.67, 292.5},
	{2.86, 315},
	{3.05, 270},
}

// DirectionDegrees returns the compass direction for a vane voltage by
// picking the nearest sector.
func DirectionDegrees(volts float64) float64 {
	best := vaneSectors[0]
	bestDist := dist(volts, best.volts)
	for _, s := range vaneSectors[1:] {
		if d := dist(volts, s.volts); d < bestDist {
			best = s
			bestDist = d
		}
	}
	return best.degrees
}

func dist(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}

// SpeedKPH converts a pulse count accumulated over window into wind speed.
func SpeedKPH(pulses uint16, window time.Duration) float64 {
	if window <= 0 {
		return 0
	}
	hz := float64(pulses) / window.Seconds()
	return hz * KphPerHz
}
