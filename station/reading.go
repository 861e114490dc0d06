// Package station turns raw measurement frames from the firmware into
// weather readings and keeps the latest one available for the HTTP API, the
// MQTT publisher and the UI.
package station

import (
	"time"

	"github.com/acmurray/weatherstation"
	"github.com/acmurray/weatherstation/sampler"
)

// Reading is one complete weather observation. The JSON keys are the wire
// contract for /api/latest, /data and the MQTT payload.
type Reading struct {
	DeviceID      string    `json:"deviceId"`
	Temperature   float64   `json:"temperature"`   // degrees Celsius
	Humidity      float64   `json:"humidity"`      // %RH
	Pressure      float64   `json:"pressure"`      // hPa
	WindSpeed     float64   `json:"windSpeed"`     // km/h
	WindDirection float64   `json:"windDirection"` // degrees, 0 = north
	Timestamp     time.Time `json:"timestamp"`
}

// FromFrame converts a raw firmware frame into a Reading. window is the
// sampling period the pulse count was accumulated over and vref the wind
// vane's reference voltage.
func FromFrame(deviceID string, f weatherstation.Frame, vref float64, window time.Duration, now time.Time) Reading {
	return Reading{
		DeviceID:      deviceID,
		Temperature:   float64(f.Temp) / 1000,
		Humidity:      float64(f.Hum) / 100,
		Pressure:      float64(f.Press) / 100000,
		WindSpeed:     SpeedKPH(f.Pulses, window),
		WindDirection: DirectionDegrees(sampler.Voltage(f.Vane, vref)),
		Timestamp:     now,
	}
}
