package station

import (
	"math"
	"testing"
	"time"

	"github.com/acmurray/weatherstation"
)

func TestDirectionDegrees(t *testing.T) {
	tests := []struct {
		name     string
		volts    float64
		expected float64
	}{
		{"North", 2.53, 0},
		{"East", 0.30, 90},
		{"South", 0.93, 180},
		{"West", 3.05, 270},
		{"NearNorthEast", 1.35, 22.5},
		{"FullScaleClampsToNearest", 3.3, 270},
		{"ZeroClampsToNearest", 0.0, 112.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DirectionDegrees(tt.volts)
			if got != tt.expected {
				t.Errorf("expected=%v, got=%v", tt.expected, got)
			}
		})
	}
}

func TestSpeedKPH(t *testing.T) {
	tests := []struct {
		name     string
		pulses   uint16
		window   time.Duration
		expected float64
	}{
		{"Calm", 0, time.Second, 0},
		{"OneHz", 1, time.Second, 2.4},
		{"TenSecondWindow", 25, 10 * time.Second, 6.0},
		{"ZeroWindow", 10, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SpeedKPH(tt.pulses, tt.window)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("expected=%v, got=%v", tt.expected, got)
			}
		})
	}
}

func TestFromFrame(t *testing.T) {
	frame := weatherstation.Frame{
		Millis: 1000,
		Vane:   4095, // full scale -> 3.3V -> nearest sector is 270
		Pulses: 5,
		Temp:   21340,
		Hum:    4512,
		Press:  101325000,
	}
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	r := FromFrame("station-1", frame, 3.3, 5*time.Second, now)

	if r.DeviceID != "station-1" {
		t.Errorf("unexpected device id: %s", r.DeviceID)
	}
	if math.Abs(r.Temperature-21.34) > 1e-9 {
		t.Errorf("unexpected temperature: %v", r.Temperature)
	}
	if math.Abs(r.Humidity-45.12) > 1e-9 {
		t.Errorf("unexpected humidity: %v", r.Humidity)
	}
	if math.Abs(r.Pressure-1013.25) > 1e-9 {
		t.Errorf("unexpected pressure: %v", r.Pressure)
	}
	if r.WindDirection != 270 {
		t.Errorf("unexpected wind direction: %v", r.WindDirection)
	}
	if math.Abs(r.WindSpeed-2.4) > 1e-9 {
		t.Errorf("unexpected wind speed: %v", r.WindSpeed)
	}
	if !r.Timestamp.Equal(now) {
		t.Errorf("unexpected timestamp: %v", r.Timestamp)
	}
}

func TestStore(t *testing.T) {
	s := NewStore()

	if _, ok := s.Latest(); ok {
		t.Error("expected no reading before first update")
	}

	s.Update(Reading{DeviceID: "a", Temperature: 20})
	s.Update(Reading{DeviceID: "a", Temperature: 21})

	r, ok := s.Latest()
	if !ok {
		t.Fatal("expected a reading after update")
	}
	if r.Temperature != 21 {
		t.Errorf("expected latest reading, got %v", r.Temperature)
	}
}
