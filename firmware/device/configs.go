package device

import (
	"machine"
	"time"
)

// BoardConfig has the pin assignments for the station hardware.
type BoardConfig struct {
	// VanePin is the wind vane's analog input.
	VanePin machine.Pin

	// AnemometerPin sees one falling edge per anemometer switch closure.
	AnemometerPin machine.Pin

	// LED is the sampling indicator, toggled once per consumed sample.
	LED machine.Pin

	// I2C carries the BME280 environment sensor.
	I2C *machine.I2C
	SDA machine.Pin
	SCL machine.Pin
}

// SamplingConfig has the initial cadence values. The serial console can
// change them at runtime.
type SamplingConfig struct {
	// PeriodSeconds is the delay between streamed samples.
	PeriodSeconds uint

	// ConversionTimeout bounds how long one conversion may stay in flight
	// before the consumer loop reports it instead of hanging forever.
	ConversionTimeout time.Duration
}
