package device

import (
	"errors"
	"machine"
	"sync/atomic"
	"time"

	"tinygo.org/x/drivers/bme280"

	"github.com/acmurray/weatherstation"
	"github.com/acmurray/weatherstation/sampler"
)

// Station owns the sensors and the sampling pipeline: the wind vane behind a
// one-shot Sampler, the anemometer pulse counter and the BME280. The command
// loop and the sampling loop run on separate goroutines, so every field they
// share is atomic.
type Station struct {
	vane   machine.ADC
	bme    bme280.Device
	led    machine.Pin
	ledOn  bool
	pulses atomic.Uint32

	smp    *sampler.Sampler
	engine *sampler.Engine

	streaming     atomic.Bool
	readNow       atomic.Bool
	periodSeconds atomic.Uint32
	verbose       atomic.Bool

	start time.Time
}

// New configures the hardware and the sampling pipeline.
func New(boardCfg BoardConfig, samplingCfg SamplingConfig) (*Station, error) {
	d := &Station{
		led:   boardCfg.LED,
		start: time.Now(),
	}
	d.periodSeconds.Store(uint32(samplingCfg.PeriodSeconds))

	boardCfg.LED.Configure(machine.PinConfig{Mode: machine.PinOutput})

	machine.InitADC()
	d.vane = machine.ADC{Pin: boardCfg.VanePin}
	d.vane.Configure(machine.ADCConfig{})

	boardCfg.AnemometerPin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	err := boardCfg.AnemometerPin.SetInterrupt(machine.PinFalling, func(machine.Pin) {
		d.pulses.Add(1)
	})
	if err != nil {
		return nil, errors.New("error configuring anemometer interrupt: " + err.Error())
	}

	err = boardCfg.I2C.Configure(machine.I2CConfig{SDA: boardCfg.SDA, SCL: boardCfg.SCL})
	if err != nil {
		return nil, errors.New("error configuring I2C: " + err.Error())
	}
	d.bme = bme280.New(boardCfg.I2C)
	d.bme.Configure()
	if !d.bme.Connected() {
		return nil, errors.New("BME280 not found on I2C bus")
	}

	d.engine = sampler.NewEngine(d.readVane, 0)

	d.smp, err = sampler.New(sampler.Config{
		Converter: d.engine.Converter(),
		Transfer:  d.engine,
		Mode:      weatherstation.StreamModeOneShot,
		Timeout:   samplingCfg.ConversionTimeout,
		Action:    d.emit,
	})
	if err != nil {
		return nil, errors.New("error creating sampler: " + err.Error())
	}

	return d, nil
}

// readVane is the transfer engine's source: one vane conversion, scaled down
// to the 12-bit range shared with the host.
func (d *Station) readVane() (uint16, error) {
	return d.vane.Get() >> 4, nil
}

// emit is the cadence action: toggle the indicator and print one measurement
// frame with the rest of the sensors snapshotted around the vane sample.
func (d *Station) emit(res sampler.Result) {
	d.ledOn = !d.ledOn
	d.led.Set(d.ledOn)

	temp, err := d.bme.ReadTemperature()
	if err != nil {
		println("error reading temperature:", err.Error())
	}
	hum, err := d.bme.ReadHumidity()
	if err != nil {
		println("error reading humidity:", err.Error())
	}
	press, err := d.bme.ReadPressure()
	if err != nil {
		println("error reading pressure:", err.Error())
	}

	frame := weatherstation.Frame{
		Millis: uint32(time.Since(d.start).Milliseconds()),
		Vane:   res.Sample,
		Pulses: uint16(d.pulses.Swap(0)),
		Temp:   temp,
		Hum:    hum,
		Press:  press,
	}
	println(frame.String())
}

// Loop runs the sampling side forever. It must be started on its own
// goroutine before the command loop.
func (d *Station) Loop() {
	go d.engine.Run()

	for {
		switch {
		case d.streaming.Load():
			d.sampleOnce()
			d.sleepPeriod()
		case d.readNow.Swap(false):
			d.sampleOnce()
		default:
			time.Sleep(100 * time.Millisecond)
		}
	}
}

// sampleOnce drives one start/complete/consume cycle. The sampler re-arms
// itself after a consumed one-shot sample, so ErrBusy just means a
// conversion is already waiting for us.
func (d *Station) sampleOnce() {
	if err := d.smp.StartConversion(); err != nil && err != sampler.ErrBusy {
		println("error starting conversion:", err.Error())
		return
	}

	for {
		_, err := d.smp.PollAndConsume()
		if err == sampler.ErrNotReady {
			time.Sleep(time.Millisecond)
			continue
		}
		if err != nil {
			println("error sampling:", err.Error())
		}
		return
	}
}

// sleepPeriod sleeps the configured cadence in slices so stream-off stays
// responsive.
func (d *Station) sleepPeriod() {
	deadline := time.Now().Add(time.Duration(d.periodSeconds.Load()) * time.Second)
	for time.Now().Before(deadline) {
		if !d.streaming.Load() {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// ReadNow requests a single measurement outside the streaming cadence.
func (d *Station) ReadNow() {
	d.readNow.Store(true)
}

// SetPeriod changes the streaming cadence.
func (d *Station) SetPeriod(seconds uint) {
	if seconds < 1 || seconds > 99 {
		return
	}
	d.periodSeconds.Store(uint32(seconds))
	if d.verbose.Load() {
		println("period set to", seconds, "seconds")
	}
}

// Stream starts or stops periodic sampling.
func (d *Station) Stream(on bool) {
	d.streaming.Store(on)
	if d.verbose.Load() {
		if on {
			println("streaming started")
		} else {
			println("streaming stopped")
		}
	}
}

// Debug prints the current state.
func (d *Station) Debug() {
	state := "idle"
	if d.streaming.Load() {
		state = "streaming"
	}
	println("state:", state, "period:", d.periodSeconds.Load(), "s")
}

// Verbose enables extra output.
func (d *Station) Verbose() {
	d.verbose.Store(true)
	println("verbose mode enabled")
}

// ReadByte reads one byte from the serial console.
func (d *Station) ReadByte() (byte, error) {
	return machine.Serial.ReadByte()
}
