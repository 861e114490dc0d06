// Package sampler produces fresh analog readings at a fixed cadence without
// blocking on hardware timing. A Converter performs one conversion at a time,
// a Transfer mechanism moves each completed sample into the Sampler's slot
// with no consumer involvement, and the consumer drains the slot by polling.
//
// The producer side (the transfer mechanism's completion context) and the
// consumer side communicate through a single ready flag with a one-pending-
// sample mailbox discipline: the producer sets the flag exactly once per
// completed conversion and the consumer clears it exactly once per
// consumption, always before re-arming.
package sampler

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/acmurray/weatherstation"
)

// Converter is the conversion hardware: given a trigger it produces one
// fixed-width integer sample after bounded latency. In continuous mode a
// single Begin starts an ongoing stream of conversions.
type Converter interface {
	Begin() error
}

// Transfer moves completed samples from the converter into dst. A count of 1
// requests one-shot behavior (auto-disarm after the transfer); count <= 0
// requests circular behavior (re-arm indefinitely, overwriting dst).
type Transfer interface {
	Arm(dst *atomic.Uint32, count int, c Completer) error
	Halt() error
}

// Completer receives notifications from the transfer mechanism. Both methods
// run in the producer context and must not block: faults only record a status
// for the consumer to act on.
type Completer interface {
	OnConversionComplete()
	OnTransferFault(err error)
}

// Clock is the tick source: a monotonic clock and a blocking delay.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

var (
	ErrBusy       = errors.New("conversion already in flight")
	ErrNotReady   = errors.New("no sample ready")
	ErrTimeout    = errors.New("conversion timed out")
	ErrOutOfRange = errors.New("sample exceeds converter range")
)

// FaultError is surfaced by PollAndConsume when the transfer mechanism
// reported a fault since the last poll.
type FaultError struct {
	Err error
}

func (e *FaultError) Error() string { return "transfer fault: " + e.Err.Error() }
func (e *FaultError) Unwrap() error { return e.Err }

// faultCell carries a producer-recorded fault to the consumer. A pointer cell
// keeps the swap-to-clear atomic.
type faultCell struct {
	err error
}

// Result is one consumed sample with its derived voltage.
type Result struct {
	Sample uint16
	Volts  float64
	At     time.Time
}

// Voltage maps a converter code onto [0, vref]. The divisor is the maximum
// representable code, not 2^R, so the full range is covered.
func Voltage(sample uint16, vref float64) float64 {
	return float64(sample) * vref / float64(weatherstation.MaxCode)
}

// Config wires a Sampler to its collaborators.
type Config struct {
	Converter Converter
	Transfer  Transfer
	Clock     Clock

	// Mode defaults to StreamModeOneShot.
	Mode weatherstation.StreamMode

	// Vref is the reference voltage. Defaults to weatherstation.DefaultVref.
	Vref float64

	// Period is the blocking inter-sample delay honored after each
	// consumption. Zero means no delay.
	Period time.Duration

	// Timeout is how long a conversion may stay in flight before
	// PollAndConsume surfaces ErrTimeout. Defaults to 4x Period when a
	// Period is set; zero otherwise (no timeout).
	Timeout time.Duration

	// Action runs once per consumed sample, after the voltage is derived.
	Action func(Result)
}

// Sampler owns the sample slot and ready flag. It is not safe for use from
// multiple consumer goroutines; the producer side only ever runs
// OnConversionComplete and OnTransferFault.
type Sampler struct {
	conv    Converter
	xfer    Transfer
	clock   Clock
	mode    weatherstation.StreamMode
	vref    float64
	period  time.Duration
	timeout time.Duration
	action  func(Result)

	slot  atomic.Uint32
	ready atomic.Bool
	fault atomic.Pointer[faultCell]

	// consumer-side bookkeeping, never touched by the producer context
	inFlight bool
	armedAt  time.Time
}

// New validates the config and returns an idle Sampler. StartConversion must
// be called to request the first sample.
func New(cfg Config) (*Sampler, error) {
	if cfg.Converter == nil {
		return nil, errors.New("sampler requires a Converter")
	}
	if cfg.Transfer == nil {
		return nil, errors.New("sampler requires a Transfer")
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	if cfg.Mode == weatherstation.StreamModeUnknown {
		cfg.Mode = weatherstation.StreamModeOneShot
	}
	if cfg.Vref == 0 {
		cfg.Vref = weatherstation.DefaultVref
	}
	if cfg.Vref < 0 {
		return nil, errors.New("reference voltage must be positive")
	}
	if cfg.Timeout == 0 && cfg.Period > 0 {
		cfg.Timeout = 4 * cfg.Period
	}

	return &Sampler{
		conv:    cfg.Converter,
		xfer:    cfg.Transfer,
		clock:   cfg.Clock,
		mode:    cfg.Mode,
		vref:    cfg.Vref,
		period:  cfg.Period,
		timeout: cfg.Timeout,
		action:  cfg.Action,
	}, nil
}

// StartConversion arms the transfer mechanism and triggers the converter.
// It never blocks. It is an error to start while a conversion is in flight.
func (s *Sampler) StartConversion() error {
	if s.inFlight {
		return ErrBusy
	}

	count := 1
	if s.mode == weatherstation.StreamModeContinuous {
		count = 0
	}
	if err := s.xfer.Arm(&s.slot, count, s); err != nil {
		return errors.New("error arming transfer: " + err.Error())
	}
	if err := s.conv.Begin(); err != nil {
		s.xfer.Halt()
		return errors.New("error starting conversion: " + err.Error())
	}

	s.inFlight = true
	s.armedAt = s.clock.Now()
	return nil
}

// OnConversionComplete runs in the producer context once per finished
// transfer. For the one-shot policy it halts further transfers before
// publishing the ready flag, so the slot cannot be overwritten between
// completion and consumption.
func (s *Sampler) OnConversionComplete() {
	if s.mode == weatherstation.StreamModeOneShot {
		if err := s.xfer.Halt(); err != nil {
			s.fault.Store(&faultCell{err: err})
			return
		}
	}
	s.ready.Store(true)
}

// OnTransferFault runs in the producer context. It only records the fault;
// recovery decisions belong to the consumer loop.
func (s *Sampler) OnTransferFault(err error) {
	s.fault.Store(&faultCell{err: err})
}

// PollAndConsume drains at most one pending sample. With nothing pending it
// returns ErrNotReady immediately, or ErrTimeout once a conversion has been
// in flight longer than the timeout window. On success it clears the ready
// flag before re-arming, runs the cadence action, honors the inter-sample
// delay and (for the one-shot policy) starts the next conversion.
func (s *Sampler) PollAndConsume() (Result, error) {
	if cell := s.fault.Swap(nil); cell != nil {
		s.inFlight = false
		return Result{}, &FaultError{Err: cell.err}
	}

	if !s.ready.Load() {
		if s.inFlight && s.timeout > 0 && s.clock.Now().Sub(s.armedAt) >= s.timeout {
			s.inFlight = false
			if err := s.xfer.Halt(); err != nil {
				s.fault.Store(&faultCell{err: err})
			}
			return Result{}, ErrTimeout
		}
		return Result{}, ErrNotReady
	}

	// Clear before re-arming so a not-yet-completed next conversion can
	// never be mistaken for this one.
	s.ready.Store(false)
	code := s.slot.Load()

	if s.mode == weatherstation.StreamModeOneShot {
		s.inFlight = false
	}

	if code > weatherstation.MaxCode {
		return Result{}, ErrOutOfRange
	}

	res := Result{
		Sample: uint16(code),
		Volts:  Voltage(uint16(code), s.vref),
		At:     s.clock.Now(),
	}
	if s.action != nil {
		s.action(res)
	}
	if s.period > 0 {
		s.clock.Sleep(s.period)
	}

	if s.mode == weatherstation.StreamModeOneShot {
		if err := s.StartConversion(); err != nil {
			return res, err
		}
	} else {
		// Continuous transfers stay armed; only the timeout window resets.
		s.armedAt = s.clock.Now()
	}

	return res, nil
}

// Vref returns the configured reference voltage.
func (s *Sampler) Vref() float64 {
	return s.vref
}
