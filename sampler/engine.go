package sampler

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Source reads one completed sample out of the conversion hardware. It may
// block for the conversion latency but must return within a bounded time.
type Source func() (uint16, error)

// Engine is a software rendition of a single-channel transfer controller:
// once armed it moves samples from a Source into the destination slot on its
// own goroutine and notifies the Completer after each transfer. Armed with
// count 1 it auto-disarms after the transfer; with count <= 0 it runs
// circularly, overwriting the slot until halted.
type Engine struct {
	src      Source
	interval time.Duration

	mu        sync.Mutex
	dst       *atomic.Uint32
	left      int // transfers remaining; < 0 means circular
	completer Completer

	kick chan struct{}
	stop chan struct{}
	once sync.Once
}

// NewEngine returns an Engine reading from src. interval paces circular
// transfers; one-shot transfers ignore it. Run must be started on its own
// goroutine before the engine is triggered.
func NewEngine(src Source, interval time.Duration) *Engine {
	return &Engine{
		src:      src,
		interval: interval,
		kick:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
}

// Arm prepares the next transfer(s) into dst. Arming an armed engine is an
// error; the consumer must consume or halt first.
func (e *Engine) Arm(dst *atomic.Uint32, count int, c Completer) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dst != nil {
		return errors.New("transfer already armed")
	}
	if count <= 0 {
		count = -1
	}
	e.dst = dst
	e.left = count
	e.completer = c
	return nil
}

// Halt disarms the engine. Safe to call from the completion context and on an
// already-idle engine.
func (e *Engine) Halt() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dst = nil
	e.left = 0
	return nil
}

// Trigger starts moving data for the current arm. It is the hook for
// Converter implementations whose conversions are driven by this engine.
func (e *Engine) Trigger() error {
	e.mu.Lock()
	armed := e.dst != nil
	e.mu.Unlock()
	if !armed {
		return errors.New("transfer not armed")
	}

	select {
	case e.kick <- struct{}{}:
	default:
		// a kick is already pending; one wake-up serves both
	}
	return nil
}

// Converter returns a Converter that triggers this engine. It is the wiring
// for hardware whose conversions are read synchronously by the engine's
// Source, where "begin conversion" and "start transfer" are the same act.
func (e *Engine) Converter() Converter {
	return engineConverter{e}
}

type engineConverter struct {
	e *Engine
}

func (c engineConverter) Begin() error { return c.e.Trigger() }

// Stop permanently shuts the engine down.
func (e *Engine) Stop() {
	e.once.Do(func() { close(e.stop) })
}

// Run services triggers until Stop. It is the producer context: completion
// callbacks run on this goroutine.
func (e *Engine) Run() {
	for {
		select {
		case <-e.stop:
			return
		case <-e.kick:
		}

		for {
			e.mu.Lock()
			dst, c := e.dst, e.completer
			e.mu.Unlock()
			if dst == nil || c == nil {
				break
			}

			v, err := e.src()
			if err != nil {
				e.Halt()
				c.OnTransferFault(err)
				break
			}
			dst.Store(uint32(v))

			e.mu.Lock()
			circular := e.left < 0
			if e.left > 0 {
				e.left--
				if e.left == 0 {
					e.dst = nil
				}
			}
			e.mu.Unlock()

			c.OnConversionComplete()

			if !circular {
				break
			}
			if e.interval > 0 {
				select {
				case <-e.stop:
					return
				case <-time.After(e.interval):
				}
			}
		}
	}
}
