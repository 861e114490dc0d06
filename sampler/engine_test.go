package sampler

import (
	"errors"
	"testing"
	"time"

	"github.com/acmurray/weatherstation"
)

// sequenceSource replays values in order, then repeats the last one.
type sequenceSource struct {
	values []uint16
	errAt  int // 1-based read index that fails; 0 = never
	reads  int
	err    error
}

func (s *sequenceSource) read() (uint16, error) {
	s.reads++
	if s.errAt != 0 && s.reads >= s.errAt {
		return 0, s.err
	}
	i := s.reads - 1
	if i >= len(s.values) {
		i = len(s.values) - 1
	}
	return s.values[i], nil
}

func consumeOne(t *testing.T, s *Sampler) Result {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		res, err := s.PollAndConsume()
		if errors.Is(err, ErrNotReady) {
			time.Sleep(time.Millisecond)
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return res
	}
	t.Fatal("timed out waiting for a sample")
	return Result{}
}

func TestEngineOneShotPipeline(t *testing.T) {
	src := &sequenceSource{values: []uint16{0, 4095, 2048}}
	engine := NewEngine(src.read, 0)
	go engine.Run()
	defer engine.Stop()

	s, err := New(Config{
		Converter: engine.Converter(),
		Transfer:  engine,
		Vref:      3.3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.StartConversion(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []uint16{0, 4095, 2048}
	for i, e := range expected {
		res := consumeOne(t, s)
		if res.Sample != e {
			t.Errorf("step %d: expected %d, got %d", i, e, res.Sample)
		}
	}
}

func TestEngineContinuousPipeline(t *testing.T) {
	src := &sequenceSource{values: []uint16{123}}
	engine := NewEngine(src.read, time.Millisecond)
	go engine.Run()
	defer engine.Stop()

	s, err := New(Config{
		Converter: engine.Converter(),
		Transfer:  engine,
		Mode:      weatherstation.StreamModeContinuous,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.StartConversion(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// multiple consumptions without any re-arming
	for range 3 {
		res := consumeOne(t, s)
		if res.Sample != 123 {
			t.Errorf("expected 123, got %d", res.Sample)
		}
	}
}

func TestEngineFaultPropagates(t *testing.T) {
	src := &sequenceSource{errAt: 1, err: errors.New("converter hung")}
	engine := NewEngine(src.read, 0)
	go engine.Run()
	defer engine.Stop()

	s, err := New(Config{
		Converter: engine.Converter(),
		Transfer:  engine,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.StartConversion(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var fault *FaultError
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, err := s.PollAndConsume()
		if errors.Is(err, ErrNotReady) {
			time.Sleep(time.Millisecond)
			continue
		}
		if !errors.As(err, &fault) {
			t.Fatalf("expected FaultError, got %v", err)
		}
		return
	}
	t.Fatal("timed out waiting for the fault")
}

func TestEngineTriggerWithoutArm(t *testing.T) {
	engine := NewEngine(func() (uint16, error) { return 0, nil }, 0)
	if err := engine.Trigger(); err == nil {
		t.Error("expected error triggering an unarmed engine")
	}
}
