package controller

import (
	"bytes"
	"context"
	"os"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/acmurray/weatherstation/chart"
	"github.com/acmurray/weatherstation/station"
)

type fakePublisher struct {
	published []station.Reading
	err       error
}

func (p *fakePublisher) Publish(r station.Reading) error {
	p.published = append(p.published, r)
	return p.err
}

type fakeChartClient struct {
	sessions []string
	events   []string
	stages   []string
	started  bool
	done     bool
}

func (c *fakeChartClient) CreateSession(ctx context.Context, name string, probes chart.Probes) (string, error) {
	c.sessions = append(c.sessions, name)
	return "session-id", nil
}

func (c *fakeChartClient) SetStartTime(ctx context.Context, t time.Time) error {
	c.started = true
	return nil
}

func (c *fakeChartClient) AddEvent(ctx context.Context, note string, now time.Time) error {
	c.events = append(c.events, note)
	return nil
}

func (c *fakeChartClient) AddStage(ctx context.Context, name string, now time.Time) error {
	c.stages = append(c.stages, name)
	return nil
}

func (c *fakeChartClient) Done(ctx context.Context) error {
	c.done = true
	return nil
}

func newTestController(t *testing.T, cfg Config) (*Controller, *station.Store, *fakePublisher, *fakeChartClient) {
	t.Helper()
	store := station.NewStore()
	c, err := New(cfg, store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pub := &fakePublisher{}
	cc := &fakeChartClient{}
	c.UsePublisher(pub)
	c.UseChartClient(cc)
	return c, store, pub, cc
}

func TestRunConsumesFrames(t *testing.T) {
	c, store, pub, cc := newTestController(t, DefaultConfig())

	input := strings.Join([]string{
		"R 1000 4095 5 21340 4512 101325000",
		"firmware chatter to ignore",
		"R 6000 0 0 20000 4000 100000000",
		"",
	}, "\n")

	var out bytes.Buffer
	err := c.Run(context.Background(), strings.NewReader(input), &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(pub.published) != 2 {
		t.Fatalf("expected 2 published readings, got %d", len(pub.published))
	}

	latest, ok := store.Latest()
	if !ok {
		t.Fatal("expected a latest reading")
	}
	if latest.Temperature != 20.0 {
		t.Errorf("expected latest temperature 20.0, got %v", latest.Temperature)
	}

	written := out.String()
	if !strings.Contains(written, "P05\n") {
		t.Errorf("expected period command in output, got %q", written)
	}
	if !strings.Contains(written, "S1\n") {
		t.Errorf("expected stream-on command in output, got %q", written)
	}

	if len(cc.sessions) != 1 || !cc.started || !cc.done {
		t.Errorf("expected chart session lifecycle, got %+v", cc)
	}
	// calm throughout, so only the opening stage
	if len(cc.stages) != 1 || cc.stages[0] != "calm" {
		t.Errorf("expected a single calm stage, got %v", cc.stages)
	}
}

func TestRunRecordsGustEventsAndStages(t *testing.T) {
	c, _, _, cc := newTestController(t, DefaultConfig())

	// 100 pulses over the 5s window = 20Hz = 48 km/h, above the 30 km/h
	// threshold; the second frame drops back below it
	input := strings.Join([]string{
		"R 1000 2048 100 21000 4500 101325000",
		"R 6000 2048 0 21000 4500 101325000",
		"",
	}, "\n")

	var out bytes.Buffer
	if err := c.Run(context.Background(), strings.NewReader(input), &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cc.events) != 1 {
		t.Fatalf("expected one gust event, got %v", cc.events)
	}
	if !strings.Contains(cc.events[0], "gust") {
		t.Errorf("unexpected event note: %q", cc.events[0])
	}

	expected := []string{"calm", "windy", "calm"}
	if len(cc.stages) != len(expected) {
		t.Fatalf("expected stages %v, got %v", expected, cc.stages)
	}
	for i, name := range expected {
		if cc.stages[i] != name {
			t.Errorf("stage %d: expected %q, got %q", i, name, cc.stages[i])
		}
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	c, _, _, cc := newTestController(t, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// a blocked reader: cancellation must still end the run
	w := &bytes.Buffer{}

	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx, blockingReader{}, w)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancellation")
	}

	if !cc.done {
		t.Error("expected chart session to be finished")
	}
	if !strings.Contains(w.String(), "S0\n") {
		t.Errorf("expected stream-off command, got %q", w.String())
	}
}

// blockingReader never returns data and never closes.
type blockingReader struct{}

func (blockingReader) Read(p []byte) (int, error) {
	time.Sleep(10 * time.Second)
	return 0, nil
}

// frameStream produces measurement frames forever.
type frameStream struct{}

func (frameStream) Read(p []byte) (int, error) {
	return copy(p, "R 1000 2048 0 21000 4500 101325000\n"), nil
}

// syncBuffer guards a bytes.Buffer written from another goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunWatchdogRequestsSample(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LinkTimeout = 20 * time.Millisecond
	c, _, _, _ := newTestController(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx, blockingReader{}, w)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(w.String(), "R\n") {
		if time.Now().After(deadline) {
			t.Fatalf("expected a read-now nudge on a quiet link, got %q", w.String())
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunReleasesScannerOnCancel(t *testing.T) {
	c, _, _, _ := newTestController(t, DefaultConfig())

	before := runtime.NumGoroutine()

	ctx, cancel := context.WithCancel(context.Background())
	w := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx, frameStream{}, w)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancellation")
	}

	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > before {
		if time.Now().After(deadline) {
			t.Fatalf("expected the scanner goroutine to exit: %d goroutines, started with %d",
				runtime.NumGoroutine(), before)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"Defaults", func(c *Config) {}, false},
		{"Continuous", func(c *Config) { c.Mode = "continuous" }, false},
		{"MissingDeviceID", func(c *Config) { c.DeviceID = "" }, true},
		{"PeriodTooSmall", func(c *Config) { c.PeriodSeconds = 0 }, true},
		{"PeriodTooLarge", func(c *Config) { c.PeriodSeconds = 100 }, true},
		{"NegativeVref", func(c *Config) { c.Vref = -1 }, true},
		{"BadMode", func(c *Config) { c.Mode = "burst" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected an error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestConfigApplyEnv(t *testing.T) {
	t.Setenv("STATION_DEVICE_ID", "rooftop")
	t.Setenv("STATION_PORT", "/dev/ttyACM0")
	t.Setenv("STATION_PERIOD_SECONDS", "10")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	if cfg.DeviceID != "rooftop" {
		t.Errorf("unexpected device id: %s", cfg.DeviceID)
	}
	if cfg.SerialPort != "/dev/ttyACM0" {
		t.Errorf("unexpected serial port: %s", cfg.SerialPort)
	}
	if cfg.PeriodSeconds != 10 {
		t.Errorf("unexpected period: %d", cfg.PeriodSeconds)
	}
}

func TestConfigLoad(t *testing.T) {
	path := t.TempDir() + "/config.yml"
	raw := "device_id: backyard\nserial_port: /dev/ttyACM1\nperiod_seconds: 15\nmode: continuous\n"
	if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DeviceID != "backyard" || cfg.PeriodSeconds != 15 || cfg.Mode != "continuous" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	// untouched values keep their defaults
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("expected default http_addr, got %s", cfg.HTTPAddr)
	}
}
