// Package controller drives the station firmware from the host: it
// configures the sampling cadence over the serial console, turns the
// firmware's measurement frames into readings and fans them out to the
// latest-reading store, the MQTT publisher and the observation chart.
package controller

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"
	"github.com/juju/errors"

	"github.com/acmurray/weatherstation"
	"github.com/acmurray/weatherstation/chart"
	"github.com/acmurray/weatherstation/station"
)

// Publisher forwards each reading to an external sink, like an MQTT broker.
type Publisher interface {
	Publish(station.Reading) error
}

// Controller owns one station link. Run is the consumer loop; everything
// else is setup.
type Controller struct {
	cfg       Config
	store     *station.Store
	publisher Publisher
	chart     ChartClient

	lastGust time.Time
	windy    bool
}

// New validates the config and returns a Controller with no publisher and a
// no-op chart client.
func New(cfg Config, store *station.Store) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &Controller{
		cfg:   cfg,
		store: store,
		chart: noopChartClient{},
	}, nil
}

// UsePublisher attaches a reading sink.
func (c *Controller) UsePublisher(p Publisher) {
	c.publisher = p
}

// UseChartClient attaches an observation chart uploader.
func (c *Controller) UseChartClient(cc ChartClient) {
	c.chart = cc
}

// Run configures the firmware through w, then consumes measurement frames
// from r until the context is cancelled or r is closed. During quiet spells
// longer than the timeout window it nudges the firmware with a read-now
// command instead of stalling forever.
func (c *Controller) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	probes, err := chart.ParseProbes(c.cfg.ChartProbes)
	if err != nil {
		return errors.Annotatef(err, "invalid chart probes")
	}
	if _, err := c.chart.CreateSession(ctx, c.cfg.DeviceID, probes); err != nil {
		glog.Errorf("Failed to create chart session: %s", err)
	} else if err := c.chart.SetStartTime(ctx, time.Now()); err != nil {
		glog.Errorf("Failed to set chart start time: %s", err)
	} else if err := c.chart.AddStage(ctx, "calm", time.Now()); err != nil {
		glog.Errorf("Failed to open chart stage: %s", err)
	}

	fmt.Fprintf(w, "%c%02d\n", weatherstation.CmdSetPeriod, c.cfg.PeriodSeconds)
	fmt.Fprintf(w, "%c1\n", weatherstation.CmdStream)

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				scanErr <- nil
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	// the firmware times out individual conversions; this window catches a
	// dead link or a wedged board
	window := c.cfg.LinkWindow()
	watchdog := time.NewTimer(window)
	defer watchdog.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(w, "%c0\n", weatherstation.CmdStream)
			c.finishSession()
			return nil

		case line, ok := <-lines:
			if !ok {
				c.finishSession()
				if err := <-scanErr; err != nil {
					return errors.Annotatef(err, "reading from station")
				}
				return nil
			}
			resetTimer(watchdog, window)
			c.handleLine(ctx, line)

		case <-watchdog.C:
			glog.Warningf("No frame from %s in %v, requesting a sample", c.cfg.DeviceID, window)
			fmt.Fprintf(w, "%c\n", weatherstation.CmdReadNow)
			watchdog.Reset(window)
		}
	}
}

func (c *Controller) handleLine(ctx context.Context, line string) {
	frame, err := weatherstation.ParseFrame(line)
	if err != nil {
		if line != "" {
			glog.V(1).Infof("firmware: %s", line)
		}
		return
	}

	reading := station.FromFrame(c.cfg.DeviceID, frame, c.cfg.Vref, c.cfg.Period(), time.Now())
	c.store.Update(reading)
	glog.V(1).Infof("%s: %.1fC %.0f%%RH %.1fhPa wind %.1fkm/h @%.1f",
		reading.DeviceID, reading.Temperature, reading.Humidity,
		reading.Pressure, reading.WindSpeed, reading.WindDirection)

	if c.publisher != nil {
		if err := c.publisher.Publish(reading); err != nil {
			glog.Errorf("Failed to publish reading: %s", err)
		}
	}

	if reading.WindSpeed >= c.cfg.GustThresholdKPH {
		if !c.windy {
			c.windy = true
			if err := c.chart.AddStage(ctx, "windy", time.Now()); err != nil {
				glog.Errorf("Failed to open windy stage: %s", err)
			}
		}
		if time.Since(c.lastGust) > time.Minute {
			c.lastGust = time.Now()
			note := fmt.Sprintf("gust %.1f km/h from %.1f", reading.WindSpeed, reading.WindDirection)
			if err := c.chart.AddEvent(ctx, note, time.Now()); err != nil {
				glog.Errorf("Failed to record gust event: %s", err)
			}
		}
	} else if c.windy {
		c.windy = false
		if err := c.chart.AddStage(ctx, "calm", time.Now()); err != nil {
			glog.Errorf("Failed to open calm stage: %s", err)
		}
	}
}

func (c *Controller) finishSession() {
	// session teardown should survive a cancelled run context
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.chart.Done(ctx); err != nil {
		glog.Errorf("Failed to finish chart session: %s", err)
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
