package controller

import (
	"context"
	"time"

	"github.com/acmurray/weatherstation/chart"
)

// ChartClient uploads observation sessions; the real implementation is
// chart.Client. The controller works without one.
type ChartClient interface {
	CreateSession(ctx context.Context, stationName string, probes chart.Probes) (string, error)
	SetStartTime(ctx context.Context, startTime time.Time) error
	AddEvent(ctx context.Context, note string, now time.Time) error
	AddStage(ctx context.Context, name string, now time.Time) error
	Done(ctx context.Context) error
}

type noopChartClient struct{}

var _ ChartClient = noopChartClient{}

// AddEvent implements ChartClient.
func (n noopChartClient) AddEvent(ctx context.Context, note string, now time.Time) error {
	return nil
}

// AddStage implements ChartClient.
func (n noopChartClient) AddStage(ctx context.Context, name string, now time.Time) error {
	return nil
}

// CreateSession implements ChartClient.
func (n noopChartClient) CreateSession(ctx context.Context, stationName string, probes chart.Probes) (string, error) {
	return "", nil
}

// Done implements ChartClient.
func (n noopChartClient) Done(ctx context.Context) error {
	return nil
}

// SetStartTime implements ChartClient.
func (n noopChartClient) SetStartTime(ctx context.Context, startTime time.Time) error {
	return nil
}
