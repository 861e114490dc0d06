package main

import (
	"context"
	goflag "flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
	flag "github.com/spf13/pflag"

	"github.com/acmurray/weatherstation/api"
	"github.com/acmurray/weatherstation/chart"
	"github.com/acmurray/weatherstation/controller"
	"github.com/acmurray/weatherstation/mqtt"
	"github.com/acmurray/weatherstation/station"
	"github.com/acmurray/weatherstation/ui"
)

var (
	configPath = flag.String("config", "", "Path to a YAML config file")
	port       = flag.String("port", "", "Serial port where the station is connected")
	deviceID   = flag.String("device-id", "", "Device ID reported in readings")
	httpAddr   = flag.String("http", "", "HTTP listen address")
	brokerURL  = flag.String("broker", "", "MQTT broker URL, e.g. mqtt://host:1883")
	chartAddr  = flag.String("chart", "", "Observation chart server address")
	period     = flag.Int("period", 0, "Sampling period in seconds")
)

func main() {
	flag.CommandLine.AddGoFlagSet(goflag.CommandLine)
	flag.Parse()
	defer glog.Flush()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		glog.Infof("Error: %+v", err)
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// loadConfig layers the YAML file, STATION_* environment variables and
// command-line flags, in that order.
func loadConfig() (controller.Config, error) {
	cfg, err := controller.Load(*configPath)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv()

	if *port != "" {
		cfg.SerialPort = *port
	}
	if *deviceID != "" {
		cfg.DeviceID = *deviceID
	}
	if *httpAddr != "" {
		cfg.HTTPAddr = *httpAddr
	}
	if *brokerURL != "" {
		cfg.BrokerURL = *brokerURL
	}
	if *chartAddr != "" {
		cfg.ChartAddr = *chartAddr
	}
	if *period != 0 {
		cfg.PeriodSeconds = *period
	}

	return cfg, cfg.Validate()
}

func run(cfg controller.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := station.NewStore()

	ctrl, err := controller.New(cfg, store)
	if err != nil {
		return err
	}

	if cfg.BrokerURL != "" {
		pub, err := mqtt.Connect(cfg.BrokerURL, "", cfg.DeviceID)
		if err != nil {
			return err
		}
		defer pub.Close()
		ctrl.UsePublisher(pub)
	}

	if cfg.ChartAddr != "" {
		ctrl.UseChartClient(chart.NewClient(cfg.ChartAddr))
	}

	if cfg.HTTPAddr != "" {
		srv := &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: api.NewHandler(store, cfg.DeviceID),
		}
		go func() {
			glog.Infof("HTTP server listening on %s", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				glog.Errorf("HTTP server: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	sp, err := controller.OpenPort(cfg)
	if err != nil {
		return err
	}
	defer sp.Close()

	if os.Getenv("ENABLE_UI") == "true" {
		return runUI(ctx, stop, ctrl, store, sp)
	}

	return ctrl.Run(ctx, sp, sp)
}

func runUI(ctx context.Context, stop func(), ctrl *controller.Controller, store *station.Store, sp io.ReadWriteCloser) error {
	// commands typed on Stdin still reach the station
	go func() {
		io.Copy(sp, os.Stdin)
	}()

	stationUI := ui.NewStationUI(store)

	go func() {
		// the UI's log pane sees every line the station sends
		err := ctrl.Run(ctx, io.TeeReader(sp, stationUI), sp)
		if err != nil {
			glog.Errorf("controller: %v", err)
		}
	}()

	stationUI.Run(ctx, sp)
	stop()
	return nil
}
