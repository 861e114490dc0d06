package controller

import (
	"os"
	"strconv"
	"time"

	"github.com/juju/errors"
	"gopkg.in/yaml.v2"

	"github.com/acmurray/weatherstation"
)

// Config has everything the host-side daemon needs to find and drive the
// station. Values come from an optional YAML file overlaid by STATION_*
// environment variables.
type Config struct {
	DeviceID      string  `yaml:"device_id"`
	SerialPort    string  `yaml:"serial_port"`
	BaudRate      int     `yaml:"baud_rate"`
	Vref          float64 `yaml:"vref"`
	PeriodSeconds int     `yaml:"period_seconds"`
	Mode          string  `yaml:"mode"` // "one-shot" or "continuous"

	HTTPAddr  string `yaml:"http_addr"`
	BrokerURL string `yaml:"broker_url"`

	ChartAddr   string `yaml:"chart_addr"`
	ChartProbes string `yaml:"chart_probes"`

	// GustThresholdKPH is the wind speed above which a gust event is
	// recorded on the observation chart.
	GustThresholdKPH float64 `yaml:"gust_threshold_kph"`

	// LinkTimeout overrides the window after which a quiet serial link is
	// nudged with a read-now command. Zero means four sampling periods.
	LinkTimeout time.Duration `yaml:"-"`
}

func DefaultConfig() Config {
	return Config{
		DeviceID:         "station-1",
		BaudRate:         weatherstation.DefaultBaudRate,
		Vref:             weatherstation.DefaultVref,
		PeriodSeconds:    5,
		Mode:             "one-shot",
		HTTPAddr:         ":8080",
		ChartProbes:      "1=Temperature,2=Wind",
		GustThresholdKPH: 30,
	}
}

// Load reads a YAML config file over the defaults. An empty path returns the
// defaults untouched.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Annotatef(err, "reading config %s", path)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, errors.Annotatef(err, "parsing config %s", path)
	}
	return cfg, nil
}

// ApplyEnv overlays STATION_* environment variables, which win over the file.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("STATION_DEVICE_ID"); v != "" {
		c.DeviceID = v
	}
	if v := os.Getenv("STATION_PORT"); v != "" {
		c.SerialPort = v
	}
	if v := os.Getenv("STATION_BAUD"); v != "" {
		if baud, err := strconv.Atoi(v); err == nil {
			c.BaudRate = baud
		}
	}
	if v := os.Getenv("STATION_PERIOD_SECONDS"); v != "" {
		if period, err := strconv.Atoi(v); err == nil {
			c.PeriodSeconds = period
		}
	}
	if v := os.Getenv("STATION_BROKER_URL"); v != "" {
		c.BrokerURL = v
	}
	if v := os.Getenv("STATION_CHART_ADDR"); v != "" {
		c.ChartAddr = v
	}
}

// Validate rejects configs the controller cannot run with.
func (c Config) Validate() error {
	if c.DeviceID == "" {
		return errors.New("device_id is required")
	}
	if c.PeriodSeconds < 1 || c.PeriodSeconds > 99 {
		return errors.Errorf("period_seconds must be 1..99, got %d", c.PeriodSeconds)
	}
	if c.Vref <= 0 {
		return errors.Errorf("vref must be positive, got %v", c.Vref)
	}
	if m := c.StreamMode(); m == weatherstation.StreamModeUnknown {
		return errors.Errorf("mode must be \"one-shot\" or \"continuous\", got %q", c.Mode)
	}
	return nil
}

// Period is the sampling cadence.
func (c Config) Period() time.Duration {
	return time.Duration(c.PeriodSeconds) * time.Second
}

// LinkWindow is the watchdog window for frame arrival.
func (c Config) LinkWindow() time.Duration {
	if c.LinkTimeout > 0 {
		return c.LinkTimeout
	}
	return 4 * c.Period()
}

// StreamMode maps the config string onto the shared mode enum.
func (c Config) StreamMode() weatherstation.StreamMode {
	switch c.Mode {
	case "one-shot", "":
		return weatherstation.StreamModeOneShot
	case "continuous":
		return weatherstation.StreamModeContinuous
	default:
		return weatherstation.StreamModeUnknown
	}
}
