package controller

import (
	"io"

	"github.com/juju/errors"
	"go.bug.st/serial"
)

// OpenPort opens the station's serial console.
func OpenPort(cfg Config) (io.ReadWriteCloser, error) {
	if cfg.SerialPort == "" {
		return nil, errors.New("no serial port configured (set serial_port or STATION_PORT)")
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
	}
	port, err := serial.Open(cfg.SerialPort, mode)
	if err != nil {
		return nil, errors.Annotatef(err, "opening serial port %s", cfg.SerialPort)
	}
	return port, nil
}
