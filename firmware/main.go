package main

import (
	"machine"
	"time"

	"github.com/acmurray/weatherstation/firmware/commands"
	"github.com/acmurray/weatherstation/firmware/device"
)

func main() {
	boardCfg := device.BoardConfig{
		VanePin:       machine.GP26,
		AnemometerPin: machine.GP22,
		LED:           machine.LED,
		I2C:           machine.I2C0,
		SDA:           machine.GP4,
		SCL:           machine.GP5,
	}

	samplingCfg := device.SamplingConfig{
		PeriodSeconds:     5,
		ConversionTimeout: 2 * time.Second,
	}

	d, err := device.New(boardCfg, samplingCfg)
	if err != nil {
		panic(err)
	}

	go d.Loop()

	commands.Run(d)
}
