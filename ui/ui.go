// Package ui is a small desktop dashboard for the station: live readings,
// sampling controls and the firmware log.
package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"github.com/acmurray/weatherstation/station"
)

// StationUI shows the latest reading and sends commands back to the
// firmware. It also implements io.Writer so the controller's output can be
// teed into the log view.
type StationUI struct {
	store *station.Store

	logMtx   sync.Mutex
	logLines []string
}

func NewStationUI(store *station.Store) *StationUI {
	return &StationUI{store: store}
}

// Write collects controller/firmware output for the log accordion.
func (ui *StationUI) Write(p []byte) (int, error) {
	ui.logMtx.Lock()
	defer ui.logMtx.Unlock()

	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}
		ui.logLines = append(ui.logLines, line)
	}
	if len(ui.logLines) > 100 {
		ui.logLines = ui.logLines[len(ui.logLines)-100:]
	}
	return len(p), nil
}

func (ui *StationUI) logText() string {
	ui.logMtx.Lock()
	defer ui.logMtx.Unlock()
	return strings.Join(ui.logLines, "\n")
}

func createPeriodSlider(onSet func(float64)) (*fyne.Container, *widget.Slider) {
	defaultValue := 5.0
	valueLabel := widget.NewLabel(fmt.Sprintf("%.0fs", defaultValue))

	slider := widget.NewSlider(1, 60)
	slider.Step = 1
	slider.SetValue(defaultValue)
	slider.OnChanged = func(value float64) {
		valueLabel.SetText(fmt.Sprintf("%.0fs", value))
	}
	slider.OnChangeEnded = onSet

	c := container.NewVBox(
		container.NewGridWithColumns(2,
			widget.NewLabel("Period"),
			valueLabel,
		),
		slider,
	)

	return c, slider
}

func (ui *StationUI) createLogAccordion() *widget.Accordion {
	logContent := widget.NewLabel("")
	logScroll := container.NewVScroll(logContent)
	logScroll.SetMinSize(fyne.NewSize(300, 100))

	go func() {
		for range time.Tick(time.Second) {
			fyne.Do(func() {
				logContent.SetText(ui.logText())
			})
		}
	}()

	return widget.NewAccordion(
		widget.NewAccordionItem("Log", logScroll),
	)
}

// Run shows the dashboard and blocks until the window closes or the context
// is cancelled. Commands go to w, which is the firmware's serial console.
func (ui *StationUI) Run(ctx context.Context, w io.Writer) {
	application := app.New()
	window := application.NewWindow("Weather Station")

	commands := &commandWriter{writer: w}

	observedTimer := newTimer()
	waitForStart := make(chan struct{})
	observedTimer.Go(waitForStart)

	tempLabel := widget.NewLabel("--.- C")
	humLabel := widget.NewLabel("--.- %RH")
	pressLabel := widget.NewLabel("---- hPa")
	windLabel := widget.NewLabel("--.- km/h @ ---")

	readings := container.NewVBox(
		container.NewGridWithColumns(2, widget.NewLabel("Temperature"), tempLabel),
		container.NewGridWithColumns(2, widget.NewLabel("Humidity"), humLabel),
		container.NewGridWithColumns(2, widget.NewLabel("Pressure"), pressLabel),
		container.NewGridWithColumns(2, widget.NewLabel("Wind"), windLabel),
	)

	go func() {
		for range time.Tick(time.Second) {
			r, ok := ui.store.Latest()
			if !ok {
				continue
			}
			fyne.Do(func() {
				tempLabel.SetText(fmt.Sprintf("%.1f C", r.Temperature))
				humLabel.SetText(fmt.Sprintf("%.1f %%RH", r.Humidity))
				pressLabel.SetText(fmt.Sprintf("%.1f hPa", r.Pressure))
				windLabel.SetText(fmt.Sprintf("%.1f km/h @ %.0f", r.WindSpeed, r.WindDirection))
			})
		}
	}()

	streaming := false
	started := false
	var streamButton *widget.Button
	streamButton = widget.NewButton("Start Streaming", func() {
		streaming = !streaming
		commands.Stream(streaming)
		if streaming {
			if !started {
				started = true
				observedTimer.Set(time.Now())
				close(waitForStart)
			}
			streamButton.SetText("Stop Streaming")
		} else {
			streamButton.SetText("Start Streaming")
		}
	})

	readNowButton := widget.NewButton("Read Now", func() {
		commands.ReadNow()
	})

	periodContainer, _ := createPeriodSlider(func(v float64) {
		commands.SetPeriod(v)
	})

	content := container.NewVBox(
		container.NewHBox(
			container.NewPadded(observedTimer.text),
			layout.NewSpacer(),
			readNowButton,
		),
		readings,
		streamButton,
		periodContainer,
		ui.createLogAccordion(),
	)

	go func() {
		<-ctx.Done()
		fyne.Do(func() {
			application.Quit()
		})
	}()

	window.SetContent(content)
	window.Resize(fyne.NewSize(320, 320))
	window.ShowAndRun()
}
