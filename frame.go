package weatherstation

import (
	"errors"
	"strconv"
	"strings"
)

// FramePrefix marks a measurement line emitted by the firmware. Any line not
// starting with it is firmware chatter and can be ignored by the host.
const FramePrefix = "R"

// Frame is one raw measurement line sent from the firmware to the host:
//
//	R <millis> <vane> <pulses> <temp> <hum> <press>
//
// Values are integers in the units the sensors produce them: vane is the raw
// converter code (0..MaxCode), temp is milli-degrees Celsius, hum is
// hundredths of %RH and press is milli-Pascals. Scaling to floating point
// happens on the host so the firmware never needs float formatting.
type Frame struct {
	Millis uint32
	Vane   uint16
	Pulses uint16
	Temp   int32
	Hum    int32
	Press  int32
}

var ErrBadFrame = errors.New("malformed measurement frame")

// ParseFrame parses one serial line into a Frame.
func ParseFrame(line string) (Frame, error) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) != 7 || fields[0] != FramePrefix {
		return Frame{}, ErrBadFrame
	}

	millis, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return Frame{}, ErrBadFrame
	}
	vane, err := strconv.ParseUint(fields[2], 10, 16)
	if err != nil {
		return Frame{}, ErrBadFrame
	}
	pulses, err := strconv.ParseUint(fields[3], 10, 16)
	if err != nil {
		return Frame{}, ErrBadFrame
	}

	var signed [3]int64
	for i, f := range fields[4:] {
		v, err := strconv.ParseInt(f, 10, 32)
		if err != nil {
			return Frame{}, ErrBadFrame
		}
		signed[i] = v
	}

	return Frame{
		Millis: uint32(millis),
		Vane:   uint16(vane),
		Pulses: uint16(pulses),
		Temp:   int32(signed[0]),
		Hum:    int32(signed[1]),
		Press:  int32(signed[2]),
	}, nil
}

// String renders the frame as a serial line, without the trailing newline.
// It only uses strconv so it stays cheap on the firmware side.
func (f Frame) String() string {
	var b strings.Builder
	b.WriteString(FramePrefix)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(uint64(f.Millis), 10))
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(uint64(f.Vane), 10))
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(uint64(f.Pulses), 10))
	b.WriteByte(' ')
	b.WriteString(strconv.FormatInt(int64(f.Temp), 10))
	b.WriteByte(' ')
	b.WriteString(strconv.FormatInt(int64(f.Hum), 10))
	b.WriteByte(' ')
	b.WriteString(strconv.FormatInt(int64(f.Press), 10))
	return b.String()
}
