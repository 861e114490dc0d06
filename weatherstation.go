package weatherstation

// Shared definitions for the station firmware and the host-side daemon.

const TerminationChar = 0x04 // ascii EOT (End of Transmission)

// DefaultBaudRate is the serial speed used by the firmware's USB CDC console.
const DefaultBaudRate = 115200

const (
	// Resolution is the sample width of the wind vane converter in bits.
	Resolution = 12

	// MaxCode is the largest code the converter can produce.
	MaxCode = 1<<Resolution - 1

	// DefaultVref is the reference voltage corresponding to MaxCode.
	DefaultVref = 3.3
)

// Command flags understood by the firmware's serial console. The firmware and
// the host controller both refer to these so the two sides cannot drift.
const (
	CmdReadNow   = 'R' // trigger one measurement immediately
	CmdSetPeriod = 'P' // set the sampling period, two digits of seconds
	CmdStream    = 'S' // input '0'/'1': stop/start periodic streaming
	CmdDebug     = 'D' // print firmware state
	CmdVerbose   = 'V' // enable verbose firmware output
	CmdHelp      = 'H' // list available commands
)

// StreamMode selects how the transfer mechanism is re-armed between samples.
type StreamMode int

const (
	StreamModeUnknown StreamMode = iota
	// StreamModeOneShot halts the transfer after every completed conversion
	// and re-arms only when the previous sample has been consumed.
	StreamModeOneShot
	// StreamModeContinuous leaves the transfer armed so the sample slot is
	// continuously overwritten.
	StreamModeContinuous
)

func (m StreamMode) String() string {
	switch m {
	case StreamModeOneShot:
		return "OneShot"
	case StreamModeContinuous:
		return "Continuous"
	default:
		fallthrough
	case StreamModeUnknown:
		return "Unknown"
	}
}
