package commands

import (
	"errors"

	"github.com/acmurray/weatherstation"
)

type Command struct {
	Flag        byte
	InputSize   uint
	Run         func(Station, []byte) error
	Description string
}

// Station is used to control a weather station device
type Station interface {
	ReadNow()
	SetPeriod(uint)
	Stream(bool)
	Debug()
	Verbose()

	// I/O
	ReadByte() (byte, error)
}

var (
	ReadNowCommand = &Command{
		Flag:      weatherstation.CmdReadNow,
		InputSize: 0,
		Run: func(s Station, b []byte) error {
			s.ReadNow()
			return nil
		},
		Description: "Take a single measurement immediately.",
	}
	SetPeriodCommand = &Command{
		Flag:      weatherstation.CmdSetPeriod,
		InputSize: 2,
		Run: func(s Station, b []byte) error {
			tens := digit(b[0])
			ones := digit(b[1])
			if tens < 0 || ones < 0 {
				return errors.New("invalid input: " + string(b))
			}
			seconds := uint(tens*10 + ones)
			if seconds < 1 || seconds > 99 {
				return errors.New("invalid period: " + string(b))
			}
			s.SetPeriod(seconds)
			return nil
		},
		Description: "Set the measurement period in seconds. Input: two digits, 01-99.",
	}
	StreamCommand = &Command{
		Flag:      weatherstation.CmdStream,
		InputSize: 1,
		Run: func(s Station, b []byte) error {
			switch b[0] {
			case '0':
				s.Stream(false)
			case '1':
				s.Stream(true)
			default:
				return errors.New("invalid input: " + string(b))
			}
			return nil
		},
		Description: "Start or stop periodic measurements. Input: '0' (stop) or '1' (start).",
	}
	DebugCommand = &Command{
		Flag:      weatherstation.CmdDebug,
		InputSize: 0,
		Run: func(s Station, b []byte) error {
			s.Debug()
			return nil
		},
		Description: "Print the current state.",
	}
	VerboseCommand = &Command{
		Flag:      weatherstation.CmdVerbose,
		InputSize: 0,
		Run: func(s Station, b []byte) error {
			s.Verbose()
			return nil
		},
		Description: "Enable verbose output.",
	}
	HelpCommand = &Command{
		Flag:        weatherstation.CmdHelp,
		InputSize:   0,
		Description: "Show all available commands and their descriptions.",
		Run: func(s Station, b []byte) error {
			println("Available Commands:")
			for _, cmd := range commands {
				println(string(cmd.Flag) + ": " + cmd.Description)
			}
			return nil
		},
	}
)

func digit(b byte) int {
	if b < '0' || b > '9' {
		return -1
	}
	return int(b - '0')
}

var commands = []*Command{
	ReadNowCommand,
	SetPeriodCommand,
	StreamCommand,
	DebugCommand,
	VerboseCommand,
}

func Run(s Station) {
	cmdMap := map[byte]*Command{
		HelpCommand.Flag: HelpCommand,
	}

	for _, cmd := range commands {
		cmdMap[cmd.Flag] = cmd
	}

	for {
		cmdIn, err := s.ReadByte()
		if err != nil {
			continue
		}

		cmd, ok := cmdMap[cmdIn]
		if !ok {
			continue
		}

		in := make([]byte, cmd.InputSize)
		for i := 0; i < int(cmd.InputSize); {
			b, err := s.ReadByte()
			if err != nil {
				continue
			}

			in[i] = b
			i++
		}

		err = cmd.Run(s, in)
		if err != nil {
			println("error:", err.Error())
		}
	}
}
