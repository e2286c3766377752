package model

import (
	"fmt"
	"strings"
)

// SpeedUnit selects between bit and byte based throughput.
type SpeedUnit int

const (
	BitsPerSecond SpeedUnit = iota
	BytesPerSecond
)

// ParseSpeedUnit accepts the long enum name or a short alias, case-insensitive.
func ParseSpeedUnit(s string) (SpeedUnit, error) {
	s = strings.TrimSpace(s)
	// "Bps" is the only alias where case matters.
	if s == "Bps" {
		return BytesPerSecond, nil
	}
	switch strings.ToLower(s) {
	case "bitspersecond", "bits", "bit", "bps":
		return BitsPerSecond, nil
	case "bytespersecond", "bytes", "byte":
		return BytesPerSecond, nil
	}
	return 0, fmt.Errorf("unknown speed unit %q (want BitsPerSecond or BytesPerSecond)", s)
}

func (u SpeedUnit) String() string {
	switch u {
	case BitsPerSecond:
		return "BitsPerSecond"
	case BytesPerSecond:
		return "BytesPerSecond"
	}
	return fmt.Sprintf("SpeedUnit(%d)", int(u))
}

func (u SpeedUnit) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

func (u *SpeedUnit) UnmarshalText(b []byte) error {
	v, err := ParseSpeedUnit(string(b))
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// UnitSystem is the prefix ladder used for scaling: SI steps by 1000, IEC by 1024.
type UnitSystem int

const (
	SI UnitSystem = iota
	IEC
)

func ParseUnitSystem(s string) (UnitSystem, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SI":
		return SI, nil
	case "IEC":
		return IEC, nil
	}
	return 0, fmt.Errorf("unknown unit system %q (want SI or IEC)", s)
}

func (u UnitSystem) String() string {
	switch u {
	case SI:
		return "SI"
	case IEC:
		return "IEC"
	}
	return fmt.Sprintf("UnitSystem(%d)", int(u))
}

func (u UnitSystem) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

func (u *UnitSystem) UnmarshalText(b []byte) error {
	v, err := ParseUnitSystem(string(b))
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// Divisor returns the step between two prefixes, or 0 for an unknown system.
func (u UnitSystem) Divisor() int64 {
	switch u {
	case SI:
		return 1000
	case IEC:
		return 1024
	}
	return 0
}

// Verbosity controls how much the CLI prints besides the result line.
type Verbosity int

const (
	Minimal Verbosity = iota
	Normal
	Debug
)

func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal", "quiet":
		return Minimal, nil
	case "normal", "":
		return Normal, nil
	case "debug":
		return Debug, nil
	}
	return 0, fmt.Errorf("unknown verbosity %q (want minimal, normal or debug)", s)
}

func (v Verbosity) String() string {
	switch v {
	case Minimal:
		return "minimal"
	case Normal:
		return "normal"
	case Debug:
		return "debug"
	}
	return fmt.Sprintf("Verbosity(%d)", int(v))
}
