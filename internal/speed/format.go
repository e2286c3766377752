/*
PURPOSE:
  Converts a raw measurement (bytes + elapsed time) into a calibrated,
  human-readable speed string such as "94.2 Mbps" or "11.78 MiBps".

REQUIREMENTS:
  User-specified:
  - Bits or bytes per second.
  - SI (1000) and IEC (1024) prefix ladders.
  - Two decimal places, trailing zeros trimmed.

  Implementation-discovered:
  - Float rounding misplaces the boundary cases (999.995 must round up),
    so all arithmetic is done in decimal.
  - A value that rounds up to the divisor must move to the next prefix
    ("1 MBps", never "1000 KBps").

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine (Runner), internal/output
  - Depends on: internal/model, github.com/shopspring/decimal

ERROR HANDLING:
  - ErrZeroDuration when elapsed <= 0.
  - ErrUnknownUnit for an out-of-range unit or unit system.

IMPLEMENTATION RULES:
  - Pure function. No logging, no globals besides the ladders.

USAGE:
  s, err := speed.Format(res, model.BitsPerSecond, model.SI)

SELF-HEALING INSTRUCTIONS:
  - If a boundary case regresses, check decimal.Round semantics
    (half away from zero) before touching the ladder walk.

RELATED FILES:
  - internal/speed/format_test.go

MAINTENANCE:
  - Add a ladder entry here if exa-scale links ever show up.
*/

package speed

import (
	"errors"
	"fmt"
	"time"

	"github.com/daryltucker/speedtest-runner/internal/model"
	"github.com/shopspring/decimal"
)

var (
	// ErrZeroDuration is returned for results that carry no elapsed time.
	ErrZeroDuration = errors.New("elapsed time must be greater than zero")
	// ErrUnknownUnit is returned for a unit or unit system outside the known set.
	ErrUnknownUnit = errors.New("unknown speed unit")
)

var ladders = map[model.UnitSystem]map[model.SpeedUnit][]string{
	model.SI: {
		model.BitsPerSecond:  {"bps", "Kbps", "Mbps", "Gbps", "Tbps", "Pbps"},
		model.BytesPerSecond: {"Bps", "KBps", "MBps", "GBps", "TBps", "PBps"},
	},
	model.IEC: {
		model.BitsPerSecond:  {"bps", "Kibps", "Mibps", "Gibps", "Tibps", "Pibps"},
		model.BytesPerSecond: {"Bps", "KiBps", "MiBps", "GiBps", "TiBps", "PiBps"},
	},
}

const decimals = 2

var nanosPerSecond = decimal.NewFromInt(int64(time.Second))

// PerSecond returns the exact throughput of res in the given unit (bits or
// bytes per second).
func PerSecond(res model.Result, unit model.SpeedUnit) (decimal.Decimal, error) {
	if res.Elapsed <= 0 {
		return decimal.Zero, ErrZeroDuration
	}

	amount := decimal.NewFromInt(res.Bytes)
	switch unit {
	case model.BitsPerSecond:
		amount = amount.Mul(decimal.NewFromInt(8))
	case model.BytesPerSecond:
	default:
		return decimal.Zero, fmt.Errorf("%w: %v", ErrUnknownUnit, unit)
	}

	return amount.Mul(nanosPerSecond).Div(decimal.NewFromInt(int64(res.Elapsed))), nil
}

// Format renders res as a speed string in the requested unit and system.
func Format(res model.Result, unit model.SpeedUnit, system model.UnitSystem) (string, error) {
	ladder, ok := ladders[system][unit]
	if !ok {
		return "", fmt.Errorf("%w: %v/%v", ErrUnknownUnit, unit, system)
	}

	value, err := PerSecond(res, unit)
	if err != nil {
		return "", err
	}

	divisor := decimal.NewFromInt(system.Divisor())
	tier := 0
	for tier < len(ladder)-1 && value.GreaterThanOrEqual(divisor) {
		value = value.Div(divisor)
		tier++
	}

	rounded := value.Round(decimals)
	if tier < len(ladder)-1 && rounded.GreaterThanOrEqual(divisor) {
		tier++
		rounded = value.Div(divisor).Round(decimals)
	}

	return rounded.String() + " " + ladder[tier], nil
}
