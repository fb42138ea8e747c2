package console

import (
	"strconv"

	"github.com/fatih/color"
)

// Available ANSI colors
var (
	Yellow = color.New(color.FgYellow).SprintFunc()
	Red    = color.New(color.FgRed).SprintFunc()
	Green  = color.New(color.FgGreen).SprintFunc()
	Cyan   = color.New(color.FgCyan).SprintFunc()
	White  = color.New(color.FgHiWhite).SprintFunc()
)

// Pressure colors a calibrated reading: blowing is green, drawing is cyan and
// readings at the upper bound are yellow.
func Pressure(value, upperBound int) string {
	s := strconv.Itoa(value)
	switch {
	case value >= upperBound:
		return Yellow(s)
	case value < 0:
		return Cyan(s)
	case value > 0:
		return Green(s)
	default:
		return White(s)
	}
}
