package bench

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// timingPattern matches the mean duration the benchmark binary prints.
var timingPattern = regexp.MustCompile(`(\d+\.\d+)seconds`)

// TimingParseError is returned when a benchmark run printed no timing.
type TimingParseError struct {
	Command string
	Output  string
}

func (e *TimingParseError) Error() string {
	out := strings.TrimSpace(e.Output)
	if len(out) > 200 {
		out = out[:200] + "..."
	}
	return fmt.Sprintf("no <number>seconds timing in output of %q: %q", e.Command, out)
}

// ParseTiming extracts the first timing printed by command. The number is
// kept as printed.
func ParseTiming(command, output string) (float64, error) {
	m := timingPattern.FindStringSubmatch(output)
	if m == nil {
		return 0, &TimingParseError{Command: command, Output: output}
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("parse timing %q: %w", m[1], err)
	}
	return v, nil
}
