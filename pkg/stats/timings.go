package stats

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// WriteTimings stores one execution time per line.
func WriteTimings(path string, times []float64) error {
	var b bytes.Buffer
	for _, t := range times {
		b.WriteString(strconv.FormatFloat(t, 'f', -1, 64))
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, b.Bytes(), 0644); err != nil {
		return fmt.Errorf("write timings: %w", err)
	}
	return nil
}

// ReadTimings loads a file written by WriteTimings. Blank lines are skipped.
func ReadTimings(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var times []float64
	sc := bufio.NewScanner(f)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		times = append(times, v)
	}
	return times, sc.Err()
}
