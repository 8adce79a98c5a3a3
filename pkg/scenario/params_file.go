package scenario

import (
	"fmt"
	"strings"

	"github.com/google/shlex"
)

// ParamLines splits a command line into one "--flag value" entry per line,
// re-quoting values that contain spaces.
func ParamLines(params string) ([]string, error) {
	tokens, err := shlex.Split(params)
	if err != nil {
		return nil, fmt.Errorf("split params %q: %w", params, err)
	}

	var lines []string
	for _, tok := range tokens {
		if strings.HasPrefix(tok, "--") || len(lines) == 0 {
			lines = append(lines, tok)
			continue
		}
		lines[len(lines)-1] += " " + quote(tok)
	}
	return lines, nil
}

// FormatParamsFile renders params the way they are stored on disk.
func FormatParamsFile(params string) (string, error) {
	lines, err := ParamLines(params)
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "\n") + "\n", nil
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t'\"()=,") {
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
	}
	return s
}
