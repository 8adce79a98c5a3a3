package profile

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/awalterschulze/gographviz"
)

// Function is one node of a gprof2dot call graph.
type Function struct {
	Name  string  `yaml:"name"`
	Total float64 `yaml:"total_percent"` // inclusive cost
	Self  float64 `yaml:"self_percent"`
	Calls string  `yaml:"calls,omitempty"`
}

// Summary condenses a call graph into the numbers shown in reports.
type Summary struct {
	Nodes   int        `yaml:"nodes"`
	Edges   int        `yaml:"edges"`
	Hottest []Function `yaml:"hottest"`
}

// Top returns the hottest function name, or "" when the graph was empty.
func (s *Summary) Top() string {
	if s == nil || len(s.Hottest) == 0 {
		return ""
	}
	return s.Hottest[0].Name
}

// SummarizeFile reads a gprof2dot DOT file and keeps the top n functions.
func SummarizeFile(path string, n int) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	summary, err := Summarize(data, n)
	if err != nil {
		return nil, fmt.Errorf("summarize %s: %w", path, err)
	}
	return summary, nil
}

// Summarize parses DOT source produced by gprof2dot. Node labels look like
// "name\n45.21%\n(3.01%)\n2×"; nodes without a percentage are ignored.
func Summarize(dot []byte, n int) (*Summary, error) {
	ast, err := gographviz.Parse(dot)
	if err != nil {
		return nil, fmt.Errorf("parse dot: %w", err)
	}

	graph := gographviz.NewGraph()
	if err := gographviz.Analyse(ast, graph); err != nil {
		return nil, fmt.Errorf("analyse dot: %w", err)
	}

	summary := &Summary{
		Nodes: len(graph.Nodes.Nodes),
		Edges: len(graph.Edges.Edges),
	}

	var functions []Function
	for _, node := range graph.Nodes.Nodes {
		fn, ok := parseLabel(node.Attrs[gographviz.Attr("label")])
		if !ok {
			continue
		}
		functions = append(functions, fn)
	}

	slices.SortStableFunc(functions, func(a, b Function) int {
		switch {
		case a.Total > b.Total:
			return -1
		case a.Total < b.Total:
			return 1
		default:
			return strings.Compare(a.Name, b.Name)
		}
	})

	if n > 0 && len(functions) > n {
		functions = functions[:n]
	}
	summary.Hottest = functions
	return summary, nil
}

func parseLabel(raw string) (Function, bool) {
	label := strings.TrimSuffix(strings.TrimPrefix(raw, `"`), `"`)
	parts := strings.Split(label, `\n`)
	if len(parts) < 2 {
		return Function{}, false
	}

	total, err := parsePercent(parts[1])
	if err != nil {
		return Function{}, false
	}

	fn := Function{
		Name:  parts[0],
		Total: total,
	}
	if len(parts) > 2 {
		if self, err := parsePercent(strings.Trim(parts[2], "()")); err == nil {
			fn.Self = self
		}
	}
	if len(parts) > 3 {
		fn.Calls = strings.TrimSpace(parts[3])
	}
	return fn, true
}

func parsePercent(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"), 64)
}
