package hmm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ErrFormat is returned for malformed model files.
var ErrFormat = errors.New("hmm: malformed model file")

// Load reads a text model file.
// Format lines:
// H states symbols
// T to_state from_state logp
// E state symbol logp   (symbol is 1-based)
// I state logp
// L state label
// Entries that are not listed are log(0) = -Inf.
func Load(path string) (*Model, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Read(file)
}

// Read parses a model in the Load format from r.
func Read(r io.Reader) (*Model, error) {
	var (
		trans, emis *mat.Dense
		init        []float64
		labels      []string
		n, m        int
	)

	lineNo := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Fields(line)
		kind := parts[0]

		if kind == "H" {
			if trans != nil {
				return nil, formatError(lineNo, "duplicate header")
			}
			if len(parts) != 3 {
				return nil, formatError(lineNo, "header wants 2 fields, got %d", len(parts)-1)
			}
			var err error
			if n, err = parseCount(parts[1]); err != nil {
				return nil, formatError(lineNo, "states: %v", err)
			}
			if m, err = parseCount(parts[2]); err != nil {
				return nil, formatError(lineNo, "symbols: %v", err)
			}
			trans = filled(n, n)
			emis = filled(n, m)
			init = make([]float64, n)
			for i := range init {
				init[i] = math.Inf(-1)
			}
			continue
		}
		if trans == nil {
			return nil, formatError(lineNo, "%q before header", kind)
		}

		switch kind {
		case "T":
			if len(parts) != 4 {
				return nil, formatError(lineNo, "transition wants 3 fields")
			}
			from, err1 := parseIndex(parts[1], 0, n)
			to, err2 := parseIndex(parts[2], 0, n)
			weight, err3 := strconv.ParseFloat(parts[3], 64)
			if err := errors.Join(err1, err2, err3); err != nil {
				return nil, formatError(lineNo, "%v", err)
			}
			trans.Set(from, to, weight)
		case "E":
			if len(parts) != 4 {
				return nil, formatError(lineNo, "emission wants 3 fields")
			}
			state, err1 := parseIndex(parts[1], 0, n)
			symbol, err2 := parseIndex(parts[2], 1, m+1)
			weight, err3 := strconv.ParseFloat(parts[3], 64)
			if err := errors.Join(err1, err2, err3); err != nil {
				return nil, formatError(lineNo, "%v", err)
			}
			emis.Set(state, symbol-1, weight)
		case "I":
			if len(parts) != 3 {
				return nil, formatError(lineNo, "initial wants 2 fields")
			}
			state, err1 := parseIndex(parts[1], 0, n)
			weight, err2 := strconv.ParseFloat(parts[2], 64)
			if err := errors.Join(err1, err2); err != nil {
				return nil, formatError(lineNo, "%v", err)
			}
			init[state] = weight
		case "L":
			if len(parts) != 3 {
				return nil, formatError(lineNo, "label wants 2 fields")
			}
			state, err := parseIndex(parts[1], 0, n)
			if err != nil {
				return nil, formatError(lineNo, "%v", err)
			}
			if labels == nil {
				labels = make([]string, n)
				for i := range labels {
					labels[i] = strconv.Itoa(i)
				}
			}
			labels[state] = parts[2]
		default:
			return nil, formatError(lineNo, "unknown directive %q", kind)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if trans == nil {
		return nil, fmt.Errorf("%w: missing header", ErrFormat)
	}

	var opts []Option
	if labels != nil {
		opts = append(opts, WithLabels(labels...))
	}
	return New(trans, emis, init, opts...)
}

// Save writes the model to a file.
func (m *Model) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := m.Write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Write writes the model in the Load format. Entries equal to -Inf are
// omitted.
func (m *Model) Write(w io.Writer) error {
	writer := bufio.NewWriter(w)
	n, k := m.NumStates(), m.NumSymbols()

	fmt.Fprintf(writer, "H %d %d\n", n, k)
	for i, l := range m.labels {
		fmt.Fprintf(writer, "L %d %s\n", i, l)
	}
	for i := 0; i < n; i++ {
		if v := m.initial[i]; !math.IsInf(v, -1) {
			fmt.Fprintf(writer, "I %d %s\n", i, formatFloat(v))
		}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if v := m.transitions.At(i, j); !math.IsInf(v, -1) {
				fmt.Fprintf(writer, "T %d %d %s\n", i, j, formatFloat(v))
			}
		}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			if v := m.emissions.At(i, j); !math.IsInf(v, -1) {
				fmt.Fprintf(writer, "E %d %d %s\n", i, j+1, formatFloat(v))
			}
		}
	}
	return writer.Flush()
}

func formatError(line int, format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrFormat, line, fmt.Sprintf(format, args...))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func filled(r, c int) *mat.Dense {
	data := make([]float64, r*c)
	for i := range data {
		data[i] = math.Inf(-1)
	}
	return mat.NewDense(r, c, data)
}

func parseCount(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if v < 1 {
		return 0, fmt.Errorf("count %d must be positive", v)
	}
	return v, nil
}

// parseIndex parses an integer in [lo, hi).
func parseIndex(s string, lo, hi int) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if v < lo || v >= hi {
		return 0, fmt.Errorf("index %d out of range [%d, %d)", v, lo, hi)
	}
	return v, nil
}
