package hmm

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gonum.org/v1/gonum/mat"
)

// ErrShape is returned when the model matrices do not agree on the number
// of states or symbols.
var ErrShape = errors.New("hmm: shape mismatch")

// Model is a discrete hidden Markov model with all parameters stored as
// natural-log probabilities. A Model is read-only once built and may be
// shared between goroutines.
type Model struct {
	// transitions[to][from]: row s holds the log weights of entering s
	// from each state.
	transitions *mat.Dense
	// emissions[state][symbol-1] = log P(symbol | state)
	emissions *mat.Dense
	initial   []float64
	labels    []string
}

// Option configures optional model metadata.
type Option func(*Model)

// WithLabels names the states, in state index order.
func WithLabels(labels ...string) Option {
	return func(m *Model) {
		m.labels = labels
	}
}

// New builds a model from log-probability matrices. The values are taken
// as they are; New never applies log itself.
func New(transitions, emissions *mat.Dense, initial []float64, opts ...Option) (*Model, error) {
	m := &Model{
		transitions: transitions,
		emissions:   emissions,
		initial:     initial,
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// MustNew is like New but panics if the shapes disagree.
func MustNew(transitions, emissions *mat.Dense, initial []float64, opts ...Option) *Model {
	m, err := New(transitions, emissions, initial, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

func shapeError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrShape}, args...)...)
}

func (m *Model) validate() error {
	var result error
	n := len(m.initial)
	if n == 0 {
		result = multierror.Append(result, shapeError("initial state vector is empty"))
	}
	if m.transitions == nil {
		result = multierror.Append(result, shapeError("transitions matrix is missing"))
	} else if r, c := m.transitions.Dims(); r != n || c != n {
		result = multierror.Append(result,
			shapeError("transitions should be %dx%d to match initial state, got %dx%d", n, n, r, c))
	}
	if m.emissions == nil {
		result = multierror.Append(result, shapeError("emissions matrix is missing"))
	} else if r, _ := m.emissions.Dims(); r != n {
		result = multierror.Append(result,
			shapeError("emissions should have %d rows (one per state), got %d", n, r))
	}
	if m.labels != nil && len(m.labels) != n {
		result = multierror.Append(result,
			shapeError("got %d state labels for %d states", len(m.labels), n))
	}
	return result
}

// FromProbabilities builds a model from plain probabilities, taking the
// natural log of every entry. Rows must all have the same length.
func FromProbabilities(transitions, emissions [][]float64, initial []float64, opts ...Option) (*Model, error) {
	trans, err := logDense("transitions", transitions)
	if err != nil {
		return nil, err
	}
	emis, err := logDense("emissions", emissions)
	if err != nil {
		return nil, err
	}
	init := make([]float64, len(initial))
	for i, p := range initial {
		init[i] = math.Log(p)
	}
	return New(trans, emis, init, opts...)
}

func logDense(name string, rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, shapeError("%s matrix is empty", name)
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, shapeError("%s row %d has %d columns, want %d", name, i, len(row), cols)
		}
		for _, p := range row {
			data = append(data, math.Log(p))
		}
	}
	return mat.NewDense(len(rows), cols, data), nil
}

// NumStates returns N, the number of hidden states.
func (m *Model) NumStates() int {
	return len(m.initial)
}

// NumSymbols returns M, the size of the emission alphabet.
func (m *Model) NumSymbols() int {
	_, c := m.emissions.Dims()
	return c
}

// Transition returns the log weight of moving from state from into state
// to. It is stored at row to, column from.
func (m *Model) Transition(to, from int) float64 {
	return m.transitions.At(to, from)
}

// Emission returns the log-probability of state emitting the symbol in
// 0-based column col.
func (m *Model) Emission(state, col int) float64 {
	return m.emissions.At(state, col)
}

// Initial returns the log-probability of starting in state.
func (m *Model) Initial(state int) float64 {
	return m.initial[state]
}

// Label returns the name of a state, or its index when unlabelled.
func (m *Model) Label(state int) string {
	if state < 0 || state >= m.NumStates() {
		return "?"
	}
	if m.labels == nil {
		return strconv.Itoa(state)
	}
	return m.labels[state]
}

// Labels returns the state labels, or nil when the model has none.
func (m *Model) Labels() []string {
	if m.labels == nil {
		return nil
	}
	return append([]string(nil), m.labels...)
}

// FormatPath renders a state path by concatenating state labels.
func (m *Model) FormatPath(path []int) string {
	var sb strings.Builder
	for _, s := range path {
		sb.WriteString(m.Label(s))
	}
	return sb.String()
}
