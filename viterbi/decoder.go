// Package viterbi finds the most likely hidden state path of a discrete
// HMM for a sequence of observed symbols. All arithmetic is done on
// log-probabilities.
package viterbi

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/teatak/viterbi/hmm"
)

// Decoder runs the Viterbi algorithm. The zero value decodes
// sequentially.
type Decoder struct {
	// Workers > 1 splits the states of each time step across that many
	// goroutines. The result does not depend on Workers.
	Workers int
}

// Decode returns the most likely state path for observations using a
// sequential Decoder.
func Decode(m *hmm.Model, observations []int) ([]int, error) {
	var d Decoder
	return d.Decode(m, observations)
}

// Decode returns the most likely 0-based state path for the 1-based
// observation symbols. The path has the same length as observations.
func (d *Decoder) Decode(m *hmm.Model, observations []int) ([]int, error) {
	tr, err := d.Trellis(m, observations)
	if err != nil {
		return nil, err
	}
	return tr.Path, nil
}

// Trellis runs the forward pass and backtracking and returns the full
// score and backpointer tables along with the path.
func (d *Decoder) Trellis(m *hmm.Model, observations []int) (*Trellis, error) {
	if m == nil {
		return nil, ErrNilModel
	}
	n := len(observations)
	if n == 0 {
		return nil, ErrEmptySequence
	}
	states := m.NumStates()
	symbols := m.NumSymbols()

	// score[s][t] = best log-probability of a path ending in s at t
	score := mat.NewDense(states, n, nil)
	// back[s][t] = state at t-1 on that best path
	back := make([][]int, states)
	for s := range back {
		back[s] = make([]int, n)
		back[s][0] = -1
	}

	for t, symbol := range observations {
		col := symbol - 1
		if col < 0 || col >= symbols {
			return nil, &SymbolError{Index: t, Symbol: symbol, NumSymbols: symbols}
		}

		// Initialization (t=0)
		if t == 0 {
			for s := 0; s < states; s++ {
				score.Set(s, 0, m.Emission(s, col)+m.Initial(s))
			}
			continue
		}

		// Recurrence
		d.forEachState(states, func(lo, hi int) {
			candidates := make([]float64, states)
			for s := lo; s < hi; s++ {
				// weights into s are read from row s
				for prev := 0; prev < states; prev++ {
					candidates[prev] = score.At(prev, t-1) + m.Transition(s, prev)
				}
				best, val := argmaxSkipNaN(candidates)
				if best < 0 {
					// all NaN: the score stays NaN and never wins later
					best, val = 0, math.NaN()
				}
				score.Set(s, t, m.Emission(s, col)+val)
				back[s][t] = best
			}
		})
	}

	// Termination uses a flat prior over states rather than the initial
	// distribution.
	prior := make([]float64, states)
	final := make([]float64, states)
	for s := range prior {
		prior[s] = math.Log(1 / float64(states))
		final[s] = score.At(s, n-1) + prior[s]
	}
	end, logProb := argmaxSkipNaN(final)
	if end < 0 {
		return nil, ErrNoPath
	}

	// Backtrack
	path := make([]int, n)
	path[n-1] = end
	for t := n - 1; t > 0; t-- {
		path[t-1] = back[path[t]][t]
	}

	return &Trellis{
		Scores:        score,
		Backpointers:  back,
		TerminalPrior: prior,
		Path:          path,
		LogProb:       logProb,
	}, nil
}

// forEachState calls fn over [0, states) split into contiguous chunks, one
// per worker. Each chunk writes disjoint rows of the tables.
func (d *Decoder) forEachState(states int, fn func(lo, hi int)) {
	workers := min(d.Workers, states)
	if workers <= 1 {
		fn(0, states)
		return
	}

	chunk := (states + workers - 1) / workers
	var wg sync.WaitGroup
	for lo := 0; lo < states; lo += chunk {
		lo := lo
		hi := min(lo+chunk, states)
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(lo, hi)
		}()
	}
	wg.Wait()
}
