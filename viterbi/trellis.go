package viterbi

import "gonum.org/v1/gonum/mat"

// Trellis holds the dynamic-programming tables of one decode.
type Trellis struct {
	// Scores is states x len(observations).
	Scores *mat.Dense
	// Backpointers[s][t] is the predecessor of s at t-1; column 0 is -1.
	Backpointers [][]int
	// TerminalPrior is the log prior added to the last column when
	// choosing the end state.
	TerminalPrior []float64
	Path          []int
	// LogProb is the terminal score of Path, prior included.
	LogProb float64
}

// Column returns a copy of the scores at time step t.
func (tr *Trellis) Column(t int) []float64 {
	return mat.Col(nil, t, tr.Scores)
}

// Len returns the number of time steps.
func (tr *Trellis) Len() int {
	return len(tr.Path)
}
