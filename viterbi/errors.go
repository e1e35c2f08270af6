package viterbi

import (
	"errors"
	"fmt"
)

var (
	// ErrNilModel is returned when decoding without a model.
	ErrNilModel = errors.New("viterbi: nil model")
	// ErrEmptySequence is returned for a zero-length observation sequence.
	ErrEmptySequence = errors.New("viterbi: empty observation sequence")
	// ErrSymbolOutOfRange matches every *SymbolError.
	ErrSymbolOutOfRange = errors.New("viterbi: observation symbol out of range")
	// ErrNoPath is returned when every candidate score is NaN.
	ErrNoPath = errors.New("viterbi: no comparable path score")
)

// SymbolError reports an observation that does not name an emission
// column of the model. Symbols are 1-based.
type SymbolError struct {
	Index      int
	Symbol     int
	NumSymbols int
}

func (e *SymbolError) Error() string {
	return fmt.Sprintf("viterbi: observation %d is symbol %d, want 1..%d", e.Index, e.Symbol, e.NumSymbols)
}

func (e *SymbolError) Is(target error) bool {
	return target == ErrSymbolOutOfRange
}
