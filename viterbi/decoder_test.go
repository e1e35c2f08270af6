package viterbi

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/teatak/viterbi/hmm"
)

// Occasionally dishonest casino: a fair die (F) and a loaded one (L).
func casino(t *testing.T, initial []float64) *hmm.Model {
	t.Helper()
	m, err := hmm.FromProbabilities(
		[][]float64{{0.95, 0.05}, {0.1, 0.9}},
		[][]float64{
			{1. / 6, 1. / 6, 1. / 6, 1. / 6, 1. / 6, 1. / 6},
			{0.1, 0.1, 0.1, 0.1, 0.1, 0.5},
		},
		initial,
		hmm.WithLabels("F", "L"),
	)
	require.NoError(t, err)
	return m
}

var rolls = []int{
	3, 1, 5, 1, 1, 6, 2, 4, 6, 4, 4, 6, 6, 4, 4, 2, 4, 5, 3, 1, 1, 3, 2, 1, 6, 3, 1, 1, 6, 4, 1,
	5, 2, 1, 3, 3, 6, 2, 5, 1, 4, 4, 5, 4, 3, 6, 3, 1, 6, 5, 6, 6, 2, 6, 5, 6, 6, 6, 6, 6, 6, 5,
	1, 1, 6, 6, 4, 5, 3, 1, 3, 2, 6, 5, 1, 2, 4,
}

const rollsPath = "FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF" +
	"LLLLLLLLLLLLLLLLLL" +
	"FFFFFFFFFFF"

func TestDecode_Casino(t *testing.T) {
	m := casino(t, []float64{0.5, 0.5})

	path, err := Decode(m, rolls)
	require.NoError(t, err)
	assert.Len(t, path, len(rolls))
	assert.Equal(t, rollsPath, m.FormatPath(path))
}

func TestTrellis_CasinoScores(t *testing.T) {
	m := casino(t, []float64{0.5, 0.5})

	var d Decoder
	tr, err := d.Trellis(m, rolls)
	require.NoError(t, err)

	last := tr.Column(tr.Len() - 1)
	assert.InDelta(t, -138.55339650252023, last[0], 1e-9)
	assert.InDelta(t, -140.21334090631848, last[1], 1e-9)
	assert.InDelta(t, -138.55339650252023+math.Log(0.5), tr.LogProb, 1e-9)
	for s := range tr.Backpointers {
		assert.Equal(t, -1, tr.Backpointers[s][0])
	}
}

func TestDecode_Deterministic(t *testing.T) {
	m := casino(t, []float64{0.5, 0.5})

	first, err := Decode(m, rolls)
	require.NoError(t, err)
	second, err := Decode(m, rolls)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDecode_SingleObservation(t *testing.T) {
	tests := []struct {
		name    string
		initial []float64
		symbol  int
		want    int
	}{
		{"six favours loaded", []float64{0.5, 0.5}, 6, 1},
		{"one favours fair", []float64{0.5, 0.5}, 1, 0},
		{"strong fair start outweighs six", []float64{0.9, 0.1}, 6, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := casino(t, tt.initial)
			path, err := Decode(m, []int{tt.symbol})
			require.NoError(t, err)
			assert.Equal(t, []int{tt.want}, path)
		})
	}
}

func TestDecode_TerminalPriorIgnoresInitial(t *testing.T) {
	even := casino(t, []float64{0.5, 0.5})
	skewed := casino(t, []float64{0.9, 0.1})

	var d Decoder
	a, err := d.Trellis(even, rolls)
	require.NoError(t, err)
	b, err := d.Trellis(skewed, rolls)
	require.NoError(t, err)

	assert.Equal(t, a.TerminalPrior, b.TerminalPrior)
	for _, p := range a.TerminalPrior {
		assert.Equal(t, math.Log(0.5), p)
	}
	assert.NotEqual(t, a.Column(0), b.Column(0))
	assert.Equal(t, a.Path[len(a.Path)-1], b.Path[len(b.Path)-1])
}

func TestDecode_TransitionOrientation(t *testing.T) {
	// Row s holds the weights into state s: both states are entered
	// from state 1 with weight 0.9 and from state 0 with weight 0.1.
	m, err := hmm.FromProbabilities(
		[][]float64{{0.1, 0.9}, {0.1, 0.9}},
		[][]float64{{1}, {1}},
		[]float64{0.99, 0.01},
	)
	require.NoError(t, err)

	path, err := Decode(m, []int{1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 0}, path)
}

func TestDecode_CasinoShortRun(t *testing.T) {
	m := casino(t, []float64{0.5, 0.5})

	// Reading the casino matrix row-as-source would switch back to F
	// for the last four rolls.
	path, err := Decode(m, []int{6, 6, 6, 1, 2, 3, 6, 6, 6, 6, 1, 6, 6, 2, 3, 4, 1})
	require.NoError(t, err)
	assert.Equal(t, "LLLLLLLLLLLLLLLLL", m.FormatPath(path))
}

func TestDecode_TiesPickLowestState(t *testing.T) {
	m, err := hmm.FromProbabilities(
		[][]float64{{0.5, 0.5}, {0.5, 0.5}},
		[][]float64{{0.5, 0.5}, {0.5, 0.5}},
		[]float64{0.5, 0.5},
	)
	require.NoError(t, err)

	path, err := Decode(m, []int{1, 2, 2, 1})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 0}, path)
}

func TestDecode_NaNNeverWins(t *testing.T) {
	// the weight from state 0 into state 1 is NaN
	trans := mat.NewDense(2, 2, []float64{
		math.Log(0.5), math.Log(0.5),
		math.NaN(), math.Log(0.5),
	})
	emis := mat.NewDense(2, 1, []float64{0, 0})
	m, err := hmm.New(trans, emis, []float64{math.Log(0.9), math.Log(0.1)})
	require.NoError(t, err)

	var d Decoder
	tr, err := d.Trellis(m, []int{1, 1})
	require.NoError(t, err)

	// state 0 scores higher at t=0 but its edge into state 1 is NaN
	assert.Equal(t, 1, tr.Backpointers[1][1])
	assert.Equal(t, 0, tr.Backpointers[0][1])
	assert.False(t, math.IsNaN(tr.Scores.At(1, 1)))
	assert.Equal(t, []int{0, 0}, tr.Path)
}

func TestDecode_UnreachableStates(t *testing.T) {
	inf := math.Inf(-1)
	trans := mat.NewDense(2, 2, []float64{inf, inf, inf, inf})
	emis := mat.NewDense(2, 1, []float64{0, 0})
	m, err := hmm.New(trans, emis, []float64{inf, 0})
	require.NoError(t, err)

	path, err := Decode(m, []int{1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0}, path)
}

func TestDecode_AllNaN(t *testing.T) {
	nan := math.NaN()
	trans := mat.NewDense(1, 1, []float64{0})
	emis := mat.NewDense(1, 1, []float64{nan})
	m, err := hmm.New(trans, emis, []float64{0})
	require.NoError(t, err)

	path, err := Decode(m, []int{1})
	assert.ErrorIs(t, err, ErrNoPath)
	assert.Nil(t, path)
}

func TestDecode_SymbolOutOfRange(t *testing.T) {
	m := casino(t, []float64{0.5, 0.5})

	tests := []struct {
		name string
		obs  []int
		idx  int
	}{
		{"past alphabet", []int{1, 2, 7}, 2},
		{"zero", []int{0, 1}, 0},
		{"negative", []int{3, -4}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := Decode(m, tt.obs)
			assert.Nil(t, path)
			require.ErrorIs(t, err, ErrSymbolOutOfRange)

			var se *SymbolError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.idx, se.Index)
			assert.Equal(t, tt.obs[tt.idx], se.Symbol)
			assert.Equal(t, 6, se.NumSymbols)
		})
	}
}

func TestDecode_BadInput(t *testing.T) {
	_, err := Decode(nil, []int{1})
	assert.ErrorIs(t, err, ErrNilModel)

	_, err = Decode(casino(t, []float64{0.5, 0.5}), nil)
	assert.ErrorIs(t, err, ErrEmptySequence)
}

func randomModel(t *testing.T, r *rand.Rand, states, symbols int) *hmm.Model {
	t.Helper()
	row := func(n int) []float64 {
		p := make([]float64, n)
		sum := 0.0
		for i := range p {
			p[i] = r.Float64() + 0.01
			sum += p[i]
		}
		for i := range p {
			p[i] /= sum
		}
		return p
	}
	trans := make([][]float64, states)
	emis := make([][]float64, states)
	for s := 0; s < states; s++ {
		trans[s] = row(states)
		emis[s] = row(symbols)
	}
	m, err := hmm.FromProbabilities(trans, emis, row(states))
	require.NoError(t, err)
	return m
}

func randomObservations(r *rand.Rand, n, symbols int) []int {
	obs := make([]int, n)
	for i := range obs {
		obs[i] = r.Intn(symbols) + 1
	}
	return obs
}

func TestDecode_PathLength(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		states, symbols := r.Intn(6)+1, r.Intn(5)+1
		m := randomModel(t, r, states, symbols)
		obs := randomObservations(r, r.Intn(50)+1, symbols)

		path, err := Decode(m, obs)
		require.NoError(t, err)
		require.Len(t, path, len(obs))
		for _, s := range path {
			assert.GreaterOrEqual(t, s, 0)
			assert.Less(t, s, states)
		}
	}
}

func TestDecoder_ParallelMatchesSequential(t *testing.T) {
	r := rand.New(rand.NewSource(33))
	m := randomModel(t, r, 9, 5)
	obs := randomObservations(r, 200, 5)

	var seq Decoder
	want, err := seq.Trellis(m, obs)
	require.NoError(t, err)

	for _, workers := range []int{2, 3, 4, 9, 16} {
		d := Decoder{Workers: workers}
		got, err := d.Trellis(m, obs)
		require.NoError(t, err)
		assert.Equal(t, want.Path, got.Path, "workers=%d", workers)
		assert.Equal(t, want.Backpointers, got.Backpointers, "workers=%d", workers)
		assert.True(t, mat.Equal(want.Scores, got.Scores), "workers=%d", workers)
	}
}

func TestArgmaxSkipNaN(t *testing.T) {
	nan, inf := math.NaN(), math.Inf(-1)
	tests := []struct {
		values []float64
		want   int
	}{
		{[]float64{1, 3, 2}, 1},
		{[]float64{2, 2, 1}, 0},
		{[]float64{nan, 1, 1}, 1},
		{[]float64{1, nan, 2}, 2},
		{[]float64{inf, inf}, 0},
		{[]float64{nan, inf, -5}, 2},
		{[]float64{nan, nan}, -1},
		{nil, -1},
	}

	for _, tt := range tests {
		got, _ := argmaxSkipNaN(tt.values)
		assert.Equal(t, tt.want, got, "argmaxSkipNaN(%v)", tt.values)
	}
}
