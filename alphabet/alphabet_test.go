package alphabet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlphabet_Load(t *testing.T) {
	content := "# coin faces\nH\nT\n\nE 5\n"
	path := filepath.Join(t.TempDir(), "coin.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	a := New()
	require.NoError(t, a.Load(path))

	assert.Equal(t, 5, a.Size())
	id, ok := a.ID("T")
	assert.True(t, ok)
	assert.Equal(t, 2, id)
	tok, ok := a.Token(5)
	assert.True(t, ok)
	assert.Equal(t, "E", tok)
	_, ok = a.Token(3)
	assert.False(t, ok)
}

func TestAlphabet_LoadDuplicate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dup.txt")
	require.NoError(t, os.WriteFile(path, []byte("H 1\nT 1\n"), 0644))

	err := New().Load(path)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Contains(t, err.Error(), "line 2")
}

func TestAlphabet_Encode(t *testing.T) {
	a := New()
	assert.Equal(t, 1, a.Add("H"))
	assert.Equal(t, 2, a.Add("T"))
	assert.Equal(t, 1, a.Add("H"))

	ids, err := a.Encode([]string{"H", "T", "T"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 2}, ids)

	_, err = a.Encode([]string{"H", "X"})
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestAlphabet_Numeric(t *testing.T) {
	a := New()
	require.True(t, a.Numeric())

	ids, err := a.Encode([]string{"3", "1", "6"})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 6}, ids)

	tok, ok := a.Token(6)
	assert.True(t, ok)
	assert.Equal(t, "6", tok)

	_, err = a.Encode([]string{"six"})
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestFields(t *testing.T) {
	numeric := New()
	coin := New()
	coin.Add("H")
	coin.Add("T")
	coin.Add("HT")

	tests := []struct {
		name    string
		a       *Alphabet
		symbols int
		line    string
		want    []string
	}{
		{"separated", numeric, 6, "3 1 5", []string{"3", "1", "5"}},
		{"commas", numeric, 6, "3,1, 5", []string{"3", "1", "5"}},
		{"digit run", numeric, 6, "315116", []string{"3", "1", "5", "1", "1", "6"}},
		{"blank", numeric, 6, "  ", []string{}},
		{"single digit", numeric, 6, "4", []string{"4"}},
		{"two digit symbol", numeric, 12, "12", []string{"12"}},
		{"two digit symbol with more", numeric, 12, "12 3", []string{"12", "3"}},
		{"unknown model size", numeric, 0, "12", []string{"12"}},
		{"not digits", numeric, 6, "1a", []string{"1a"}},
		{"letters", coin, 3, "TTH", []string{"T", "T", "H"}},
		{"whole token wins", coin, 3, "HT", []string{"HT"}},
		{"unknown letter", coin, 3, "HX", []string{"HX"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Fields(tt.line, tt.symbols))
		})
	}
}

func TestFields_NeverRenumbers(t *testing.T) {
	a := New()

	ids, err := a.Encode(a.Fields("12", 12))
	require.NoError(t, err)
	assert.Equal(t, []int{12}, ids)

	_, err = a.Encode(New().Fields("HX", 2))
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}
