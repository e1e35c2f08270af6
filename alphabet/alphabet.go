package alphabet

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// ErrUnknownSymbol is returned when encoding a token the alphabet does
	// not contain.
	ErrUnknownSymbol = errors.New("alphabet: unknown symbol")
	// ErrDuplicate is returned when a token or ID is defined twice.
	ErrDuplicate = errors.New("alphabet: duplicate entry")
)

// Alphabet maps observation tokens to 1-based symbol IDs.
// An empty alphabet is numeric: tokens are parsed as decimal IDs.
type Alphabet struct {
	IDs    map[string]int
	Tokens map[int]string
}

// New creates a new empty alphabet.
func New() *Alphabet {
	return &Alphabet{
		IDs:    make(map[string]int),
		Tokens: make(map[int]string),
	}
}

// Load loads tokens from a file.
// File format: token [id]
// Without an explicit id a token gets the next id after the largest seen,
// so a plain list is numbered 1, 2, 3... in line order.
func (a *Alphabet) Load(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Fields(line)
		token := parts[0]
		id := a.Size() + 1
		if len(parts) >= 2 {
			v, err := strconv.Atoi(parts[1])
			if err != nil || v < 1 {
				return fmt.Errorf("alphabet: line %d: bad id %q", lineNo, parts[1])
			}
			id = v
		}
		if err := a.Set(token, id); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	return scanner.Err()
}

// Size returns the largest symbol ID in use.
func (a *Alphabet) Size() int {
	largest := 0
	for id := range a.Tokens {
		largest = max(largest, id)
	}
	return largest
}

// Numeric reports whether the alphabet is empty and tokens are read as
// plain integers.
func (a *Alphabet) Numeric() bool {
	return len(a.IDs) == 0
}

// Add appends token with the next free ID and returns that ID. Adding an
// existing token returns its current ID.
func (a *Alphabet) Add(token string) int {
	if id, ok := a.IDs[token]; ok {
		return id
	}
	id := a.Size() + 1
	a.IDs[token] = id
	a.Tokens[id] = token
	return id
}

// Set binds token to id.
func (a *Alphabet) Set(token string, id int) error {
	if _, ok := a.IDs[token]; ok {
		return fmt.Errorf("%w: token %q", ErrDuplicate, token)
	}
	if _, ok := a.Tokens[id]; ok {
		return fmt.Errorf("%w: id %d", ErrDuplicate, id)
	}
	a.IDs[token] = id
	a.Tokens[id] = token
	return nil
}

// ID returns the symbol ID of token.
func (a *Alphabet) ID(token string) (int, bool) {
	id, ok := a.IDs[token]
	return id, ok
}

// Token returns the token for a symbol ID.
func (a *Alphabet) Token(id int) (string, bool) {
	if a.Numeric() {
		return strconv.Itoa(id), true
	}
	token, ok := a.Tokens[id]
	return token, ok
}

// Encode converts tokens to symbol IDs.
func (a *Alphabet) Encode(tokens []string) ([]int, error) {
	ids := make([]int, len(tokens))
	for i, tok := range tokens {
		if a.Numeric() {
			v, err := strconv.Atoi(tok)
			if err != nil {
				return nil, fmt.Errorf("%w: %q at %d", ErrUnknownSymbol, tok, i)
			}
			ids[i] = v
			continue
		}
		id, ok := a.IDs[tok]
		if !ok {
			return nil, fmt.Errorf("%w: %q at %d", ErrUnknownSymbol, tok, i)
		}
		ids[i] = id
	}
	return ids, nil
}

// Fields splits an observation line into tokens. Whitespace and commas
// separate tokens. A line without separators is split per character only
// when that reading is unambiguous: every character is a known
// single-character token, or, for a numeric alphabet, every character is a
// digit and the model has fewer than 10 symbols. Otherwise the line is one
// token, so "12" over a 12-symbol model stays symbol 12.
func (a *Alphabet) Fields(line string, symbols int) []string {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})
	if len(fields) != 1 || !a.splittable(fields[0], symbols) {
		return fields
	}
	runes := []rune(fields[0])
	out := make([]string, len(runes))
	for i, r := range runes {
		out[i] = string(r)
	}
	return out
}

func (a *Alphabet) splittable(field string, symbols int) bool {
	if utf8.RuneCountInString(field) < 2 {
		return false
	}
	if a.Numeric() {
		if symbols < 1 || symbols > 9 {
			return false
		}
		for _, r := range field {
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	}
	if _, ok := a.IDs[field]; ok {
		return false
	}
	for _, r := range field {
		if _, ok := a.IDs[string(r)]; !ok {
			return false
		}
	}
	return true
}
