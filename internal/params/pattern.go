package params

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/docbench/docbench/internal/domain"
)

// Pattern templates are literal characters plus four character classes,
// each optionally followed by a {n} repetition count:
//
//	\d  digit            \u  upper-case letter
//	\l  lower-case letter  \c  mixed-case letter
//
// Any other escape renders its character literally, so composite formats
// like `\d{3}-\d{2}-\d{4}` produce digit groups separated by dashes.

const (
	digits  = "0123456789"
	uppers  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowers  = "abcdefghijklmnopqrstuvwxyz"
	letters = uppers + lowers
)

type patternToken struct {
	alphabet string // empty for a literal
	literal  rune
	count    int
}

// RenderPattern parses and renders a pattern template. A malformed
// repetition count or a dangling escape is a configuration error wrapping
// domain.ErrInvalidPattern.
func RenderPattern(pattern string, rng *rand.Rand) (string, error) {
	tokens, err := parsePattern(pattern)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, tok := range tokens {
		for i := 0; i < tok.count; i++ {
			if tok.alphabet == "" {
				b.WriteRune(tok.literal)
			} else {
				b.WriteByte(tok.alphabet[rng.Intn(len(tok.alphabet))])
			}
		}
	}
	return b.String(), nil
}

func parsePattern(pattern string) ([]patternToken, error) {
	runes := []rune(pattern)
	var tokens []patternToken
	for i := 0; i < len(runes); i++ {
		var tok patternToken
		if runes[i] == '\\' {
			if i+1 >= len(runes) {
				return nil, fmt.Errorf("%w: %q ends with a dangling escape", domain.ErrInvalidPattern, pattern)
			}
			i++
			switch runes[i] {
			case 'd':
				tok.alphabet = digits
			case 'u':
				tok.alphabet = uppers
			case 'l':
				tok.alphabet = lowers
			case 'c':
				tok.alphabet = letters
			default:
				// Unrecognized escapes are literal.
				tok.literal = runes[i]
			}
		} else {
			tok.literal = runes[i]
		}

		tok.count = 1
		if i+1 < len(runes) && runes[i+1] == '{' {
			n, next, err := parseCount(pattern, runes, i+1)
			if err != nil {
				return nil, err
			}
			tok.count = n
			i = next
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

// parseCount reads a {n} repetition starting at the opening brace and
// returns the count and the index of the closing brace.
func parseCount(pattern string, runes []rune, open int) (int, int, error) {
	n := 0
	seen := false
	for j := open + 1; j < len(runes); j++ {
		r := runes[j]
		if r == '}' {
			if !seen {
				return 0, 0, fmt.Errorf("%w: empty repetition count in %q", domain.ErrInvalidPattern, pattern)
			}
			return n, j, nil
		}
		if r < '0' || r > '9' {
			return 0, 0, fmt.Errorf("%w: bad repetition count in %q", domain.ErrInvalidPattern, pattern)
		}
		n = n*10 + int(r-'0')
		seen = true
	}
	return 0, 0, fmt.Errorf("%w: unterminated repetition count in %q", domain.ErrInvalidPattern, pattern)
}
