// Package parser extracts numeric product references from viewer comment text.
//
// Sellers present products by position ("number 7", "#12") and viewers reply
// with the number alone. The parser is deliberately dumb: no NLU, only digit
// runs with positional context, validated against the linked session's range.
package parser

import (
	"regexp"
	"unicode"
	"unicode/utf8"
)

var digitRun = regexp.MustCompile(`[0-9]+`)

// maxDigits bounds a plausible product position. Longer runs are order
// numbers, phone numbers or prices, never positions.
const maxDigits = 3

// ParseProductNumber scans text for a product position reference in
// [1, maxPosition]. Hash-prefixed numbers ("#7") are preferred over bare
// numbers; within a tier the first in-range candidate wins. The boolean is
// false when no candidate qualifies.
func ParseProductNumber(text string, maxPosition int) (int, bool) {
	if maxPosition <= 0 {
		return 0, false
	}

	type candidate struct {
		value  int
		hashed bool
	}
	var candidates []candidate

	for _, m := range digitRun.FindAllStringIndex(text, -1) {
		start, end := m[0], m[1]
		if end-start > maxDigits {
			continue
		}

		value := 0
		for _, b := range text[start:end] {
			value = value*10 + int(b-'0')
		}

		before := runeBefore(text, start)
		after := runeAfter(text, end)

		if before == '#' && !isAlnum(runeBefore(text, start-1)) && !isAlnum(after) {
			candidates = append(candidates, candidate{value: value, hashed: true})
			continue
		}
		// Bare candidates must not be a slice of a longer digit run; the
		// regexp already guarantees that, so only reject word-embedded runs.
		if unicode.IsDigit(before) || unicode.IsDigit(after) {
			continue
		}
		candidates = append(candidates, candidate{value: value})
	}

	for _, c := range candidates {
		if c.hashed && c.value >= 1 && c.value <= maxPosition {
			return c.value, true
		}
	}
	for _, c := range candidates {
		if !c.hashed && c.value >= 1 && c.value <= maxPosition {
			return c.value, true
		}
	}
	return 0, false
}

// runeBefore returns the rune ending at byte offset i, or 0 at the start.
func runeBefore(text string, i int) rune {
	if i <= 0 {
		return 0
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return r
}

// runeAfter returns the rune starting at byte offset i, or 0 at the end.
func runeAfter(text string, i int) rune {
	if i >= len(text) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return r
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
