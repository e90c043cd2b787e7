// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package classifier

import (
	"strings"
	"unicode"
)

// asciiPunctuation is the ASCII punctuation set. A token is discarded when it
// occurs as a substring of this string.
const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

const ellipsis = "..."

// wordBreaks always separate words, wherever they occur in a field.
const wordBreaks = ";@#$%&?!*\"()[]{}<>"

// clitics are split off the end of a word as separate tokens ("pilot's" ->
// "pilot", "'s"), matched longest first.
var clitics = []string{"n't", "'ll", "'re", "'ve", "'s", "'d", "'m"}

// Tokenize lower-cases text and splits it into word tokens.
//
// # Description
//
// Text is split on whitespace. Inside each field the separators
// ; @ # $ % & ? ! * " and brackets always break words, "..." is split as one
// token, and , or : break words unless a digit follows ("1,000", "12:30").
// Leading and trailing punctuation of each piece is then peeled off and
// English clitics are separated. Hyphens and inner periods ("engine-out",
// "u.s") stay inside the word. Tokens found in the ASCII punctuation set are
// dropped; "..." is not in it and is kept.
//
// # Examples
//
//	Tokenize("Engine failure, during climb.")
//	// ["engine", "failure", "during", "climb"]
//
//	Tokenize("cause:pilot fatigue")
//	// ["cause", "pilot", "fatigue"]
//
//	Tokenize("The pilot's report")
//	// ["the", "pilot", "'s", "report"]
func Tokenize(text string) []string {
	var tokens []string
	for _, field := range strings.Fields(strings.ToLower(text)) {
		for _, piece := range splitInner(field) {
			for _, tok := range splitField(piece) {
				if strings.Contains(asciiPunctuation, tok) {
					continue
				}
				tokens = append(tokens, tok)
			}
		}
	}
	return tokens
}

// splitInner breaks a whitespace-delimited field at inner separators. The
// separators are returned as their own pieces.
func splitInner(field string) []string {
	runes := []rune(field)
	var pieces []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			pieces = append(pieces, string(cur))
			cur = cur[:0]
		}
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '.' && i+2 < len(runes) && runes[i+1] == '.' && runes[i+2] == '.':
			flush()
			pieces = append(pieces, ellipsis)
			i += 2
		case strings.ContainsRune(wordBreaks, r):
			flush()
			pieces = append(pieces, string(r))
		case (r == ',' || r == ':') && (i+1 == len(runes) || !unicode.IsDigit(runes[i+1])):
			flush()
			pieces = append(pieces, string(r))
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return pieces
}

// splitField peels punctuation and clitics from one piece of a field.
func splitField(field string) []string {
	if field == ellipsis {
		return []string{field}
	}
	runes := []rune(field)

	start := 0
	var lead []string
	for start < len(runes) && isPunct(runes[start]) {
		lead = append(lead, string(runes[start]))
		start++
	}

	end := len(runes)
	var trail []string
	for end > start && isPunct(runes[end-1]) {
		trail = append([]string{string(runes[end-1])}, trail...)
		end--
	}

	out := lead
	if start < end {
		word := string(runes[start:end])
		out = append(out, splitClitic(word)...)
	}
	return append(out, trail...)
}

func splitClitic(word string) []string {
	for _, c := range clitics {
		if len(word) > len(c) && strings.HasSuffix(word, c) {
			return []string{word[:len(word)-len(c)], c}
		}
	}
	return []string{word}
}

func isPunct(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}
