// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package normalize produces the deterministic canonical form of
// free-text artist, release and recording fields used as the fuzzy
// index's input and as the shard-routing key.
package normalize

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength is the truncation bound applied to every normalized string.
const MaxLength = 30

// decomposer strips combining marks after NFKD decomposition, folding
// accented Latin (e.g. the e in "Beyonce") onto its base letter before
// unidecode does the heavier non-Latin transliteration below.
// https://go.dev/blog/normalization#performing-magic
var decomposer = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

// Normalize produces the standard canonical form: strip everything
// except word characters and spaces, collapse spaces/underscores,
// romanize, lowercase, truncate to MaxLength. An input with no word
// characters (e.g. "!!!") normalizes to the empty string, which signals
// "symbolic artist" to callers.
func Normalize(text string) string {
	return finish(stripToWordsAndSpaces(text))
}

// NormalizeSymbolic produces the symbolic-artist canonical form: only
// spaces and underscores are collapsed, punctuation is preserved, then
// romanize and truncate. Used when Normalize returns empty.
func NormalizeSymbolic(text string) string {
	return finish(collapseSpacesAndUnderscores(text))
}

// stripToWordsAndSpaces drops every rune that is not a Unicode letter,
// digit, or ASCII space, then collapses whitespace/underscore runs.
func stripToWordsAndSpaces(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '_' || r == ' ':
			b.WriteRune(' ')
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		}
	}
	return collapseSpacesAndUnderscores(b.String())
}

// collapseSpacesAndUnderscores replaces every run of spaces/underscores
// with nothing at all — the corpus's normalization removes whitespace
// entirely rather than folding it to a single separator.
func collapseSpacesAndUnderscores(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == ' ' || r == '_' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// finish romanizes text to an ASCII skeleton, lowercases it and
// truncates to MaxLength. NFKD+mark-stripping alone only folds accented
// Latin letters onto their base form; it leaves Cyrillic, Greek, CJK and
// other non-Latin scripts untouched, so unidecode.Unidecode does the
// actual transliteration, the same approach the ground-truth original
// takes via Python's unidecode library.
func finish(text string) string {
	decomposed, _, err := transform.String(decomposer, text)
	if err != nil {
		decomposed = text
	}
	romanized := unidecode.Unidecode(decomposed)
	romanized = strings.ReplaceAll(romanized, " ", "")
	romanized = strings.ToLower(romanized)
	return truncate(romanized, MaxLength)
}

// truncate cuts s to at most n Unicode scalars (not bytes).
func truncate(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// HasNonLatin reports whether text contains a letter outside the Latin
// script, used by the builder to decide whether a duplicate sort-name
// artist-index entry is needed. Accented Latin letters (e.g. the é in
// "Beyoncé") are still Latin script and do not count.
func HasNonLatin(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) && !unicode.Is(unicode.Latin, r) {
			return true
		}
	}
	return false
}
