package bsbidx

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kljensen/snowball/english"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TOKENISER (C1)
// ═══════════════════════════════════════════════════════════════════════════════
// Text goes through two stages:
//
//  1. Extraction — the raw text is scanned left to right and split into raw
//     token spans, recognised in priority order: URLs, emails, multi-word
//     proper nouns, numbers, then plain words. Whatever falls between
//     recognised spans (punctuation, stray symbols) is discarded.
//  2. Normalisation — every extracted span is trimmed, lowercased, checked
//     against the length bounds, and checked against the stop-word set, in
//     that order. An optional stemming stage runs last.
//
// The tokeniser never fails: malformed input just yields fewer or stranger
// tokens, per spec.md §4.1 ("malformed UTF-8 is reported by the document
// reader, not the tokeniser").
// ═══════════════════════════════════════════════════════════════════════════════

var (
	urlPattern        = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9+.-]*://[^\s]+`)
	emailPattern      = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	properNounPattern = regexp.MustCompile(`\p{Lu}\p{Ll}+(?:\s+\p{Lu}\p{Ll}+)+`)
	numberPattern     = regexp.MustCompile(`[0-9]+(?:[.,\-][0-9]+)*`)
	wordPattern       = regexp.MustCompile(`\p{L}+`)

	// extractionPatterns is consulted in this exact order: earlier patterns
	// win ties at the same start offset, matching spec.md §4.1's declared
	// priority (URLs > emails > multi-word proper nouns > numbers > words).
	extractionPatterns = []*regexp.Regexp{
		urlPattern,
		emailPattern,
		properNounPattern,
		numberPattern,
		wordPattern,
	}
)

// TokenizerConfig controls tokenisation bounds and optional filters.
type TokenizerConfig struct {
	// MinLen and MaxLen bound token length inclusively, measured in runes,
	// after lowercasing.
	MinLen int
	MaxLen int

	// Stopwords, if non-nil, is a set of normalised tokens dropped after
	// the length filter.
	Stopwords map[string]struct{}

	// EnableStemming runs an English Snowball stem as the final stage.
	// Off by default: spec.md is silent on stemming, and the default
	// keeps token output exactly the normalised surface form.
	EnableStemming bool
}

// DefaultTokenizerConfig matches spec.md §4.1's stated defaults: length
// bounds [1, 20], no stop-word filtering, no stemming.
func DefaultTokenizerConfig() TokenizerConfig {
	return TokenizerConfig{
		MinLen: 1,
		MaxLen: 20,
	}
}

// Tokenize extracts and normalises text under the default configuration.
func Tokenize(text string) []string {
	return TokenizeWithConfig(text, DefaultTokenizerConfig())
}

// TokenizeWithConfig extracts and normalises text under an explicit
// configuration, returning tokens in document order. Duplicates are not
// removed.
func TokenizeWithConfig(text string, cfg TokenizerConfig) []string {
	raw := extractSpans(text)
	tokens := make([]string, 0, len(raw))
	for _, span := range raw {
		tok, ok := normalize(span, cfg)
		if !ok {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// extractSpans scans text left to right, repeatedly finding the
// earliest-starting match across all extraction patterns and emitting it as
// a raw token span. Text between spans is discarded.
func extractSpans(text string) []string {
	var spans []string
	pos := 0
	for pos < len(text) {
		bestStart, bestEnd := -1, -1
		for _, pat := range extractionPatterns {
			loc := pat.FindStringIndex(text[pos:])
			if loc == nil {
				continue
			}
			start, end := pos+loc[0], pos+loc[1]
			if bestStart == -1 || start < bestStart {
				bestStart, bestEnd = start, end
			}
		}
		if bestStart == -1 {
			break
		}
		spans = append(spans, text[bestStart:bestEnd])
		pos = bestEnd
	}
	return spans
}

// normalize applies trim, lowercase, length filter, and stop-word filter to
// a single raw span, in that order, plus optional stemming. It reports
// false when the span is filtered out entirely.
func normalize(span string, cfg TokenizerConfig) (string, bool) {
	tok := strings.Join(strings.Fields(span), " ")
	tok = strings.ToLower(tok)
	if tok == "" {
		return "", false
	}

	n := utf8.RuneCountInString(tok)
	minLen, maxLen := cfg.MinLen, cfg.MaxLen
	if minLen <= 0 {
		minLen = 1
	}
	if maxLen <= 0 {
		maxLen = 20
	}
	if n < minLen || n > maxLen {
		return "", false
	}

	if cfg.Stopwords != nil {
		if _, stop := cfg.Stopwords[tok]; stop {
			return "", false
		}
	}

	if cfg.EnableStemming {
		tok = english.Stem(tok, false)
	}

	return tok, true
}

// DefaultStopwords returns a copy of a small, common English stop-word set,
// suitable as TokenizerConfig.Stopwords. Adapted from the same closed-class
// function-word list the teacher filters with, trimmed to the
// highest-frequency entries.
func DefaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "and", "are", "as", "at", "be", "but", "by",
		"for", "if", "in", "into", "is", "it", "no", "not", "of",
		"on", "or", "such", "that", "the", "their", "then", "there",
		"these", "they", "this", "to", "was", "will", "with", "from",
		"has", "have", "had", "he", "she", "his", "her", "its", "i",
		"you", "we", "do", "does", "did", "can", "could", "would",
		"should", "may", "might", "been", "being", "am", "were",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
