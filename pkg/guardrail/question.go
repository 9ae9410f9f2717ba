// FILE: pkg/guardrail/question.go
// PURPOSE: Normalize a raw user turn and detect its script/language

package guardrail

import (
	"strings"
	"unicode"
)

// Language classifies the script mix of a question.
type Language string

const (
	LanguageEN      Language = "en"
	LanguageKO      Language = "ko"
	LanguageMixed   Language = "mixed"
	LanguageUnknown Language = "unknown"
)

// NormalizedQuestion is the immutable per-turn view of the raw input.
// Normalized collapses whitespace; Canonical additionally lowercases and
// strips everything outside [a-z0-9 Hangul space]. All routing rules match
// against Canonical.
type NormalizedQuestion struct {
	Raw        string
	Normalized string
	Canonical  string
	Language   Language
}

// Normalize builds a NormalizedQuestion. It is idempotent over the
// Normalized form: Normalize(Normalize(x).Normalized) yields the same
// Normalized/Canonical/Language.
func Normalize(raw string) NormalizedQuestion {
	normalized := collapseWhitespace(raw)
	canonical := Canonicalize(normalized)

	return NormalizedQuestion{
		Raw:        raw,
		Normalized: normalized,
		Canonical:  canonical,
		Language:   detectLanguage(canonical),
	}
}

// Canonicalize lowercases text and replaces every rune outside the
// canonical alphabet (latin letters, digits, Hangul, space) with a space,
// then collapses whitespace. Keyword lists are canonicalized through the
// same function so matching stays symmetric.
func Canonicalize(text string) string {
	lowered := strings.ToLower(text)
	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		case unicode.Is(unicode.Hangul, r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return collapseWhitespace(b.String())
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func detectLanguage(canonical string) Language {
	var hasHangul, hasLatin bool
	for _, r := range canonical {
		switch {
		case unicode.Is(unicode.Hangul, r):
			hasHangul = true
		case r >= 'a' && r <= 'z':
			hasLatin = true
		}
	}

	switch {
	case hasHangul && hasLatin:
		return LanguageMixed
	case hasHangul:
		return LanguageKO
	case hasLatin:
		return LanguageEN
	default:
		return LanguageUnknown
	}
}
