package guardrail

import (
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name           string
		raw            string
		wantNormalized string
		wantCanonical  string
		wantLanguage   Language
	}{
		{
			name:           "plain english",
			raw:            "What is a transformer?",
			wantNormalized: "What is a transformer?",
			wantCanonical:  "what is a transformer",
			wantLanguage:   LanguageEN,
		},
		{
			name:           "whitespace collapse",
			raw:            "  hello \t  world \n ",
			wantNormalized: "hello world",
			wantCanonical:  "hello world",
			wantLanguage:   LanguageEN,
		},
		{
			name:           "punctuation stripped from canonical",
			raw:            "re-rank: how does it work?!",
			wantNormalized: "re-rank: how does it work?!",
			wantCanonical:  "re rank how does it work",
			wantLanguage:   LanguageEN,
		},
		{
			name:           "korean",
			raw:            "임베딩이 뭐야?",
			wantNormalized: "임베딩이 뭐야?",
			wantCanonical:  "임베딩이 뭐야",
			wantLanguage:   LanguageKO,
		},
		{
			name:           "mixed script",
			raw:            "RAG 파이프라인 설명해줘",
			wantNormalized: "RAG 파이프라인 설명해줘",
			wantCanonical:  "rag 파이프라인 설명해줘",
			wantLanguage:   LanguageMixed,
		},
		{
			name:           "only punctuation",
			raw:            "?!...",
			wantNormalized: "?!...",
			wantCanonical:  "",
			wantLanguage:   LanguageUnknown,
		},
		{
			name:           "empty",
			raw:            "",
			wantNormalized: "",
			wantCanonical:  "",
			wantLanguage:   LanguageUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw)
			if got.Raw != tt.raw {
				t.Errorf("Raw = %q, want %q", got.Raw, tt.raw)
			}
			if got.Normalized != tt.wantNormalized {
				t.Errorf("Normalized = %q, want %q", got.Normalized, tt.wantNormalized)
			}
			if got.Canonical != tt.wantCanonical {
				t.Errorf("Canonical = %q, want %q", got.Canonical, tt.wantCanonical)
			}
			if got.Language != tt.wantLanguage {
				t.Errorf("Language = %q, want %q", got.Language, tt.wantLanguage)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"What is a transformer?",
		"  hello \t  world ",
		"임베딩이 뭐야?",
		"RAG 파이프라인!!!",
		"",
	}

	for _, raw := range inputs {
		first := Normalize(raw)
		second := Normalize(first.Normalized)
		if second.Normalized != first.Normalized {
			t.Errorf("Normalized not idempotent for %q: %q then %q", raw, first.Normalized, second.Normalized)
		}
		if second.Canonical != first.Canonical {
			t.Errorf("Canonical drifted for %q: %q then %q", raw, first.Canonical, second.Canonical)
		}
		if second.Language != first.Language {
			t.Errorf("Language drifted for %q: %q then %q", raw, first.Language, second.Language)
		}
	}
}
