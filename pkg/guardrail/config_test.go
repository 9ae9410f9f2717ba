package guardrail

import (
	"math"
	"reflect"
	"testing"
)

func TestSanitizeChatSettingsFixedPoint(t *testing.T) {
	dirty := GuardrailConfig{
		SimilarityThreshold: 7.5,
		TopK:                500,
		ContextTokenBudget:  10,
		ClipTokens:          -1,
		HistoryTokenBudget:  0,
		Summary: SummaryConfig{
			Enabled:       true,
			TriggerTokens: 0,
			MaxChars:      99999,
			MaxTurns:      0,
		},
		RerankMode: RerankMode("bogus"),
	}

	once, changes := SanitizeChatSettings(dirty)
	if len(changes) == 0 {
		t.Fatal("expected changes for a dirty config")
	}

	twice, again := SanitizeChatSettings(once)
	if len(again) != 0 {
		t.Errorf("second pass produced changes: %+v", again)
	}
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("sanitize not a fixed point:\nonce  %+v\ntwice %+v", once, twice)
	}
}

func TestSanitizeChatSettingsClamps(t *testing.T) {
	cfg := DefaultGuardrailConfig()
	cfg.SimilarityThreshold = -0.5
	cfg.TopK = 0
	cfg.ContextTokenBudget = 100000

	out, changes := SanitizeChatSettings(cfg)
	if out.SimilarityThreshold != 0 {
		t.Errorf("SimilarityThreshold = %v, want 0", out.SimilarityThreshold)
	}
	if out.TopK != 1 {
		t.Errorf("TopK = %d, want 1", out.TopK)
	}
	if out.ContextTokenBudget != 32768 {
		t.Errorf("ContextTokenBudget = %d, want 32768", out.ContextTokenBudget)
	}

	reasons := map[string]int{}
	for _, c := range changes {
		reasons[c.Reason]++
	}
	if reasons[SanitizeOutOfRange] != 3 {
		t.Errorf("out-of-range changes = %d, want 3 (%+v)", reasons[SanitizeOutOfRange], changes)
	}
}

func TestSanitizeChatSettingsNaNThreshold(t *testing.T) {
	cfg := DefaultGuardrailConfig()
	cfg.SimilarityThreshold = math.NaN()

	out, changes := SanitizeChatSettings(cfg)
	if out.SimilarityThreshold != DefaultGuardrailConfig().SimilarityThreshold {
		t.Errorf("SimilarityThreshold = %v, want default", out.SimilarityThreshold)
	}
	if len(changes) != 1 || changes[0].Reason != SanitizeInvalidType {
		t.Errorf("changes = %+v, want single invalid-type entry", changes)
	}
}

func TestSanitizeChatSettingsDefaultIsClean(t *testing.T) {
	_, changes := SanitizeChatSettings(DefaultGuardrailConfig())
	if len(changes) != 0 {
		t.Errorf("default config produced changes: %+v", changes)
	}
}

func TestOverridesFromMap(t *testing.T) {
	raw := map[string]interface{}{
		"similarity_threshold": 0.5,
		"top_k":                12.0,
		"clip_tokens":          "lots", // wrong type
		"summary_level":        "off",
		"rerank_mode":          "mmr",
		"safe_mode":            true,
	}

	got, changes := OverridesFromMap(raw)

	if got.SimilarityThreshold == nil || *got.SimilarityThreshold != 0.5 {
		t.Errorf("SimilarityThreshold = %v, want 0.5", got.SimilarityThreshold)
	}
	if got.TopK == nil || *got.TopK != 12 {
		t.Errorf("TopK = %v, want 12", got.TopK)
	}
	if got.ClipTokens != nil {
		t.Errorf("ClipTokens = %v, want nil for wrong type", *got.ClipTokens)
	}
	if got.SummaryLevel == nil || *got.SummaryLevel != "off" {
		t.Errorf("SummaryLevel = %v, want off", got.SummaryLevel)
	}
	if !got.SafeMode {
		t.Error("SafeMode not set")
	}

	if len(changes) != 1 || changes[0].Reason != SanitizeInvalidType || changes[0].Field != "clipTokens" {
		t.Errorf("changes = %+v, want single clipTokens invalid-type entry", changes)
	}
}

func TestOverridesFromMapRejectsNaN(t *testing.T) {
	raw := map[string]interface{}{
		"similarity_threshold": math.NaN(),
		"top_k":                math.Inf(1),
	}

	got, changes := OverridesFromMap(raw)
	if got.SimilarityThreshold != nil || got.TopK != nil {
		t.Errorf("non-finite values applied: %+v", got)
	}
	if len(changes) != 2 {
		t.Errorf("changes = %+v, want 2 invalid-type entries", changes)
	}
}

func TestResolve(t *testing.T) {
	defaults := DefaultGuardrailConfig()

	t.Run("no overrides returns defaults unchanged", func(t *testing.T) {
		got, changes := Resolve(defaults, SessionOverrides{})
		if !reflect.DeepEqual(got, defaults) {
			t.Errorf("config drifted:\ngot  %+v\nwant %+v", got, defaults)
		}
		if len(changes) != 0 {
			t.Errorf("changes = %+v, want none", changes)
		}
	})

	t.Run("fractional int override is rounded and audited", func(t *testing.T) {
		topK := 6.7
		got, changes := Resolve(defaults, SessionOverrides{TopK: &topK})
		if got.TopK != 7 {
			t.Errorf("TopK = %d, want 7", got.TopK)
		}
		found := false
		for _, c := range changes {
			if c.Field == "topK" && c.Reason == SanitizeRounded {
				found = true
			}
		}
		if !found {
			t.Errorf("no rounding audit entry in %+v", changes)
		}
	})

	t.Run("safe mode caps budgets", func(t *testing.T) {
		budget := 30000.0
		history := 16000.0
		got, _ := Resolve(defaults, SessionOverrides{
			ContextTokenBudget: &budget,
			HistoryTokenBudget: &history,
			SafeMode:           true,
		})
		if got.ContextTokenBudget != 2048 {
			t.Errorf("ContextTokenBudget = %d, want 2048", got.ContextTokenBudget)
		}
		if got.HistoryTokenBudget != 1024 {
			t.Errorf("HistoryTokenBudget = %d, want 1024", got.HistoryTokenBudget)
		}
	})

	t.Run("invalid summary level keeps admin flag", func(t *testing.T) {
		level := "sometimes"
		got, changes := Resolve(defaults, SessionOverrides{SummaryLevel: &level})
		if got.Summary.Enabled != defaults.Summary.Enabled {
			t.Errorf("Summary.Enabled = %v, want %v", got.Summary.Enabled, defaults.Summary.Enabled)
		}
		found := false
		for _, c := range changes {
			if c.Field == "summaryLevel" && c.Reason == SanitizeInvalidEnum {
				found = true
			}
		}
		if !found {
			t.Errorf("no invalid-enum audit entry in %+v", changes)
		}
	})

	t.Run("unknown rerank mode coerced to none", func(t *testing.T) {
		mode := "quantum"
		got, changes := Resolve(defaults, SessionOverrides{RerankMode: &mode})
		if got.RerankMode != RerankNone {
			t.Errorf("RerankMode = %q, want none", got.RerankMode)
		}
		if len(changes) == 0 {
			t.Error("expected an invalid-enum audit entry")
		}
	})

	t.Run("out-of-range threshold clamped", func(t *testing.T) {
		threshold := 1.8
		got, changes := Resolve(defaults, SessionOverrides{SimilarityThreshold: &threshold})
		if got.SimilarityThreshold != 1 {
			t.Errorf("SimilarityThreshold = %v, want 1", got.SimilarityThreshold)
		}
		if len(changes) != 1 || changes[0].Reason != SanitizeOutOfRange {
			t.Errorf("changes = %+v, want single out-of-range entry", changes)
		}
	})
}
