// FILE: pkg/configstore/gorm_store.go
// PURPOSE: GORM-backed config store with a TTL snapshot and compiled
// fallback

package configstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"rag-context-be/internal/model"
	"rag-context-be/internal/pkg/logger"
	"rag-context-be/pkg/guardrail"
	"rag-context-be/pkg/store"
)

// defaultsKey is the settings row holding the guardrail numeric defaults.
const defaultsKey = "guardrail_defaults"

type GormStore struct {
	db       *gorm.DB
	logger   logger.ILogger
	snapshot *store.Snapshot[guardrail.GuardrailConfig]
	warnOnce sync.Once
}

var _ Store = &GormStore{}

// NewGormStore builds a store whose admin defaults are cached for ttl.
// now is injectable for tests; pass nil for the wall clock.
func NewGormStore(db *gorm.DB, log logger.ILogger, ttl time.Duration, now func() time.Time) *GormStore {
	if log == nil {
		log = logger.NewNop()
	}
	s := &GormStore{db: db, logger: log}
	s.snapshot = store.NewSnapshot(ttl, now, s.fetchDefaults)
	return s
}

// Defaults serves the admin defaults through the TTL snapshot. When the
// database is unreachable and no snapshot exists yet, it falls back to the
// compiled-in defaults and keeps serving (degraded but functional).
func (s *GormStore) Defaults(ctx context.Context) (guardrail.GuardrailConfig, bool) {
	cfg, fromCache, err := s.snapshot.Get(ctx)
	if err != nil {
		s.warnOnce.Do(func() {
			s.logger.Warn("configstore", "guardrail defaults unavailable, serving compiled-in values", map[string]interface{}{
				"error": err.Error(),
			})
		})
		if !fromCache {
			return guardrail.DefaultGuardrailConfig(), false
		}
		// stale snapshot beats compiled defaults
	}
	return cfg, fromCache
}

// fetchDefaults reads the settings row and overlays it onto the compiled
// defaults, so a partial row (only some keys set by the admin) still
// yields a complete config.
func (s *GormStore) fetchDefaults(ctx context.Context) (guardrail.GuardrailConfig, error) {
	var row model.GuardrailSetting
	err := s.db.WithContext(ctx).
		Where("key = ?", defaultsKey).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return guardrail.DefaultGuardrailConfig(), nil
	}
	if err != nil {
		return guardrail.GuardrailConfig{}, err
	}

	cfg := guardrail.DefaultGuardrailConfig()
	if err := json.Unmarshal(row.Value, &cfg); err != nil {
		s.logger.Warn("configstore", "unreadable guardrail defaults row, using compiled-in values", map[string]interface{}{
			"error": err.Error(),
		})
		return guardrail.DefaultGuardrailConfig(), nil
	}

	// Admin rows are trusted less than code: sanitize before caching.
	sanitized, changes := guardrail.SanitizeChatSettings(cfg)
	if len(changes) > 0 {
		s.logger.Warn("configstore", "sanitized admin guardrail defaults", map[string]interface{}{
			"changes": changes,
		})
	}
	return sanitized, nil
}

// SessionOverrides reads the per-session settings row. Any read failure
// yields zero overrides; a missing row is the common case, not an error.
func (s *GormStore) SessionOverrides(ctx context.Context, sessionID uuid.UUID) (guardrail.SessionOverrides, []guardrail.SanitizationChange) {
	var row model.SessionSetting
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("configstore", "session overrides read failed, using defaults only", map[string]interface{}{
				"session_id": sessionID.String(),
				"error":      err.Error(),
			})
		}
		return guardrail.SessionOverrides{}, nil
	}

	raw := map[string]interface{}{}
	if len(row.Overrides) > 0 {
		if err := json.Unmarshal(row.Overrides, &raw); err != nil {
			s.logger.Warn("configstore", "unreadable session overrides, ignoring", map[string]interface{}{
				"session_id": sessionID.String(),
			})
			return guardrail.SessionOverrides{}, nil
		}
	}

	return guardrail.OverridesFromMap(raw)
}

// StaticStore serves fixed values. Used in tests and as the wiring when no
// database is configured.
type StaticStore struct {
	Config    guardrail.GuardrailConfig
	Overrides map[uuid.UUID]guardrail.SessionOverrides
}

var _ Store = &StaticStore{}

func NewStaticStore(cfg guardrail.GuardrailConfig) *StaticStore {
	return &StaticStore{Config: cfg}
}

func (s *StaticStore) Defaults(context.Context) (guardrail.GuardrailConfig, bool) {
	return s.Config, false
}

func (s *StaticStore) SessionOverrides(_ context.Context, sessionID uuid.UUID) (guardrail.SessionOverrides, []guardrail.SanitizationChange) {
	if s.Overrides != nil {
		if ov, ok := s.Overrides[sessionID]; ok {
			return ov, nil
		}
	}
	return guardrail.SessionOverrides{}, nil
}
