package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// GuardrailSetting is one admin-managed configuration record. The engine
// only reads these; the admin surface that writes them lives elsewhere.
type GuardrailSetting struct {
	Key       string         `gorm:"type:text;primaryKey"`
	Value     datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (GuardrailSetting) TableName() string {
	return "guardrail_settings"
}

// SessionSetting holds per-session guardrail overrides as an untrusted
// key/value record. Values are sanitized on read, never on write.
type SessionSetting struct {
	SessionId uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Overrides datatypes.JSON `gorm:"type:jsonb"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (SessionSetting) TableName() string {
	return "session_settings"
}
