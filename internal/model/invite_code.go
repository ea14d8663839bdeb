package model

import (
	"time"

	"github.com/google/uuid"
)

// InviteCode is a single-use, time-limited token bound to a group.
// Used flips from false to true exactly once; an expired code is terminal even if unused.
type InviteCode struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Code      string     `gorm:"type:varchar(16);uniqueIndex;not null" json:"code"`
	GroupID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"group_id"`
	CreatedBy uuid.UUID  `gorm:"type:uuid;not null;index" json:"created_by"`
	Used      bool       `gorm:"not null;default:false" json:"used"`
	UsedBy    *uuid.UUID `gorm:"type:uuid" json:"used_by,omitempty"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
}

func (InviteCode) TableName() string { return "invite_codes" }

// Expired reports whether the code can no longer be redeemed at t.
func (c *InviteCode) Expired(t time.Time) bool {
	return t.After(c.ExpiresAt)
}
