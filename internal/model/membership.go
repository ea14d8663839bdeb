package model

import (
	"time"

	"github.com/google/uuid"
)

type Membership struct {
	UserID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	GroupID  uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"group_id"`
	JoinedAt time.Time `gorm:"not null" json:"joined_at"`
}

func (Membership) TableName() string { return "group_memberships" }
