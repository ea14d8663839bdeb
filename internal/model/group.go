package model

import (
	"time"

	"github.com/google/uuid"
)

// Group is a company group administered by the user who issued its first invite code.
// MemberCount is a cache of the number of group_memberships rows for the group and is
// only ever changed in the same transaction that inserts a membership.
type Group struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(128);not null" json:"name"`
	Company     string    `gorm:"type:varchar(128);not null" json:"company"`
	AdminID     uuid.UUID `gorm:"type:uuid;not null;index" json:"admin_id"`
	AdminEmail  string    `gorm:"type:varchar(320);not null;index" json:"admin_email"`
	InviteCode  string    `gorm:"type:varchar(16);uniqueIndex;not null" json:"invite_code"`
	IsPrivate   bool      `gorm:"not null;default:false" json:"is_private"`
	MemberCount int       `gorm:"not null;default:1" json:"member_count"`
	LastActive  time.Time `gorm:"not null" json:"last_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Group) TableName() string { return "company_groups" }
