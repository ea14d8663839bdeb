package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleMember || r == RoleAdmin
}

type User struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string         `gorm:"type:varchar(128);not null" json:"name"`
	Company       string         `gorm:"type:varchar(128);not null" json:"company"`
	Email         string         `gorm:"type:varchar(320);not null" json:"email"`
	PasswordHash  string         `gorm:"type:varchar(128);not null" json:"-"`
	Role          Role           `gorm:"type:varchar(16);not null;default:member" json:"role"`
	ActiveGroupID *uuid.UUID     `gorm:"type:uuid;index" json:"active_group_id,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }
