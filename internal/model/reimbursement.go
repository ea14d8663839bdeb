package model

import (
	"time"

	"github.com/google/uuid"
)

type ReimbursementStatus string

const (
	StatusApproved ReimbursementStatus = "Approved"
	StatusRejected ReimbursementStatus = "Rejected"
)

func (s ReimbursementStatus) Valid() bool {
	return s == StatusApproved || s == StatusRejected
}

// ReimbursementRequest is written once, after the classifier has decided, and never updated.
// ID is a monotonic ULID so that rows created in the same instant keep insertion order.
type ReimbursementRequest struct {
	ID          string              `gorm:"type:char(26);primaryKey" json:"id"`
	UserID      uuid.UUID           `gorm:"type:uuid;not null;index" json:"user_id"`
	UserEmail   string              `gorm:"type:varchar(320);not null" json:"user_email"`
	AdminEmail  string              `gorm:"type:varchar(320);not null;index" json:"admin_email"`
	GroupID     uuid.UUID           `gorm:"type:uuid;not null;index" json:"group_id"`
	Details     string              `gorm:"type:text;not null" json:"reimbursement_details"`
	ReceiptPath string              `gorm:"type:varchar(512);not null;index" json:"receipt_path"`
	Status      ReimbursementStatus `gorm:"type:varchar(16);not null" json:"status"`
	Feedback    string              `gorm:"type:text;not null" json:"feedback"`
	CreatedAt   time.Time           `gorm:"not null;index" json:"created_at"`
}

func (ReimbursementRequest) TableName() string { return "reimbursement_requests" }
