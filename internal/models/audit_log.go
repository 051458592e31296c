package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLog records one membership mutation: who did what to which resource
// and how it ended. Rows are append-only; maintenance prunes them by age.
type AuditLog struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	UserID *string `gorm:"type:uuid;index" json:"user_id"`
	User   *User   `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Action   string `gorm:"not null;index" json:"action"`
	Resource string `gorm:"index" json:"resource"`
	Result   string `gorm:"not null" json:"result"`

	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`

	// Metadata holds action-specific detail as a JSON document.
	Metadata string `gorm:"type:json" json:"metadata"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
