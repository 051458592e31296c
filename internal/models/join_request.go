package models

import "time"

// JoinRequest backs the signed request-code join path. The shareable code is a
// random token of at least 64 characters; only its SHA-256 hash is stored.
type JoinRequest struct {
	BaseModel

	CompanyID uint64   `gorm:"not null;index" json:"company_id"`
	Company   *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`

	Email     string  `gorm:"not null;index" json:"email"`
	UserID    *string `gorm:"type:uuid" json:"user_id,omitempty"`
	TokenHash string  `gorm:"not null;uniqueIndex" json:"-"`

	ExpiresAt  time.Time  `gorm:"index" json:"expires_at"`
	UsedAt     *time.Time `json:"used_at"`
	DeclinedAt *time.Time `json:"declined_at"`
}
