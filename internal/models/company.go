package models

import "time"

// Company is a tenant. Companies keep numeric identifiers because shareable
// invitation codes reversibly encode the company id.
type Company struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`

	OwnerID string `gorm:"type:uuid;not null;index" json:"owner_id"`
	Owner   *User  `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`

	// MemberLimit caps the number of member records; zero means unlimited.
	MemberLimit int `gorm:"default:0" json:"member_limit"`

	Members []CompanyMember `gorm:"foreignKey:CompanyID" json:"members,omitempty"`
}

// IsOwner reports whether the supplied user id owns the company.
func (c *Company) IsOwner(userID string) bool {
	return userID != "" && c.OwnerID == userID
}
