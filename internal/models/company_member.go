package models

import (
	"gorm.io/datatypes"
)

// MemberStatus is the closed set of membership states.
type MemberStatus string

const (
	MemberStatusPendingRequest MemberStatus = "pending_request"
	MemberStatusInvited        MemberStatus = "invited"
	MemberStatusActive         MemberStatus = "active"
	MemberStatusDeclined       MemberStatus = "declined"
)

// Valid reports whether the status is one of the known states.
func (s MemberStatus) Valid() bool {
	switch s {
	case MemberStatusPendingRequest, MemberStatusInvited, MemberStatusActive, MemberStatusDeclined:
		return true
	}
	return false
}

// CanTransitionTo enforces the one-directional membership state machine:
// pending_request|invited may move to active or declined; active and declined
// are terminal.
func (s MemberStatus) CanTransitionTo(next MemberStatus) bool {
	switch s {
	case MemberStatusPendingRequest, MemberStatusInvited:
		return next == MemberStatusActive || next == MemberStatusDeclined
	default:
		return false
	}
}

// PermissionManageMembers allows approving, declining and status-changing members.
const PermissionManageMembers = "company.manage_members"

// CompanyMember associates a user with a company. The composite unique index
// guarantees at most one record per (company, user) pair even under concurrent
// join attempts.
type CompanyMember struct {
	BaseModel

	CompanyID uint64   `gorm:"not null;uniqueIndex:idx_company_user" json:"company_id"`
	Company   *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`

	UserID string `gorm:"type:uuid;not null;uniqueIndex:idx_company_user" json:"user_id"`
	User   *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Status MemberStatus `gorm:"type:varchar(32);not null;index" json:"status"`

	// InvitationCode is set on records created through an invite.
	InvitationCode *string `json:"invitation_code,omitempty"`
	InvitedBy      *string `gorm:"type:uuid" json:"invited_by,omitempty"`

	Role        string                       `gorm:"type:varchar(64)" json:"role"`
	Permissions datatypes.JSONSlice[string] `json:"permissions"`
}

// IsActive reports whether the member currently holds active status.
func (m *CompanyMember) IsActive() bool {
	return m.Status == MemberStatusActive
}

// HasPermission checks the member's permission flags.
func (m *CompanyMember) HasPermission(permission string) bool {
	for _, p := range m.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}
