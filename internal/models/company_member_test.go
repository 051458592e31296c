package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemberStatusTransitions(t *testing.T) {
	cases := []struct {
		from    MemberStatus
		to      MemberStatus
		allowed bool
	}{
		{MemberStatusPendingRequest, MemberStatusActive, true},
		{MemberStatusPendingRequest, MemberStatusDeclined, true},
		{MemberStatusInvited, MemberStatusActive, true},
		{MemberStatusInvited, MemberStatusDeclined, true},
		{MemberStatusActive, MemberStatusDeclined, false},
		{MemberStatusActive, MemberStatusPendingRequest, false},
		{MemberStatusDeclined, MemberStatusActive, false},
		{MemberStatusPendingRequest, MemberStatusInvited, false},
	}

	for _, tc := range cases {
		require.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestMemberStatusValid(t *testing.T) {
	require.True(t, MemberStatusInvited.Valid())
	require.False(t, MemberStatus("banned").Valid())
}

func TestMemberHasPermission(t *testing.T) {
	member := CompanyMember{Permissions: []string{PermissionManageMembers}}
	require.True(t, member.HasPermission(PermissionManageMembers))
	require.False(t, member.HasPermission("company.billing"))
}

func TestCompanyIsOwner(t *testing.T) {
	company := Company{OwnerID: "owner-id"}
	require.True(t, company.IsOwner("owner-id"))
	require.False(t, company.IsOwner("someone-else"))
	require.False(t, company.IsOwner(""))
}
