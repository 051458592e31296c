package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/crewdeckhq/crewdeck/internal/models"
	"github.com/crewdeckhq/crewdeck/internal/services"
	"github.com/crewdeckhq/crewdeck/pkg/response"
)

func TestCompanyMemberHandlerRequestJoinAndApprove(t *testing.T) {
	fixture := newHandlerFixture(t, "member_request")
	owner := fixture.createUser(t, "request_owner")
	joiner := fixture.createUser(t, "request_joiner")
	company := fixture.createCompany(t, owner.ID, "Request Inc")

	c, recorder := jsonRequest(t, joiner.ID, companyParam(company), nil)
	fixture.members.RequestJoin(c)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), "Success send request to company.")

	var pending models.CompanyMember
	require.NoError(t, fixture.db.
		Where("company_id = ? AND user_id = ?", company.ID, joiner.ID).
		First(&pending).Error)
	require.Equal(t, models.MemberStatusPendingRequest, pending.Status)

	approveCtx, approveRecorder := jsonRequest(t, owner.ID, companyParam(company), map[string]string{
		"member_id": pending.ID,
	})
	fixture.members.ApproveRequestJoin(approveCtx)

	require.Equal(t, http.StatusOK, approveRecorder.Code)

	var approved models.CompanyMember
	require.NoError(t, fixture.db.First(&approved, "id = ?", pending.ID).Error)
	require.Equal(t, models.MemberStatusActive, approved.Status)
}

func TestCompanyMemberHandlerApproveRequiresMemberID(t *testing.T) {
	fixture := newHandlerFixture(t, "member_approve_validation")
	owner := fixture.createUser(t, "approve_owner")
	company := fixture.createCompany(t, owner.ID, "Approve Inc")

	c, recorder := jsonRequest(t, owner.ID, companyParam(company), map[string]string{})
	fixture.members.ApproveRequestJoin(c)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestCompanyMemberHandlerDeclineRequestJoin(t *testing.T) {
	fixture := newHandlerFixture(t, "member_decline")
	owner := fixture.createUser(t, "decline_owner")
	joiner := fixture.createUser(t, "decline_joiner")
	company := fixture.createCompany(t, owner.ID, "Decline Inc")

	requestCtx, _ := jsonRequest(t, joiner.ID, companyParam(company), nil)
	fixture.members.RequestJoin(requestCtx)

	var pending models.CompanyMember
	require.NoError(t, fixture.db.
		Where("company_id = ? AND user_id = ?", company.ID, joiner.ID).
		First(&pending).Error)

	c, recorder := jsonRequest(t, owner.ID, companyParam(company), map[string]string{
		"member_id": pending.ID,
	})
	fixture.members.DeclineRequestJoin(c)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), "Success decline action.")

	var declined models.CompanyMember
	require.NoError(t, fixture.db.First(&declined, "id = ?", pending.ID).Error)
	require.Equal(t, models.MemberStatusDeclined, declined.Status)
}

func TestCompanyMemberHandlerInviteValidation(t *testing.T) {
	fixture := newHandlerFixture(t, "member_invite_validation")
	owner := fixture.createUser(t, "invite_owner")
	company := fixture.createCompany(t, owner.ID, "Invite Inc")

	// Neither user_ids nor emails supplied.
	c, recorder := jsonRequest(t, owner.ID, companyParam(company), map[string]any{})
	fixture.members.Invite(c)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	require.Contains(t, recorder.Body.String(), "user_ids or emails is required")

	// A malformed email is rejected by validation.
	badCtx, badRecorder := jsonRequest(t, owner.ID, companyParam(company), map[string]any{
		"emails": []string{"not-an-email"},
	})
	fixture.members.Invite(badCtx)
	require.Equal(t, http.StatusBadRequest, badRecorder.Code)
}

func TestCompanyMemberHandlerInviteUsersAndEmails(t *testing.T) {
	fixture := newHandlerFixture(t, "member_invite")
	owner := fixture.createUser(t, "invite_flow_owner")
	invitee := fixture.createUser(t, "invite_flow_member")
	company := fixture.createCompany(t, owner.ID, "Invite Flow Inc")

	c, recorder := jsonRequest(t, owner.ID, companyParam(company), map[string]any{
		"user_ids": []string{invitee.ID},
		"emails":   []string{"newcomer@example.com"},
	})
	fixture.members.Invite(c)

	require.Equal(t, http.StatusOK, recorder.Code)

	var payload response.Response
	decodeResponse(t, recorder, &payload)
	require.True(t, payload.Success)

	raw, err := json.Marshal(payload.Data)
	require.NoError(t, err)
	var result services.InviteResult
	require.NoError(t, json.Unmarshal(raw, &result))
	require.Len(t, result.Members, 1)
	require.Len(t, result.EmailInvites, 1)
	require.Equal(t, "newcomer@example.com", result.EmailInvites[0].Email)
	require.Contains(t, result.EmailInvites[0].Link, "/companies-join?code=")
}

func TestCompanyMemberHandlerSendReminderWithoutBody(t *testing.T) {
	fixture := newHandlerFixture(t, "member_reminder")
	owner := fixture.createUser(t, "reminder_owner")
	invitee := fixture.createUser(t, "reminder_member")
	company := fixture.createCompany(t, owner.ID, "Reminder Inc")

	inviteCtx, _ := jsonRequest(t, owner.ID, companyParam(company), map[string]any{
		"user_ids": []string{invitee.ID},
	})
	fixture.members.Invite(inviteCtx)

	c, recorder := jsonRequest(t, owner.ID, companyParam(company), nil)
	fixture.members.SendReminder(c)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), "Successfully sent reminder.")
}

func TestCompanyMemberHandlerJoinWithInvitationCode(t *testing.T) {
	fixture := newHandlerFixture(t, "member_join")
	owner := fixture.createUser(t, "join_owner")
	joiner := fixture.createUser(t, "join_member")
	company := fixture.createCompany(t, owner.ID, "Join Inc")

	code, _, err := fixture.invitationService.CompanyInvitationLink(company.ID)
	require.NoError(t, err)

	c, recorder := jsonRequest(t, joiner.ID, nil, map[string]string{"code": code})
	fixture.members.Join(c)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), "Success join to company.")

	var member models.CompanyMember
	require.NoError(t, fixture.db.
		Where("company_id = ? AND user_id = ?", company.ID, joiner.ID).
		First(&member).Error)
	require.Equal(t, models.MemberStatusActive, member.Status)
}

func TestCompanyMemberHandlerJoinRejectsBadCode(t *testing.T) {
	fixture := newHandlerFixture(t, "member_join_bad")
	joiner := fixture.createUser(t, "join_bad_member")

	c, recorder := jsonRequest(t, joiner.ID, nil, map[string]string{"code": "garbage"})
	fixture.members.Join(c)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	require.Contains(t, recorder.Body.String(), "Code is invalid.")
}

func TestCompanyMemberHandlerDeclineInvitation(t *testing.T) {
	fixture := newHandlerFixture(t, "member_decline_invite")
	owner := fixture.createUser(t, "decline_invite_owner")
	invitee := fixture.createUser(t, "decline_invite_member")
	company := fixture.createCompany(t, owner.ID, "Decline Invite Inc")

	inviteCtx, _ := jsonRequest(t, owner.ID, companyParam(company), map[string]any{
		"user_ids": []string{invitee.ID},
	})
	fixture.members.Invite(inviteCtx)

	var invited models.CompanyMember
	require.NoError(t, fixture.db.
		Where("company_id = ? AND user_id = ?", company.ID, invitee.ID).
		First(&invited).Error)
	require.NotNil(t, invited.InvitationCode)

	c, recorder := jsonRequest(t, invitee.ID, nil, map[string]string{"code": *invited.InvitationCode})
	fixture.members.Decline(c)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), "Success decline join to company.")

	var declined models.CompanyMember
	require.NoError(t, fixture.db.First(&declined, "id = ?", invited.ID).Error)
	require.Equal(t, models.MemberStatusDeclined, declined.Status)
}

func TestCompanyMemberHandlerChangeStatusAndRemove(t *testing.T) {
	fixture := newHandlerFixture(t, "member_manage")
	owner := fixture.createUser(t, "manage_owner")
	member := fixture.createUser(t, "manage_member")
	company := fixture.createCompany(t, owner.ID, "Manage Inc")

	invited := models.CompanyMember{
		CompanyID: company.ID,
		UserID:    member.ID,
		Status:    models.MemberStatusInvited,
	}
	require.NoError(t, fixture.db.Create(&invited).Error)

	c, recorder := jsonRequest(t, owner.ID, companyParam(company), map[string]string{
		"member_id": invited.ID,
		"status":    string(models.MemberStatusActive),
	})
	fixture.members.ChangeStatus(c)
	require.Equal(t, http.StatusOK, recorder.Code)

	removeCtx, removeRecorder := jsonRequest(t, owner.ID, gin.Params{
		gin.Param{Key: "id", Value: companyParam(company)[0].Value},
		gin.Param{Key: "memberID", Value: invited.ID},
	}, nil)
	fixture.members.Remove(removeCtx)

	require.Equal(t, http.StatusOK, removeRecorder.Code)
	require.Contains(t, removeRecorder.Body.String(), "Successfully removed the member.")

	var count int64
	require.NoError(t, fixture.db.Model(&models.CompanyMember{}).
		Where("id = ?", invited.ID).Count(&count).Error)
	require.Zero(t, count)
}

func TestCompanyMemberHandlerRemoveRequiresOwner(t *testing.T) {
	fixture := newHandlerFixture(t, "member_remove_denied")
	owner := fixture.createUser(t, "remove_owner")
	member := fixture.createUser(t, "remove_member")
	company := fixture.createCompany(t, owner.ID, "Remove Inc")

	active := models.CompanyMember{
		CompanyID: company.ID,
		UserID:    member.ID,
		Status:    models.MemberStatusActive,
	}
	require.NoError(t, fixture.db.Create(&active).Error)

	c, recorder := jsonRequest(t, member.ID, gin.Params{
		gin.Param{Key: "id", Value: companyParam(company)[0].Value},
		gin.Param{Key: "memberID", Value: active.ID},
	}, nil)
	fixture.members.Remove(c)

	require.Equal(t, http.StatusForbidden, recorder.Code)
	require.Contains(t, recorder.Body.String(), "Access denied.")
}

func TestCompanyMemberHandlerListWithPagination(t *testing.T) {
	fixture := newHandlerFixture(t, "member_list")
	owner := fixture.createUser(t, "list_members_owner")
	company := fixture.createCompany(t, owner.ID, "List Members Inc")

	for _, name := range []string{"list_m1", "list_m2"} {
		user := fixture.createUser(t, name)
		record := models.CompanyMember{
			CompanyID: company.ID,
			UserID:    user.ID,
			Status:    models.MemberStatusActive,
		}
		require.NoError(t, fixture.db.Create(&record).Error)
	}

	c, recorder := jsonRequest(t, owner.ID, companyParam(company), nil)
	c.Request.URL.RawQuery = "page=1&per_page=2"
	fixture.members.List(c)

	require.Equal(t, http.StatusOK, recorder.Code)

	var payload response.Response
	decodeResponse(t, recorder, &payload)
	require.True(t, payload.Success)
	require.NotNil(t, payload.Meta)
	require.Equal(t, int64(3), payload.Meta.Total)
	require.Equal(t, 2, payload.Meta.PerPage)
}
