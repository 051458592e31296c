package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crewdeckhq/crewdeck/internal/models"
	"github.com/crewdeckhq/crewdeck/internal/services"
	apperrors "github.com/crewdeckhq/crewdeck/pkg/errors"
	"github.com/crewdeckhq/crewdeck/pkg/response"
)

// CompanyMemberHandler exposes the membership endpoints: listing, join and
// leave flows, the approval workflow and invitation management.
type CompanyMemberHandler struct {
	memberships *services.MembershipService
	invitations *services.InvitationService
}

// NewCompanyMemberHandler constructs a company member handler.
func NewCompanyMemberHandler(memberships *services.MembershipService, invitations *services.InvitationService) *CompanyMemberHandler {
	return &CompanyMemberHandler{
		memberships: memberships,
		invitations: invitations,
	}
}

// List returns a filtered, paginated page of company members.
func (h *CompanyMemberHandler) List(c *gin.Context) {
	companyID, err := companyIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 25)

	members, total, err := h.memberships.ListMembers(requestContext(c), currentUserID(c), companyID, services.ListMembersInput{
		Status:   c.Query("status"),
		Search:   c.Query("search"),
		Page:     page,
		PageSize: perPage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, members, response.PageMeta(page, perPage, total))
}

// RequestJoin creates a pending join request for the caller.
func (h *CompanyMemberHandler) RequestJoin(c *gin.Context) {
	companyID, err := companyIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	if _, err := h.memberships.RequestJoin(requestContext(c), currentUserID(c), companyID); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "Success send request to company.")
}

type memberActionRequest struct {
	MemberID string `json:"member_id" validate:"required"`
}

// ApproveRequestJoin activates a pending join request.
func (h *CompanyMemberHandler) ApproveRequestJoin(c *gin.Context) {
	companyID, err := companyIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var payload memberActionRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	member, err := h.memberships.ApproveRequestJoin(requestContext(c), currentUserID(c), companyID, payload.MemberID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, member)
}

// DeclineRequestJoin declines a pending join request.
func (h *CompanyMemberHandler) DeclineRequestJoin(c *gin.Context) {
	companyID, err := companyIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var payload memberActionRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	if _, err := h.memberships.DeclineRequestJoin(requestContext(c), currentUserID(c), companyID, payload.MemberID); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "Success decline action.")
}

type changeStatusRequest struct {
	MemberID string `json:"member_id" validate:"required"`
	Status   string `json:"status" validate:"required"`
}

// ChangeStatus applies a status transition to a member record.
func (h *CompanyMemberHandler) ChangeStatus(c *gin.Context) {
	companyID, err := companyIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var payload changeStatusRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	member, err := h.memberships.ChangeStatus(requestContext(c), currentUserID(c), companyID, services.ChangeStatusInput{
		MemberID: payload.MemberID,
		Status:   models.MemberStatus(payload.Status),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, member)
}

// Leave removes the caller's own membership.
func (h *CompanyMemberHandler) Leave(c *gin.Context) {
	companyID, err := companyIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.memberships.Leave(requestContext(c), currentUserID(c), companyID); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "Successfully leaved the company.")
}

// Remove deletes a member record, owner only.
func (h *CompanyMemberHandler) Remove(c *gin.Context) {
	companyID, err := companyIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	memberID := c.Param("memberID")
	if err := h.memberships.Remove(requestContext(c), currentUserID(c), companyID, memberID); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "Successfully removed the member.")
}

type inviteRequest struct {
	UserIDs []string `json:"user_ids" validate:"omitempty,dive,required"`
	Emails  []string `json:"emails" validate:"omitempty,dive,email"`
}

// Invite creates invited records or signed request codes for the targets.
func (h *CompanyMemberHandler) Invite(c *gin.Context) {
	companyID, err := companyIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var payload inviteRequest
	if !bindAndValidate(c, &payload) {
		return
	}
	if len(payload.UserIDs) == 0 && len(payload.Emails) == 0 {
		response.Error(c, apperrors.NewBadRequest("user_ids or emails is required"))
		return
	}

	result, err := h.invitations.Invite(requestContext(c), currentUserID(c), companyID, services.InviteInput{
		UserIDs: payload.UserIDs,
		Emails:  payload.Emails,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

type reminderRequest struct {
	MemberIDs []string `json:"member_ids"`
}

// SendReminder re-notifies invited members.
func (h *CompanyMemberHandler) SendReminder(c *gin.Context) {
	companyID, err := companyIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	// The body is optional; an empty list reminds every invited member.
	var payload reminderRequest
	_ = c.ShouldBindJSON(&payload)

	if _, err := h.invitations.SendReminder(requestContext(c), currentUserID(c), companyID, payload.MemberIDs); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "Successfully sent reminder.")
}

type codeRequest struct {
	Code string `json:"code" validate:"required"`
}

// Join accepts an invitation or join code on behalf of the caller. Anonymous
// callers may redeem signed request codes; the endpoint runs behind optional
// authentication.
func (h *CompanyMemberHandler) Join(c *gin.Context) {
	var payload codeRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	if _, err := h.invitations.Join(requestContext(c), currentUserID(c), payload.Code); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "Success join to company.")
}

// Decline rejects an invitation or join code.
func (h *CompanyMemberHandler) Decline(c *gin.Context) {
	var payload codeRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	if err := h.invitations.Decline(requestContext(c), currentUserID(c), payload.Code); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "Success decline join to company.")
}

type invitationLinkRequest struct {
	EventID uint64 `json:"event_id"`
}

// GenerateInvitationLink produces a shareable code and URL for the company,
// or for an event when event_id is supplied.
func (h *CompanyMemberHandler) GenerateInvitationLink(c *gin.Context) {
	companyID, err := companyIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	// The body is optional; without an event_id the company link is produced.
	var payload invitationLinkRequest
	_ = c.ShouldBindJSON(&payload)

	var code, link string
	if payload.EventID != 0 {
		code, link, err = h.invitations.EventInvitationLink(payload.EventID)
	} else {
		code, link, err = h.invitations.CompanyInvitationLink(companyID)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"code": code, "link": link})
}
