package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/crewdeckhq/crewdeck/internal/events"
	"github.com/crewdeckhq/crewdeck/internal/models"
	apperrors "github.com/crewdeckhq/crewdeck/pkg/errors"
	"github.com/crewdeckhq/crewdeck/pkg/metrics"
)

// ListMembersInput defines filters for querying company members.
type ListMembersInput struct {
	Status   string
	Search   string
	Page     int
	PageSize int
}

// ChangeStatusInput identifies a member record and its requested status.
type ChangeStatusInput struct {
	MemberID string
	Status   models.MemberStatus
}

// MembershipService orchestrates the membership state machine: request-join,
// approve, decline, status change, leave and remove. Every operation takes the
// caller's identity explicitly and checks authorization before any mutation.
type MembershipService struct {
	db           *gorm.DB
	auditService *AuditService
	checker      PermissionChecker
	bus          *events.Bus
}

// NewMembershipService constructs a MembershipService instance.
func NewMembershipService(db *gorm.DB, auditService *AuditService, checker PermissionChecker, bus *events.Bus) (*MembershipService, error) {
	if db == nil {
		return nil, errors.New("membership service: db is required")
	}
	return &MembershipService{
		db:           db,
		auditService: auditService,
		checker:      checker,
		bus:          bus,
	}, nil
}

// ListMembers returns a filtered, paginated page of the company's members.
// Only active members and the owner may list.
func (s *MembershipService) ListMembers(ctx context.Context, callerID string, companyID uint64, input ListMembersInput) ([]models.CompanyMember, int64, error) {
	ctx = ensureContext(ctx)

	company, err := s.loadCompany(ctx, companyID)
	if err != nil {
		return nil, 0, err
	}
	if err := s.requireActiveMember(ctx, callerID, company); err != nil {
		return nil, 0, err
	}

	page := input.Page
	if page <= 0 {
		page = 1
	}
	perPage := input.PageSize
	if perPage <= 0 || perPage > 100 {
		perPage = 25
	}

	query := s.db.WithContext(ctx).
		Model(&models.CompanyMember{}).
		Where("company_id = ?", companyID)

	if status := strings.TrimSpace(input.Status); status != "" {
		if !models.MemberStatus(status).Valid() {
			return nil, 0, apperrors.NewBadRequest("Unknown member status.")
		}
		query = query.Where("status = ?", status)
	}
	if search := strings.TrimSpace(input.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Joins("JOIN users ON users.id = company_members.user_id").
			Where("LOWER(users.username) LIKE ? OR LOWER(users.email) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("membership service: count members: %w", err)
	}

	var members []models.CompanyMember
	if err := query.
		Preload("User").
		Order("company_members.created_at ASC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&members).Error; err != nil {
		return nil, 0, fmt.Errorf("membership service: list members: %w", err)
	}

	return members, total, nil
}

// RequestJoin creates a PENDING_REQUEST record for the caller. Checks precede
// any mutation: the member limit, the owner check and the duplicate check all
// reject before a record is written.
func (s *MembershipService) RequestJoin(ctx context.Context, callerID string, companyID uint64) (*models.CompanyMember, error) {
	ctx = ensureContext(ctx)

	callerID = strings.TrimSpace(callerID)
	if callerID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	company, err := s.loadCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if company.IsOwner(callerID) {
		return nil, ErrAccessDenied
	}
	if err := s.checkMemberLimit(ctx, company); err != nil {
		return nil, err
	}

	var existing models.CompanyMember
	err = s.db.WithContext(ctx).
		Where("company_id = ? AND user_id = ?", companyID, callerID).
		First(&existing).Error
	if err == nil {
		return nil, ErrMembershipExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("membership service: load membership: %w", err)
	}

	member := models.CompanyMember{
		CompanyID: companyID,
		UserID:    callerID,
		Status:    models.MemberStatusPendingRequest,
	}
	if err := s.db.WithContext(ctx).Create(&member).Error; err != nil {
		// The unique index closes the race between the lookup and the insert.
		if isUniqueConstraintError(err) {
			return nil, ErrMembershipExists
		}
		return nil, fmt.Errorf("membership service: create request: %w", err)
	}

	metrics.MembershipTransitions.WithLabelValues(string(models.MemberStatusPendingRequest)).Inc()
	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &callerID,
		Action:   "member.request_join",
		Resource: fmt.Sprintf("company:%d", companyID),
		Result:   "success",
	})

	return &member, nil
}

// ApproveRequestJoin transitions a PENDING_REQUEST record to ACTIVE and
// publishes the join event.
func (s *MembershipService) ApproveRequestJoin(ctx context.Context, callerID string, companyID uint64, memberID string) (*models.CompanyMember, error) {
	return s.resolveRequest(ctx, callerID, companyID, memberID, models.MemberStatusActive)
}

// DeclineRequestJoin transitions a PENDING_REQUEST record to DECLINED.
func (s *MembershipService) DeclineRequestJoin(ctx context.Context, callerID string, companyID uint64, memberID string) (*models.CompanyMember, error) {
	return s.resolveRequest(ctx, callerID, companyID, memberID, models.MemberStatusDeclined)
}

func (s *MembershipService) resolveRequest(ctx context.Context, callerID string, companyID uint64, memberID string, next models.MemberStatus) (*models.CompanyMember, error) {
	ctx = ensureContext(ctx)

	company, err := s.loadCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if err := s.requireManageMembers(ctx, callerID, company); err != nil {
		return nil, err
	}

	member, err := s.loadMember(ctx, companyID, memberID)
	if err != nil {
		return nil, err
	}
	if member.Status != models.MemberStatusPendingRequest {
		return nil, apperrors.NewBadRequest("Member is not pending a join request.")
	}

	if err := s.transition(ctx, member, next); err != nil {
		return nil, err
	}

	action := "member.approve_request"
	if next == models.MemberStatusDeclined {
		action = "member.decline_request"
	}
	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &callerID,
		Action:   action,
		Resource: fmt.Sprintf("company:%d", companyID),
		Result:   "success",
		Metadata: map[string]any{"member_id": member.ID, "user_id": member.UserID},
	})

	if next == models.MemberStatusActive {
		s.publishJoined(company.ID, member)
	}

	return member, nil
}

// ChangeStatus applies an arbitrary allowed transition to a member record.
// Targeting the owner is always rejected.
func (s *MembershipService) ChangeStatus(ctx context.Context, callerID string, companyID uint64, input ChangeStatusInput) (*models.CompanyMember, error) {
	ctx = ensureContext(ctx)

	company, err := s.loadCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if err := s.requireManageMembers(ctx, callerID, company); err != nil {
		return nil, err
	}
	if !input.Status.Valid() {
		return nil, apperrors.NewBadRequest("Unknown member status.")
	}

	member, err := s.loadMember(ctx, companyID, input.MemberID)
	if err != nil {
		return nil, err
	}
	if company.IsOwner(member.UserID) {
		return nil, ErrOwnerNotRemovable
	}

	if err := s.transition(ctx, member, input.Status); err != nil {
		return nil, err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &callerID,
		Action:   "member.change_status",
		Resource: fmt.Sprintf("company:%d", companyID),
		Result:   "success",
		Metadata: map[string]any{"member_id": member.ID, "status": string(input.Status)},
	})

	if input.Status == models.MemberStatusActive {
		s.publishJoined(company.ID, member)
	}

	return member, nil
}

// Leave removes the caller's own membership record. The owner cannot leave.
func (s *MembershipService) Leave(ctx context.Context, callerID string, companyID uint64) error {
	ctx = ensureContext(ctx)

	callerID = strings.TrimSpace(callerID)
	if callerID == "" {
		return apperrors.ErrUnauthorized
	}

	company, err := s.loadCompany(ctx, companyID)
	if err != nil {
		return err
	}
	if company.IsOwner(callerID) {
		return ErrAccessDenied
	}

	var member models.CompanyMember
	err = s.db.WithContext(ctx).
		Where("company_id = ? AND user_id = ?", companyID, callerID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("membership service: load membership: %w", err)
	}

	if err := s.db.WithContext(ctx).Delete(&member).Error; err != nil {
		return fmt.Errorf("membership service: delete membership: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &callerID,
		Action:   "member.leave",
		Resource: fmt.Sprintf("company:%d", companyID),
		Result:   "success",
	})
	return nil
}

// Remove deletes a member record. Owner only; the owner's own record is never
// removable.
func (s *MembershipService) Remove(ctx context.Context, callerID string, companyID uint64, memberID string) error {
	ctx = ensureContext(ctx)

	company, err := s.loadCompany(ctx, companyID)
	if err != nil {
		return err
	}
	if !company.IsOwner(callerID) {
		return ErrAccessDenied
	}

	member, err := s.loadMember(ctx, companyID, memberID)
	if err != nil {
		return err
	}
	if company.IsOwner(member.UserID) {
		return ErrOwnerNotRemovable
	}

	if err := s.db.WithContext(ctx).Delete(member).Error; err != nil {
		return fmt.Errorf("membership service: delete member: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &callerID,
		Action:   "member.remove",
		Resource: fmt.Sprintf("company:%d", companyID),
		Result:   "success",
		Metadata: map[string]any{"member_id": member.ID, "user_id": member.UserID},
	})
	return nil
}

func (s *MembershipService) loadCompany(ctx context.Context, companyID uint64) (*models.Company, error) {
	var company models.Company
	if err := s.db.WithContext(ctx).First(&company, "id = ?", companyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, fmt.Errorf("membership service: load company: %w", err)
	}
	return &company, nil
}

func (s *MembershipService) loadMember(ctx context.Context, companyID uint64, memberID string) (*models.CompanyMember, error) {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return nil, ErrMemberNotFound
	}

	var member models.CompanyMember
	err := s.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", memberID, companyID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("membership service: load member: %w", err)
	}
	return &member, nil
}

func (s *MembershipService) requireActiveMember(ctx context.Context, callerID string, company *models.Company) error {
	callerID = strings.TrimSpace(callerID)
	if callerID == "" {
		return apperrors.ErrUnauthorized
	}
	if company.IsOwner(callerID) {
		return nil
	}

	var member models.CompanyMember
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND user_id = ?", company.ID, callerID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAccessDenied
		}
		return fmt.Errorf("membership service: load membership: %w", err)
	}
	if !member.IsActive() {
		return ErrAccessDenied
	}
	return nil
}

func (s *MembershipService) requireManageMembers(ctx context.Context, callerID string, company *models.Company) error {
	callerID = strings.TrimSpace(callerID)
	if callerID == "" {
		return apperrors.ErrUnauthorized
	}
	if company.IsOwner(callerID) {
		return nil
	}
	if s.checker == nil {
		return ErrAccessDenied
	}

	allowed, err := s.checker.Check(ctx, callerID, company.ID, models.PermissionManageMembers)
	if err != nil {
		return fmt.Errorf("membership service: permission check: %w", err)
	}
	if !allowed {
		return ErrAccessDenied
	}
	return nil
}

func (s *MembershipService) checkMemberLimit(ctx context.Context, company *models.Company) error {
	if company.MemberLimit <= 0 {
		return nil
	}

	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.CompanyMember{}).
		Where("company_id = ? AND status = ?", company.ID, models.MemberStatusActive).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("membership service: count members: %w", err)
	}
	if count >= int64(company.MemberLimit) {
		return ErrMemberLimitReached
	}
	return nil
}

func (s *MembershipService) transition(ctx context.Context, member *models.CompanyMember, next models.MemberStatus) error {
	if !member.Status.CanTransitionTo(next) {
		return apperrors.NewBadRequest(
			fmt.Sprintf("Cannot change member status from %s to %s.", member.Status, next))
	}

	if err := s.db.WithContext(ctx).
		Model(member).
		Update("status", next).Error; err != nil {
		return fmt.Errorf("membership service: update status: %w", err)
	}

	member.Status = next
	metrics.MembershipTransitions.WithLabelValues(string(next)).Inc()
	return nil
}

func (s *MembershipService) publishJoined(companyID uint64, member *models.CompanyMember) {
	if s.bus == nil {
		return
	}
	s.bus.PublishUserJoined(events.UserJoinedCompany{
		CompanyID: companyID,
		MemberID:  member.ID,
		UserID:    member.UserID,
	})
}
