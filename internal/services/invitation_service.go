package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/crewdeckhq/crewdeck/internal/events"
	"github.com/crewdeckhq/crewdeck/internal/invitecode"
	"github.com/crewdeckhq/crewdeck/internal/models"
	"github.com/crewdeckhq/crewdeck/pkg/crypto"
	apperrors "github.com/crewdeckhq/crewdeck/pkg/errors"
	"github.com/crewdeckhq/crewdeck/pkg/metrics"
)

const (
	defaultRequestCodeTTL  = 7 * 24 * time.Hour
	requestCodeTokenBytes  = 48
	notificationTypeInvite = "company.invite"
	notificationTypeRemind = "company.invite_reminder"
)

// InvitationOption customises InvitationService behaviour.
type InvitationOption func(*InvitationService)

// WithInvitationBaseURL configures the base URL used to build shareable links.
func WithInvitationBaseURL(url string) InvitationOption {
	return func(s *InvitationService) {
		s.baseURL = strings.TrimRight(url, "/")
	}
}

// WithRequestCodeTTL overrides the signed request code lifetime.
func WithRequestCodeTTL(d time.Duration) InvitationOption {
	return func(s *InvitationService) {
		if d > 0 {
			s.requestTTL = d
		}
	}
}

// WithInvitationClock injects a custom clock primarily for testing.
func WithInvitationClock(clock func() time.Time) InvitationOption {
	return func(s *InvitationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// InviteInput identifies invitation targets: existing users by id, or email
// addresses that receive a signed request code.
type InviteInput struct {
	UserIDs []string
	Emails  []string
}

// EmailInvite describes a signed request code issued for an email address.
type EmailInvite struct {
	Email string `json:"email"`
	Code  string `json:"code"`
	Link  string `json:"link"`
}

// InviteResult aggregates the records created by an Invite call.
type InviteResult struct {
	Members      []models.CompanyMember `json:"members"`
	EmailInvites []EmailInvite          `json:"email_invites"`
}

// InvitationService manages invitation codes and both join paths: encoded
// company ids for registered users and signed request codes for emails.
type InvitationService struct {
	db            *gorm.DB
	auditService  *AuditService
	notifications *NotificationService
	codec         *invitecode.Codec
	bus           *events.Bus
	baseURL       string
	requestTTL    time.Duration
	now           func() time.Time
}

// NewInvitationService constructs an InvitationService with the provided dependencies.
func NewInvitationService(db *gorm.DB, auditService *AuditService, notificationService *NotificationService, codec *invitecode.Codec, bus *events.Bus, opts ...InvitationOption) (*InvitationService, error) {
	if db == nil {
		return nil, errors.New("invitation service: db is required")
	}
	if codec == nil {
		return nil, errors.New("invitation service: codec is required")
	}

	service := &InvitationService{
		db:            db,
		auditService:  auditService,
		notifications: notificationService,
		codec:         codec,
		bus:           bus,
		requestTTL:    defaultRequestCodeTTL,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Invite creates one INVITED record per target user not already a member and
// one signed request code per email address without an account. Each invited
// user is notified on their private channel.
func (s *InvitationService) Invite(ctx context.Context, callerID string, companyID uint64, input InviteInput) (*InviteResult, error) {
	ctx = ensureContext(ctx)

	company, err := s.loadCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if err := s.requireActiveMember(ctx, callerID, company); err != nil {
		return nil, err
	}

	result := &InviteResult{}

	userIDs := normaliseIDs(input.UserIDs)
	emails := normaliseEmails(input.Emails)

	// Email targets with an existing account are invited like user targets.
	if len(emails) > 0 {
		var existing []models.User
		if err := s.db.WithContext(ctx).Where("email IN ?", emails).Find(&existing).Error; err != nil {
			return nil, fmt.Errorf("invitation service: resolve emails: %w", err)
		}
		known := make(map[string]struct{}, len(existing))
		for _, user := range existing {
			known[user.Email] = struct{}{}
			userIDs = append(userIDs, user.ID)
		}
		var unresolved []string
		for _, email := range emails {
			if _, ok := known[email]; !ok {
				unresolved = append(unresolved, email)
			}
		}
		emails = unresolved
	}
	userIDs = normaliseIDs(userIDs)

	for _, userID := range userIDs {
		member, err := s.inviteUser(ctx, company, callerID, userID)
		if err != nil {
			return nil, err
		}
		if member != nil {
			result.Members = append(result.Members, *member)
		}
	}

	for _, email := range emails {
		invite, err := s.createJoinRequest(ctx, company, email)
		if err != nil {
			return nil, err
		}
		result.EmailInvites = append(result.EmailInvites, *invite)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &callerID,
		Action:   "member.invite",
		Resource: fmt.Sprintf("company:%d", companyID),
		Result:   "success",
		Metadata: map[string]any{
			"invited": len(result.Members),
			"emailed": len(result.EmailInvites),
		},
	})

	return result, nil
}

func (s *InvitationService) inviteUser(ctx context.Context, company *models.Company, callerID, userID string) (*models.CompanyMember, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewBadRequest(fmt.Sprintf("Unknown user %q.", userID))
		}
		return nil, fmt.Errorf("invitation service: load user: %w", err)
	}

	var existing models.CompanyMember
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND user_id = ?", company.ID, userID).
		First(&existing).Error
	if err == nil {
		// Already a member in some state; skip silently.
		return nil, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("invitation service: load membership: %w", err)
	}

	code := s.codec.Encode(company.ID)
	member := models.CompanyMember{
		CompanyID:      company.ID,
		UserID:         userID,
		Status:         models.MemberStatusInvited,
		InvitationCode: &code,
		InvitedBy:      &callerID,
	}
	if err := s.db.WithContext(ctx).Create(&member).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("invitation service: create invite: %w", err)
	}

	metrics.MembershipTransitions.WithLabelValues(string(models.MemberStatusInvited)).Inc()
	s.notifyInvite(ctx, company, userID, code, notificationTypeInvite, "You have been invited to join "+company.Name+".")

	return &member, nil
}

func (s *InvitationService) createJoinRequest(ctx context.Context, company *models.Company, email string) (*EmailInvite, error) {
	rawToken, err := crypto.GenerateToken(requestCodeTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("invitation service: generate token: %w", err)
	}

	request := models.JoinRequest{
		CompanyID: company.ID,
		Email:     email,
		TokenHash: crypto.HashToken(rawToken),
		ExpiresAt: s.now().Add(s.requestTTL),
	}
	if err := s.db.WithContext(ctx).Create(&request).Error; err != nil {
		return nil, fmt.Errorf("invitation service: create join request: %w", err)
	}

	return &EmailInvite{
		Email: email,
		Code:  rawToken,
		Link:  s.joinLink(rawToken),
	}, nil
}

// SendReminder re-notifies INVITED members. An empty member id list reminds
// every invited member of the company.
func (s *InvitationService) SendReminder(ctx context.Context, callerID string, companyID uint64, memberIDs []string) (int, error) {
	ctx = ensureContext(ctx)

	company, err := s.loadCompany(ctx, companyID)
	if err != nil {
		return 0, err
	}
	if err := s.requireActiveMember(ctx, callerID, company); err != nil {
		return 0, err
	}

	query := s.db.WithContext(ctx).
		Where("company_id = ? AND status = ?", companyID, models.MemberStatusInvited)
	if ids := normaliseIDs(memberIDs); len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	}

	var invited []models.CompanyMember
	if err := query.Find(&invited).Error; err != nil {
		return 0, fmt.Errorf("invitation service: load invited members: %w", err)
	}

	for _, member := range invited {
		code := ""
		if member.InvitationCode != nil {
			code = *member.InvitationCode
		}
		s.notifyInvite(ctx, company, member.UserID, code, notificationTypeRemind, "Reminder: you have a pending invitation to "+company.Name+".")
	}

	return len(invited), nil
}

// Join accepts an invitation or join code. Codes of 64 characters or more are
// signed request payloads; shorter codes are encoded company ids and require
// an authenticated caller. The dispatch is length-based for compatibility with
// codes already in circulation.
func (s *InvitationService) Join(ctx context.Context, callerID, code string) (*models.CompanyMember, error) {
	ctx = ensureContext(ctx)

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrCodeInvalid
	}

	if len(code) >= invitecode.RequestCodeThreshold {
		return s.joinWithRequestCode(ctx, callerID, code)
	}
	return s.joinWithInvitationCode(ctx, callerID, code)
}

func (s *InvitationService) joinWithInvitationCode(ctx context.Context, callerID, code string) (*models.CompanyMember, error) {
	callerID = strings.TrimSpace(callerID)
	if callerID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	companyID, err := s.codec.Decode(code)
	if err != nil {
		return nil, ErrCodeInvalid
	}

	company, err := s.loadCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	member, err := s.activateMembership(ctx, company, callerID, &code)
	if err != nil {
		return nil, err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &callerID,
		Action:   "member.join",
		Resource: fmt.Sprintf("company:%d", company.ID),
		Result:   "success",
	})
	return member, nil
}

func (s *InvitationService) joinWithRequestCode(ctx context.Context, callerID, code string) (*models.CompanyMember, error) {
	request, err := s.loadJoinRequest(ctx, code)
	if err != nil {
		return nil, err
	}

	userID, err := s.resolveRequestUser(ctx, request)
	if err != nil {
		return nil, err
	}
	// A signed code is bound to its email's account; an authenticated caller
	// cannot redeem someone else's code.
	callerID = strings.TrimSpace(callerID)
	if callerID != "" && callerID != userID {
		return nil, ErrAccessDenied
	}

	company, err := s.loadCompany(ctx, request.CompanyID)
	if err != nil {
		return nil, err
	}

	member, err := s.activateMembership(ctx, company, userID, nil)
	if err != nil {
		return nil, err
	}

	now := s.now()
	updates := map[string]any{"used_at": now, "user_id": userID}
	if err := s.db.WithContext(ctx).Model(request).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("invitation service: mark request used: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &userID,
		Action:   "member.join",
		Resource: fmt.Sprintf("company:%d", company.ID),
		Result:   "success",
		Metadata: map[string]any{"via": "request_code"},
	})
	return member, nil
}

// Decline rejects an invitation or join code on behalf of the caller.
func (s *InvitationService) Decline(ctx context.Context, callerID, code string) error {
	ctx = ensureContext(ctx)

	code = strings.TrimSpace(code)
	if code == "" {
		return ErrCodeInvalid
	}

	if len(code) >= invitecode.RequestCodeThreshold {
		request, err := s.loadJoinRequest(ctx, code)
		if err != nil {
			return err
		}
		now := s.now()
		if err := s.db.WithContext(ctx).Model(request).Update("declined_at", now).Error; err != nil {
			return fmt.Errorf("invitation service: decline request: %w", err)
		}
		return nil
	}

	callerID = strings.TrimSpace(callerID)
	if callerID == "" {
		return apperrors.ErrUnauthorized
	}

	companyID, err := s.codec.Decode(code)
	if err != nil {
		return ErrCodeInvalid
	}

	var member models.CompanyMember
	err = s.db.WithContext(ctx).
		Where("company_id = ? AND user_id = ? AND status IN ?",
			companyID, callerID,
			[]models.MemberStatus{models.MemberStatusInvited, models.MemberStatusPendingRequest}).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("invitation service: load membership: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&member).
		Update("status", models.MemberStatusDeclined).Error; err != nil {
		return fmt.Errorf("invitation service: decline membership: %w", err)
	}
	metrics.MembershipTransitions.WithLabelValues(string(models.MemberStatusDeclined)).Inc()

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &callerID,
		Action:   "member.decline_invite",
		Resource: fmt.Sprintf("company:%d", companyID),
		Result:   "success",
	})
	return nil
}

// GenerateInvitationCode produces the reversible code for a company or event id.
func (s *InvitationService) GenerateInvitationCode(id uint64) (string, error) {
	if id == 0 {
		return "", apperrors.NewBadRequest("Identifier is required.")
	}
	return s.codec.Encode(id), nil
}

// CompanyInvitationLink returns the shareable code and URL for a company.
func (s *InvitationService) CompanyInvitationLink(companyID uint64) (code, link string, err error) {
	code, err = s.GenerateInvitationCode(companyID)
	if err != nil {
		return "", "", err
	}
	return code, s.joinLink(code), nil
}

// EventInvitationLink returns the shareable code and URL for an event.
func (s *InvitationService) EventInvitationLink(eventID uint64) (code, link string, err error) {
	code, err = s.GenerateInvitationCode(eventID)
	if err != nil {
		return "", "", err
	}
	if s.baseURL == "" {
		return code, code, nil
	}
	return code, fmt.Sprintf("%s/events-join?code=%s", s.baseURL, code), nil
}

func (s *InvitationService) joinLink(code string) string {
	if s.baseURL == "" {
		return code
	}
	return fmt.Sprintf("%s/companies-join?code=%s", s.baseURL, code)
}

// activateMembership turns an existing INVITED or PENDING_REQUEST record into
// an ACTIVE one, or creates a fresh ACTIVE record, then publishes the join
// event. Already-active members are rejected before any mutation.
func (s *InvitationService) activateMembership(ctx context.Context, company *models.Company, userID string, viaCode *string) (*models.CompanyMember, error) {
	var member models.CompanyMember
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND user_id = ?", company.ID, userID).
		First(&member).Error

	switch {
	case err == nil:
		if member.Status == models.MemberStatusActive {
			return nil, ErrMembershipExists
		}
		if !member.Status.CanTransitionTo(models.MemberStatusActive) {
			return nil, apperrors.NewBadRequest(
				fmt.Sprintf("Cannot change member status from %s to %s.", member.Status, models.MemberStatusActive))
		}
		if err := s.db.WithContext(ctx).Model(&member).
			Update("status", models.MemberStatusActive).Error; err != nil {
			return nil, fmt.Errorf("invitation service: activate membership: %w", err)
		}
		member.Status = models.MemberStatusActive

	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := s.checkMemberLimit(ctx, company); err != nil {
			return nil, err
		}
		member = models.CompanyMember{
			CompanyID:      company.ID,
			UserID:         userID,
			Status:         models.MemberStatusActive,
			InvitationCode: viaCode,
		}
		if err := s.db.WithContext(ctx).Create(&member).Error; err != nil {
			if isUniqueConstraintError(err) {
				return nil, ErrMembershipExists
			}
			return nil, fmt.Errorf("invitation service: create membership: %w", err)
		}

	default:
		return nil, fmt.Errorf("invitation service: load membership: %w", err)
	}

	metrics.MembershipTransitions.WithLabelValues(string(models.MemberStatusActive)).Inc()

	if s.bus != nil {
		s.bus.PublishUserJoined(events.UserJoinedCompany{
			CompanyID: company.ID,
			MemberID:  member.ID,
			UserID:    member.UserID,
		})
	}
	return &member, nil
}

func (s *InvitationService) loadJoinRequest(ctx context.Context, code string) (*models.JoinRequest, error) {
	var request models.JoinRequest
	err := s.db.WithContext(ctx).
		Where("token_hash = ?", crypto.HashToken(code)).
		First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeInvalid
		}
		return nil, fmt.Errorf("invitation service: load join request: %w", err)
	}

	if request.UsedAt != nil || request.DeclinedAt != nil {
		return nil, ErrCodeInvalid
	}
	if request.ExpiresAt.Before(s.now()) {
		return nil, ErrCodeInvalid
	}
	return &request, nil
}

func (s *InvitationService) resolveRequestUser(ctx context.Context, request *models.JoinRequest) (string, error) {
	if request.UserID != nil && *request.UserID != "" {
		return *request.UserID, nil
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", request.Email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrSignupRequired
		}
		return "", fmt.Errorf("invitation service: resolve user: %w", err)
	}
	return user.ID, nil
}

func (s *InvitationService) notifyInvite(ctx context.Context, company *models.Company, userID, code, notificationType, message string) {
	if s.notifications == nil {
		return
	}
	metadata := map[string]any{"company_id": company.ID}
	if code != "" {
		metadata["code"] = code
	}
	// Invitation notifications are best effort.
	_, _ = s.notifications.Create(ctx, CreateNotificationInput{
		UserID:   userID,
		Type:     notificationType,
		Title:    company.Name,
		Message:  message,
		Metadata: metadata,
	})
}

func (s *InvitationService) loadCompany(ctx context.Context, companyID uint64) (*models.Company, error) {
	var company models.Company
	if err := s.db.WithContext(ctx).First(&company, "id = ?", companyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, fmt.Errorf("invitation service: load company: %w", err)
	}
	return &company, nil
}

func (s *InvitationService) requireActiveMember(ctx context.Context, callerID string, company *models.Company) error {
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
		return fmt.Errorf("invitation service: load membership: %w", err)
	}
	if !member.IsActive() {
		return ErrAccessDenied
	}
	return nil
}

func (s *InvitationService) checkMemberLimit(ctx context.Context, company *models.Company) error {
	if company.MemberLimit <= 0 {
		return nil
	}

	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.CompanyMember{}).
		Where("company_id = ? AND status = ?", company.ID, models.MemberStatusActive).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("invitation service: count members: %w", err)
	}
	if count >= int64(company.MemberLimit) {
		return ErrMemberLimitReached
	}
	return nil
}
