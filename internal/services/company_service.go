package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/crewdeckhq/crewdeck/internal/models"
	apperrors "github.com/crewdeckhq/crewdeck/pkg/errors"
)

// CreateCompanyInput captures new company metadata.
type CreateCompanyInput struct {
	Name        string
	Description string
	MemberLimit int
}

// CompanyService handles company lifecycle.
type CompanyService struct {
	db                 *gorm.DB
	auditService       *AuditService
	defaultMemberLimit int
}

// CompanyOption customises a CompanyService.
type CompanyOption func(*CompanyService)

// WithDefaultMemberLimit applies a member limit to new companies that do not
// set one explicitly. Zero keeps companies unlimited.
func WithDefaultMemberLimit(limit int) CompanyOption {
	return func(s *CompanyService) {
		if limit > 0 {
			s.defaultMemberLimit = limit
		}
	}
}

// NewCompanyService constructs a CompanyService instance.
func NewCompanyService(db *gorm.DB, auditService *AuditService, opts ...CompanyOption) (*CompanyService, error) {
	if db == nil {
		return nil, errors.New("company service: db is required")
	}
	svc := &CompanyService{db: db, auditService: auditService}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Create registers a new company owned by the caller. The owner's active
// membership record is created in the same transaction so the ownership
// invariant holds from the first moment the company exists.
func (s *CompanyService) Create(ctx context.Context, ownerID string, input CreateCompanyInput) (*models.Company, error) {
	ctx = ensureContext(ctx)

	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, apperrors.ErrUnauthorized
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("Company name is required.")
	}
	if input.MemberLimit < 0 {
		return nil, apperrors.NewBadRequest("Member limit cannot be negative.")
	}
	limit := input.MemberLimit
	if limit == 0 {
		limit = s.defaultMemberLimit
	}

	company := &models.Company{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		OwnerID:     ownerID,
		MemberLimit: limit,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(company).Error; err != nil {
			return fmt.Errorf("create company: %w", err)
		}
		member := models.CompanyMember{
			CompanyID: company.ID,
			UserID:    ownerID,
			Status:    models.MemberStatusActive,
		}
		if err := tx.Create(&member).Error; err != nil {
			return fmt.Errorf("create owner membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("company service: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   &ownerID,
		Action:   "company.create",
		Resource: fmt.Sprintf("company:%d", company.ID),
		Result:   "success",
		Metadata: map[string]any{"name": company.Name},
	})

	return company, nil
}

// Get loads a company by id.
func (s *CompanyService) Get(ctx context.Context, id uint64) (*models.Company, error) {
	ctx = ensureContext(ctx)

	var company models.Company
	if err := s.db.WithContext(ctx).First(&company, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, fmt.Errorf("company service: load company: %w", err)
	}
	return &company, nil
}

// ListForUser returns the companies where the user holds any membership record,
// plus those the user owns.
func (s *CompanyService) ListForUser(ctx context.Context, userID string) ([]models.Company, error) {
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	var companies []models.Company
	err := s.db.WithContext(ctx).
		Distinct("companies.*").
		Joins("LEFT JOIN company_members ON company_members.company_id = companies.id").
		Where("companies.owner_id = ? OR company_members.user_id = ?", userID, userID).
		Order("companies.created_at DESC").
		Find(&companies).Error
	if err != nil {
		return nil, fmt.Errorf("company service: list companies: %w", err)
	}
	return companies, nil
}
