package permissions

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/crewdeckhq/crewdeck/internal/models"
	"github.com/crewdeckhq/crewdeck/pkg/metrics"
)

// Checker evaluates company-scoped permissions. The company owner implicitly
// holds every permission; other members only hold the flags stored on their
// membership record, and only while that record is active.
type Checker struct {
	db *gorm.DB
}

// NewChecker constructs a permission checker backed by the provided database.
func NewChecker(db *gorm.DB) (*Checker, error) {
	if db == nil {
		return nil, errors.New("permissions: db is required")
	}
	return &Checker{db: db}, nil
}

// Check reports whether the user holds the permission within the company.
func (c *Checker) Check(ctx context.Context, userID string, companyID uint64, permission string) (bool, error) {
	if userID == "" || companyID == 0 {
		return false, nil
	}
	if !IsKnown(permission) {
		return false, fmt.Errorf("permissions: unknown permission %q", permission)
	}

	var company models.Company
	if err := c.db.WithContext(ctx).First(&company, "id = ?", companyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.observe(permission, "denied")
			return false, nil
		}
		c.observe(permission, "error")
		return false, fmt.Errorf("permissions: load company: %w", err)
	}

	if company.IsOwner(userID) {
		c.observe(permission, "allowed")
		return true, nil
	}

	var member models.CompanyMember
	err := c.db.WithContext(ctx).
		Where("company_id = ? AND user_id = ?", companyID, userID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.observe(permission, "denied")
			return false, nil
		}
		c.observe(permission, "error")
		return false, fmt.Errorf("permissions: load member: %w", err)
	}

	allowed := member.IsActive() && member.HasPermission(permission)
	if allowed {
		c.observe(permission, "allowed")
	} else {
		c.observe(permission, "denied")
	}
	return allowed, nil
}

func (c *Checker) observe(permission, result string) {
	metrics.PermissionChecks.WithLabelValues(permission, result).Inc()
}
