package services

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/crewdeckhq/crewdeck/pkg/errors"
)

var (
	// ErrCompanyNotFound indicates the requested company does not exist.
	ErrCompanyNotFound = apperrors.New("COMPANY_NOT_FOUND", "Company not found.", http.StatusNotFound)
	// ErrMemberNotFound indicates the requested membership record does not exist.
	ErrMemberNotFound = apperrors.New("MEMBER_NOT_FOUND", "Member not found.", http.StatusNotFound)
	// ErrAccessDenied covers ownership and permission failures on membership operations.
	ErrAccessDenied = apperrors.NewForbidden("Access denied.")
	// ErrMemberLimitReached signals the company cannot accept more member records.
	ErrMemberLimitReached = apperrors.NewForbidden("Company Member adding limit reached.")
	// ErrOwnerNotRemovable rejects removal or status changes targeting the owner.
	ErrOwnerNotRemovable = apperrors.NewForbidden("Company owner cannot be removed.")
	// ErrCodeInvalid signals an undecodable or unknown invitation code.
	ErrCodeInvalid = apperrors.NewBadRequest("Code is invalid.")
	// ErrSignupRequired is returned when a signed request code resolves to an
	// email address that has no account yet.
	ErrSignupRequired = apperrors.NewUnprocessable("SIGNUP_REQUIRED", "Sign Up Required.")
	// ErrMembershipExists signals a (company, user) pair already has a record.
	ErrMembershipExists = apperrors.NewBadRequest("Membership record already exists.")
)

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique") ||
		strings.Contains(lower, "duplicate") ||
		strings.Contains(lower, "constraint")
}
