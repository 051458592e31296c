package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crewdeckhq/crewdeck/internal/services"
	apperrors "github.com/crewdeckhq/crewdeck/pkg/errors"
	"github.com/crewdeckhq/crewdeck/pkg/response"
)

// CompanyHandler exposes HTTP endpoints for company lifecycle.
type CompanyHandler struct {
	companies *services.CompanyService
}

// NewCompanyHandler constructs a company handler.
func NewCompanyHandler(companies *services.CompanyService) *CompanyHandler {
	return &CompanyHandler{companies: companies}
}

type createCompanyRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=255"`
	Description string `json:"description" validate:"max=1024"`
	MemberLimit int    `json:"member_limit" validate:"min=0"`
}

// Create registers a new company owned by the caller.
func (h *CompanyHandler) Create(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var payload createCompanyRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	company, err := h.companies.Create(requestContext(c), userID, services.CreateCompanyInput{
		Name:        payload.Name,
		Description: payload.Description,
		MemberLimit: payload.MemberLimit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, company)
}

// Get returns a single company.
func (h *CompanyHandler) Get(c *gin.Context) {
	id, err := companyIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	company, err := h.companies.Get(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, company)
}

// List returns the caller's companies.
func (h *CompanyHandler) List(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	companies, err := h.companies.ListForUser(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, companies)
}
