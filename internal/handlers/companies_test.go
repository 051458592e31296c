package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/crewdeckhq/crewdeck/internal/models"
	"github.com/crewdeckhq/crewdeck/pkg/response"
)

func TestCompanyHandlerCreateAndGet(t *testing.T) {
	fixture := newHandlerFixture(t, "company_create")
	owner := fixture.createUser(t, "company_owner")

	c, recorder := jsonRequest(t, owner.ID, nil, map[string]any{
		"name":        "Acme Shipping",
		"description": "Freight coordination",
	})
	fixture.companies.Create(c)

	require.Equal(t, http.StatusCreated, recorder.Code)

	var payload response.Response
	decodeResponse(t, recorder, &payload)
	require.True(t, payload.Success)

	var count int64
	require.NoError(t, fixture.db.Model(&models.Company{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	var company models.Company
	require.NoError(t, fixture.db.First(&company).Error)
	require.Equal(t, owner.ID, company.OwnerID)

	// The owner record is created alongside the company.
	var member models.CompanyMember
	require.NoError(t, fixture.db.
		Where("company_id = ? AND user_id = ?", company.ID, owner.ID).
		First(&member).Error)
	require.Equal(t, models.MemberStatusActive, member.Status)

	getCtx, getRecorder := jsonRequest(t, owner.ID, companyParam(company), nil)
	fixture.companies.Get(getCtx)
	require.Equal(t, http.StatusOK, getRecorder.Code)
}

func TestCompanyHandlerCreateValidation(t *testing.T) {
	fixture := newHandlerFixture(t, "company_validation")
	owner := fixture.createUser(t, "validation_owner")

	c, recorder := jsonRequest(t, owner.ID, nil, map[string]any{"description": "no name"})
	fixture.companies.Create(c)

	require.Equal(t, http.StatusBadRequest, recorder.Code)

	var payload response.Response
	decodeResponse(t, recorder, &payload)
	require.False(t, payload.Success)
	require.NotNil(t, payload.Error)
}

func TestCompanyHandlerCreateRequiresUser(t *testing.T) {
	fixture := newHandlerFixture(t, "company_anon")

	c, recorder := jsonRequest(t, "", nil, map[string]any{"name": "Ghost Inc"})
	fixture.companies.Create(c)

	require.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestCompanyHandlerGetRejectsBadID(t *testing.T) {
	fixture := newHandlerFixture(t, "company_bad_id")
	owner := fixture.createUser(t, "bad_id_owner")

	c, recorder := jsonRequest(t, owner.ID, gin.Params{gin.Param{Key: "id", Value: "abc"}}, nil)
	fixture.companies.Get(c)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	require.Contains(t, recorder.Body.String(), "Invalid company id.")
}

func TestCompanyHandlerListReturnsMemberships(t *testing.T) {
	fixture := newHandlerFixture(t, "company_list")
	owner := fixture.createUser(t, "list_owner")
	other := fixture.createUser(t, "list_other")
	fixture.createCompany(t, owner.ID, "Mine")
	fixture.createCompany(t, other.ID, "Theirs")

	c, recorder := jsonRequest(t, owner.ID, nil, nil)
	fixture.companies.List(c)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), "Mine")
	require.NotContains(t, recorder.Body.String(), "Theirs")
}
