package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/crewdeckhq/crewdeck/internal/database/testutil"
	"github.com/crewdeckhq/crewdeck/internal/events"
	"github.com/crewdeckhq/crewdeck/internal/invitecode"
	"github.com/crewdeckhq/crewdeck/internal/middleware"
	"github.com/crewdeckhq/crewdeck/internal/models"
	"github.com/crewdeckhq/crewdeck/internal/notifications"
	"github.com/crewdeckhq/crewdeck/internal/permissions"
	"github.com/crewdeckhq/crewdeck/internal/services"
)

type handlerFixture struct {
	db            *gorm.DB
	hub           *notifications.Hub
	bus           *events.Bus
	members       *CompanyMemberHandler
	companies     *CompanyHandler
	notifications *NotificationHandler

	notificationService *services.NotificationService
	invitationService   *services.InvitationService
}

func newHandlerFixture(t *testing.T, name string) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, "handlers_"+name, testutil.WithAutoMigrate())

	auditService, err := services.NewAuditService(db)
	require.NoError(t, err)
	checker, err := permissions.NewChecker(db)
	require.NoError(t, err)
	codec, err := invitecode.New("handler-test-secret")
	require.NoError(t, err)

	hub := notifications.NewHub()
	bus := events.NewBus()

	notificationService, err := services.NewNotificationService(db, hub)
	require.NoError(t, err)
	membershipService, err := services.NewMembershipService(db, auditService, checker, bus)
	require.NoError(t, err)
	invitationService, err := services.NewInvitationService(db, auditService, notificationService, codec, bus,
		services.WithInvitationBaseURL("https://crewdeck.test"))
	require.NoError(t, err)
	companyService, err := services.NewCompanyService(db, auditService)
	require.NoError(t, err)

	return &handlerFixture{
		db:                  db,
		hub:                 hub,
		bus:                 bus,
		members:             NewCompanyMemberHandler(membershipService, invitationService),
		companies:           NewCompanyHandler(companyService),
		notifications:       NewNotificationHandler(notificationService, hub, nil),
		notificationService: notificationService,
		invitationService:   invitationService,
	}
}

func (f *handlerFixture) createUser(t *testing.T, username string) models.User {
	t.Helper()
	user := models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret",
	}
	require.NoError(t, f.db.Create(&user).Error)
	return user
}

func (f *handlerFixture) createCompany(t *testing.T, ownerID, name string) models.Company {
	t.Helper()
	company := models.Company{Name: name, OwnerID: ownerID}
	require.NoError(t, f.db.Create(&company).Error)
	owner := models.CompanyMember{
		CompanyID: company.ID,
		UserID:    ownerID,
		Status:    models.MemberStatusActive,
	}
	require.NoError(t, f.db.Create(&owner).Error)
	return company
}

func testContext() context.Context {
	return context.Background()
}

// jsonRequest builds a gin test context carrying an authenticated user,
// route params, and an optional JSON body.
func jsonRequest(t *testing.T, userID string, params gin.Params, body any) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(http.MethodPost, "/", reader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = params
	if userID != "" {
		c.Set(middleware.CtxUserIDKey, userID)
	}

	return c, recorder
}

func decodeResponse(t *testing.T, recorder *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), out))
}

func companyParam(company models.Company) gin.Params {
	return gin.Params{gin.Param{Key: "id", Value: strconv.FormatUint(company.ID, 10)}}
}
