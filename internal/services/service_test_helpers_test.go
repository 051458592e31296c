package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/crewdeckhq/crewdeck/internal/invitecode"
	"github.com/crewdeckhq/crewdeck/internal/models"
)

func openServiceTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:svc_"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Company{},
		&models.CompanyMember{},
		&models.JoinRequest{},
		&models.Notification{},
		&models.AuditLog{},
	))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()

	user := models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hashed",
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createCompany(t *testing.T, db *gorm.DB, owner models.User, limit int) models.Company {
	t.Helper()

	company := models.Company{Name: "Acme", OwnerID: owner.ID, MemberLimit: limit}
	require.NoError(t, db.Create(&company).Error)

	member := models.CompanyMember{
		CompanyID: company.ID,
		UserID:    owner.ID,
		Status:    models.MemberStatusActive,
	}
	require.NoError(t, db.Create(&member).Error)
	return company
}

func addMember(t *testing.T, db *gorm.DB, company models.Company, user models.User, status models.MemberStatus) models.CompanyMember {
	t.Helper()

	member := models.CompanyMember{
		CompanyID: company.ID,
		UserID:    user.ID,
		Status:    status,
	}
	require.NoError(t, db.Create(&member).Error)
	return member
}

func testCodec(t *testing.T) *invitecode.Codec {
	t.Helper()

	codec, err := invitecode.New("service-test-secret")
	require.NoError(t, err)
	return codec
}

type stubChecker struct {
	grants map[string]bool
	err    error
}

func (m *stubChecker) Check(_ context.Context, userID string, _ uint64, permission string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.grants == nil {
		return false, nil
	}
	return m.grants[userID+":"+permission], nil
}
