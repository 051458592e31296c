package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/crewdeckhq/crewdeck/pkg/errors"
)

func TestNotificationCreateAndList(t *testing.T) {
	db := openServiceTestDB(t, "notif_create")
	user := createUser(t, db, "notif_user1")

	svc, err := NewNotificationService(db, nil)
	require.NoError(t, err)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateNotificationInput{
		UserID:   user.ID,
		Type:     "company.invite",
		Title:    "Acme",
		Message:  "You have been invited to join Acme.",
		Metadata: map[string]any{"company_id": 1},
	})
	require.NoError(t, err)
	require.Equal(t, "info", created.Severity)
	require.False(t, created.IsRead)

	list, err := svc.ListForUser(ctx, ListNotificationsInput{UserID: user.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, created.ID, list[0].ID)
	require.EqualValues(t, 1, list[0].Metadata["company_id"])
}

func TestNotificationMarkRead(t *testing.T) {
	db := openServiceTestDB(t, "notif_read")
	user := createUser(t, db, "notif_user2")
	other := createUser(t, db, "notif_other2")

	svc, err := NewNotificationService(db, nil)
	require.NoError(t, err)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateNotificationInput{
		UserID: user.ID,
		Type:   "company.invite",
	})
	require.NoError(t, err)

	read, err := svc.MarkRead(ctx, user.ID, created.ID)
	require.NoError(t, err)
	require.True(t, read.IsRead)
	require.NotNil(t, read.ReadAt)

	// Another user cannot touch someone else's notification.
	_, err = svc.MarkRead(ctx, other.ID, created.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	unread, err := svc.ListForUser(ctx, ListNotificationsInput{UserID: user.ID, UnreadOnly: true})
	require.NoError(t, err)
	require.Empty(t, unread)
}

func TestNotificationMarkAllRead(t *testing.T) {
	db := openServiceTestDB(t, "notif_read_all")
	user := createUser(t, db, "notif_user3")

	svc, err := NewNotificationService(db, nil)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, CreateNotificationInput{UserID: user.ID, Type: "company.invite"})
		require.NoError(t, err)
	}

	require.NoError(t, svc.MarkAllRead(ctx, user.ID))

	unread, err := svc.ListForUser(ctx, ListNotificationsInput{UserID: user.ID, UnreadOnly: true})
	require.NoError(t, err)
	require.Empty(t, unread)
}

func TestNotificationDelete(t *testing.T) {
	db := openServiceTestDB(t, "notif_delete")
	user := createUser(t, db, "notif_user4")

	svc, err := NewNotificationService(db, nil)
	require.NoError(t, err)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateNotificationInput{UserID: user.ID, Type: "company.invite"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, user.ID, created.ID))
	require.ErrorIs(t, svc.Delete(ctx, user.ID, created.ID), apperrors.ErrNotFound)
}
