package services

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/crewdeckhq/crewdeck/internal/events"
	"github.com/crewdeckhq/crewdeck/internal/models"
	"github.com/crewdeckhq/crewdeck/internal/notifications"
	"github.com/crewdeckhq/crewdeck/pkg/logger"
	"github.com/crewdeckhq/crewdeck/pkg/metrics"
)

const joinEventName = "user.company.joined"

// JoinListener fans a successful join out to the company's other active
// members: one persisted notification and one hub broadcast per recipient,
// never addressed to the joiner. Deliveries are independent; a failure for
// one recipient does not stop the rest.
type JoinListener struct {
	db  *gorm.DB
	hub *notifications.Hub
}

// NewJoinListener constructs a JoinListener.
func NewJoinListener(db *gorm.DB, hub *notifications.Hub) (*JoinListener, error) {
	if db == nil {
		return nil, errors.New("join listener: db is required")
	}
	return &JoinListener{db: db, hub: hub}, nil
}

// HandleUserJoined implements events.UserJoinedHandler.
func (l *JoinListener) HandleUserJoined(ctx context.Context, event events.UserJoinedCompany) {
	var recipients []models.CompanyMember
	err := l.db.WithContext(ctx).
		Where("company_id = ? AND status = ? AND user_id <> ?",
			event.CompanyID, models.MemberStatusActive, event.UserID).
		Find(&recipients).Error
	if err != nil {
		logger.Error("join fan-out: load members",
			zap.Uint64("company_id", event.CompanyID),
			zap.Error(err))
		return
	}

	for _, recipient := range recipients {
		l.deliver(ctx, event, recipient.UserID)
	}
}

func (l *JoinListener) deliver(ctx context.Context, event events.UserJoinedCompany, recipientID string) {
	payload := map[string]any{
		"company_id": event.CompanyID,
		"user_id":    event.UserID,
	}

	metadata, _ := json.Marshal(payload)
	notification := models.Notification{
		UserID:   recipientID,
		Type:     joinEventName,
		Title:    "New company member",
		Message:  "A new member joined your company.",
		Metadata: datatypes.JSON(metadata),
	}
	if err := l.db.WithContext(ctx).Create(&notification).Error; err != nil {
		metrics.NotificationDeliveries.WithLabelValues("failed").Inc()
		logger.Error("join fan-out: persist notification",
			zap.Uint64("company_id", event.CompanyID),
			zap.String("recipient", recipientID),
			zap.Error(err))
	} else {
		metrics.NotificationDeliveries.WithLabelValues("sent").Inc()
	}

	if l.hub != nil {
		l.hub.Broadcast(recipientID, notifications.Event{
			Event: joinEventName,
			Data:  payload,
		})
	}
}
