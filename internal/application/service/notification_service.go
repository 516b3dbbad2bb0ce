package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/mission-orders/internal/application/dispatcher"
	"github.com/garyjia/mission-orders/internal/application/port"
	"github.com/garyjia/mission-orders/internal/domain/entity"
	"github.com/garyjia/mission-orders/internal/domain/event"
	"github.com/garyjia/mission-orders/internal/domain/workflow"
)

// NotificationService turns workflow events into in-app and external notifications
type NotificationService interface {
	// Register subscribes the service to the mission events it reacts to
	Register(d dispatcher.Dispatcher)

	// HandleEvent notifies the users concerned by evt
	HandleEvent(ctx context.Context, evt *event.Event) error

	ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
}

type notificationServiceImpl struct {
	notificationRepo port.NotificationRepository
	roleRepo         port.RoleRepository
	userRepo         port.UserRepository
	notifier         port.Notifier
	logger           Logger
}

// NewNotificationService creates a new NotificationService. notifier may be nil.
func NewNotificationService(
	notificationRepo port.NotificationRepository,
	roleRepo port.RoleRepository,
	userRepo port.UserRepository,
	notifier port.Notifier,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		notificationRepo: notificationRepo,
		roleRepo:         roleRepo,
		userRepo:         userRepo,
		notifier:         notifier,
		logger:           logger,
	}
}

// Register subscribes the service to the mission events it reacts to
func (s *notificationServiceImpl) Register(d dispatcher.Dispatcher) {
	d.SubscribeMany([]event.Type{
		event.TypeMissionSubmitted,
		event.TypeStageApproved,
		event.TypeMissionApproved,
		event.TypeMissionRejected,
		event.TypeMissionPaid,
	}, "notification-service", s.HandleEvent)
}

// HandleEvent notifies next-stage approvers or the mission owner
func (s *notificationServiceImpl) HandleEvent(ctx context.Context, evt *event.Event) error {
	title := evt.GetPayloadString(event.KeyTitle)
	actorID := evt.GetPayloadString(event.KeyActorID)

	var (
		recipients []string
		kind       string
		subject    string
		message    string
	)

	switch evt.Type {
	case event.TypeMissionSubmitted, event.TypeStageApproved:
		stage, ok := workflow.StageFor(workflow.State(evt.GetPayloadString(event.KeyToStatus)))
		if !ok {
			return fmt.Errorf("event %s has no pending stage", evt.ID)
		}
		users, err := s.roleRepo.UsersWithRole(ctx, stage.RequiredRole)
		if err != nil {
			return fmt.Errorf("list %s users: %w", stage.RequiredRole, err)
		}
		for _, u := range users {
			if u != actorID {
				recipients = append(recipients, u)
			}
		}
		kind = entity.NotificationTypeActionRequired
		subject = "Mission awaiting your approval"
		message = fmt.Sprintf("Mission %s \"%s\" is waiting for %s approval.", evt.Reference, title, stage.RequiredRole)

	case event.TypeMissionApproved:
		recipients = []string{evt.GetPayloadString(event.KeyAgentID)}
		kind = entity.NotificationTypeApproved
		subject = "Mission approved"
		message = fmt.Sprintf("Mission %s \"%s\" has been fully approved.", evt.Reference, title)

	case event.TypeMissionRejected:
		recipients = []string{evt.GetPayloadString(event.KeyAgentID)}
		kind = entity.NotificationTypeRejected
		subject = "Mission rejected"
		message = fmt.Sprintf("Mission %s \"%s\" was rejected by %s: %s", evt.Reference, title,
			evt.GetPayloadString(event.KeySignerRole), evt.GetPayloadString(event.KeyComment))

	case event.TypeMissionPaid:
		recipients = []string{evt.GetPayloadString(event.KeyAgentID)}
		kind = entity.NotificationTypePaid
		subject = "Mission paid"
		message = fmt.Sprintf("Mission %s \"%s\" has been paid (%.0f).", evt.Reference, title, evt.GetPayloadFloat(event.KeyAmount))

	default:
		return nil
	}

	var errs []error
	for _, userID := range recipients {
		if userID == "" {
			continue
		}
		if err := s.deliver(ctx, userID, evt.MissionID, kind, subject, message); err != nil {
			errs = append(errs, err)
		}
	}

	s.logger.Info("Notifications sent",
		"event_type", evt.Type,
		"mission_id", evt.MissionID,
		"recipients", len(recipients),
		"failures", len(errs),
	)
	return errors.Join(errs...)
}

// deliver stores the notification and forwards it to the external notifier
func (s *notificationServiceImpl) deliver(ctx context.Context, userID, missionID, kind, subject, message string) error {
	n := &entity.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		MissionID: missionID,
		Title:     subject,
		Message:   message,
		Type:      kind,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.notificationRepo.Create(ctx, n); err != nil {
		s.logger.Error("Failed to store notification", "error", err, "user_id", userID)
		return fmt.Errorf("store notification for %s: %w", userID, err)
	}

	if s.notifier == nil {
		return nil
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load notification recipient", "error", err, "user_id", userID)
		return nil
	}
	if user.LarkOpenID == "" {
		return nil
	}

	// External delivery is best effort; the stored notification is authoritative
	if err := s.notifier.Notify(ctx, port.Recipient{UserID: userID, LarkOpenID: user.LarkOpenID}, subject, message); err != nil {
		s.logger.Error("Failed to forward notification", "error", err, "user_id", userID)
	}
	return nil
}

// ListForUser returns the newest notifications of a user
func (s *notificationServiceImpl) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*entity.Notification, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	list, err := s.notificationRepo.ListByUserID(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return list, nil
}

// MarkRead flags one of the user's notifications as read
func (s *notificationServiceImpl) MarkRead(ctx context.Context, userID, notificationID string) error {
	if err := s.notificationRepo.MarkRead(ctx, notificationID, userID); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}
