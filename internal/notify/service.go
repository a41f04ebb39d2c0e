package notify

import (
	"context"
	"errors"
	"time"

	"github.com/keebstack/switchbook/internal/apperr"
	"github.com/keebstack/switchbook/internal/ids"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opNotify  = "notify.create"
	opList    = "notify.list"
	opRead    = "notify.mark_read"
	opDismiss = "notify.dismiss"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

// ServiceConfig describes the dependencies for the notification service.
type ServiceConfig struct {
	Database   *gorm.DB
	IDProvider ids.Provider
	// AdminUserIDs resolves the recipients of admin broadcasts.
	AdminUserIDs func(ctx context.Context) ([]string, error)
	// Dispatcher receives a live event per stored row. Optional.
	Dispatcher *Dispatcher
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Service stores notification rows and pushes live events for them.
type Service struct {
	db           *gorm.DB
	idProvider   ids.Provider
	adminUserIDs func(ctx context.Context) ([]string, error)
	dispatcher   *Dispatcher
	clock        func() time.Time
	logger       *zap.Logger
}

// NewService constructs the notification service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, apperr.Internal(opNotify, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, apperr.Internal(opNotify, "missing_id_provider", errMissingIDProvider)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		db:           cfg.Database,
		idProvider:   cfg.IDProvider,
		adminUserIDs: cfg.AdminUserIDs,
		dispatcher:   cfg.Dispatcher,
		clock:        clock,
		logger:       logger,
	}, nil
}

// NotifyUser stores one notification row for a user and publishes a live event.
func (s *Service) NotifyUser(ctx context.Context, userID, kind, title, message, link string) error {
	id, err := s.idProvider.NewID()
	if err != nil {
		return apperr.Internal(opNotify, "id_generation_failed", err)
	}
	record := Notification{
		ID:      id,
		UserID:  userID,
		Kind:    kind,
		Title:   title,
		Message: message,
		Link:    link,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		s.logError(opNotify, "insert_failed", err)
		return apperr.Internal(opNotify, "insert_failed", err)
	}
	if s.dispatcher != nil {
		s.dispatcher.Publish(Event{
			UserID:         userID,
			Kind:           kind,
			NotificationID: id,
			Title:          title,
			Timestamp:      s.clock(),
		})
	}
	return nil
}

// NotifyAdmins fans one notification out to every admin user.
func (s *Service) NotifyAdmins(ctx context.Context, kind, title, message, link string) error {
	if s.adminUserIDs == nil {
		return nil
	}
	admins, err := s.adminUserIDs(ctx)
	if err != nil {
		s.logError(opNotify, "admin_lookup_failed", err)
		return apperr.Internal(opNotify, "admin_lookup_failed", err)
	}
	for _, admin := range admins {
		if err := s.NotifyUser(ctx, admin, kind, title, message, link); err != nil {
			return err
		}
	}
	return nil
}

// List returns the caller's notifications, newest first. Dismissed rows are
// excluded unless includeDismissed is set.
func (s *Service) List(ctx context.Context, userID string, includeDismissed bool) ([]Notification, error) {
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if !includeDismissed {
		query = query.Where("dismissed = ?", false)
	}
	var rows []Notification
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		s.logError(opList, "query_failed", err)
		return nil, apperr.Internal(opList, "query_failed", err)
	}
	return rows, nil
}

// UnreadCount returns the caller's count of unread, undismissed notifications.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Notification{}).
		Where("user_id = ? AND read = ? AND dismissed = ?", userID, false, false).
		Count(&count).Error
	if err != nil {
		s.logError(opList, "count_failed", err)
		return 0, apperr.Internal(opList, "count_failed", err)
	}
	return count, nil
}

// MarkRead flags one owned notification as read.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) error {
	return s.setFlag(ctx, opRead, userID, notificationID, "read")
}

// Dismiss hides one owned notification from the default listing.
func (s *Service) Dismiss(ctx context.Context, userID, notificationID string) error {
	return s.setFlag(ctx, opDismiss, userID, notificationID, "dismissed")
}

func (s *Service) setFlag(ctx context.Context, operation, userID, notificationID, column string) error {
	result := s.db.WithContext(ctx).Model(&Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update(column, true)
	if result.Error != nil {
		s.logError(operation, "update_failed", result.Error)
		return apperr.Internal(operation, "update_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound(operation, "not_found", nil)
	}
	return nil
}

func (s *Service) logError(operation, reason string, err error) {
	s.logger.Error("notification service error",
		zap.String("operation", operation),
		zap.String("reason", reason),
		zap.Error(err))
}
