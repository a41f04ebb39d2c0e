package wishlist

import (
	"context"
	"errors"
	"strings"

	"github.com/keebstack/switchbook/internal/apperr"
	"github.com/keebstack/switchbook/internal/ids"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opList   = "wishlist.list"
	opCreate = "wishlist.create"
	opUpdate = "wishlist.update"
	opDelete = "wishlist.delete"

	maxNotesLength = 2000
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingSubject    = errors.New("a master switch reference or a name is required")
	errNotesTooLong      = errors.New("notes exceed the length limit")
	noOpLogger           = zap.NewNop()
)

// ServiceConfig describes the dependencies for the wishlist service.
type ServiceConfig struct {
	Database   *gorm.DB
	IDProvider ids.Provider
	Logger     *zap.Logger
}

// Service backs the per-user wishlist.
type Service struct {
	db         *gorm.DB
	idProvider ids.Provider
	logger     *zap.Logger
}

// NewService constructs the wishlist service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, apperr.Internal(opList, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, apperr.Internal(opList, "missing_id_provider", errMissingIDProvider)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{db: cfg.Database, idProvider: cfg.IDProvider, logger: logger}, nil
}

// CreateRequest carries the writable fields of a wishlist item.
type CreateRequest struct {
	MasterSwitchID *string `json:"masterSwitchId"`
	Name           string  `json:"name"`
	Manufacturer   string  `json:"manufacturer"`
	Priority       int     `json:"priority"`
	Obtained       bool    `json:"obtained"`
	Notes          string  `json:"notes"`
}

func (r CreateRequest) validate(operation string) error {
	if r.MasterSwitchID == nil && strings.TrimSpace(r.Name) == "" {
		return apperr.Validation(operation, "missing_subject", errMissingSubject)
	}
	if len(r.Notes) > maxNotesLength {
		return apperr.Validation(operation, "notes_too_long", errNotesTooLong)
	}
	return nil
}

// List returns the caller's wishlist, highest priority first.
func (s *Service) List(ctx context.Context, userID string) ([]Item, error) {
	var rows []Item
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("priority DESC, created_at ASC").Find(&rows).Error
	if err != nil {
		s.logError(opList, "query_failed", err)
		return nil, apperr.Internal(opList, "query_failed", err)
	}
	return rows, nil
}

// Create inserts a wishlist item for the caller.
func (s *Service) Create(ctx context.Context, userID string, request CreateRequest) (Item, error) {
	if err := request.validate(opCreate); err != nil {
		return Item{}, err
	}
	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreate, "id_generation_failed", err)
		return Item{}, apperr.Internal(opCreate, "id_generation_failed", err)
	}
	record := Item{
		ID:             id,
		UserID:         userID,
		MasterSwitchID: request.MasterSwitchID,
		Name:           strings.TrimSpace(request.Name),
		Manufacturer:   strings.TrimSpace(request.Manufacturer),
		Priority:       request.Priority,
		Obtained:       request.Obtained,
		Notes:          request.Notes,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		s.logError(opCreate, "insert_failed", err)
		return Item{}, apperr.Internal(opCreate, "insert_failed", err)
	}
	return record, nil
}

// Update replaces the writable fields of an owned wishlist item.
func (s *Service) Update(ctx context.Context, userID, itemID string, request CreateRequest) (Item, error) {
	if err := request.validate(opUpdate); err != nil {
		return Item{}, err
	}
	record, err := s.owned(ctx, opUpdate, userID, itemID)
	if err != nil {
		return Item{}, err
	}
	record.MasterSwitchID = request.MasterSwitchID
	record.Name = strings.TrimSpace(request.Name)
	record.Manufacturer = strings.TrimSpace(request.Manufacturer)
	record.Priority = request.Priority
	record.Obtained = request.Obtained
	record.Notes = request.Notes
	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		s.logError(opUpdate, "save_failed", err)
		return Item{}, apperr.Internal(opUpdate, "save_failed", err)
	}
	return record, nil
}

// Delete removes an owned wishlist item.
func (s *Service) Delete(ctx context.Context, userID, itemID string) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", itemID, userID).Delete(&Item{})
	if result.Error != nil {
		s.logError(opDelete, "delete_failed", result.Error)
		return apperr.Internal(opDelete, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound(opDelete, "not_found", nil)
	}
	return nil
}

func (s *Service) owned(ctx context.Context, operation, userID, itemID string) (Item, error) {
	var record Item
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", itemID, userID).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Item{}, apperr.NotFound(operation, "not_found", err)
	}
	if err != nil {
		s.logError(operation, "lookup_failed", err)
		return Item{}, apperr.Internal(operation, "lookup_failed", err)
	}
	return record, nil
}

func (s *Service) logError(operation, reason string, err error) {
	s.logger.Error("wishlist service error",
		zap.String("operation", operation),
		zap.String("reason", reason),
		zap.Error(err))
}
