package switches

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/keebstack/switchbook/internal/apperr"
	"github.com/keebstack/switchbook/internal/ids"
	"github.com/keebstack/switchbook/internal/images"
	"github.com/keebstack/switchbook/internal/manufacturers"
	"github.com/keebstack/switchbook/internal/master"
	"github.com/keebstack/switchbook/internal/switchspec"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opServiceNew = "switches.service.new"
	opCreate     = "switches.create"
	opList       = "switches.list"
	opGet        = "switches.get"
	opUpdate     = "switches.update"
	opDelete     = "switches.delete"
	opLink       = "switches.link"
)

const (
	maxSwitchesPerUser = 25000
	maxPersonalNotes   = 2000
)

var (
	errMissingDatabase      = errors.New("database handle is required")
	errMissingIDProvider    = errors.New("id provider is required")
	errMissingManufacturers = errors.New("manufacturer service is required")
	noOpLogger              = zap.NewNop()
)

// ServiceConfig describes the dependencies of the user-collection service.
type ServiceConfig struct {
	Database      *gorm.DB
	IDProvider    ids.Provider
	Manufacturers *manufacturers.Service
	Clock         func() time.Time
	Logger        *zap.Logger
}

// Service owns user switch collections: CRUD, bulk import, and master sync.
type Service struct {
	db            *gorm.DB
	idProvider    ids.Provider
	manufacturers *manufacturers.Service
	clock         func() time.Time
	logger        *zap.Logger
	bulkGuard     *OpGuard
}

// NewService constructs the collection service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, apperr.Internal(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, apperr.Internal(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}
	if cfg.Manufacturers == nil {
		return nil, apperr.Internal(opServiceNew, "missing_manufacturers", errMissingManufacturers)
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
		db:            cfg.Database,
		idProvider:    cfg.IDProvider,
		manufacturers: cfg.Manufacturers,
		clock:         clock,
		logger:        logger,
		bulkGuard:     NewOpGuard(maxConcurrentBulkOps),
	}, nil
}

// CreateRequest carries the owner-supplied parts of a new switch.
type CreateRequest struct {
	Fields        switchspec.Fields
	PersonalNotes string
	Quantity      int
}

// Create validates, normalizes, and inserts a single switch for the user.
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (Switch, error) {
	if strings.TrimSpace(userID) == "" {
		return Switch{}, apperr.Validation(opCreate, "missing_user", nil)
	}
	record, err := s.buildSwitch(ctx, userID, req)
	if err != nil {
		return Switch{}, apperr.Validation(opCreate, "invalid_fields", err)
	}

	total, err := s.CountForUser(ctx, userID)
	if err != nil {
		return Switch{}, apperr.Internal(opCreate, "count_failed", err)
	}
	if total >= maxSwitchesPerUser {
		return Switch{}, apperr.Capacity(opCreate, "collection_full", nil)
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		s.logError(opCreate, "insert_failed", err, zap.String("user_id", userID))
		return Switch{}, apperr.Internal(opCreate, "insert_failed", err)
	}
	return record, nil
}

// buildSwitch validates and normalizes a request into an insertable row.
func (s *Service) buildSwitch(ctx context.Context, userID string, req CreateRequest) (Switch, error) {
	if err := req.Fields.Validate(); err != nil {
		return Switch{}, err
	}
	if len(req.PersonalNotes) > maxPersonalNotes {
		return Switch{}, errors.New("personal notes too long")
	}
	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	fields := req.Fields
	normalized := s.manufacturers.Normalize(ctx, fields.Manufacturer)
	fields.Manufacturer = normalized.Canonical

	id, err := s.idProvider.NewID()
	if err != nil {
		return Switch{}, err
	}
	record := Switch{
		ID:            id,
		UserID:        userID,
		Fields:        fields,
		PersonalNotes: req.PersonalNotes,
		Quantity:      quantity,
	}
	record.SetModifiedFields(nil)
	return record, nil
}

// List returns the user's collection, most recently updated first.
func (s *Service) List(ctx context.Context, userID string) ([]Switch, error) {
	var records []Switch
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&records).Error; err != nil {
		s.logError(opList, "query_failed", err, zap.String("user_id", userID))
		return nil, apperr.Internal(opList, "query_failed", err)
	}
	return records, nil
}

// Get loads one switch owned by the user; other users' rows look absent.
func (s *Service) Get(ctx context.Context, userID, switchID string) (Switch, error) {
	var record Switch
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", switchID, userID).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Switch{}, apperr.NotFound(opGet, "not_found", err)
	}
	if err != nil {
		s.logError(opGet, "query_failed", err, zap.String("user_id", userID))
		return Switch{}, apperr.Internal(opGet, "query_failed", err)
	}
	return record, nil
}

// Update replaces the descriptive fields and annotations of an owned switch.
// For a linked switch the divergence flags are recomputed against the current
// master record so the owner can see which fields they have overridden.
func (s *Service) Update(ctx context.Context, userID, switchID string, req CreateRequest) (Switch, error) {
	record, err := s.Get(ctx, userID, switchID)
	if err != nil {
		return Switch{}, err
	}
	if err := req.Fields.Validate(); err != nil {
		return Switch{}, apperr.Validation(opUpdate, "invalid_fields", err)
	}
	if len(req.PersonalNotes) > maxPersonalNotes {
		return Switch{}, apperr.Validation(opUpdate, "personal_notes_too_long", nil)
	}

	fields := req.Fields
	normalized := s.manufacturers.Normalize(ctx, fields.Manufacturer)
	fields.Manufacturer = normalized.Canonical

	record.Fields = fields
	record.PersonalNotes = req.PersonalNotes
	if req.Quantity > 0 {
		record.Quantity = req.Quantity
	}

	if record.MasterSwitchID != nil {
		var masterRecord master.MasterSwitch
		err := s.db.WithContext(ctx).Where("id = ?", *record.MasterSwitchID).Take(&masterRecord).Error
		if err == nil {
			record.SetModifiedFields(switchspec.Diff(masterRecord.Fields, record.Fields))
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logError(opUpdate, "master_query_failed", err, zap.String("user_id", userID))
		}
	} else {
		record.SetModifiedFields(nil)
	}

	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		s.logError(opUpdate, "save_failed", err, zap.String("user_id", userID))
		return Switch{}, apperr.Internal(opUpdate, "save_failed", err)
	}
	return record, nil
}

// Delete removes an owned switch and its image rows.
func (s *Service) Delete(ctx context.Context, userID, switchID string) error {
	record, err := s.Get(ctx, userID, switchID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).
		Where("switch_id = ?", record.ID).
		Delete(&images.SwitchImage{}).Error; err != nil {
		s.logError(opDelete, "image_cleanup_failed", err, zap.String("user_id", userID))
		return apperr.Internal(opDelete, "image_cleanup_failed", err)
	}
	if err := s.db.WithContext(ctx).Delete(&record).Error; err != nil {
		s.logError(opDelete, "delete_failed", err, zap.String("user_id", userID))
		return apperr.Internal(opDelete, "delete_failed", err)
	}
	return nil
}

// LinkToMaster attaches an owned switch to an approved master record and pulls
// the canonical specification immediately.
func (s *Service) LinkToMaster(ctx context.Context, userID, switchID, masterSwitchID string) (Switch, error) {
	record, err := s.Get(ctx, userID, switchID)
	if err != nil {
		return Switch{}, err
	}

	var masterRecord master.MasterSwitch
	err = s.db.WithContext(ctx).
		Where("id = ? AND status = ?", masterSwitchID, master.StatusApproved).
		Take(&masterRecord).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Switch{}, apperr.NotFound(opLink, "master_not_found", err)
	}
	if err != nil {
		s.logError(opLink, "master_query_failed", err, zap.String("user_id", userID))
		return Switch{}, apperr.Internal(opLink, "master_query_failed", err)
	}

	record.MasterSwitchID = &masterRecord.ID
	applyMasterFields(&record, masterRecord)
	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		s.logError(opLink, "save_failed", err, zap.String("user_id", userID))
		return Switch{}, apperr.Internal(opLink, "save_failed", err)
	}
	return record, nil
}

// CountForUser returns the size of a user's collection.
func (s *Service) CountForUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Switch{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// LinkedOwnerIDs returns the distinct owners of switches linked to a master record.
func (s *Service) LinkedOwnerIDs(ctx context.Context, masterSwitchID string) ([]string, error) {
	var owners []string
	err := s.db.WithContext(ctx).
		Model(&Switch{}).
		Distinct("user_id").
		Where("master_switch_id = ?", masterSwitchID).
		Pluck("user_id", &owners).Error
	return owners, err
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("switches service error", attrs...)
}
