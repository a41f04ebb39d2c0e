package catalog

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
	opMaterials  = "catalog.materials"
	opStemShapes = "catalog.stem_shapes"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingName       = errors.New("name is required")
	noOpLogger           = zap.NewNop()
)

// ServiceConfig describes the dependencies for the catalog service.
type ServiceConfig struct {
	Database   *gorm.DB
	IDProvider ids.Provider
	Logger     *zap.Logger
}

// Service backs the admin-curated dropdown options for switch specs.
type Service struct {
	db         *gorm.DB
	idProvider ids.Provider
	logger     *zap.Logger
}

// NewService constructs the catalog service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, apperr.Internal(opMaterials, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, apperr.Internal(opMaterials, "missing_id_provider", errMissingIDProvider)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{db: cfg.Database, idProvider: cfg.IDProvider, logger: logger}, nil
}

// ListMaterials returns every material ordered by name.
func (s *Service) ListMaterials(ctx context.Context) ([]Material, error) {
	var rows []Material
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		s.logError(opMaterials, "query_failed", err)
		return nil, apperr.Internal(opMaterials, "query_failed", err)
	}
	return rows, nil
}

// CreateMaterial inserts a new material option.
func (s *Service) CreateMaterial(ctx context.Context, name string) (Material, error) {
	trimmed, err := s.requireUniqueName(ctx, opMaterials, name, &Material{})
	if err != nil {
		return Material{}, err
	}
	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opMaterials, "id_generation_failed", err)
		return Material{}, apperr.Internal(opMaterials, "id_generation_failed", err)
	}
	record := Material{ID: id, Name: trimmed}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		s.logError(opMaterials, "insert_failed", err)
		return Material{}, apperr.Internal(opMaterials, "insert_failed", err)
	}
	return record, nil
}

// RenameMaterial updates the name of a material option.
func (s *Service) RenameMaterial(ctx context.Context, id, name string) (Material, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return Material{}, apperr.Validation(opMaterials, "missing_name", errMissingName)
	}
	var record Material
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Material{}, apperr.NotFound(opMaterials, "not_found", err)
	}
	if err != nil {
		s.logError(opMaterials, "lookup_failed", err)
		return Material{}, apperr.Internal(opMaterials, "lookup_failed", err)
	}
	record.Name = trimmed
	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		s.logError(opMaterials, "save_failed", err)
		return Material{}, apperr.Internal(opMaterials, "save_failed", err)
	}
	return record, nil
}

// DeleteMaterial removes a material option.
func (s *Service) DeleteMaterial(ctx context.Context, id string) error {
	return s.deleteByID(ctx, opMaterials, id, &Material{})
}

// ListStemShapes returns every stem shape ordered by name.
func (s *Service) ListStemShapes(ctx context.Context) ([]StemShape, error) {
	var rows []StemShape
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		s.logError(opStemShapes, "query_failed", err)
		return nil, apperr.Internal(opStemShapes, "query_failed", err)
	}
	return rows, nil
}

// CreateStemShape inserts a new stem shape option.
func (s *Service) CreateStemShape(ctx context.Context, name string) (StemShape, error) {
	trimmed, err := s.requireUniqueName(ctx, opStemShapes, name, &StemShape{})
	if err != nil {
		return StemShape{}, err
	}
	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opStemShapes, "id_generation_failed", err)
		return StemShape{}, apperr.Internal(opStemShapes, "id_generation_failed", err)
	}
	record := StemShape{ID: id, Name: trimmed}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		s.logError(opStemShapes, "insert_failed", err)
		return StemShape{}, apperr.Internal(opStemShapes, "insert_failed", err)
	}
	return record, nil
}

// RenameStemShape updates the name of a stem shape option.
func (s *Service) RenameStemShape(ctx context.Context, id, name string) (StemShape, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return StemShape{}, apperr.Validation(opStemShapes, "missing_name", errMissingName)
	}
	var record StemShape
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return StemShape{}, apperr.NotFound(opStemShapes, "not_found", err)
	}
	if err != nil {
		s.logError(opStemShapes, "lookup_failed", err)
		return StemShape{}, apperr.Internal(opStemShapes, "lookup_failed", err)
	}
	record.Name = trimmed
	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		s.logError(opStemShapes, "save_failed", err)
		return StemShape{}, apperr.Internal(opStemShapes, "save_failed", err)
	}
	return record, nil
}

// DeleteStemShape removes a stem shape option.
func (s *Service) DeleteStemShape(ctx context.Context, id string) error {
	return s.deleteByID(ctx, opStemShapes, id, &StemShape{})
}

func (s *Service) requireUniqueName(ctx context.Context, operation, name string, model interface{}) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", apperr.Validation(operation, "missing_name", errMissingName)
	}
	var count int64
	err := s.db.WithContext(ctx).Model(model).
		Where("LOWER(name) = ?", strings.ToLower(trimmed)).Count(&count).Error
	if err != nil {
		s.logError(operation, "lookup_failed", err)
		return "", apperr.Internal(operation, "lookup_failed", err)
	}
	if count > 0 {
		return "", apperr.Conflict(operation, "name_exists", nil)
	}
	return trimmed, nil
}

func (s *Service) deleteByID(ctx context.Context, operation, id string, model interface{}) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(model)
	if result.Error != nil {
		s.logError(operation, "delete_failed", result.Error)
		return apperr.Internal(operation, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound(operation, "not_found", nil)
	}
	return nil
}

func (s *Service) logError(operation, reason string, err error) {
	s.logger.Error("catalog service error",
		zap.String("operation", operation),
		zap.String("reason", reason),
		zap.Error(err))
}
