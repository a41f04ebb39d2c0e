package manufacturers

import (
	"context"
	"errors"
	"strings"

	"github.com/keebstack/switchbook/internal/apperr"
	"github.com/keebstack/switchbook/internal/ids"
	"github.com/keebstack/switchbook/internal/similarity"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opNormalize = "manufacturers.normalize"
	opList      = "manufacturers.list"
	opCreate    = "manufacturers.create"
	opUpdate    = "manufacturers.update"
	opDelete    = "manufacturers.delete"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingName       = errors.New("manufacturer name is required")
	noOpLogger           = zap.NewNop()
)

// ServiceConfig describes the dependencies for the manufacturer service.
type ServiceConfig struct {
	Database   *gorm.DB
	IDProvider ids.Provider
	Logger     *zap.Logger
}

// Service normalizes free-text manufacturer names and backs the admin CRUD.
type Service struct {
	db         *gorm.DB
	idProvider ids.Provider
	logger     *zap.Logger
}

// NewService constructs the manufacturer service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, apperr.Internal(opNormalize, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, apperr.Internal(opNormalize, "missing_id_provider", errMissingIDProvider)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{db: cfg.Database, idProvider: cfg.IDProvider, logger: logger}, nil
}

// Normalization reports how a free-text manufacturer string was resolved.
type Normalization struct {
	Input     string
	Canonical string
	Matched   bool
	IsAlias   bool
	Verified  bool
	Score     float64
}

// Normalize resolves a free-text manufacturer string to its canonical name.
// Exact case-insensitive matches against names and aliases win; otherwise the
// best fuzzy score strictly above the similarity threshold wins; otherwise the
// input is returned untouched and unverified. Normalize never fails the caller
// on lookup problems, it degrades to the raw input.
func (s *Service) Normalize(ctx context.Context, raw string) Normalization {
	input := strings.TrimSpace(raw)
	result := Normalization{Input: input, Canonical: input}
	if input == "" {
		return result
	}

	known, err := s.loadAll(ctx)
	if err != nil {
		s.logger.Warn("manufacturer lookup failed, keeping raw input",
			zap.String("operation", opNormalize),
			zap.Error(err))
		return result
	}

	lowered := strings.ToLower(input)
	for _, manufacturer := range known {
		if strings.ToLower(manufacturer.Name) == lowered {
			result.Canonical = manufacturer.Name
			result.Matched = true
			result.Verified = manufacturer.Verified
			result.Score = 1.0
			return result
		}
		for _, alias := range manufacturer.Aliases() {
			if strings.ToLower(strings.TrimSpace(alias)) == lowered {
				result.Canonical = manufacturer.Name
				result.Matched = true
				result.IsAlias = true
				result.Verified = manufacturer.Verified
				result.Score = 1.0
				return result
			}
		}
	}

	best := Normalization{Input: input, Canonical: input}
	for _, manufacturer := range known {
		score := similarity.Score(input, manufacturer.Name)
		if score > similarity.Threshold && score > best.Score {
			best = Normalization{
				Input:     input,
				Canonical: manufacturer.Name,
				Matched:   true,
				Verified:  manufacturer.Verified,
				Score:     score,
			}
		}
	}
	return best
}

func (s *Service) loadAll(ctx context.Context) ([]Manufacturer, error) {
	var all []Manufacturer
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&all).Error; err != nil {
		return nil, err
	}
	return all, nil
}

// List returns every manufacturer ordered by name.
func (s *Service) List(ctx context.Context) ([]Manufacturer, error) {
	all, err := s.loadAll(ctx)
	if err != nil {
		s.logError(opList, "query_failed", err)
		return nil, apperr.Internal(opList, "query_failed", err)
	}
	return all, nil
}

// Create inserts a new canonical manufacturer.
func (s *Service) Create(ctx context.Context, name string, aliases []string, verified bool) (Manufacturer, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return Manufacturer{}, apperr.Validation(opCreate, "missing_name", errMissingName)
	}

	var existing Manufacturer
	err := s.db.WithContext(ctx).Where("LOWER(name) = ?", strings.ToLower(trimmed)).Take(&existing).Error
	if err == nil {
		return Manufacturer{}, apperr.Conflict(opCreate, "name_exists", nil)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logError(opCreate, "lookup_failed", err)
		return Manufacturer{}, apperr.Internal(opCreate, "lookup_failed", err)
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreate, "id_generation_failed", err)
		return Manufacturer{}, apperr.Internal(opCreate, "id_generation_failed", err)
	}

	manufacturer := Manufacturer{ID: id, Name: trimmed, Verified: verified}
	manufacturer.SetAliases(aliases)
	if err := s.db.WithContext(ctx).Create(&manufacturer).Error; err != nil {
		s.logError(opCreate, "insert_failed", err)
		return Manufacturer{}, apperr.Internal(opCreate, "insert_failed", err)
	}
	return manufacturer, nil
}

// Update replaces the name, aliases, and verified flag of a manufacturer.
func (s *Service) Update(ctx context.Context, id, name string, aliases []string, verified bool) (Manufacturer, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return Manufacturer{}, apperr.Validation(opUpdate, "missing_name", errMissingName)
	}

	var manufacturer Manufacturer
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&manufacturer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Manufacturer{}, apperr.NotFound(opUpdate, "not_found", err)
	}
	if err != nil {
		s.logError(opUpdate, "lookup_failed", err)
		return Manufacturer{}, apperr.Internal(opUpdate, "lookup_failed", err)
	}

	manufacturer.Name = trimmed
	manufacturer.Verified = verified
	manufacturer.SetAliases(aliases)
	if err := s.db.WithContext(ctx).Save(&manufacturer).Error; err != nil {
		s.logError(opUpdate, "save_failed", err)
		return Manufacturer{}, apperr.Internal(opUpdate, "save_failed", err)
	}
	return manufacturer, nil
}

// Delete removes a manufacturer row.
func (s *Service) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Manufacturer{})
	if result.Error != nil {
		s.logError(opDelete, "delete_failed", result.Error)
		return apperr.Internal(opDelete, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound(opDelete, "not_found", nil)
	}
	return nil
}

func (s *Service) logError(operation, reason string, err error) {
	s.logger.Error("manufacturer service error",
		zap.String("operation", operation),
		zap.String("reason", reason),
		zap.Error(err))
}
