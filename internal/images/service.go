package images

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/keebstack/switchbook/internal/apperr"
	"github.com/keebstack/switchbook/internal/ids"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opUpload     = "images.upload"
	opList       = "images.list"
	opDelete     = "images.delete"
	opSetPrimary = "images.set_primary"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingStore      = errors.New("image store is required")
	errNoTarget          = errors.New("exactly one of switchId or masterSwitchId is required")
	errEmptyUpload       = errors.New("upload body is empty")
	noOpLogger           = zap.NewNop()
)

// ServiceConfig describes the dependencies for the image service.
type ServiceConfig struct {
	Database   *gorm.DB
	IDProvider ids.Provider
	Store      Store
	Logger     *zap.Logger
}

// Service validates, stores, and tracks switch images.
type Service struct {
	db         *gorm.DB
	idProvider ids.Provider
	store      Store
	logger     *zap.Logger
}

// NewService constructs the image service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, apperr.Internal(opUpload, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, apperr.Internal(opUpload, "missing_id_provider", errMissingIDProvider)
	}
	if cfg.Store == nil {
		return nil, apperr.Internal(opUpload, "missing_store", errMissingStore)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{db: cfg.Database, idProvider: cfg.IDProvider, store: cfg.Store, logger: logger}, nil
}

// UploadRequest carries one binary destined for a switch or a master switch.
// Ownership of the target entity is the caller's concern; the service only
// records OwnerUserID for quota accounting and delete authorization.
type UploadRequest struct {
	OwnerUserID    string
	SwitchID       *string
	MasterSwitchID *string
	DeclaredMIME   string
	Data           []byte
	Caption        string
}

// Upload validates the binary against the declared type, the size and
// dimension limits, and the per-user storage quota, then persists it. HEIC
// input is transcoded to JPEG before storage. The first image of an entity
// becomes its primary image.
func (s *Service) Upload(ctx context.Context, request UploadRequest) (SwitchImage, error) {
	if (request.SwitchID == nil) == (request.MasterSwitchID == nil) {
		return SwitchImage{}, apperr.Validation(opUpload, "ambiguous_target", errNoTarget)
	}
	if len(request.Data) == 0 {
		return SwitchImage{}, apperr.Validation(opUpload, "empty_body", errEmptyUpload)
	}
	if len(request.Data) > maxImageBytes {
		return SwitchImage{}, apperr.Validation(opUpload, "file_too_large",
			fmt.Errorf("upload of %d bytes exceeds the %d byte limit", len(request.Data), maxImageBytes))
	}

	sniffed, ok := sniffFormat(request.Data)
	if !ok {
		return SwitchImage{}, apperr.Validation(opUpload, "unsupported_format",
			errors.New("content is not a recognized image format"))
	}
	if !mimeMatches(request.DeclaredMIME, sniffed) {
		return SwitchImage{}, apperr.Validation(opUpload, "mime_mismatch",
			fmt.Errorf("declared type %q does not match detected type %q", request.DeclaredMIME, sniffed))
	}

	width, height, err := decodeDimensions(sniffed, request.Data)
	if err != nil {
		return SwitchImage{}, apperr.Validation(opUpload, "undecodable_image", err)
	}
	if width > maxDimensionPixels || height > maxDimensionPixels {
		return SwitchImage{}, apperr.Validation(opUpload, "dimensions_too_large",
			fmt.Errorf("%dx%d exceeds the %d pixel limit", width, height, maxDimensionPixels))
	}

	data := request.Data
	storedMIME := sniffed
	if sniffed == mimeHEIC {
		data, err = transcodeHEIC(data)
		if err != nil {
			return SwitchImage{}, apperr.Validation(opUpload, "transcode_failed", err)
		}
		storedMIME = mimeJPEG
	}

	used, err := s.storageUsed(ctx, request.OwnerUserID)
	if err != nil {
		s.logError(opUpload, "quota_lookup_failed", err)
		return SwitchImage{}, apperr.Internal(opUpload, "quota_lookup_failed", err)
	}
	if used+int64(len(data)) > maxUserStorageBytes {
		return SwitchImage{}, apperr.Capacity(opUpload, "storage_quota_exceeded",
			fmt.Errorf("user storage of %d bytes plus upload exceeds the %d byte quota", used, maxUserStorageBytes))
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opUpload, "id_generation_failed", err)
		return SwitchImage{}, apperr.Internal(opUpload, "id_generation_failed", err)
	}

	key := storageKey(request, id, extensionFor(storedMIME))
	url, err := s.store.Write(ctx, key, data)
	if err != nil {
		s.logError(opUpload, "store_write_failed", err)
		return SwitchImage{}, apperr.Internal(opUpload, "store_write_failed", err)
	}

	record := SwitchImage{
		ID:             id,
		SwitchID:       request.SwitchID,
		MasterSwitchID: request.MasterSwitchID,
		OwnerUserID:    request.OwnerUserID,
		Type:           TypeUploaded,
		URL:            url,
		StorageKey:     key,
		Width:          width,
		Height:         height,
		SizeBytes:      int64(len(data)),
		Caption:        request.Caption,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var siblings int64
		if err := s.scopeEntity(tx.Model(&SwitchImage{}), record.SwitchID, record.MasterSwitchID).
			Count(&siblings).Error; err != nil {
			return err
		}
		record.Order = int(siblings)
		record.IsPrimary = siblings == 0
		return tx.Create(&record).Error
	})
	if err != nil {
		s.logError(opUpload, "insert_failed", err)
		if removeErr := s.store.Remove(ctx, key); removeErr != nil {
			s.logError(opUpload, "orphan_cleanup_failed", removeErr)
		}
		return SwitchImage{}, apperr.Internal(opUpload, "insert_failed", err)
	}
	return record, nil
}

// ListForSwitch returns the images of one user switch ordered for display.
func (s *Service) ListForSwitch(ctx context.Context, switchID string) ([]SwitchImage, error) {
	return s.list(ctx, &switchID, nil)
}

// ListForMasterSwitch returns the images of one master switch ordered for display.
func (s *Service) ListForMasterSwitch(ctx context.Context, masterSwitchID string) ([]SwitchImage, error) {
	return s.list(ctx, nil, &masterSwitchID)
}

func (s *Service) list(ctx context.Context, switchID, masterSwitchID *string) ([]SwitchImage, error) {
	var rows []SwitchImage
	query := s.scopeEntity(s.db.WithContext(ctx), switchID, masterSwitchID)
	if err := query.Order("display_order ASC").Find(&rows).Error; err != nil {
		s.logError(opList, "query_failed", err)
		return nil, apperr.Internal(opList, "query_failed", err)
	}
	return rows, nil
}

// Delete removes an image the requester owns. Admins may delete any image.
// When the primary image goes away the next one by display order takes over.
func (s *Service) Delete(ctx context.Context, requesterID string, isAdmin bool, imageID string) error {
	var record SwitchImage
	err := s.db.WithContext(ctx).Where("id = ?", imageID).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(opDelete, "not_found", err)
	}
	if err != nil {
		s.logError(opDelete, "lookup_failed", err)
		return apperr.Internal(opDelete, "lookup_failed", err)
	}
	if record.OwnerUserID != requesterID && !isAdmin {
		return apperr.Forbidden(opDelete, "not_owner", nil)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", record.ID).Delete(&SwitchImage{}).Error; err != nil {
			return err
		}
		if !record.IsPrimary {
			return nil
		}
		var successor SwitchImage
		err := s.scopeEntity(tx, record.SwitchID, record.MasterSwitchID).
			Order("display_order ASC").Take(&successor).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.Model(&SwitchImage{}).Where("id = ?", successor.ID).
			Update("is_primary", true).Error
	})
	if err != nil {
		s.logError(opDelete, "delete_failed", err)
		return apperr.Internal(opDelete, "delete_failed", err)
	}

	if record.StorageKey != "" {
		if err := s.store.Remove(ctx, record.StorageKey); err != nil {
			s.logError(opDelete, "store_remove_failed", err)
		}
	}
	return nil
}

// SetPrimary promotes one owned image and demotes its siblings.
func (s *Service) SetPrimary(ctx context.Context, requesterID, imageID string) (SwitchImage, error) {
	var record SwitchImage
	err := s.db.WithContext(ctx).Where("id = ?", imageID).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SwitchImage{}, apperr.NotFound(opSetPrimary, "not_found", err)
	}
	if err != nil {
		s.logError(opSetPrimary, "lookup_failed", err)
		return SwitchImage{}, apperr.Internal(opSetPrimary, "lookup_failed", err)
	}
	if record.OwnerUserID != requesterID {
		return SwitchImage{}, apperr.Forbidden(opSetPrimary, "not_owner", nil)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.scopeEntity(tx.Model(&SwitchImage{}), record.SwitchID, record.MasterSwitchID).
			Update("is_primary", false).Error; err != nil {
			return err
		}
		return tx.Model(&SwitchImage{}).Where("id = ?", record.ID).
			Update("is_primary", true).Error
	})
	if err != nil {
		s.logError(opSetPrimary, "update_failed", err)
		return SwitchImage{}, apperr.Internal(opSetPrimary, "update_failed", err)
	}
	record.IsPrimary = true
	return record, nil
}

// storageUsed sums the stored bytes of a user's uploaded binaries.
func (s *Service) storageUsed(ctx context.Context, ownerUserID string) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&SwitchImage{}).
		Where("owner_user_id = ? AND image_type = ?", ownerUserID, TypeUploaded).
		Select("COALESCE(SUM(size_bytes), 0)").Scan(&total).Error
	return total, err
}

func (s *Service) scopeEntity(query *gorm.DB, switchID, masterSwitchID *string) *gorm.DB {
	if switchID != nil {
		return query.Where("switch_id = ?", *switchID)
	}
	return query.Where("master_switch_id = ?", *masterSwitchID)
}

func storageKey(request UploadRequest, id, extension string) string {
	if request.SwitchID != nil {
		return path.Join("switches", *request.SwitchID, id+"."+extension)
	}
	return path.Join("master-switches", *request.MasterSwitchID, id+"."+extension)
}

func (s *Service) logError(operation, reason string, err error) {
	s.logger.Error("image service error",
		zap.String("operation", operation),
		zap.String("reason", reason),
		zap.Error(err))
}
