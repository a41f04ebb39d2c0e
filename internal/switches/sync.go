package switches

import (
	"context"
	"errors"

	"github.com/keebstack/switchbook/internal/apperr"
	"github.com/keebstack/switchbook/internal/images"
	"github.com/keebstack/switchbook/internal/master"
	"github.com/keebstack/switchbook/internal/switchspec"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opSyncOne = "switches.sync"
	opSyncAll = "switches.sync_all"
)

// SyncOutcome reports what a single-switch sync did.
type SyncOutcome struct {
	Switch        Switch
	Updated       bool
	MasterVersion int64
}

// BulkSyncResult summarizes a whole-collection sync.
type BulkSyncResult struct {
	Updated         int   `json:"updated"`
	SkippedUpToDate int   `json:"skippedUpToDate"`
	Failed          int   `json:"failed"`
	HighestVersion  int64 `json:"highestMasterVersion"`
}

// applyMasterFields overwrites the descriptive fields of a user copy with the
// master's values and resets the divergence bookkeeping. One canonical field
// list serves every sync path; the magnetic-specific fields are copied only
// for MAGNETIC records.
func applyMasterFields(record *Switch, masterRecord master.MasterSwitch) {
	names := switchspec.FieldNames()
	if masterRecord.Technology != switchspec.TechnologyMagnetic {
		magnetic := make(map[string]bool)
		for _, name := range switchspec.MagneticFieldNames() {
			magnetic[name] = true
		}
		filtered := names[:0]
		for _, name := range names {
			if !magnetic[name] {
				filtered = append(filtered, name)
			}
		}
		names = filtered
	}
	switchspec.Apply(&record.Fields, masterRecord.Fields, names)
	record.SetModifiedFields(nil)
	record.MasterSwitchVersion = masterRecord.Version
}

// SyncFromMaster pulls the master's current specification into one owned
// switch. Personal annotations survive; the LINKED image bookkeeping follows
// the master's image URL.
func (s *Service) SyncFromMaster(ctx context.Context, userID, switchID string) (SyncOutcome, error) {
	record, err := s.Get(ctx, userID, switchID)
	if err != nil {
		return SyncOutcome{}, err
	}
	if record.MasterSwitchID == nil {
		return SyncOutcome{}, apperr.Validation(opSyncOne, "not_linked", nil)
	}

	var masterRecord master.MasterSwitch
	err = s.db.WithContext(ctx).Where("id = ?", *record.MasterSwitchID).Take(&masterRecord).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SyncOutcome{}, apperr.NotFound(opSyncOne, "master_not_found", err)
	}
	if err != nil {
		s.logError(opSyncOne, "master_query_failed", err, zap.String("user_id", userID))
		return SyncOutcome{}, apperr.Internal(opSyncOne, "master_query_failed", err)
	}

	if record.MasterSwitchVersion >= masterRecord.Version && !record.IsModified {
		return SyncOutcome{Switch: record, Updated: false, MasterVersion: masterRecord.Version}, nil
	}

	applyMasterFields(&record, masterRecord)
	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		s.logError(opSyncOne, "save_failed", err, zap.String("user_id", userID))
		return SyncOutcome{}, apperr.Internal(opSyncOne, "save_failed", err)
	}

	if err := s.linkMasterImage(ctx, record, masterRecord); err != nil {
		// Image bookkeeping is best-effort; the field sync already landed.
		s.logError(opSyncOne, "image_link_failed", err, zap.String("user_id", userID))
	}

	return SyncOutcome{Switch: record, Updated: true, MasterVersion: masterRecord.Version}, nil
}

// linkMasterImage creates a LINKED image row for the master's image URL when
// the switch does not already reference it, making it primary if nothing is.
func (s *Service) linkMasterImage(ctx context.Context, record Switch, masterRecord master.MasterSwitch) error {
	if masterRecord.ImageURL == "" {
		return nil
	}

	var existing []images.SwitchImage
	if err := s.db.WithContext(ctx).
		Where("switch_id = ?", record.ID).
		Find(&existing).Error; err != nil {
		return err
	}
	hasPrimary := false
	maxOrder := -1
	for _, image := range existing {
		if image.URL == masterRecord.ImageURL {
			return nil
		}
		if image.IsPrimary {
			hasPrimary = true
		}
		if image.Order > maxOrder {
			maxOrder = image.Order
		}
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		return err
	}
	switchID := record.ID
	linked := images.SwitchImage{
		ID:          id,
		SwitchID:    &switchID,
		OwnerUserID: record.UserID,
		Type:        images.TypeLinked,
		URL:         masterRecord.ImageURL,
		Order:       maxOrder + 1,
		IsPrimary:   !hasPrimary,
	}
	return s.db.WithContext(ctx).Create(&linked).Error
}

// SyncAll refreshes every linked switch in the caller's collection, skipping
// copies already at or above their master's version. Per-switch failures are
// isolated; the summary reports them without failing the request.
func (s *Service) SyncAll(ctx context.Context, userID string) (BulkSyncResult, error) {
	var linked []Switch
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND master_switch_id IS NOT NULL", userID).
		Find(&linked).Error; err != nil {
		s.logError(opSyncAll, "query_failed", err, zap.String("user_id", userID))
		return BulkSyncResult{}, apperr.Internal(opSyncAll, "query_failed", err)
	}

	result := BulkSyncResult{}
	for _, record := range linked {
		var masterRecord master.MasterSwitch
		err := s.db.WithContext(ctx).Where("id = ?", *record.MasterSwitchID).Take(&masterRecord).Error
		if err != nil {
			result.Failed++
			s.logError(opSyncAll, "master_query_failed", err,
				zap.String("user_id", userID),
				zap.String("switch_id", record.ID))
			continue
		}
		if masterRecord.Version > result.HighestVersion {
			result.HighestVersion = masterRecord.Version
		}
		if record.MasterSwitchVersion >= masterRecord.Version {
			result.SkippedUpToDate++
			continue
		}

		applyMasterFields(&record, masterRecord)
		if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
			result.Failed++
			s.logError(opSyncAll, "save_failed", err,
				zap.String("user_id", userID),
				zap.String("switch_id", record.ID))
			continue
		}
		if err := s.linkMasterImage(ctx, record, masterRecord); err != nil {
			s.logError(opSyncAll, "image_link_failed", err,
				zap.String("user_id", userID),
				zap.String("switch_id", record.ID))
		}
		result.Updated++
	}
	return result, nil
}
