package master

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/keebstack/switchbook/internal/apperr"
	"github.com/keebstack/switchbook/internal/switchspec"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opProposeEdit = "master.edits.propose"
	opListEdits   = "master.edits.list"
	opApproveEdit = "master.edits.approve"
	opRejectEdit  = "master.edits.reject"

	minEditReasonLength = 10
)

// EditRequest is a proposed field-level change against an approved master switch.
type EditRequest struct {
	MasterSwitchID string
	EditorID       string
	Reason         string
	NewFields      switchspec.Fields
	ChangedFields  []string
}

// ProposeEdit snapshots the live record and stores the proposed replacement.
// Only approved master switches accept edit suggestions.
func (s *Service) ProposeEdit(ctx context.Context, req EditRequest) (Edit, error) {
	if strings.TrimSpace(req.EditorID) == "" {
		return Edit{}, apperr.Validation(opProposeEdit, "missing_editor", nil)
	}
	if len(strings.TrimSpace(req.Reason)) < minEditReasonLength {
		return Edit{}, apperr.Validation(opProposeEdit, "reason_too_short", nil)
	}
	changed := dedupeKnownFields(req.ChangedFields)
	if len(changed) == 0 {
		return Edit{}, apperr.Validation(opProposeEdit, "no_changed_fields", nil)
	}
	if err := req.NewFields.Validate(); err != nil {
		return Edit{}, apperr.Validation(opProposeEdit, "invalid_fields", err)
	}

	record, err := s.Get(ctx, req.MasterSwitchID)
	if err != nil {
		return Edit{}, err
	}
	if record.Status != StatusApproved {
		return Edit{}, apperr.Conflict(opProposeEdit, "not_approved", nil)
	}

	previousJSON, err := json.Marshal(record.Fields)
	if err != nil {
		s.logError(opProposeEdit, "snapshot_encode_failed", err)
		return Edit{}, apperr.Internal(opProposeEdit, "snapshot_encode_failed", err)
	}
	newJSON, err := json.Marshal(req.NewFields)
	if err != nil {
		s.logError(opProposeEdit, "proposal_encode_failed", err)
		return Edit{}, apperr.Internal(opProposeEdit, "proposal_encode_failed", err)
	}
	changedJSON, err := json.Marshal(changed)
	if err != nil {
		s.logError(opProposeEdit, "changed_encode_failed", err)
		return Edit{}, apperr.Internal(opProposeEdit, "changed_encode_failed", err)
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opProposeEdit, "id_generation_failed", err)
		return Edit{}, apperr.Internal(opProposeEdit, "id_generation_failed", err)
	}

	edit := Edit{
		ID:                id,
		MasterSwitchID:    record.ID,
		EditorID:          req.EditorID,
		Reason:            strings.TrimSpace(req.Reason),
		PreviousJSON:      string(previousJSON),
		NewJSON:           string(newJSON),
		ChangedFieldsJSON: string(changedJSON),
		Status:            EditStatusPending,
	}
	if err := s.db.WithContext(ctx).Create(&edit).Error; err != nil {
		s.logError(opProposeEdit, "insert_failed", err)
		return Edit{}, apperr.Internal(opProposeEdit, "insert_failed", err)
	}

	s.notifyAdminsAsync("master_edit_proposed",
		"Edit suggestion for "+record.Name,
		edit.Reason,
		"/master-switches/"+record.ID+"/edits/"+edit.ID)
	return edit, nil
}

func dedupeKnownFields(names []string) []string {
	seen := make(map[string]bool, len(names))
	result := make([]string, 0, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" || seen[trimmed] || !switchspec.IsKnownField(trimmed) {
			continue
		}
		seen[trimmed] = true
		result = append(result, trimmed)
	}
	return result
}

// ListPendingEdits returns the edit review queue, oldest first.
func (s *Service) ListPendingEdits(ctx context.Context) ([]Edit, error) {
	var edits []Edit
	if err := s.db.WithContext(ctx).
		Where("status = ?", EditStatusPending).
		Order("created_at ASC").
		Find(&edits).Error; err != nil {
		s.logError(opListEdits, "query_failed", err)
		return nil, apperr.Internal(opListEdits, "query_failed", err)
	}
	return edits, nil
}

// ListEditsFor returns the full edit history of a master switch, newest first.
func (s *Service) ListEditsFor(ctx context.Context, masterSwitchID string) ([]Edit, error) {
	var edits []Edit
	if err := s.db.WithContext(ctx).
		Where("master_switch_id = ?", masterSwitchID).
		Order("created_at DESC").
		Find(&edits).Error; err != nil {
		s.logError(opListEdits, "query_failed", err)
		return nil, apperr.Internal(opListEdits, "query_failed", err)
	}
	return edits, nil
}

// ApproveEdit merges exactly the changed fields into the live record, bumps
// the version by one, and closes the edit. Both writes share a transaction so
// a half-applied review cannot be observed.
func (s *Service) ApproveEdit(ctx context.Context, editID, adminID string) (MasterSwitch, error) {
	var updated MasterSwitch
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var edit Edit
		err := tx.Where("id = ?", editID).Take(&edit).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound(opApproveEdit, "not_found", err)
		}
		if err != nil {
			return apperr.Internal(opApproveEdit, "query_failed", err)
		}
		if edit.Status != EditStatusPending {
			return apperr.Conflict(opApproveEdit, "already_resolved", nil)
		}

		var record MasterSwitch
		if err := tx.Where("id = ?", edit.MasterSwitchID).Take(&record).Error; err != nil {
			return apperr.Internal(opApproveEdit, "master_query_failed", err)
		}

		newFields, err := edit.NewFields()
		if err != nil {
			return apperr.Internal(opApproveEdit, "proposal_decode_failed", err)
		}

		switchspec.Apply(&record.Fields, newFields, edit.ChangedFields())
		record.Version++
		if err := tx.Save(&record).Error; err != nil {
			return apperr.Internal(opApproveEdit, "master_save_failed", err)
		}

		edit.Status = EditStatusApproved
		edit.ReviewedByID = adminID
		if err := tx.Save(&edit).Error; err != nil {
			return apperr.Internal(opApproveEdit, "edit_save_failed", err)
		}

		updated = record
		return nil
	})
	if txErr != nil {
		if apperr.CodeOf(txErr) == "" {
			s.logError(opApproveEdit, "transaction_failed", txErr)
			return MasterSwitch{}, apperr.Internal(opApproveEdit, "transaction_failed", txErr)
		}
		return MasterSwitch{}, txErr
	}

	s.notifyLinkedOwnersAsync(updated)
	return updated, nil
}

// RejectEdit closes the edit with a review note; the live record is untouched.
func (s *Service) RejectEdit(ctx context.Context, editID, adminID, note string) (Edit, error) {
	var edit Edit
	err := s.db.WithContext(ctx).Where("id = ?", editID).Take(&edit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Edit{}, apperr.NotFound(opRejectEdit, "not_found", err)
	}
	if err != nil {
		s.logError(opRejectEdit, "query_failed", err)
		return Edit{}, apperr.Internal(opRejectEdit, "query_failed", err)
	}
	if edit.Status != EditStatusPending {
		return Edit{}, apperr.Conflict(opRejectEdit, "already_resolved", nil)
	}

	edit.Status = EditStatusRejected
	edit.ReviewedByID = adminID
	edit.ReviewNote = strings.TrimSpace(note)
	if err := s.db.WithContext(ctx).Save(&edit).Error; err != nil {
		s.logError(opRejectEdit, "save_failed", err)
		return Edit{}, apperr.Internal(opRejectEdit, "save_failed", err)
	}
	return edit, nil
}

func (s *Service) notifyLinkedOwnersAsync(record MasterSwitch) {
	if s.notifier == nil || s.linkedOwners == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		owners, err := s.linkedOwners(ctx, record.ID)
		if err != nil {
			s.logger.Warn("linked owner lookup failed",
				zap.String("master_switch_id", record.ID),
				zap.Error(err))
			return
		}
		for _, owner := range owners {
			if err := s.notifier.NotifyUser(ctx, owner, "master_updated",
				record.Name+" was updated",
				"The community record changed, sync to pull the latest specification",
				"/switches?sync="+record.ID); err != nil {
				s.logger.Warn("owner notification failed",
					zap.String("user_id", owner),
					zap.Error(err))
			}
		}
	}()
}
