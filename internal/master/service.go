package master

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/keebstack/switchbook/internal/apperr"
	"github.com/keebstack/switchbook/internal/ids"
	"github.com/keebstack/switchbook/internal/manufacturers"
	"github.com/keebstack/switchbook/internal/similarity"
	"github.com/keebstack/switchbook/internal/switchspec"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opServiceNew = "master.service.new"
	opSubmit     = "master.submit"
	opGet        = "master.get"
	opListing    = "master.list"
	opApprove    = "master.approve"
	opReject     = "master.reject"
)

const maxDuplicateCandidates = 5

var (
	errMissingDatabase      = errors.New("database handle is required")
	errMissingIDProvider    = errors.New("id provider is required")
	errMissingManufacturers = errors.New("manufacturer service is required")
	noOpLogger              = zap.NewNop()
)

// ErrDuplicate carries the conflict payload when a submission resembles
// existing approved records and the caller has not confirmed.
type ErrDuplicate struct {
	// Exact is true for a case-insensitive (name, manufacturer) match.
	Exact bool
	// ExistingID references the exact match when Exact is set.
	ExistingID string
	// Candidates holds similar records, sorted by descending score.
	Candidates []DuplicateCandidate
}

func (e *ErrDuplicate) Error() string {
	if e.Exact {
		return "master: exact duplicate of " + e.ExistingID
	}
	return "master: similar records require confirmation"
}

// Notifier delivers best-effort notifications; failures are logged, never surfaced.
type Notifier interface {
	NotifyAdmins(ctx context.Context, kind, title, message, link string) error
	NotifyUser(ctx context.Context, userID, kind, title, message, link string) error
}

// ServiceConfig describes the dependencies of the master-switch lifecycle.
type ServiceConfig struct {
	Database      *gorm.DB
	IDProvider    ids.Provider
	Manufacturers *manufacturers.Service
	Notifier      Notifier
	// LinkedOwners resolves the user ids owning switches linked to a master
	// switch, used to notify them after an approved edit. Optional.
	LinkedOwners func(ctx context.Context, masterSwitchID string) ([]string, error)
	Clock        func() time.Time
	Logger       *zap.Logger
}

// Service owns submission, moderation, and edit review of master switches.
type Service struct {
	db            *gorm.DB
	idProvider    ids.Provider
	manufacturers *manufacturers.Service
	notifier      Notifier
	linkedOwners  func(ctx context.Context, masterSwitchID string) ([]string, error)
	clock         func() time.Time
	logger        *zap.Logger
}

// NewService constructs the master-switch service.
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
		notifier:      cfg.Notifier,
		linkedOwners:  cfg.LinkedOwners,
		clock:         clock,
		logger:        logger,
	}, nil
}

// SubmitRequest is a proposed new master switch.
type SubmitRequest struct {
	SubmitterID           string
	Fields                switchspec.Fields
	Reason                string
	ConfirmedNotDuplicate bool
}

// Submit validates a proposed master switch, runs duplicate detection against
// approved records, and inserts it as PENDING. Admin notification is
// asynchronous and best-effort.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (MasterSwitch, error) {
	if strings.TrimSpace(req.SubmitterID) == "" {
		return MasterSwitch{}, apperr.Validation(opSubmit, "missing_submitter", nil)
	}
	if err := req.Fields.Validate(); err != nil {
		return MasterSwitch{}, apperr.Validation(opSubmit, "invalid_fields", err)
	}

	fields := req.Fields
	normalized := s.manufacturers.Normalize(ctx, fields.Manufacturer)
	fields.Manufacturer = normalized.Canonical

	var approved []MasterSwitch
	if err := s.db.WithContext(ctx).
		Where("status = ?", StatusApproved).
		Find(&approved).Error; err != nil {
		s.logError(opSubmit, "duplicate_query_failed", err)
		return MasterSwitch{}, apperr.Internal(opSubmit, "duplicate_query_failed", err)
	}

	if dup := detectDuplicates(fields, approved, req.ConfirmedNotDuplicate); dup != nil {
		if dup.Exact {
			return MasterSwitch{}, apperr.Validation(opSubmit, "exact_duplicate", dup)
		}
		return MasterSwitch{}, apperr.Conflict(opSubmit, "similar_records", dup)
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opSubmit, "id_generation_failed", err)
		return MasterSwitch{}, apperr.Internal(opSubmit, "id_generation_failed", err)
	}

	originalJSON, err := json.Marshal(req.Fields)
	if err != nil {
		s.logError(opSubmit, "snapshot_encode_failed", err)
		return MasterSwitch{}, apperr.Internal(opSubmit, "snapshot_encode_failed", err)
	}

	record := MasterSwitch{
		ID:                     id,
		Fields:                 fields,
		Status:                 StatusPending,
		Version:                1,
		SubmittedByID:          req.SubmitterID,
		SubmissionReason:       strings.TrimSpace(req.Reason),
		OriginalSubmissionJSON: string(originalJSON),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		s.logError(opSubmit, "insert_failed", err)
		return MasterSwitch{}, apperr.Internal(opSubmit, "insert_failed", err)
	}

	s.notifyAdminsAsync("master_submission",
		"New master switch submission",
		record.Name+" by "+record.Manufacturer+" is waiting for review",
		"/master-switches/"+record.ID)

	return record, nil
}

// detectDuplicates applies the exact-then-fuzzy policy. The exact check always
// applies; the fuzzy check is skipped once the caller has confirmed.
func detectDuplicates(fields switchspec.Fields, approved []MasterSwitch, confirmed bool) *ErrDuplicate {
	name := strings.ToLower(strings.TrimSpace(fields.Name))
	manufacturer := strings.ToLower(strings.TrimSpace(fields.Manufacturer))

	for _, record := range approved {
		if strings.ToLower(strings.TrimSpace(record.Name)) == name &&
			strings.ToLower(strings.TrimSpace(record.Manufacturer)) == manufacturer {
			return &ErrDuplicate{Exact: true, ExistingID: record.ID}
		}
	}

	if confirmed {
		return nil
	}

	candidates := make([]DuplicateCandidate, 0)
	for _, record := range approved {
		if strings.ToLower(strings.TrimSpace(record.Manufacturer)) != manufacturer {
			continue
		}
		score := similarity.Score(fields.Name, record.Name)
		if score > similarity.Threshold {
			candidates = append(candidates, DuplicateCandidate{
				MasterSwitchID: record.ID,
				Name:           record.Name,
				Manufacturer:   record.Manufacturer,
				Score:          score,
			})
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	if len(candidates) > maxDuplicateCandidates {
		candidates = candidates[:maxDuplicateCandidates]
	}
	return &ErrDuplicate{Candidates: candidates}
}

// Get loads a master switch by id.
func (s *Service) Get(ctx context.Context, id string) (MasterSwitch, error) {
	var record MasterSwitch
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return MasterSwitch{}, apperr.NotFound(opGet, "not_found", err)
	}
	if err != nil {
		s.logError(opGet, "query_failed", err)
		return MasterSwitch{}, apperr.Internal(opGet, "query_failed", err)
	}
	return record, nil
}

// ListApproved returns the public catalogue ordered by manufacturer and name.
func (s *Service) ListApproved(ctx context.Context) ([]MasterSwitch, error) {
	var records []MasterSwitch
	if err := s.db.WithContext(ctx).
		Where("status = ?", StatusApproved).
		Order("manufacturer ASC, name ASC").
		Find(&records).Error; err != nil {
		s.logError(opListing, "query_failed", err)
		return nil, apperr.Internal(opListing, "query_failed", err)
	}
	return records, nil
}

// ListPending returns the moderation queue, oldest first.
func (s *Service) ListPending(ctx context.Context) ([]MasterSwitch, error) {
	var records []MasterSwitch
	if err := s.db.WithContext(ctx).
		Where("status = ?", StatusPending).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		s.logError(opListing, "query_failed", err)
		return nil, apperr.Internal(opListing, "query_failed", err)
	}
	return records, nil
}

// Approve transitions a pending submission to APPROVED.
func (s *Service) Approve(ctx context.Context, id, adminID string) (MasterSwitch, error) {
	record, err := s.Get(ctx, id)
	if err != nil {
		return MasterSwitch{}, err
	}
	if record.Status != StatusPending {
		return MasterSwitch{}, apperr.Conflict(opApprove, "not_pending", nil)
	}

	record.Status = StatusApproved
	record.ApprovedByID = adminID
	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		s.logError(opApprove, "save_failed", err)
		return MasterSwitch{}, apperr.Internal(opApprove, "save_failed", err)
	}

	s.notifyUserAsync(record.SubmittedByID, "master_approved",
		"Submission approved",
		record.Name+" is now part of the community catalogue",
		"/master-switches/"+record.ID)
	return record, nil
}

// Reject transitions a pending submission to REJECTED with a reason.
func (s *Service) Reject(ctx context.Context, id, adminID, reason string) (MasterSwitch, error) {
	if strings.TrimSpace(reason) == "" {
		return MasterSwitch{}, apperr.Validation(opReject, "missing_reason", nil)
	}
	record, err := s.Get(ctx, id)
	if err != nil {
		return MasterSwitch{}, err
	}
	if record.Status != StatusPending {
		return MasterSwitch{}, apperr.Conflict(opReject, "not_pending", nil)
	}

	record.Status = StatusRejected
	record.ApprovedByID = adminID
	record.RejectionReason = strings.TrimSpace(reason)
	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		s.logError(opReject, "save_failed", err)
		return MasterSwitch{}, apperr.Internal(opReject, "save_failed", err)
	}

	s.notifyUserAsync(record.SubmittedByID, "master_rejected",
		"Submission rejected",
		record.Name+": "+record.RejectionReason,
		"/master-switches/"+record.ID)
	return record, nil
}

func (s *Service) notifyAdminsAsync(kind, title, message, link string) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.notifier.NotifyAdmins(ctx, kind, title, message, link); err != nil {
			s.logger.Warn("admin notification failed",
				zap.String("kind", kind),
				zap.Error(err))
		}
	}()
}

func (s *Service) notifyUserAsync(userID, kind, title, message, link string) {
	if s.notifier == nil || userID == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.notifier.NotifyUser(ctx, userID, kind, title, message, link); err != nil {
			s.logger.Warn("user notification failed",
				zap.String("kind", kind),
				zap.String("user_id", userID),
				zap.Error(err))
		}
	}()
}

func (s *Service) logError(operation, reason string, err error) {
	s.logger.Error("master service error",
		zap.String("operation", operation),
		zap.String("reason", reason),
		zap.Error(err))
}
