package master

import (
	"context"
	"errors"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/keebstack/switchbook/internal/apperr"
	"github.com/keebstack/switchbook/internal/ids"
	"github.com/keebstack/switchbook/internal/manufacturers"
	"github.com/keebstack/switchbook/internal/switchspec"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&MasterSwitch{}, &Edit{}, &manufacturers.Manufacturer{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	manufacturerService, err := manufacturers.NewService(manufacturers.ServiceConfig{
		Database:   db,
		IDProvider: ids.NewUUIDProvider(),
		Logger:     zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to build manufacturer service: %v", err)
	}
	service, err := NewService(ServiceConfig{
		Database:      db,
		IDProvider:    ids.NewUUIDProvider(),
		Manufacturers: manufacturerService,
		Logger:        zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to build master service: %v", err)
	}
	return service
}

func sampleFields(name, manufacturer string) switchspec.Fields {
	return switchspec.Fields{
		Name:           name,
		Manufacturer:   manufacturer,
		Type:           switchspec.SwitchTypeLinear,
		Technology:     switchspec.TechnologyMechanical,
		ActuationForce: 45,
		BottomOutForce: 60,
		PreTravel:      2.0,
		TotalTravel:    4.0,
	}
}

func mustSubmitApproved(t *testing.T, service *Service, name, manufacturer string) MasterSwitch {
	t.Helper()
	submitted, err := service.Submit(context.Background(), SubmitRequest{
		SubmitterID:           "submitter-1",
		Fields:                sampleFields(name, manufacturer),
		Reason:                "seen in the wild",
		ConfirmedNotDuplicate: true,
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	approved, err := service.Approve(context.Background(), submitted.ID, "admin-1")
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	return approved
}

func TestSubmitCreatesPendingWithAuditSnapshot(t *testing.T) {
	service := newTestService(t)

	record, err := service.Submit(context.Background(), SubmitRequest{
		SubmitterID: "submitter-1",
		Fields:      sampleFields("Cherry MX Red", "Cherry"),
		Reason:      "missing from the catalogue",
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if record.Status != StatusPending {
		t.Fatalf("expected PENDING status, got %s", record.Status)
	}
	if record.Version != 1 {
		t.Fatalf("expected version 1, got %d", record.Version)
	}
	if record.OriginalSubmissionJSON == "" {
		t.Fatalf("expected audit snapshot to be stored")
	}
}

func TestSubmitRejectsExactDuplicate(t *testing.T) {
	service := newTestService(t)
	existing := mustSubmitApproved(t, service, "Cherry MX Red", "Cherry")

	_, err := service.Submit(context.Background(), SubmitRequest{
		SubmitterID:           "submitter-2",
		Fields:                sampleFields("cherry mx red", "CHERRY"),
		Reason:                "duplicate attempt",
		ConfirmedNotDuplicate: true,
	})
	if err == nil {
		t.Fatalf("expected exact duplicate rejection")
	}
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("exact duplicate must be a validation failure, got kind %d", apperr.KindOf(err))
	}
	var dup *ErrDuplicate
	if !errors.As(err, &dup) || !dup.Exact || dup.ExistingID != existing.ID {
		t.Fatalf("expected exact duplicate payload, got %#v", dup)
	}

	var count int64
	if err := service.db.Model(&MasterSwitch{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("duplicate submission must not insert, have %d rows", count)
	}
}

func TestSubmitReturnsSimilarCandidatesUntilConfirmed(t *testing.T) {
	service := newTestService(t)
	existing := mustSubmitApproved(t, service, "Gateron Yellow Pro", "Gateron")

	request := SubmitRequest{
		SubmitterID: "submitter-2",
		Fields:      sampleFields("Gateron Yellow Pros", "Gateron"),
		Reason:      "new revision",
	}
	_, err := service.Submit(context.Background(), request)
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	var dup *ErrDuplicate
	if !errors.As(err, &dup) || dup.Exact || len(dup.Candidates) != 1 {
		t.Fatalf("expected one similar candidate, got %#v", dup)
	}
	if dup.Candidates[0].MasterSwitchID != existing.ID {
		t.Fatalf("unexpected candidate %q", dup.Candidates[0].MasterSwitchID)
	}

	request.ConfirmedNotDuplicate = true
	if _, err := service.Submit(context.Background(), request); err != nil {
		t.Fatalf("confirmed submission should pass: %v", err)
	}
}

func TestSubmitSimilarityAcrossManufacturersIsIgnored(t *testing.T) {
	service := newTestService(t)
	mustSubmitApproved(t, service, "Yellow Pro", "Gateron")

	if _, err := service.Submit(context.Background(), SubmitRequest{
		SubmitterID: "submitter-2",
		Fields:      sampleFields("Yellow Pros", "Kailh"),
		Reason:      "different vendor",
	}); err != nil {
		t.Fatalf("different manufacturer must not conflict: %v", err)
	}
}

func TestRejectRequiresReasonAndIsTerminal(t *testing.T) {
	service := newTestService(t)
	record, err := service.Submit(context.Background(), SubmitRequest{
		SubmitterID: "submitter-1",
		Fields:      sampleFields("Akko Cream Blue", "Akko"),
		Reason:      "catalogue gap",
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if _, err := service.Reject(context.Background(), record.ID, "admin-1", "  "); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("empty reason must be rejected, got %v", err)
	}

	rejected, err := service.Reject(context.Background(), record.ID, "admin-1", "insufficient sources")
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if rejected.Status != StatusRejected {
		t.Fatalf("expected REJECTED, got %s", rejected.Status)
	}

	if _, err := service.Approve(context.Background(), record.ID, "admin-1"); apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("resolved submission must not flip, got %v", err)
	}
}
