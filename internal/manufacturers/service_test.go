package manufacturers

import (
	"context"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/keebstack/switchbook/internal/ids"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Manufacturer{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	service, err := NewService(ServiceConfig{
		Database:   db,
		IDProvider: ids.NewUUIDProvider(),
		Logger:     zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return service
}

func seedCherry(t *testing.T, service *Service) {
	t.Helper()
	if _, err := service.Create(context.Background(), "Cherry", []string{"Cherry Corp"}, true); err != nil {
		t.Fatalf("failed to seed manufacturer: %v", err)
	}
}

func TestNormalizeExactNameCaseInsensitive(t *testing.T) {
	service := newTestService(t)
	seedCherry(t, service)

	result := service.Normalize(context.Background(), "cherry")
	if result.Canonical != "Cherry" {
		t.Fatalf("expected canonical Cherry, got %q", result.Canonical)
	}
	if !result.Matched || result.IsAlias {
		t.Fatalf("expected a direct name match, got %+v", result)
	}
	if !result.Verified {
		t.Fatalf("expected verified flag to carry through")
	}
}

func TestNormalizeAliasMatchSetsIsAlias(t *testing.T) {
	service := newTestService(t)
	seedCherry(t, service)

	result := service.Normalize(context.Background(), "cherry corp")
	if result.Canonical != "Cherry" {
		t.Fatalf("expected canonical Cherry, got %q", result.Canonical)
	}
	if !result.IsAlias {
		t.Fatalf("expected alias metadata to be set")
	}
}

func TestNormalizeFuzzyMatchAboveThreshold(t *testing.T) {
	service := newTestService(t)
	if _, err := service.Create(context.Background(), "Gateron", nil, true); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}

	result := service.Normalize(context.Background(), "Gateronn")
	if result.Canonical != "Gateron" {
		t.Fatalf("expected fuzzy match to Gateron, got %q", result.Canonical)
	}
	if result.Score <= 0.8 {
		t.Fatalf("expected score above threshold, got %f", result.Score)
	}
}

func TestNormalizeNoMatchKeepsInput(t *testing.T) {
	service := newTestService(t)
	seedCherry(t, service)

	result := service.Normalize(context.Background(), "Wuque Studio")
	if result.Canonical != "Wuque Studio" {
		t.Fatalf("expected input to be kept, got %q", result.Canonical)
	}
	if result.Matched || result.Verified {
		t.Fatalf("expected unmatched result, got %+v", result)
	}
}

func TestNormalizeEmptyInput(t *testing.T) {
	service := newTestService(t)
	result := service.Normalize(context.Background(), "   ")
	if result.Canonical != "" || result.Matched {
		t.Fatalf("expected empty passthrough, got %+v", result)
	}
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	service := newTestService(t)
	seedCherry(t, service)

	if _, err := service.Create(context.Background(), "CHERRY", nil, false); err == nil {
		t.Fatalf("expected duplicate name to be rejected")
	}
}

func TestUpdateAndDelete(t *testing.T) {
	service := newTestService(t)
	created, err := service.Create(context.Background(), "Kailh", nil, false)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := service.Update(context.Background(), created.ID, "Kailh", []string{"Kaihua"}, true)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if len(updated.Aliases()) != 1 || updated.Aliases()[0] != "Kaihua" {
		t.Fatalf("unexpected aliases: %v", updated.Aliases())
	}
	if !updated.Verified {
		t.Fatalf("expected verified to be set")
	}

	if err := service.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := service.Delete(context.Background(), created.ID); err == nil {
		t.Fatalf("expected delete of missing row to fail")
	}
}
