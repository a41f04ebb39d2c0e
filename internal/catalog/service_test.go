package catalog

import (
	"context"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/keebstack/switchbook/internal/apperr"
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
	if err := db.AutoMigrate(&Material{}, &StemShape{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	service, err := NewService(ServiceConfig{
		Database:   db,
		IDProvider: ids.NewUUIDProvider(),
		Logger:     zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to build catalog service: %v", err)
	}
	return service
}

func TestMaterialLifecycle(t *testing.T) {
	service := newTestService(t)

	created, err := service.CreateMaterial(context.Background(), " POM ")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.Name != "POM" {
		t.Fatalf("expected trimmed name, got %q", created.Name)
	}

	if _, err := service.CreateMaterial(context.Background(), "pom"); apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("duplicate name must conflict, got %v", err)
	}

	renamed, err := service.RenameMaterial(context.Background(), created.ID, "UHMWPE")
	if err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if renamed.Name != "UHMWPE" {
		t.Fatalf("rename did not land: %q", renamed.Name)
	}

	if err := service.DeleteMaterial(context.Background(), created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := service.DeleteMaterial(context.Background(), created.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("second delete must be not found, got %v", err)
	}
}

func TestStemShapeLifecycle(t *testing.T) {
	service := newTestService(t)

	created, err := service.CreateStemShape(context.Background(), "MX")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	listed, err := service.ListStemShapes(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Fatalf("unexpected listing: %+v", listed)
	}

	if _, err := service.CreateStemShape(context.Background(), ""); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("empty name must be rejected, got %v", err)
	}
}
