package wishlist

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
	if err := db.AutoMigrate(&Item{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	service, err := NewService(ServiceConfig{
		Database:   db,
		IDProvider: ids.NewUUIDProvider(),
		Logger:     zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to build wishlist service: %v", err)
	}
	return service
}

func TestWishlistListOrdersByPriority(t *testing.T) {
	service := newTestService(t)

	if _, err := service.Create(context.Background(), "user-1", CreateRequest{Name: "Oil King", Priority: 1}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := service.Create(context.Background(), "user-1", CreateRequest{Name: "Boba U4T", Priority: 5}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := service.Create(context.Background(), "user-2", CreateRequest{Name: "Black Ink"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	rows, err := service.List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected only the caller's items, got %d", len(rows))
	}
	if rows[0].Name != "Boba U4T" {
		t.Fatalf("expected highest priority first, got %q", rows[0].Name)
	}
}

func TestWishlistRequiresSubject(t *testing.T) {
	service := newTestService(t)
	if _, err := service.Create(context.Background(), "user-1", CreateRequest{Priority: 3}); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation failure, got %v", err)
	}

	masterID := "master-1"
	if _, err := service.Create(context.Background(), "user-1", CreateRequest{MasterSwitchID: &masterID}); err != nil {
		t.Fatalf("a master reference alone must be enough: %v", err)
	}
}

func TestWishlistUpdateAndDeleteAreOwnerScoped(t *testing.T) {
	service := newTestService(t)
	created, err := service.Create(context.Background(), "user-1", CreateRequest{Name: "Oil King"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := service.Update(context.Background(), "user-2", created.ID, CreateRequest{Name: "Oil King", Obtained: true}); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("foreign update must look absent, got %v", err)
	}
	if err := service.Delete(context.Background(), "user-2", created.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("foreign delete must look absent, got %v", err)
	}

	updated, err := service.Update(context.Background(), "user-1", created.ID, CreateRequest{Name: "Oil King", Obtained: true})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !updated.Obtained {
		t.Fatalf("obtained flag did not land")
	}

	if err := service.Delete(context.Background(), "user-1", created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
}
