package users

import (
	"context"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/keebstack/switchbook/internal/auth"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Identity{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	service, err := NewService(ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return service
}

func TestResolveCreatesIdentityOnFirstSight(t *testing.T) {
	service := newTestService(t)
	claims := auth.SessionClaims{
		UserID:          "google:subject-123",
		UserEmail:       "user@example.com",
		UserDisplayName: "User",
	}
	claims.Subject = "subject-123"

	userID, err := service.ResolveCanonicalUserID(claims)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if userID != "subject-123" {
		t.Fatalf("unexpected canonical id %q", userID)
	}

	again, err := service.ResolveCanonicalUserID(claims)
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if again != userID {
		t.Fatalf("resolution is not stable: %q vs %q", again, userID)
	}
}

func TestResolveRejectsEmptyClaims(t *testing.T) {
	service := newTestService(t)
	if _, err := service.ResolveCanonicalUserID(auth.SessionClaims{}); err == nil {
		t.Fatalf("expected empty claims to be rejected")
	}
}

func TestAdminUserIDs(t *testing.T) {
	service := newTestService(t)

	adminClaims := auth.SessionClaims{UserID: "google:admin-1", UserRoles: []string{"admin"}}
	adminClaims.Subject = "admin-1"
	if _, err := service.ResolveCanonicalUserID(adminClaims); err != nil {
		t.Fatalf("resolve admin failed: %v", err)
	}
	memberClaims := auth.SessionClaims{UserID: "google:member-1"}
	memberClaims.Subject = "member-1"
	if _, err := service.ResolveCanonicalUserID(memberClaims); err != nil {
		t.Fatalf("resolve member failed: %v", err)
	}

	admins, err := service.AdminUserIDs(context.Background())
	if err != nil {
		t.Fatalf("admin listing failed: %v", err)
	}
	if len(admins) != 1 || admins[0] != "admin-1" {
		t.Fatalf("unexpected admin list: %v", admins)
	}
}

func TestSetSharingAssignsSlugOnce(t *testing.T) {
	service := newTestService(t)
	claims := auth.SessionClaims{UserID: "google:sharer-1"}
	claims.Subject = "sharer-1"
	if _, err := service.ResolveCanonicalUserID(claims); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	enabled, err := service.SetSharing(context.Background(), "sharer-1", true)
	if err != nil {
		t.Fatalf("enable sharing failed: %v", err)
	}
	if enabled.ShareSlug == "" {
		t.Fatalf("expected a share slug to be assigned")
	}

	found, err := service.BySlug(context.Background(), enabled.ShareSlug)
	if err != nil {
		t.Fatalf("slug lookup failed: %v", err)
	}
	if found.UserID != "sharer-1" {
		t.Fatalf("unexpected identity %q", found.UserID)
	}

	disabled, err := service.SetSharing(context.Background(), "sharer-1", false)
	if err != nil {
		t.Fatalf("disable sharing failed: %v", err)
	}
	if disabled.ShareSlug != enabled.ShareSlug {
		t.Fatalf("slug must be stable across toggles")
	}
	if _, err := service.BySlug(context.Background(), enabled.ShareSlug); err == nil {
		t.Fatalf("disabled share must not resolve")
	}
}
