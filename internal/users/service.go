package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/keebstack/switchbook/internal/auth"
	"gorm.io/gorm"
)

// ErrInvalidIdentity indicates the claims did not contain a usable identifier.
var ErrInvalidIdentity = errors.New("users: invalid identity")

// ErrNotFound indicates no identity matches the lookup.
var ErrNotFound = errors.New("users: identity not found")

// ServiceConfig describes the dependencies required for user identity resolution.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
}

// Service manages canonical user identifiers and provider-specific identities.
type Service struct {
	db    *gorm.DB
	now   func() time.Time
	cache sync.Map
}

// NewService constructs the identity service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("users: database connection required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		db:    cfg.Database,
		now:   clock,
		cache: sync.Map{},
	}, nil
}

// ResolveCanonicalUserID returns the canonical user id for the provided session
// claims, creating a new identity mapping when the provider+subject pair has
// not been seen before.
func (s *Service) ResolveCanonicalUserID(claims auth.SessionClaims) (string, error) {
	provider, subject := deriveProviderSubject(claims)
	if subject == "" {
		return "", ErrInvalidIdentity
	}

	cacheKey := provider + ":" + subject
	if cachedIdentifier, ok := s.cache.Load(cacheKey); ok {
		canonicalIdentifier, ok := cachedIdentifier.(string)
		if ok {
			return canonicalIdentifier, nil
		}
	}

	var identity Identity
	err := s.db.
		Where("provider = ? AND subject = ?", provider, subject).
		First(&identity).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		identity = Identity{
			Provider:    provider,
			Subject:     subject,
			UserID:      subject,
			Email:       normalize(claims.UserEmail),
			DisplayName: normalize(claims.UserDisplayName),
			AvatarURL:   normalize(claims.UserAvatarURL),
			RolesCSV:    strings.Join(claims.UserRoles, ","),
			LastSeenAt:  s.now(),
		}
		if identity.UserID == "" {
			return "", ErrInvalidIdentity
		}
		if err := s.db.Create(&identity).Error; err != nil {
			return "", err
		}
	} else if err != nil {
		return "", err
	} else {
		updates := map[string]interface{}{}
		if email := normalize(claims.UserEmail); email != "" && email != identity.Email {
			updates["user_email"] = email
		}
		if display := normalize(claims.UserDisplayName); display != "" && display != identity.DisplayName {
			updates["user_display_name"] = display
		}
		if avatar := normalize(claims.UserAvatarURL); avatar != "" && avatar != identity.AvatarURL {
			updates["user_avatar_url"] = avatar
		}
		if roles := strings.Join(claims.UserRoles, ","); roles != identity.RolesCSV {
			updates["roles_csv"] = roles
		}
		updates["last_seen_at"] = s.now()
		if len(updates) > 0 {
			_ = s.db.Model(&Identity{}).
				Where("provider = ? AND subject = ?", provider, subject).
				Updates(updates).
				Error
		}
	}

	s.cache.Store(cacheKey, identity.UserID)
	return identity.UserID, nil
}

// AdminUserIDs returns the canonical ids of every account holding the admin role.
func (s *Service) AdminUserIDs(ctx context.Context) ([]string, error) {
	var identities []Identity
	if err := s.db.WithContext(ctx).
		Where("roles_csv LIKE ?", "%"+auth.RoleAdmin+"%").
		Find(&identities).Error; err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(identities))
	admins := make([]string, 0, len(identities))
	for _, identity := range identities {
		for _, role := range identity.Roles() {
			if strings.EqualFold(role, auth.RoleAdmin) && !seen[identity.UserID] {
				seen[identity.UserID] = true
				admins = append(admins, identity.UserID)
			}
		}
	}
	return admins, nil
}

// SetSharing toggles public collection sharing, assigning a slug on first use.
func (s *Service) SetSharing(ctx context.Context, userID string, enabled bool) (Identity, error) {
	var identity Identity
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&identity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Identity{}, ErrNotFound
	}
	if err != nil {
		return Identity{}, err
	}

	updates := map[string]interface{}{"share_enabled": enabled}
	if enabled && strings.TrimSpace(identity.ShareSlug) == "" {
		slug, err := uuid.NewV7()
		if err != nil {
			return Identity{}, err
		}
		identity.ShareSlug = slug.String()
		updates["share_slug"] = identity.ShareSlug
	}
	identity.ShareEnabled = enabled
	if err := s.db.WithContext(ctx).Model(&Identity{}).
		Where("provider = ? AND subject = ?", identity.Provider, identity.Subject).
		Updates(updates).Error; err != nil {
		return Identity{}, err
	}
	return identity, nil
}

// BySlug resolves a share slug to its identity when sharing is enabled.
func (s *Service) BySlug(ctx context.Context, slug string) (Identity, error) {
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return Identity{}, ErrNotFound
	}
	var identity Identity
	err := s.db.WithContext(ctx).
		Where("share_slug = ? AND share_enabled = ?", trimmed, true).
		First(&identity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Identity{}, ErrNotFound
	}
	if err != nil {
		return Identity{}, err
	}
	return identity, nil
}

func deriveProviderSubject(claims auth.SessionClaims) (string, string) {
	provider := "default"
	subject := normalize(claims.Subject)

	raw := normalize(claims.UserID)
	if raw != "" {
		if strings.Contains(raw, ":") {
			segments := strings.SplitN(raw, ":", 2)
			if normalize(segments[0]) != "" && normalize(segments[1]) != "" {
				provider = normalize(segments[0])
				subject = normalize(segments[1])
			}
		} else if subject == "" {
			subject = raw
		}
	}

	if subject == "" {
		subject = normalize(claims.UserEmail)
	}

	return provider, subject
}
