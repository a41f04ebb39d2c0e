package users

import (
	"strings"
	"time"
)

// Identity maps a provider-specific login onto a canonical Switchbook user,
// along with the account attributes the catalogue needs: moderation roles and
// the public share slug for the collection page.
type Identity struct {
	Provider     string    `gorm:"column:provider;primaryKey;size:32;not null"`
	Subject      string    `gorm:"column:subject;primaryKey;size:190;not null"`
	UserID       string    `gorm:"column:user_id;size:190;not null;index"`
	Email        string    `gorm:"column:user_email;size:320"`
	DisplayName  string    `gorm:"column:user_display_name;size:320"`
	AvatarURL    string    `gorm:"column:user_avatar_url;size:512"`
	RolesCSV     string    `gorm:"column:roles_csv;size:190;not null;default:''"`
	ShareSlug    string    `gorm:"column:share_slug;size:190;index"`
	ShareEnabled bool      `gorm:"column:share_enabled;not null;default:false"`
	LastSeenAt   time.Time `gorm:"column:last_seen_at;autoUpdateTime"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName exposes the table backing user identities.
func (Identity) TableName() string {
	return "user_identities"
}

// Roles splits the stored CSV role list.
func (i Identity) Roles() []string {
	if strings.TrimSpace(i.RolesCSV) == "" {
		return nil
	}
	parts := strings.Split(i.RolesCSV, ",")
	roles := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			roles = append(roles, trimmed)
		}
	}
	return roles
}

// normalize value helper used across service implementation.
func normalize(value string) string {
	return strings.TrimSpace(value)
}
