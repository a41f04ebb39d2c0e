package forcecurve

import "time"

// CacheEntry records the outcome of one force-curve lookup, positive or
// negative, so repeated requests avoid outbound traffic.
type CacheEntry struct {
	Key       string    `gorm:"column:key;primaryKey;size:255;not null"`
	Found     bool      `gorm:"column:found;not null;default:false"`
	URL       string    `gorm:"column:url;size:512"`
	CheckedAt time.Time `gorm:"column:checked_at;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (CacheEntry) TableName() string {
	return "force_curve_cache"
}
