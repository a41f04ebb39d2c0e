package wishlist

import "time"

// Item is one wishlist entry. It references a master switch or carries a
// free-form name and manufacturer for switches not yet in the database.
type Item struct {
	ID             string    `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	UserID         string    `gorm:"column:user_id;size:190;not null;index" json:"-"`
	MasterSwitchID *string   `gorm:"column:master_switch_id;size:190;index" json:"masterSwitchId,omitempty"`
	Name           string    `gorm:"column:name;size:100" json:"name,omitempty"`
	Manufacturer   string    `gorm:"column:manufacturer;size:100" json:"manufacturer,omitempty"`
	Priority       int       `gorm:"column:priority;not null;default:0" json:"priority"`
	Obtained       bool      `gorm:"column:obtained;not null;default:false" json:"obtained"`
	Notes          string    `gorm:"column:notes;size:2000" json:"notes,omitempty"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName provides the explicit table binding for GORM.
func (Item) TableName() string {
	return "wishlist_items"
}
