package images

import "time"

// ImageType distinguishes binaries we store from external references.
type ImageType string

const (
	// TypeUploaded is a binary validated and written to the image store.
	TypeUploaded ImageType = "UPLOADED"
	// TypeLinked is an external URL carried over from a master switch.
	TypeLinked ImageType = "LINKED"
)

// SwitchImage belongs to exactly one of a user switch or a master switch.
// Among the images of one owner entity at most one row carries IsPrimary;
// this is kept best-effort by the writers, not enforced by the database.
type SwitchImage struct {
	ID             string    `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	SwitchID       *string   `gorm:"column:switch_id;size:190;index" json:"switchId,omitempty"`
	MasterSwitchID *string   `gorm:"column:master_switch_id;size:190;index" json:"masterSwitchId,omitempty"`
	OwnerUserID    string    `gorm:"column:owner_user_id;size:190;not null;index" json:"-"`
	Type           ImageType `gorm:"column:image_type;size:16;not null" json:"type"`
	URL            string    `gorm:"column:url;size:512;not null" json:"url"`
	StorageKey     string    `gorm:"column:storage_key;size:255" json:"-"`
	Order          int       `gorm:"column:display_order;not null;default:0" json:"order"`
	IsPrimary      bool      `gorm:"column:is_primary;not null;default:false" json:"isPrimary"`
	Width          int       `gorm:"column:width" json:"width,omitempty"`
	Height         int       `gorm:"column:height" json:"height,omitempty"`
	SizeBytes      int64     `gorm:"column:size_bytes;not null;default:0" json:"sizeBytes"`
	Caption        string    `gorm:"column:caption;size:255" json:"caption,omitempty"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName provides the explicit table binding for GORM.
func (SwitchImage) TableName() string {
	return "switch_images"
}
