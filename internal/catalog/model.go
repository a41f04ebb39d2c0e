package catalog

import "time"

// Material is an admin-curated housing or stem material option.
type Material struct {
	ID        string    `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	Name      string    `gorm:"column:name;size:100;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName provides the explicit table binding for GORM.
func (Material) TableName() string {
	return "materials"
}

// StemShape is an admin-curated stem shape option.
type StemShape struct {
	ID        string    `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	Name      string    `gorm:"column:name;size:100;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName provides the explicit table binding for GORM.
func (StemShape) TableName() string {
	return "stem_shapes"
}
