package notify

import "time"

// Notification is one in-app message for a user.
type Notification struct {
	ID        string    `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	UserID    string    `gorm:"column:user_id;size:190;not null;index" json:"-"`
	Kind      string    `gorm:"column:kind;size:64;not null" json:"kind"`
	Title     string    `gorm:"column:title;size:255;not null" json:"title"`
	Message   string    `gorm:"column:message;size:2000" json:"message,omitempty"`
	Link      string    `gorm:"column:link;size:512" json:"link,omitempty"`
	Read      bool      `gorm:"column:read;not null;default:false" json:"read"`
	Dismissed bool      `gorm:"column:dismissed;not null;default:false" json:"dismissed"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName provides the explicit table binding for GORM.
func (Notification) TableName() string {
	return "notifications"
}
