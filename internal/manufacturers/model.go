package manufacturers

import (
	"encoding/json"
	"time"
)

// Manufacturer is a canonical vendor name plus the alternate spellings seen in
// the wild. Free-text manufacturer input on switches is normalized against it.
type Manufacturer struct {
	ID          string    `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	Name        string    `gorm:"column:name;size:100;not null;uniqueIndex" json:"name"`
	AliasesJSON string    `gorm:"column:aliases_json;type:text;not null;default:'[]'" json:"-"`
	Verified    bool      `gorm:"column:verified;not null;default:false" json:"verified"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName provides the explicit table binding for GORM.
func (Manufacturer) TableName() string {
	return "manufacturers"
}

// Aliases decodes the stored alias list. A corrupt column yields an empty list.
func (m Manufacturer) Aliases() []string {
	if m.AliasesJSON == "" {
		return nil
	}
	var aliases []string
	if err := json.Unmarshal([]byte(m.AliasesJSON), &aliases); err != nil {
		return nil
	}
	return aliases
}

// SetAliases encodes the alias list into the stored column.
func (m *Manufacturer) SetAliases(aliases []string) {
	if aliases == nil {
		aliases = []string{}
	}
	encoded, err := json.Marshal(aliases)
	if err != nil {
		m.AliasesJSON = "[]"
		return
	}
	m.AliasesJSON = string(encoded)
}
