package switches

import (
	"encoding/json"
	"time"

	"github.com/keebstack/switchbook/internal/switchspec"
)

// Switch is a user-owned switch record. It may be linked to a master switch,
// in which case the descriptive fields can be refreshed from the canonical
// record while personal annotations stay local.
type Switch struct {
	ID     string `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	UserID string `gorm:"column:user_id;size:190;not null;index:idx_switches_user,priority:1" json:"userId"`
	switchspec.Fields
	PersonalNotes       string    `gorm:"column:personal_notes;type:text" json:"personalNotes"`
	Quantity            int       `gorm:"column:quantity;not null;default:1" json:"quantity"`
	MasterSwitchID      *string   `gorm:"column:master_switch_id;size:190;index" json:"masterSwitchId"`
	MasterSwitchVersion int64     `gorm:"column:master_switch_version;not null;default:0" json:"masterSwitchVersion"`
	IsModified          bool      `gorm:"column:is_modified;not null;default:false" json:"isModified"`
	ModifiedFieldsJSON  string    `gorm:"column:modified_fields_json;type:text;not null;default:'[]'" json:"-"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt           time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName provides the explicit table binding for GORM.
func (Switch) TableName() string {
	return "switches"
}

// ModifiedFields decodes the divergence field list.
func (s Switch) ModifiedFields() []string {
	if s.ModifiedFieldsJSON == "" {
		return nil
	}
	var fields []string
	if err := json.Unmarshal([]byte(s.ModifiedFieldsJSON), &fields); err != nil {
		return nil
	}
	return fields
}

// SetModifiedFields encodes the divergence field list and keeps IsModified in step.
func (s *Switch) SetModifiedFields(fields []string) {
	if fields == nil {
		fields = []string{}
	}
	encoded, err := json.Marshal(fields)
	if err != nil {
		s.ModifiedFieldsJSON = "[]"
		s.IsModified = false
		return
	}
	s.ModifiedFieldsJSON = string(encoded)
	s.IsModified = len(fields) > 0
}
