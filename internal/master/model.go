package master

import (
	"encoding/json"
	"time"

	"github.com/keebstack/switchbook/internal/switchspec"
)

// Status enumerates the moderation lifecycle of a master switch.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// EditStatus enumerates the lifecycle of an edit suggestion.
type EditStatus string

const (
	EditStatusPending  EditStatus = "PENDING"
	EditStatusApproved EditStatus = "APPROVED"
	EditStatusRejected EditStatus = "REJECTED"
)

// MasterSwitch is the canonical, community-reviewed specification for a
// switch model. Version increments only on approved edits so linked user
// copies can detect staleness.
type MasterSwitch struct {
	ID string `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	switchspec.Fields
	Status                 Status    `gorm:"column:status;size:16;not null;default:'PENDING';index" json:"status"`
	Version                int64     `gorm:"column:version;not null;default:1" json:"version"`
	SubmittedByID          string    `gorm:"column:submitted_by_id;size:190;not null;index" json:"submittedById"`
	SubmissionReason       string    `gorm:"column:submission_reason;type:text" json:"submissionReason,omitempty"`
	ApprovedByID           string    `gorm:"column:approved_by_id;size:190" json:"approvedById,omitempty"`
	RejectionReason        string    `gorm:"column:rejection_reason;type:text" json:"rejectionReason,omitempty"`
	OriginalSubmissionJSON string    `gorm:"column:original_submission_json;type:text;not null;default:''" json:"-"`
	CreatedAt              time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt              time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName provides the explicit table binding for GORM.
func (MasterSwitch) TableName() string {
	return "master_switches"
}

// Edit is a proposed field-level diff against an approved master switch. The
// previous snapshot is written once at proposal time and never mutated, so the
// audit trail stays immutable regardless of what happens to the live record.
type Edit struct {
	ID                string     `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	MasterSwitchID    string     `gorm:"column:master_switch_id;size:190;not null;index" json:"masterSwitchId"`
	EditorID          string     `gorm:"column:editor_id;size:190;not null;index" json:"editorId"`
	Reason            string     `gorm:"column:reason;type:text;not null" json:"reason"`
	PreviousJSON      string     `gorm:"column:previous_json;type:text;not null" json:"-"`
	NewJSON           string     `gorm:"column:new_json;type:text;not null" json:"-"`
	ChangedFieldsJSON string     `gorm:"column:changed_fields_json;type:text;not null" json:"-"`
	Status            EditStatus `gorm:"column:status;size:16;not null;default:'PENDING';index" json:"status"`
	ReviewedByID      string     `gorm:"column:reviewed_by_id;size:190" json:"reviewedById,omitempty"`
	ReviewNote        string     `gorm:"column:review_note;type:text" json:"reviewNote,omitempty"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName provides the explicit table binding for GORM.
func (Edit) TableName() string {
	return "master_switch_edits"
}

// ChangedFields decodes the proposed field-name list.
func (e Edit) ChangedFields() []string {
	var fields []string
	if err := json.Unmarshal([]byte(e.ChangedFieldsJSON), &fields); err != nil {
		return nil
	}
	return fields
}

// PreviousFields decodes the pre-edit snapshot.
func (e Edit) PreviousFields() (switchspec.Fields, error) {
	var fields switchspec.Fields
	err := json.Unmarshal([]byte(e.PreviousJSON), &fields)
	return fields, err
}

// NewFields decodes the proposed record.
func (e Edit) NewFields() (switchspec.Fields, error) {
	var fields switchspec.Fields
	err := json.Unmarshal([]byte(e.NewJSON), &fields)
	return fields, err
}

// DuplicateCandidate is a similar approved record returned when a submission
// needs explicit caller confirmation before insertion.
type DuplicateCandidate struct {
	MasterSwitchID string  `json:"masterSwitchId"`
	Name           string  `json:"name"`
	Manufacturer   string  `json:"manufacturer"`
	Score          float64 `json:"score"`
}
