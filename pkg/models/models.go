package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

/* =============================== Enums ================================== */

// Role defines the type of user in the system.
type Role string

const (
	RoleJudge     Role = "judge"
	RoleLawyer    Role = "lawyer"
	RoleRegistrar Role = "registrar"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleJudge, RoleLawyer, RoleRegistrar:
		return true
	}
	return false
}

// CaseStatus defines lifecycle states for a case.
type CaseStatus string

const (
	CasePending  CaseStatus = "pending"
	CaseClosed   CaseStatus = "closed"
	CaseReopened CaseStatus = "reopened"
)

// AssignmentStatus marks whether a case assignment is the current one.
type AssignmentStatus string

const (
	AssignmentActive  AssignmentStatus = "active"
	AssignmentRemoved AssignmentStatus = "removed"
)

// HearingType classifies a hearing.
type HearingType string

const (
	HearingPreliminary HearingType = "preliminary"
	HearingTrial       HearingType = "trial"
	HearingAppeal      HearingType = "appeal"
	HearingOther       HearingType = "other"
)

// Valid reports whether t is one of the known hearing types.
func (t HearingType) Valid() bool {
	switch t {
	case HearingPreliminary, HearingTrial, HearingAppeal, HearingOther:
		return true
	}
	return false
}

// HearingStatus defines lifecycle states for a hearing.
type HearingStatus string

const (
	HearingScheduled   HearingStatus = "scheduled"
	HearingRescheduled HearingStatus = "rescheduled"
	HearingCompleted   HearingStatus = "completed"
)

// JudgmentStatus marks how far a judgment has progressed.
type JudgmentStatus string

const (
	JudgmentDraft    JudgmentStatus = "draft"
	JudgmentFinal    JudgmentStatus = "final"
	JudgmentAppealed JudgmentStatus = "appealed"
)

// AuditAction is the kind of mutation an audit entry records.
type AuditAction string

const (
	AuditInsert AuditAction = "insert"
	AuditUpdate AuditAction = "update"
	AuditDelete AuditAction = "delete"
)

/* =============================== Entities =============================== */

// Base carries the UUID primary key shared by all tables. The key is
// generated client-side so the schema works on Postgres and SQLite alike.
type Base struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
}

// BeforeCreate assigns a fresh UUID to new records.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// User represents a judge, lawyer or registrar.
type User struct {
	Base
	Username     string    `gorm:"type:varchar(60);uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"type:varchar(120);uniqueIndex;not null" json:"email"`
	FullName     string    `gorm:"type:varchar(120);not null" json:"full_name"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         Role      `gorm:"type:varchar(20);not null;index" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Case is a criminal case registered by the registry. The presiding judge and
// the lawyer of record are not stored here; they live in CaseAssignment.
type Case struct {
	Base
	CIN                    string     `gorm:"column:cin;type:varchar(40);uniqueIndex;not null" json:"cin"`
	DefendantName          string     `gorm:"type:varchar(100);not null" json:"defendant_name"`
	DefendantAddress       string     `gorm:"type:text;not null" json:"defendant_address"`
	CrimeType              string     `gorm:"type:varchar(50);not null" json:"crime_type"`
	CrimeDate              time.Time  `gorm:"not null" json:"crime_date"`
	CrimeLocation          string     `gorm:"type:text;not null" json:"crime_location"`
	ArrestingOfficer       string     `gorm:"type:varchar(100);not null" json:"arresting_officer"`
	ArrestDate             time.Time  `gorm:"not null" json:"arrest_date"`
	ProsecutorName         string     `gorm:"type:varchar(100);not null" json:"prosecutor_name"`
	Description            string     `gorm:"type:text" json:"description"`
	SeverityLevel          string     `gorm:"type:varchar(20);default:'medium'" json:"severity_level"`
	ComplexityLevel        string     `gorm:"type:varchar(20);default:'moderate'" json:"complexity_level"`
	Status                 CaseStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	StartDate              time.Time  `gorm:"not null" json:"start_date"`
	ExpectedCompletionDate *time.Time `json:"expected_completion_date,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`

	// Relations
	Hearings  []Hearing  `json:"hearings,omitempty"`
	Judgments []Judgment `json:"judgments,omitempty"`
	Evidence  []Evidence `json:"evidence,omitempty"`
}

// CaseAssignment binds a judge or lawyer to a case. Only one assignment per
// (case, role) may be active at a time.
type CaseAssignment struct {
	Base
	CaseID     uuid.UUID        `gorm:"type:uuid;not null;index;uniqueIndex:ux_assignment_active,where:status = 'active'" json:"case_id"`
	UserID     uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	Role       Role             `gorm:"type:varchar(20);not null;uniqueIndex:ux_assignment_active,where:status = 'active'" json:"role"`
	Status     AssignmentStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	AssignedAt time.Time        `gorm:"not null" json:"assigned_at"`
	RemovedAt  *time.Time       `json:"removed_at,omitempty"`
}

// Hearing is a scheduled court sitting for a case. Until it is completed,
// JudgeID and LawyerID follow the case's active assignments; a completed
// hearing keeps the participants who sat. A participant can hold at most one
// non-conflict hearing per timestamp.
type Hearing struct {
	Base
	CaseID             uuid.UUID     `gorm:"type:uuid;not null;index" json:"case_id"`
	JudgeID            uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:ux_hearing_judge_slot,where:is_conflict = false" json:"judge_id"`
	LawyerID           uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:ux_hearing_lawyer_slot,where:is_conflict = false" json:"lawyer_id"`
	ScheduledAt        time.Time     `gorm:"not null;index;uniqueIndex:ux_hearing_judge_slot,where:is_conflict = false;uniqueIndex:ux_hearing_lawyer_slot,where:is_conflict = false" json:"scheduled_at"`
	HearingType        HearingType   `gorm:"type:varchar(20);not null" json:"hearing_type"`
	Status             HearingStatus `gorm:"type:varchar(20);not null;default:'scheduled'" json:"status"`
	ProceedingsSummary string        `gorm:"type:text" json:"proceedings_summary"`
	AdjournmentReason  string        `gorm:"type:text" json:"adjournment_reason"`
	IsConflict         bool          `gorm:"not null;default:false" json:"is_conflict"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// Judgment is a ruling delivered by a judge on a case.
type Judgment struct {
	Base
	CaseID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"case_id"`
	JudgeID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"judge_id"`
	JudgmentDate time.Time      `gorm:"not null" json:"judgment_date"`
	Summary      string         `gorm:"type:text;not null" json:"summary"`
	Status       JudgmentStatus `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Evidence is a file attached to a case, stored in object storage.
type Evidence struct {
	Base
	CaseID       uuid.UUID `gorm:"type:uuid;not null;index" json:"case_id"`
	EvidenceType string    `gorm:"type:varchar(20);not null" json:"evidence_type"` // document, photo, video, audio
	Title        string    `gorm:"type:varchar(200);not null" json:"title"`
	Description  string    `gorm:"type:text" json:"description"`
	Key          string    `gorm:"not null" json:"-"`
	Mime         string    `gorm:"not null" json:"mime"`
	Size         int       `gorm:"not null" json:"size"`
	SubmittedBy  uuid.UUID `gorm:"type:uuid;not null" json:"submitted_by"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName maps Evidence to case_evidence.
func (Evidence) TableName() string { return "case_evidence" }

// BrowsingAccess records that a lawyer paid the browsing fee for a case.
// Exactly one row may exist per (lawyer, CIN).
type BrowsingAccess struct {
	Base
	LawyerID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_access_lawyer_cin" json:"lawyer_id"`
	CaseID     uuid.UUID `gorm:"type:uuid;not null;index" json:"case_id"`
	CIN        string    `gorm:"column:cin;type:varchar(40);not null;uniqueIndex:ux_access_lawyer_cin" json:"cin"`
	FeeCents   int       `gorm:"not null" json:"fee_cents"` // stored in cents to avoid float issues
	AccessedAt time.Time `gorm:"not null" json:"accessed_at"`
}

// TableName maps BrowsingAccess to case_browsing_history.
func (BrowsingAccess) TableName() string { return "case_browsing_history" }

// AuditLog is an append-only record of a mutation somewhere in the system.
type AuditLog struct {
	Base
	UserID     *uuid.UUID     `gorm:"type:uuid;index" json:"user_id"` // nil for system actions
	ActionType AuditAction    `gorm:"type:varchar(20);not null;index" json:"action_type"`
	Table      string         `gorm:"column:table_name;type:varchar(60);not null;index" json:"table_name"`
	RecordID   string         `gorm:"type:varchar(60);index" json:"record_id"`
	OldValues  datatypes.JSON `json:"old_values,omitempty"` // jsonb on Postgres, nil when absent
	NewValues  datatypes.JSON `json:"new_values,omitempty"`
	IPAddress  string         `gorm:"type:varchar(64)" json:"ip_address"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}

// All lists every model for AutoMigrate.
func All() []any {
	return []any{
		&User{}, &Case{}, &CaseAssignment{}, &Hearing{},
		&Judgment{}, &Evidence{}, &BrowsingAccess{}, &AuditLog{},
	}
}
