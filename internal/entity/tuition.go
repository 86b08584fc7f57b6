package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TuitionPending   = "pending"
	TuitionActive    = "active"
	TuitionRejected  = "rejected"
	TuitionOngoing   = "ongoing"
	TuitionCompleted = "completed"
	TuitionDeleted   = "deleted"
)

const (
	ModeOnline  = "online"
	ModeOffline = "offline"
	ModeHybrid  = "hybrid"
)

// EditableTuitionStatuses are the states in which the owner may still edit
// or delete a post.
var EditableTuitionStatuses = []string{TuitionPending, TuitionActive, TuitionRejected}

// TuitionPost is a student's tuition requirement.
type TuitionPost struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID    uuid.UUID `gorm:"type:uuid;not null;index:idx_tuition_posts_student_status,priority:1" json:"student_id"`
	StudentName  string    `gorm:"size:120" json:"student_name"`
	StudentEmail string    `gorm:"size:191" json:"student_email"`

	Title      string `gorm:"size:200;not null" json:"title"`
	Subject    string `gorm:"size:120;not null;index" json:"subject"`
	ClassLevel string `gorm:"size:60;not null" json:"class_level"`

	LocationMode string `gorm:"size:20;not null;default:offline" json:"location_mode"`
	City         string `gorm:"size:120;index" json:"city"`
	Area         string `gorm:"size:120" json:"area"`
	Address      string `gorm:"type:text" json:"address"`

	BudgetMin decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"budget_min"`
	BudgetMax decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"budget_max"`
	Currency  string          `gorm:"size:8;not null" json:"currency"`

	ScheduleDays     datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"schedule_days"`
	ScheduleHours    string                      `gorm:"size:60" json:"schedule_hours"`
	ScheduleFlexible bool                        `json:"schedule_flexible"`
	StartDate        *time.Time                  `json:"start_date,omitempty"`
	Duration         string                      `gorm:"size:60" json:"duration"`

	Description      string                      `gorm:"type:text" json:"description"`
	Requirements     datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"requirements"`
	Qualifications   datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"qualifications"`
	Responsibilities datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"responsibilities"`
	Benefits         datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"benefits"`

	Slots               int        `gorm:"not null;default:1" json:"slots"`
	ApplicationDeadline *time.Time `json:"application_deadline,omitempty"`

	Status          string     `gorm:"size:20;not null;index;index:idx_tuition_posts_student_status,priority:2" json:"status"`
	RejectionReason *string    `gorm:"type:text" json:"rejection_reason,omitempty"`
	AssignedTutorID *uuid.UUID `gorm:"type:uuid;index" json:"assigned_tutor_id,omitempty"`
	AssignedAt      *time.Time `json:"assigned_at,omitempty"`

	Applicants int `gorm:"not null;default:0;check:chk_tuition_posts_applicants,applicants >= 0" json:"applicants"`
	Views      int `gorm:"not null;default:0" json:"views"`
	Saves      int `gorm:"not null;default:0" json:"saves"`

	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

func (p *TuitionPost) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		p.ID = id
	}
	return nil
}

// Committed reports whether a tutor has been paid and assigned.
func (p *TuitionPost) Committed() bool {
	return p.Status == TuitionOngoing || p.Status == TuitionCompleted
}

// Editable reports whether the owner may still change or delete the post.
func (p *TuitionPost) Editable() bool {
	for _, s := range EditableTuitionStatuses {
		if p.Status == s {
			return true
		}
	}
	return false
}

// TuitionEditableColumns are the columns an owner edit may write.
var TuitionEditableColumns = []string{
	"title", "subject", "class_level", "location_mode", "city", "area", "address",
	"budget_min", "budget_max", "currency", "schedule_days", "schedule_hours",
	"schedule_flexible", "start_date", "duration", "description", "requirements",
	"qualifications", "responsibilities", "benefits", "slots", "application_deadline",
	"updated_at",
}
