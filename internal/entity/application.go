package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	ApplicationPending  = "pending"
	ApplicationApproved = "approved"
	ApplicationRejected = "rejected"
)

// Application is a tutor's bid on a tuition post. A tutor applies to a post
// at most once.
type Application struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TuitionPostID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_applications_post_tutor,priority:1" json:"tuition_post_id"`
	TutorID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_applications_post_tutor,priority:2;index" json:"tutor_id"`
	TutorName     string    `gorm:"size:120" json:"tutor_name"`
	TutorEmail    string    `gorm:"size:191" json:"tutor_email"`
	TutorPhoto    *string   `gorm:"type:text" json:"tutor_photo,omitempty"`

	Qualifications string          `gorm:"type:text" json:"qualifications"`
	Experience     string          `gorm:"type:text" json:"experience"`
	ExpectedSalary decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"expected_salary"`
	CoverLetter    string          `gorm:"type:text" json:"cover_letter"`

	Status    string     `gorm:"size:20;not null;index" json:"status"`
	AppliedAt time.Time  `gorm:"autoCreateTime" json:"applied_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`

	TuitionPost *TuitionPost `gorm:"foreignKey:TuitionPostID;constraint:OnDelete:CASCADE" json:"tuition_post,omitempty"`
}

func (a *Application) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		a.ID = id
	}
	return nil
}

// Counted reports whether the application contributes to the post's
// applicants counter.
func (a *Application) Counted() bool {
	return a.Status == ApplicationPending || a.Status == ApplicationApproved
}

var ApplicationEditableColumns = []string{
	"qualifications", "experience", "expected_salary", "cover_letter", "updated_at",
}
