package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const PaymentCompleted = "completed"

// PaymentRecord is the append-only receipt of a confirmed charge. One per
// application, one per transaction reference.
type PaymentRecord struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ApplicationID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"application_id"`
	TuitionPostID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"tuition_post_id"`
	StudentID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"student_id"`
	TutorID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"tutor_id"`
	Amount         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency       string          `gorm:"size:8;not null" json:"currency"`
	Status         string          `gorm:"size:20;not null" json:"status"`
	TransactionRef string          `gorm:"size:191;not null;uniqueIndex" json:"transaction_ref"`
	CreatedAt      time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

func (p *PaymentRecord) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		p.ID = id
	}
	return nil
}

// TimeBucket is one row of a time bucketed aggregate.
type TimeBucket struct {
	Start time.Time       `json:"start"`
	Count int64           `json:"count"`
	Total decimal.Decimal `json:"total"`
}
