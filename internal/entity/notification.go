package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	NotifyApplicationReceived = "application_received"
	NotifyApplicationRejected = "application_rejected"
	NotifyAssigned            = "tuition_assigned"
	NotifyNotSelected         = "application_not_selected"
	NotifyTuitionReviewed     = "tuition_reviewed"
	NotifyAccountStatus       = "account_status"
)

type Notification struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID  uuid.UUID  `gorm:"type:uuid;not null;index:idx_notifications_account_read,priority:1" json:"account_id"` // recipient
	ActorID    *uuid.UUID `gorm:"type:uuid" json:"actor_id,omitempty"`
	EntityID   uuid.UUID  `gorm:"type:uuid;not null" json:"entity_id"`
	EntityType string     `gorm:"size:50;not null" json:"entity_type"` // tuition, application, account
	Type       string     `gorm:"size:50;not null" json:"type"`
	Message    string     `gorm:"type:text" json:"message"`
	IsRead     bool       `gorm:"not null;default:false;index:idx_notifications_account_read,priority:2" json:"is_read"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		n.ID = id
	}
	return nil
}
