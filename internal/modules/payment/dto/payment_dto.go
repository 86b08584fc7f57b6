package dto

import (
	"github.com/Ahmad-Hisham007/tutorate-server/internal/charge"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/entity"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/lifecycle"
	paymentRepo "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/payment/repository"
	commonDto "github.com/Ahmad-Hisham007/tutorate-server/pkg/dto"
	"github.com/google/uuid"
)

type CreateIntentInput struct {
	ApplicationID uuid.UUID `json:"application_id" binding:"required"`
}

type IntentResponse struct {
	Intent *charge.Intent   `json:"intent"`
	Quote  *lifecycle.Quote `json:"quote"`
}

type PaymentSuccessInput struct {
	ApplicationID  uuid.UUID `json:"application_id" binding:"required"`
	TransactionRef string    `json:"transaction_ref" binding:"required,max=191"`
}

type PaymentQuery struct {
	commonDto.PageQuery
	Range string `form:"range" binding:"omitempty,oneof=week month year"`
}

type PaymentList struct {
	commonDto.Paginated[entity.PaymentRecord]
	Summary paymentRepo.Summary `json:"summary"`
}

type WebhookResult struct {
	Received  bool   `json:"received"`
	Processed bool   `json:"processed"`
	Reason    string `json:"reason,omitempty"`
}
