package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/authctx"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/charge"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/entity"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/lifecycle"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/modules/payment/dto"
	paymentRepo "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/payment/repository"
	searchService "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/search/service"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/store"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/apperror"
	commonDto "github.com/Ahmad-Hisham007/tutorate-server/pkg/dto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PaymentService interface {
	CreateIntent(ctx context.Context, p authctx.Principal, input dto.CreateIntentInput) (*dto.IntentResponse, error)
	// ConfirmSuccess verifies the charge with the provider and assigns the tutor.
	ConfirmSuccess(ctx context.Context, p authctx.Principal, input dto.PaymentSuccessInput) (*lifecycle.Assignment, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*dto.WebhookResult, error)
	ListMine(ctx context.Context, p authctx.Principal, query dto.PaymentQuery) (*dto.PaymentList, error)
	ListAll(ctx context.Context, query dto.PaymentQuery) (*dto.PaymentList, error)
}

type paymentService struct {
	store     store.Store
	engine    *lifecycle.Engine
	authority charge.Authority
	search    searchService.SearchService
	log       *zap.Logger
	now       func() time.Time
}

func NewPaymentService(st store.Store, engine *lifecycle.Engine, authority charge.Authority, search searchService.SearchService, log *zap.Logger) PaymentService {
	return &paymentService{
		store:     st,
		engine:    engine,
		authority: authority,
		search:    search,
		log:       log,
		now:       time.Now,
	}
}

func providerError(err error) error {
	if errors.Is(err, charge.ErrNotConfigured) {
		return apperror.Unavailable(err)
	}
	if apperror.IsTransient(err) {
		return apperror.Unavailable(err)
	}
	return apperror.Wrap(apperror.ErrBadRequest, apperror.CodePaymentNotConfirmed, "payment provider rejected the request", err)
}

func (s *paymentService) CreateIntent(ctx context.Context, p authctx.Principal, input dto.CreateIntentInput) (*dto.IntentResponse, error) {
	quote, err := s.engine.QuotePayment(ctx, p, input.ApplicationID)
	if err != nil {
		return nil, err
	}

	intent, err := s.authority.CreateIntent(ctx, charge.IntentRequest{
		ApplicationID: quote.ApplicationID.String(),
		StudentEmail:  p.Email,
		Description:   fmt.Sprintf("Tutor hiring: %s", quote.Title),
		Amount:        quote.Amount,
		Currency:      quote.Currency,
	})
	if err != nil {
		return nil, providerError(err)
	}

	return &dto.IntentResponse{Intent: intent, Quote: quote}, nil
}

func (s *paymentService) ConfirmSuccess(ctx context.Context, p authctx.Principal, input dto.PaymentSuccessInput) (*lifecycle.Assignment, error) {
	captured, err := s.authority.Confirm(ctx, input.TransactionRef)
	if err != nil {
		return nil, providerError(err)
	}
	if !captured.Succeeded {
		return nil, apperror.New(apperror.ErrConflict, apperror.CodePaymentNotConfirmed, "payment has not succeeded yet")
	}
	if captured.ApplicationID == "" {
		return nil, apperror.New(apperror.ErrConflict, apperror.CodePaymentNotConfirmed, "payment carries no application reference")
	}
	if captured.ApplicationID != input.ApplicationID.String() {
		return nil, apperror.New(apperror.ErrConflict, apperror.CodePaymentNotConfirmed, "payment belongs to another application")
	}

	assignment, err := s.engine.AssignOnPayment(ctx, lifecycle.PaymentConfirmation{
		ApplicationID:  input.ApplicationID,
		TransactionRef: captured.Ref,
		Amount:         captured.Amount,
		Currency:       captured.Currency,
		StudentID:      p.AccountID,
	})
	if err != nil {
		return nil, err
	}
	s.unlist(assignment)
	return assignment, nil
}

// HandleWebhook returns an error only when the provider should redeliver.
func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*dto.WebhookResult, error) {
	captured, err := s.authority.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, charge.ErrInvalidSignature) {
			return nil, apperror.Wrap(apperror.ErrBadRequest, apperror.CodeValidation, "invalid webhook signature", err)
		}
		return nil, providerError(err)
	}
	if captured == nil || !captured.Succeeded {
		return &dto.WebhookResult{Received: true, Reason: "ignored event"}, nil
	}

	applicationID, err := uuid.Parse(captured.ApplicationID)
	if err != nil {
		s.log.Warn("webhook charge without application", zap.String("transaction_ref", captured.Ref))
		return &dto.WebhookResult{Received: true, Reason: "no application reference"}, nil
	}

	assignment, err := s.engine.AssignOnPayment(ctx, lifecycle.PaymentConfirmation{
		ApplicationID:  applicationID,
		TransactionRef: captured.Ref,
		Amount:         captured.Amount,
		Currency:       captured.Currency,
	})
	if err != nil {
		if apperror.MapErrorToStatus(err) >= 500 {
			return nil, err
		}
		// Already alerted; redelivery cannot fix a rejected assignment.
		return &dto.WebhookResult{Received: true, Reason: err.Error()}, nil
	}
	s.unlist(assignment)

	return &dto.WebhookResult{Received: true, Processed: !assignment.Duplicate}, nil
}

// unlist takes an assigned post out of search. Duplicates retry it in case
// the first attempt failed.
func (s *paymentService) unlist(a *lifecycle.Assignment) {
	if a.TuitionPost == nil {
		return
	}
	if err := s.search.IndexTuition(a.TuitionPost); err != nil {
		s.log.Warn("unlist assigned tuition", zap.String("tuition_id", a.TuitionPost.ID.String()), zap.Error(err))
	}
}

func (s *paymentService) since(r string) *time.Time {
	var since time.Time
	switch r {
	case "week":
		since = s.now().AddDate(0, 0, -7)
	case "month":
		since = s.now().AddDate(0, -1, 0)
	case "year":
		since = s.now().AddDate(-1, 0, 0)
	default:
		return nil
	}
	return &since
}

func (s *paymentService) list(ctx context.Context, filter paymentRepo.Filter, query dto.PaymentQuery) (*dto.PaymentList, error) {
	offset := query.Normalize(20)
	filter.Offset = offset
	filter.Limit = query.Limit
	filter.Since = s.since(query.Range)

	records, total, err := s.store.Payments().FindAll(ctx, filter)
	if err != nil {
		return nil, apperror.FromStore(err, "payment")
	}
	summary, err := s.store.Payments().Summarize(ctx, filter)
	if err != nil {
		return nil, apperror.FromStore(err, "payment")
	}

	return &dto.PaymentList{
		Paginated: commonDto.NewPaginated(records, query.Page, query.Limit, total),
		Summary:   summary,
	}, nil
}

func (s *paymentService) ListMine(ctx context.Context, p authctx.Principal, query dto.PaymentQuery) (*dto.PaymentList, error) {
	var filter paymentRepo.Filter
	switch p.Role {
	case entity.RoleStudent:
		filter.StudentID = &p.AccountID
	case entity.RoleTutor:
		filter.TutorID = &p.AccountID
	default:
		return nil, apperror.Forbidden(apperror.CodeInsufficientPermissions, "only students and tutors have payments")
	}
	return s.list(ctx, filter, query)
}

func (s *paymentService) ListAll(ctx context.Context, query dto.PaymentQuery) (*dto.PaymentList, error) {
	return s.list(ctx, paymentRepo.Filter{}, query)
}
