package service

import (
	"context"
	"strings"
	"time"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/authctx"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/entity"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/lifecycle"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/modules/application/dto"
	applicationRepo "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/application/repository"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/store"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/apperror"
	commonDto "github.com/Ahmad-Hisham007/tutorate-server/pkg/dto"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/ratelimiter"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

type ApplicationService interface {
	Apply(ctx context.Context, p authctx.Principal, input dto.CreateApplicationInput) (*entity.Application, error)
	Update(ctx context.Context, p authctx.Principal, id uuid.UUID, input dto.UpdateApplicationInput) (*entity.Application, error)
	Withdraw(ctx context.Context, p authctx.Principal, id uuid.UUID) error
	ListMine(ctx context.Context, p authctx.Principal, query dto.ApplicationQuery) (*commonDto.Paginated[entity.Application], error)
	// ListForPost lists the applications of a post to its owner or an admin.
	ListForPost(ctx context.Context, p authctx.Principal, postID uuid.UUID, query dto.ApplicationQuery) (*commonDto.Paginated[entity.Application], error)
	Decide(ctx context.Context, p authctx.Principal, id uuid.UUID, action string) (*lifecycle.Decision, error)
}

type applicationService struct {
	store     store.Store
	engine    *lifecycle.Engine
	cooldown  *ratelimiter.Cooldown
	window    time.Duration
	sanitizer *bluemonday.Policy
}

func NewApplicationService(st store.Store, engine *lifecycle.Engine, cooldown *ratelimiter.Cooldown, window time.Duration) ApplicationService {
	return &applicationService{
		store:     st,
		engine:    engine,
		cooldown:  cooldown,
		window:    window,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (s *applicationService) clean(v string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(v))
}

func (s *applicationService) Apply(ctx context.Context, p authctx.Principal, input dto.CreateApplicationInput) (*entity.Application, error) {
	release, err := s.cooldown.Acquire(ctx, p.AccountID, "apply", s.window)
	if err != nil {
		return nil, err
	}

	app, err := s.engine.Apply(ctx, p, &entity.Application{
		TuitionPostID:  input.TuitionPostID,
		Qualifications: s.clean(input.Qualifications),
		Experience:     s.clean(input.Experience),
		ExpectedSalary: input.ExpectedSalary,
		CoverLetter:    s.clean(input.CoverLetter),
	})
	if err != nil {
		release()
		return nil, err
	}
	return app, nil
}

func (s *applicationService) Update(ctx context.Context, p authctx.Principal, id uuid.UUID, input dto.UpdateApplicationInput) (*entity.Application, error) {
	if input.ExpectedSalary != nil && input.ExpectedSalary.IsNegative() {
		return nil, apperror.Invalid("expected_salary cannot be negative")
	}

	return s.engine.EditApplication(ctx, p, id, func(app *entity.Application) {
		if input.Qualifications != nil {
			app.Qualifications = s.clean(*input.Qualifications)
		}
		if input.Experience != nil {
			app.Experience = s.clean(*input.Experience)
		}
		if input.CoverLetter != nil {
			app.CoverLetter = s.clean(*input.CoverLetter)
		}
		if input.ExpectedSalary != nil {
			app.ExpectedSalary = *input.ExpectedSalary
		}
	})
}

func (s *applicationService) Withdraw(ctx context.Context, p authctx.Principal, id uuid.UUID) error {
	return s.engine.WithdrawApplication(ctx, p, id)
}

func (s *applicationService) ListMine(ctx context.Context, p authctx.Principal, query dto.ApplicationQuery) (*commonDto.Paginated[entity.Application], error) {
	offset := query.Normalize(10)
	apps, total, err := s.store.Applications().FindAll(ctx, applicationRepo.Filter{
		TutorID: &p.AccountID,
		Status:  query.Status,
		Offset:  offset,
		Limit:   query.Limit,
	})
	if err != nil {
		return nil, apperror.FromStore(err, "application")
	}

	page := commonDto.NewPaginated(apps, query.Page, query.Limit, total)
	return &page, nil
}

func (s *applicationService) ListForPost(ctx context.Context, p authctx.Principal, postID uuid.UUID, query dto.ApplicationQuery) (*commonDto.Paginated[entity.Application], error) {
	post, err := s.store.Tuitions().FindByID(ctx, postID)
	if err != nil {
		return nil, apperror.FromStore(err, "tuition post")
	}
	if post.StudentID != p.AccountID && p.Role != entity.RoleAdmin {
		return nil, apperror.Forbidden(apperror.CodeForbidden, "you do not own this tuition post")
	}

	offset := query.Normalize(20)
	apps, total, err := s.store.Applications().FindAll(ctx, applicationRepo.Filter{
		TuitionPostID: &post.ID,
		Status:        query.Status,
		Offset:        offset,
		Limit:         query.Limit,
	})
	if err != nil {
		return nil, apperror.FromStore(err, "application")
	}

	page := commonDto.NewPaginated(apps, query.Page, query.Limit, total)
	return &page, nil
}

func (s *applicationService) Decide(ctx context.Context, p authctx.Principal, id uuid.UUID, action string) (*lifecycle.Decision, error) {
	return s.engine.DecideApplication(ctx, p, id, strings.ToLower(action))
}
