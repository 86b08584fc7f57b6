package service

import (
	"context"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/entity"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/modules/user/dto"
	userRepo "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/user/repository"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/apperror"
	commonDto "github.com/Ahmad-Hisham007/tutorate-server/pkg/dto"
	"github.com/google/uuid"
)

// TutorService is the public tutor directory. Only active tutors are listed.
type TutorService interface {
	ListTutors(ctx context.Context, query dto.TutorQuery) (*commonDto.Paginated[dto.TutorView], error)
	GetTutor(ctx context.Context, id uuid.UUID) (*dto.TutorView, error)
}

type tutorService struct {
	repo userRepo.Repository
}

func NewTutorService(repo userRepo.Repository) TutorService {
	return &tutorService{repo: repo}
}

func (s *tutorService) ListTutors(ctx context.Context, query dto.TutorQuery) (*commonDto.Paginated[dto.TutorView], error) {
	offset := query.Normalize(12)
	accounts, total, err := s.repo.FindAll(ctx, userRepo.Filter{
		Role:     entity.RoleTutor,
		Status:   entity.AccountActive,
		Search:   query.Search,
		Subject:  query.Subject,
		Location: query.Location,
		SortBy:   query.SortBy,
		Offset:   offset,
		Limit:    query.Limit,
	})
	if err != nil {
		return nil, apperror.FromStore(err, "tutor")
	}

	views := make([]dto.TutorView, 0, len(accounts))
	for i := range accounts {
		views = append(views, dto.NewTutorView(&accounts[i]))
	}

	page := commonDto.NewPaginated(views, query.Page, query.Limit, total)
	return &page, nil
}

func (s *tutorService) GetTutor(ctx context.Context, id uuid.UUID) (*dto.TutorView, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.FromStore(err, "tutor")
	}
	if account.Role != entity.RoleTutor || account.Status != entity.AccountActive {
		return nil, apperror.NotFound("tutor not found")
	}

	view := dto.NewTutorView(account)
	return &view, nil
}
