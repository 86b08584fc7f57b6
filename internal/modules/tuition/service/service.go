package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/authctx"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/entity"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/lifecycle"
	searchService "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/search/service"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/modules/tuition/dto"
	tuitionRepo "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/tuition/repository"
	viewService "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/view/service"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/store"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/apperror"
	commonDto "github.com/Ahmad-Hisham007/tutorate-server/pkg/dto"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/ratelimiter"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type TuitionService interface {
	Create(ctx context.Context, p authctx.Principal, input dto.CreateTuitionInput) (*entity.TuitionPost, error)
	Update(ctx context.Context, p authctx.Principal, id uuid.UUID, input dto.UpdateTuitionInput) (*entity.TuitionPost, error)
	Delete(ctx context.Context, p authctx.Principal, id uuid.UUID) (*dto.DeleteResult, error)
	Complete(ctx context.Context, p authctx.Principal, id uuid.UUID, input dto.CompleteTuitionInput) (*entity.TuitionPost, error)
	List(ctx context.Context, query dto.TuitionQuery) (*commonDto.Paginated[entity.TuitionPost], error)
	// Get returns an active post and counts one view for viewer.
	Get(ctx context.Context, id uuid.UUID, viewer string) (*entity.TuitionPost, error)
	ListMine(ctx context.Context, p authctx.Principal, query dto.MyTuitionQuery) (*commonDto.Paginated[entity.TuitionPost], error)
	Save(ctx context.Context, p authctx.Principal, id uuid.UUID) (*dto.SaveResult, error)
	ListAdmin(ctx context.Context, query dto.AdminTuitionQuery) (*commonDto.Paginated[entity.TuitionPost], error)
	Review(ctx context.Context, admin authctx.Principal, id uuid.UUID, approve bool, reason string) (*entity.TuitionPost, error)
	SearchToken(role string) (*dto.SearchTokenResponse, error)
	// Reindex pushes every active post to the search index and drops the rest.
	Reindex(ctx context.Context) (int, error)
}

type Options struct {
	Cooldown time.Duration
	Currency string
}

type tuitionService struct {
	store       store.Store
	engine      *lifecycle.Engine
	views       viewService.ViewService
	search      searchService.SearchService
	cooldown    *ratelimiter.Cooldown
	redisClient *redis.Client
	sanitizer   *bluemonday.Policy
	opts        Options
	log         *zap.Logger
}

func NewTuitionService(
	st store.Store,
	engine *lifecycle.Engine,
	views viewService.ViewService,
	search searchService.SearchService,
	cooldown *ratelimiter.Cooldown,
	redisClient *redis.Client,
	opts Options,
	log *zap.Logger,
) TuitionService {
	if opts.Currency == "" {
		opts.Currency = "usd"
	}
	return &tuitionService{
		store:       st,
		engine:      engine,
		views:       views,
		search:      search,
		cooldown:    cooldown,
		redisClient: redisClient,
		sanitizer:   bluemonday.StrictPolicy(),
		opts:        opts,
		log:         log,
	}
}

func (s *tuitionService) clean(v string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(v))
}

func (s *tuitionService) cleanList(items []string) datatypes.JSONSlice[string] {
	out := make(datatypes.JSONSlice[string], 0, len(items))
	for _, item := range items {
		if item = s.clean(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (s *tuitionService) Create(ctx context.Context, p authctx.Principal, input dto.CreateTuitionInput) (*entity.TuitionPost, error) {
	release, err := s.cooldown.Acquire(ctx, p.AccountID, "create_tuition", s.opts.Cooldown)
	if err != nil {
		return nil, err
	}

	currency := strings.ToLower(input.Currency)
	if currency == "" {
		currency = s.opts.Currency
	}

	post := &entity.TuitionPost{
		Title:               s.clean(input.Title),
		Subject:             s.clean(input.Subject),
		ClassLevel:          s.clean(input.ClassLevel),
		LocationMode:        input.LocationMode,
		City:                s.clean(input.City),
		Area:                s.clean(input.Area),
		Address:             s.clean(input.Address),
		BudgetMin:           input.BudgetMin,
		BudgetMax:           input.BudgetMax,
		Currency:            currency,
		ScheduleDays:        s.cleanList(input.ScheduleDays),
		ScheduleHours:       s.clean(input.ScheduleHours),
		ScheduleFlexible:    input.ScheduleFlexible,
		StartDate:           input.StartDate,
		Duration:            s.clean(input.Duration),
		Description:         s.clean(input.Description),
		Requirements:        s.cleanList(input.Requirements),
		Qualifications:      s.cleanList(input.Qualifications),
		Responsibilities:    s.cleanList(input.Responsibilities),
		Benefits:            s.cleanList(input.Benefits),
		Slots:               input.Slots,
		ApplicationDeadline: input.ApplicationDeadline,
	}
	if post.Title == "" {
		release()
		return nil, apperror.Invalid("title is required")
	}

	created, err := s.engine.CreateTuition(ctx, p, post)
	if err != nil {
		release()
		return nil, err
	}
	return created, nil
}

func (s *tuitionService) Update(ctx context.Context, p authctx.Principal, id uuid.UUID, input dto.UpdateTuitionInput) (*entity.TuitionPost, error) {
	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = s.clean(*v)
		}
	}

	post, err := s.engine.EditTuition(ctx, p, id, func(post *entity.TuitionPost) {
		setString(&post.Title, input.Title)
		setString(&post.Subject, input.Subject)
		setString(&post.ClassLevel, input.ClassLevel)
		setString(&post.City, input.City)
		setString(&post.Area, input.Area)
		setString(&post.Address, input.Address)
		setString(&post.ScheduleHours, input.ScheduleHours)
		setString(&post.Duration, input.Duration)
		setString(&post.Description, input.Description)
		if input.LocationMode != nil {
			post.LocationMode = *input.LocationMode
		}
		if input.Currency != nil {
			post.Currency = strings.ToLower(*input.Currency)
		}
		if input.BudgetMin != nil {
			post.BudgetMin = *input.BudgetMin
		}
		if input.BudgetMax != nil {
			post.BudgetMax = *input.BudgetMax
		}
		if input.ScheduleFlexible != nil {
			post.ScheduleFlexible = *input.ScheduleFlexible
		}
		if input.StartDate != nil {
			post.StartDate = input.StartDate
		}
		if input.ApplicationDeadline != nil {
			post.ApplicationDeadline = input.ApplicationDeadline
		}
		if input.Slots != nil {
			post.Slots = *input.Slots
		}
		if input.ScheduleDays != nil {
			post.ScheduleDays = s.cleanList(input.ScheduleDays)
		}
		if input.Requirements != nil {
			post.Requirements = s.cleanList(input.Requirements)
		}
		if input.Qualifications != nil {
			post.Qualifications = s.cleanList(input.Qualifications)
		}
		if input.Responsibilities != nil {
			post.Responsibilities = s.cleanList(input.Responsibilities)
		}
		if input.Benefits != nil {
			post.Benefits = s.cleanList(input.Benefits)
		}
	})
	if err != nil {
		return nil, err
	}

	s.index(post)
	return post, nil
}

func (s *tuitionService) Delete(ctx context.Context, p authctx.Principal, id uuid.UUID) (*dto.DeleteResult, error) {
	soft, err := s.engine.DeleteTuition(ctx, p, id)
	if err != nil {
		return nil, err
	}

	if err := s.search.RemoveTuition(id.String()); err != nil {
		s.log.Warn("remove tuition from index", zap.String("tuition_id", id.String()), zap.Error(err))
	}
	return &dto.DeleteResult{ID: id.String(), Soft: soft}, nil
}

func (s *tuitionService) Complete(ctx context.Context, p authctx.Principal, id uuid.UUID, input dto.CompleteTuitionInput) (*entity.TuitionPost, error) {
	return s.engine.CompleteTuition(ctx, p, id, input.Rating)
}

func (s *tuitionService) List(ctx context.Context, query dto.TuitionQuery) (*commonDto.Paginated[entity.TuitionPost], error) {
	offset := query.Normalize(12)
	posts, total, err := s.store.Tuitions().FindAll(ctx, tuitionRepo.Filter{
		Search:     query.Search,
		Location:   query.Location,
		Subject:    query.Subject,
		ClassLevel: query.Class,
		SortBy:     query.SortBy,
		Statuses:   []string{entity.TuitionActive},
		Offset:     offset,
		Limit:      query.Limit,
	})
	if err != nil {
		return nil, apperror.FromStore(err, "tuition post")
	}

	page := commonDto.NewPaginated(posts, query.Page, query.Limit, total)
	return &page, nil
}

func (s *tuitionService) Get(ctx context.Context, id uuid.UUID, viewer string) (*entity.TuitionPost, error) {
	post, err := s.store.Tuitions().FindByID(ctx, id)
	if err != nil {
		return nil, apperror.FromStore(err, "tuition post")
	}
	if post.Status != entity.TuitionActive {
		return nil, apperror.NotFound("tuition post not found")
	}

	if err := s.views.RecordView(ctx, post.ID, viewer); err != nil {
		s.log.Warn("record view", zap.String("tuition_id", post.ID.String()), zap.Error(err))
	}
	return post, nil
}

func (s *tuitionService) ListMine(ctx context.Context, p authctx.Principal, query dto.MyTuitionQuery) (*commonDto.Paginated[entity.TuitionPost], error) {
	offset := query.Normalize(10)
	filter := tuitionRepo.Filter{
		StudentID: &p.AccountID,
		Offset:    offset,
		Limit:     query.Limit,
	}
	if query.Status != "" {
		filter.Statuses = []string{query.Status}
	}

	posts, total, err := s.store.Tuitions().FindAll(ctx, filter)
	if err != nil {
		return nil, apperror.FromStore(err, "tuition post")
	}

	page := commonDto.NewPaginated(posts, query.Page, query.Limit, total)
	return &page, nil
}

func savesKey(postID uuid.UUID) string {
	return fmt.Sprintf("tuition:saves:%s", postID)
}

func (s *tuitionService) Save(ctx context.Context, p authctx.Principal, id uuid.UUID) (*dto.SaveResult, error) {
	post, err := s.store.Tuitions().FindByID(ctx, id)
	if err != nil {
		return nil, apperror.FromStore(err, "tuition post")
	}
	if post.Status != entity.TuitionActive {
		return nil, apperror.NotFound("tuition post not found")
	}

	added := int64(1)
	if s.redisClient != nil {
		added, err = s.redisClient.SAdd(ctx, savesKey(id), p.AccountID.String()).Result()
		if err != nil {
			s.log.Warn("mark saved", zap.String("tuition_id", id.String()), zap.Error(err))
			added = 1
		}
	}
	if added == 0 {
		return &dto.SaveResult{Saved: true, Saves: post.Saves}, nil
	}

	if err := s.store.Tuitions().IncrementSaves(ctx, id); err != nil {
		if s.redisClient != nil {
			s.redisClient.SRem(ctx, savesKey(id), p.AccountID.String())
		}
		return nil, apperror.FromStore(err, "tuition post")
	}
	return &dto.SaveResult{Saved: true, Saves: post.Saves + 1}, nil
}

func (s *tuitionService) ListAdmin(ctx context.Context, query dto.AdminTuitionQuery) (*commonDto.Paginated[entity.TuitionPost], error) {
	offset := query.Normalize(20)
	filter := tuitionRepo.Filter{
		Search: query.Search,
		SortBy: query.SortBy,
		Offset: offset,
		Limit:  query.Limit,
	}
	if query.Status != "" {
		filter.Statuses = []string{query.Status}
	}

	posts, total, err := s.store.Tuitions().FindAll(ctx, filter)
	if err != nil {
		return nil, apperror.FromStore(err, "tuition post")
	}

	page := commonDto.NewPaginated(posts, query.Page, query.Limit, total)
	return &page, nil
}

func (s *tuitionService) Review(ctx context.Context, admin authctx.Principal, id uuid.UUID, approve bool, reason string) (*entity.TuitionPost, error) {
	post, err := s.engine.ReviewTuition(ctx, admin, id, approve, s.clean(reason))
	if err != nil {
		return nil, err
	}
	s.index(post)
	return post, nil
}

func (s *tuitionService) SearchToken(role string) (*dto.SearchTokenResponse, error) {
	token, err := s.search.GenerateSearchToken(role)
	if err != nil {
		s.log.Warn("generate search token", zap.Error(err))
		return nil, apperror.Unavailable(err)
	}
	return &dto.SearchTokenResponse{Token: token, Index: "tuitions"}, nil
}

func (s *tuitionService) Reindex(ctx context.Context) (int, error) {
	const batch = 200
	indexed := 0
	for offset := 0; ; offset += batch {
		posts, _, err := s.store.Tuitions().FindAll(ctx, tuitionRepo.Filter{
			SortBy: "oldest",
			Offset: offset,
			Limit:  batch,
		})
		if err != nil {
			return indexed, apperror.FromStore(err, "tuition post")
		}
		if err := s.search.Reindex(posts); err != nil {
			return indexed, fmt.Errorf("reindex tuitions: %w", err)
		}
		for i := range posts {
			if posts[i].Status == entity.TuitionActive {
				indexed++
			}
		}
		if len(posts) < batch {
			return indexed, nil
		}
	}
}

func (s *tuitionService) index(post *entity.TuitionPost) {
	if err := s.search.IndexTuition(post); err != nil {
		s.log.Warn("index tuition", zap.String("tuition_id", post.ID.String()), zap.Error(err))
	}
}
