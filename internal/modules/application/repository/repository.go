package repository

import (
	"context"
	"time"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Filter struct {
	TuitionPostID *uuid.UUID
	TutorID       *uuid.UUID
	Status        string
	Offset        int
	Limit         int
}

type Repository interface {
	Create(ctx context.Context, app *entity.Application) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Application, error)
	FindByPostAndTutor(ctx context.Context, postID, tutorID uuid.UUID) (*entity.Application, error)
	FindAll(ctx context.Context, filter Filter) ([]entity.Application, int64, error)
	CountByPost(ctx context.Context, postID uuid.UUID) (int64, error)
	UpdateDetails(ctx context.Context, app *entity.Application) (int64, error)
	// TransitionStatus moves a pending application to `to`. It returns the
	// number of rows changed.
	TransitionStatus(ctx context.Context, id uuid.UUID, to string, at time.Time) (int64, error)
	// RejectPendingSiblings rejects every other pending application of the
	// post and returns the rejected rows.
	RejectPendingSiblings(ctx context.Context, postID, keepID uuid.UUID, at time.Time) ([]entity.Application, error)
	DeleteIfPending(ctx context.Context, id uuid.UUID) (int64, error)
	CountByStatus(ctx context.Context, tutorID *uuid.UUID, postOwnerID *uuid.UUID) (map[string]int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, app *entity.Application) error {
	return r.db.WithContext(ctx).Omit("TuitionPost").Create(app).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Application, error) {
	var app entity.Application
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *repository) FindByPostAndTutor(ctx context.Context, postID, tutorID uuid.UUID) (*entity.Application, error) {
	var app entity.Application
	if err := r.db.WithContext(ctx).
		Where("tuition_post_id = ? AND tutor_id = ?", postID, tutorID).
		First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *repository) FindAll(ctx context.Context, filter Filter) ([]entity.Application, int64, error) {
	var apps []entity.Application
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Application{})
	if filter.TuitionPostID != nil {
		query = query.Where("tuition_post_id = ?", *filter.TuitionPostID)
	}
	if filter.TutorID != nil {
		query = query.Where("tutor_id = ?", *filter.TutorID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Preload("TuitionPost").
		Order("applied_at DESC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&apps).Error; err != nil {
		return nil, 0, err
	}
	return apps, total, nil
}

func (r *repository) CountByPost(ctx context.Context, postID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Application{}).
		Where("tuition_post_id = ?", postID).
		Count(&count).Error
	return count, err
}

func (r *repository) UpdateDetails(ctx context.Context, app *entity.Application) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.Application{}).
		Where("id = ? AND status = ?", app.ID, entity.ApplicationPending).
		Select(entity.ApplicationEditableColumns).
		Updates(app)
	return res.RowsAffected, res.Error
}

func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, to string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.Application{}).
		Where("id = ? AND status = ?", id, entity.ApplicationPending).
		UpdateColumns(map[string]any{"status": to, "decided_at": at, "updated_at": at})
	return res.RowsAffected, res.Error
}

func (r *repository) RejectPendingSiblings(ctx context.Context, postID, keepID uuid.UUID, at time.Time) ([]entity.Application, error) {
	var rejected []entity.Application
	res := r.db.WithContext(ctx).
		Model(&rejected).
		Clauses(clause.Returning{}).
		Where("tuition_post_id = ? AND id <> ? AND status = ?", postID, keepID, entity.ApplicationPending).
		UpdateColumns(map[string]any{"status": entity.ApplicationRejected, "decided_at": at, "updated_at": at})
	return rejected, res.Error
}

func (r *repository) DeleteIfPending(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, entity.ApplicationPending).
		Delete(&entity.Application{})
	return res.RowsAffected, res.Error
}

func (r *repository) CountByStatus(ctx context.Context, tutorID *uuid.UUID, postOwnerID *uuid.UUID) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	query := r.db.WithContext(ctx).Model(&entity.Application{}).Select("applications.status, COUNT(*) AS count")
	if tutorID != nil {
		query = query.Where("applications.tutor_id = ?", *tutorID)
	}
	if postOwnerID != nil {
		query = query.
			Joins("JOIN tuition_posts ON tuition_posts.id = applications.tuition_post_id").
			Where("tuition_posts.student_id = ?", *postOwnerID)
	}
	if err := query.Group("applications.status").Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
