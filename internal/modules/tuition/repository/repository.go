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
	Search     string
	Location   string
	Subject    string
	ClassLevel string
	SortBy     string // budget-low, budget-high, newest, oldest, top-rated
	Statuses   []string
	StudentID  *uuid.UUID
	Offset     int
	Limit      int
}

type Repository interface {
	Create(ctx context.Context, post *entity.TuitionPost) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.TuitionPost, error)
	// FindByIDForUpdate locks the row until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.TuitionPost, error)
	FindAll(ctx context.Context, filter Filter) ([]entity.TuitionPost, int64, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.TuitionPost, error)
	UpdateDetails(ctx context.Context, post *entity.TuitionPost) (int64, error)
	// TransitionStatus moves the post to `to` only if its status is in from.
	// It returns the number of rows changed.
	TransitionStatus(ctx context.Context, id uuid.UUID, from []string, to string, changes map[string]any) (int64, error)
	AdjustApplicants(ctx context.Context, id uuid.UUID, delta int) error
	IncrementViews(ctx context.Context, id uuid.UUID, n int) error
	IncrementSaves(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context, studentID *uuid.UUID) (map[string]int64, error)
	CreatedBuckets(ctx context.Context, since time.Time, unit string) ([]entity.TimeBucket, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, post *entity.TuitionPost) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*entity.TuitionPost, error) {
	var post entity.TuitionPost
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.TuitionPost, error) {
	var post entity.TuitionPost
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.TuitionPost, error) {
	var posts []entity.TuitionPost
	if len(ids) == 0 {
		return posts, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&posts).Error
	return posts, err
}

func (r *repository) FindAll(ctx context.Context, filter Filter) ([]entity.TuitionPost, int64, error) {
	var posts []entity.TuitionPost
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.TuitionPost{})

	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("title ILIKE ? OR subject ILIKE ? OR description ILIKE ?", like, like, like)
	}
	if filter.Location != "" {
		like := "%" + filter.Location + "%"
		query = query.Where("city ILIKE ? OR area ILIKE ? OR location_mode = ?", like, like, filter.Location)
	}
	if filter.Subject != "" {
		query = query.Where("subject ILIKE ?", "%"+filter.Subject+"%")
	}
	if filter.ClassLevel != "" {
		query = query.Where("class_level = ?", filter.ClassLevel)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch filter.SortBy {
	case "budget-low":
		query = query.Order("budget_min ASC").Order("created_at DESC")
	case "budget-high":
		query = query.Order("budget_max DESC").Order("created_at DESC")
	case "oldest":
		query = query.Order("created_at ASC")
	case "top-rated":
		query = query.Order("views DESC").Order("saves DESC").Order("created_at DESC")
	default:
		query = query.Order("created_at DESC")
	}

	if err := query.Offset(filter.Offset).Limit(filter.Limit).Find(&posts).Error; err != nil {
		return nil, 0, err
	}

	return posts, total, nil
}

// UpdateDetails writes only owner editable columns, and only while the post
// is still editable.
func (r *repository) UpdateDetails(ctx context.Context, post *entity.TuitionPost) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.TuitionPost{}).
		Where("id = ? AND status IN ?", post.ID, entity.EditableTuitionStatuses).
		Select(entity.TuitionEditableColumns).
		Updates(post)
	return res.RowsAffected, res.Error
}

func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from []string, to string, changes map[string]any) (int64, error) {
	values := map[string]any{"status": to, "updated_at": time.Now()}
	for k, v := range changes {
		values[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&entity.TuitionPost{}).
		Where("id = ? AND status IN ?", id, from).
		UpdateColumns(values)
	return res.RowsAffected, res.Error
}

// AdjustApplicants moves the counter in one statement and never below zero.
func (r *repository) AdjustApplicants(ctx context.Context, id uuid.UUID, delta int) error {
	if delta == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).
		Model(&entity.TuitionPost{}).
		Where("id = ? AND applicants + ? >= 0", id, delta).
		UpdateColumn("applicants", gorm.Expr("applicants + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) IncrementViews(ctx context.Context, id uuid.UUID, n int) error {
	return r.db.WithContext(ctx).
		Model(&entity.TuitionPost{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", n)).Error
}

func (r *repository) IncrementSaves(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&entity.TuitionPost{}).
		Where("id = ?", id).
		UpdateColumn("saves", gorm.Expr("saves + ?", 1)).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.TuitionPost{}, "id = ?", id).Error
}

func (r *repository) CountByStatus(ctx context.Context, studentID *uuid.UUID) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	query := r.db.WithContext(ctx).Model(&entity.TuitionPost{}).Select("status, COUNT(*) AS count")
	if studentID != nil {
		query = query.Where("student_id = ?", *studentID)
	}
	if err := query.Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *repository) CreatedBuckets(ctx context.Context, since time.Time, unit string) ([]entity.TimeBucket, error) {
	var buckets []entity.TimeBucket
	err := r.db.WithContext(ctx).Model(&entity.TuitionPost{}).
		Select("date_trunc(?, created_at) AS start, COUNT(*) AS count", unit).
		Where("created_at >= ? AND status <> ?", since, entity.TuitionDeleted).
		Group("start").
		Order("start").
		Scan(&buckets).Error
	return buckets, err
}
