package repository

import (
	"context"
	"time"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/entity"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Filter struct {
	StudentID *uuid.UUID
	TutorID   *uuid.UUID
	Since     *time.Time
	Offset    int
	Limit     int
}

type Summary struct {
	Count int64           `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// Repository is append-only: records are never updated or deleted.
type Repository interface {
	Create(ctx context.Context, record *entity.PaymentRecord) error
	FindByApplicationID(ctx context.Context, applicationID uuid.UUID) (*entity.PaymentRecord, error)
	FindByTransactionRef(ctx context.Context, ref string) (*entity.PaymentRecord, error)
	FindAll(ctx context.Context, filter Filter) ([]entity.PaymentRecord, int64, error)
	Summarize(ctx context.Context, filter Filter) (Summary, error)
	Buckets(ctx context.Context, since time.Time, unit string) ([]entity.TimeBucket, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, record *entity.PaymentRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) FindByApplicationID(ctx context.Context, applicationID uuid.UUID) (*entity.PaymentRecord, error) {
	var record entity.PaymentRecord
	if err := r.db.WithContext(ctx).Where("application_id = ?", applicationID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) FindByTransactionRef(ctx context.Context, ref string) (*entity.PaymentRecord, error) {
	var record entity.PaymentRecord
	if err := r.db.WithContext(ctx).Where("transaction_ref = ?", ref).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) scoped(ctx context.Context, filter Filter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&entity.PaymentRecord{})
	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.TutorID != nil {
		query = query.Where("tutor_id = ?", *filter.TutorID)
	}
	if filter.Since != nil {
		query = query.Where("created_at >= ?", *filter.Since)
	}
	return query
}

func (r *repository) FindAll(ctx context.Context, filter Filter) ([]entity.PaymentRecord, int64, error) {
	var records []entity.PaymentRecord
	var total int64

	if err := r.scoped(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := r.scoped(ctx, filter).
		Order("created_at DESC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *repository) Summarize(ctx context.Context, filter Filter) (Summary, error) {
	var summary Summary
	err := r.scoped(ctx, filter).
		Select("COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Scan(&summary).Error
	return summary, err
}

func (r *repository) Buckets(ctx context.Context, since time.Time, unit string) ([]entity.TimeBucket, error) {
	var buckets []entity.TimeBucket
	err := r.db.WithContext(ctx).Model(&entity.PaymentRecord{}).
		Select("date_trunc(?, created_at) AS start, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total", unit).
		Where("created_at >= ?", since).
		Group("start").
		Order("start").
		Scan(&buckets).Error
	return buckets, err
}
