package repository

import (
	"context"
	"time"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound is returned by the finders when no live account matches.
var ErrNotFound = gorm.ErrRecordNotFound

// Filter narrows account listings. Subject and Location only apply to tutors.
type Filter struct {
	Role           string
	Status         string
	Search         string
	Subject        string
	Location       string
	SortBy         string // newest, oldest, top-rated, experience
	IncludeDeleted bool
	Offset         int
	Limit          int
}

type Repository interface {
	Create(ctx context.Context, account *entity.Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Account, error)
	FindByEmail(ctx context.Context, email string) (*entity.Account, error)
	FindByExternalID(ctx context.Context, externalID string) (*entity.Account, error)
	FindAll(ctx context.Context, filter Filter) ([]entity.Account, int64, error)
	Update(ctx context.Context, account *entity.Account) error
	UpdateRole(ctx context.Context, id uuid.UUID, role string) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
	TouchLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	ApplyRating(ctx context.Context, tutorID uuid.UUID, rating int) error
	CountByRole(ctx context.Context) (map[string]int64, error)
	SignupBuckets(ctx context.Context, since time.Time, unit string) ([]entity.TimeBucket, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) withProfiles(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Student").
		Preload("Tutor").
		Preload("Admin")
}

func (r *repository) Create(ctx context.Context, account *entity.Account) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile := account.Profile()
		account.Student, account.Tutor, account.Admin = nil, nil, nil

		if err := tx.Create(account).Error; err != nil {
			return err
		}

		if profile == nil {
			profile = entity.EmptyProfile(account.Role)
		}
		account.SetProfile(profile)
		return tx.Create(profile).Error
	})
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	var account entity.Account
	if err := r.withProfiles(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	var account entity.Account
	if err := r.withProfiles(ctx).
		Where("email = ? AND status <> ?", email, entity.AccountDeleted).
		First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindByExternalID(ctx context.Context, externalID string) (*entity.Account, error) {
	var account entity.Account
	if err := r.withProfiles(ctx).
		Where("external_id = ? AND status <> ?", externalID, entity.AccountDeleted).
		First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindAll(ctx context.Context, filter Filter) ([]entity.Account, int64, error) {
	var accounts []entity.Account
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Account{})

	if filter.Role != "" {
		query = query.Where("accounts.role = ?", filter.Role)
	}
	if filter.Status != "" {
		query = query.Where("accounts.status = ?", filter.Status)
	} else if !filter.IncludeDeleted {
		query = query.Where("accounts.status <> ?", entity.AccountDeleted)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("accounts.name ILIKE ? OR accounts.email ILIKE ?", like, like)
	}

	joinedTutor := filter.Role == entity.RoleTutor &&
		(filter.Subject != "" || filter.Location != "" || filter.SortBy == "top-rated" || filter.SortBy == "experience")
	if joinedTutor {
		query = query.Joins("JOIN tutor_profiles ON tutor_profiles.account_id = accounts.id")
		if filter.Subject != "" {
			query = query.Where("tutor_profiles.subjects::text ILIKE ?", "%"+filter.Subject+"%")
		}
		if filter.Location != "" {
			query = query.Where("tutor_profiles.location ILIKE ?", "%"+filter.Location+"%")
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch {
	case joinedTutor && filter.SortBy == "top-rated":
		query = query.Order("tutor_profiles.rating_average DESC").Order("tutor_profiles.rating_count DESC")
	case joinedTutor && filter.SortBy == "experience":
		query = query.Order("tutor_profiles.experience_years DESC")
	case filter.SortBy == "oldest":
		query = query.Order("accounts.created_at ASC")
	default:
		query = query.Order("accounts.created_at DESC")
	}

	if err := query.
		Preload("Student").
		Preload("Tutor").
		Preload("Admin").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&accounts).Error; err != nil {
		return nil, 0, err
	}

	return accounts, total, nil
}

// Update writes the self editable base fields and the role profile.
func (r *repository) Update(ctx context.Context, account *entity.Account) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entity.Account{ID: account.ID}).
			Select("name", "phone", "photo_url", "updated_at").
			Updates(account).Error; err != nil {
			return err
		}

		if profile := account.Profile(); profile != nil {
			account.SetProfile(profile)
			if err := tx.Save(profile).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateRole switches the role and makes sure a profile row for the new
// role exists.
func (r *repository) UpdateRole(ctx context.Context, id uuid.UUID, role string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.Account{}).
			Where("id = ? AND status <> ?", id, entity.AccountDeleted).
			Update("role", role)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		profile := entity.EmptyProfile(role)
		(&entity.Account{ID: id}).SetProfile(profile)
		return tx.Where("account_id = ?", id).FirstOrCreate(profile).Error
	})
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	res := r.db.WithContext(ctx).Model(&entity.Account{}).
		Where("id = ? AND status <> ?", id, entity.AccountDeleted).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&entity.Account{}).
		Where("id = ? AND status <> ?", id, entity.AccountDeleted).
		Updates(map[string]any{"status": entity.AccountDeleted, "deleted_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) TouchLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&entity.Account{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// ApplyRating folds one rating into the running average in a single statement.
func (r *repository) ApplyRating(ctx context.Context, tutorID uuid.UUID, rating int) error {
	res := r.db.WithContext(ctx).Model(&entity.TutorProfile{}).
		Where("account_id = ?", tutorID).
		UpdateColumns(map[string]any{
			"rating_average": gorm.Expr("(rating_average * rating_count + ?) / (rating_count + 1)", rating),
			"rating_count":   gorm.Expr("rating_count + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) CountByRole(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Role  string
		Count int64
	}
	if err := r.db.WithContext(ctx).Model(&entity.Account{}).
		Select("role, COUNT(*) AS count").
		Where("status <> ?", entity.AccountDeleted).
		Group("role").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Role] = row.Count
	}
	return counts, nil
}

func (r *repository) SignupBuckets(ctx context.Context, since time.Time, unit string) ([]entity.TimeBucket, error) {
	var buckets []entity.TimeBucket
	err := r.db.WithContext(ctx).Model(&entity.Account{}).
		Select("date_trunc(?, created_at) AS start, COUNT(*) AS count", unit).
		Where("created_at >= ? AND status <> ?", since, entity.AccountDeleted).
		Group("start").
		Order("start").
		Scan(&buckets).Error
	return buckets, err
}
