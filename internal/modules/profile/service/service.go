package service

import (
	"context"
	"strings"
	"time"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/authctx"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/entity"
	profileDto "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/profile/dto"
	userRepo "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/user/repository"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/apperror"
	commonDto "github.com/Ahmad-Hisham007/tutorate-server/pkg/dto"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/storage"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type ProfileService interface {
	GetProfile(ctx context.Context, p authctx.Principal) (*entity.Account, error)
	UpdateProfile(ctx context.Context, p authctx.Principal, input profileDto.UpdateProfileInput, photo *commonDto.AvatarFile) (*entity.Account, error)
	DeleteProfile(ctx context.Context, p authctx.Principal) error
}

type profileService struct {
	repo         userRepo.Repository
	imageStorage storage.ImageStorage
	folder       string
	sanitizer    *bluemonday.Policy
	log          *zap.Logger
	now          func() time.Time
}

// NewProfileService accepts a nil imageStorage; photo uploads are then refused.
func NewProfileService(repo userRepo.Repository, imageStorage storage.ImageStorage, folder string, log *zap.Logger) ProfileService {
	return &profileService{
		repo:         repo,
		imageStorage: imageStorage,
		folder:       folder,
		sanitizer:    bluemonday.StrictPolicy(),
		log:          log,
		now:          time.Now,
	}
}

func (s *profileService) GetProfile(ctx context.Context, p authctx.Principal) (*entity.Account, error) {
	account, err := s.repo.FindByID(ctx, p.AccountID)
	if err != nil {
		return nil, apperror.FromStore(err, "account")
	}
	return account, nil
}

func (s *profileService) clean(v *string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(*v))
}

func (s *profileService) cleanList(items []string) datatypes.JSONSlice[string] {
	out := make(datatypes.JSONSlice[string], 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(s.sanitizer.Sanitize(item)); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (s *profileService) UpdateProfile(ctx context.Context, p authctx.Principal, input profileDto.UpdateProfileInput, photo *commonDto.AvatarFile) (*entity.Account, error) {
	account, err := s.repo.FindByID(ctx, p.AccountID)
	if err != nil {
		return nil, apperror.FromStore(err, "account")
	}

	if input.Name != nil {
		if name := s.clean(input.Name); name != "" {
			account.Name = name
		}
	}
	if input.Phone != nil {
		phone := s.clean(input.Phone)
		account.Phone = &phone
	}
	if input.ExpectedSalary != nil && input.ExpectedSalary.IsNegative() {
		return nil, apperror.Invalid("expected_salary cannot be negative")
	}

	profile := account.Profile()
	if profile == nil {
		profile = entity.EmptyProfile(account.Role)
	}
	switch v := profile.(type) {
	case *entity.StudentProfile:
		if input.ClassLevel != nil {
			v.ClassLevel = s.clean(input.ClassLevel)
		}
		if input.Institution != nil {
			v.Institution = s.clean(input.Institution)
		}
		if input.PreferredSubjects != nil {
			v.PreferredSubjects = s.cleanList(input.PreferredSubjects)
		}
	case *entity.TutorProfile:
		if input.Qualifications != nil {
			v.Qualifications = s.clean(input.Qualifications)
		}
		if input.Subjects != nil {
			v.Subjects = s.cleanList(input.Subjects)
		}
		if input.Experience != nil {
			v.Experience = s.clean(input.Experience)
		}
		if input.ExperienceYears != nil {
			v.ExperienceYears = *input.ExperienceYears
		}
		if input.ExpectedSalary != nil {
			v.ExpectedSalary = *input.ExpectedSalary
		}
		if input.Availability != nil {
			v.Availability = s.cleanList(input.Availability)
		}
		if input.Location != nil {
			v.Location = s.clean(input.Location)
		}
		if input.Bio != nil {
			v.Bio = s.clean(input.Bio)
		}
	case *entity.AdminProfile:
		if input.Designation != nil {
			v.Designation = s.clean(input.Designation)
		}
	}
	account.SetProfile(profile)

	var oldPhoto string
	if photo != nil && photo.Reader != nil {
		if s.imageStorage == nil {
			return nil, apperror.Unavailable(nil)
		}
		url, err := s.imageStorage.UploadImage(ctx, photo.Reader, s.folder, photo.FileName)
		if err != nil {
			return nil, apperror.Unavailable(err)
		}
		if account.PhotoURL != nil {
			oldPhoto = *account.PhotoURL
		}
		account.PhotoURL = &url
	}

	account.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, account); err != nil {
		return nil, apperror.FromStore(err, "account")
	}

	if oldPhoto != "" && s.imageStorage != nil {
		if err := s.imageStorage.DeleteImage(ctx, oldPhoto); err != nil {
			s.log.Warn("delete old photo", zap.String("account_id", account.ID.String()), zap.Error(err))
		}
	}

	return s.GetProfile(ctx, p)
}

func (s *profileService) DeleteProfile(ctx context.Context, p authctx.Principal) error {
	if p.Role == entity.RoleAdmin {
		return apperror.Forbidden(apperror.CodeForbidden, "admins cannot delete their own account")
	}
	if err := s.repo.SoftDelete(ctx, p.AccountID, s.now()); err != nil {
		return apperror.FromStore(err, "account")
	}
	s.log.Info("account deleted by owner", zap.String("account_id", p.AccountID.String()))
	return nil
}
