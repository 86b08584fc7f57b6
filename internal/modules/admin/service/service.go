package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/authctx"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/entity"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/lifecycle"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/modules/admin/dto"
	userRepo "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/user/repository"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/apperror"
	commonDto "github.com/Ahmad-Hisham007/tutorate-server/pkg/dto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AdminService interface {
	GetAllUsers(ctx context.Context, query dto.AdminUserQuery) (*commonDto.Paginated[entity.Account], error)
	UpdateUserRole(ctx context.Context, admin authctx.Principal, id uuid.UUID, role string) (*entity.Account, error)
	UpdateUserStatus(ctx context.Context, admin authctx.Principal, id uuid.UUID, status string) (*entity.Account, error)
	DeleteUser(ctx context.Context, admin authctx.Principal, id uuid.UUID) error
}

type adminService struct {
	userRepo userRepo.Repository
	notifier lifecycle.Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewAdminService(userRepo userRepo.Repository, notifier lifecycle.Notifier, log *zap.Logger) AdminService {
	return &adminService{
		userRepo: userRepo,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

func notSelf(admin authctx.Principal, id uuid.UUID, action string) error {
	if admin.AccountID == id {
		return apperror.Forbidden(apperror.CodeForbidden, fmt.Sprintf("admins cannot %s their own account", action))
	}
	return nil
}

func (s *adminService) GetAllUsers(ctx context.Context, query dto.AdminUserQuery) (*commonDto.Paginated[entity.Account], error) {
	offset := query.Normalize(20)
	accounts, total, err := s.userRepo.FindAll(ctx, userRepo.Filter{
		Role:           query.Role,
		Status:         query.Status,
		Search:         query.Search,
		SortBy:         query.SortBy,
		IncludeDeleted: query.IncludeDeleted,
		Offset:         offset,
		Limit:          query.Limit,
	})
	if err != nil {
		return nil, apperror.FromStore(err, "account")
	}

	page := commonDto.NewPaginated(accounts, query.Page, query.Limit, total)
	return &page, nil
}

func (s *adminService) UpdateUserRole(ctx context.Context, admin authctx.Principal, id uuid.UUID, role string) (*entity.Account, error) {
	if !entity.ValidRole(role) {
		return nil, apperror.Invalid("role must be one of student, tutor, admin")
	}
	if err := notSelf(admin, id, "change the role of"); err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateRole(ctx, id, role); err != nil {
		return nil, apperror.FromStore(err, "account")
	}

	s.log.Info("account role changed",
		zap.String("account_id", id.String()),
		zap.String("role", role),
		zap.String("admin_id", admin.AccountID.String()))

	account, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.FromStore(err, "account")
	}
	return account, nil
}

func (s *adminService) UpdateUserStatus(ctx context.Context, admin authctx.Principal, id uuid.UUID, status string) (*entity.Account, error) {
	if !entity.ValidAccountStatus(status) || status == entity.AccountDeleted {
		return nil, apperror.Invalid("status must be one of pending, active, blocked")
	}
	if err := notSelf(admin, id, "change the status of"); err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, apperror.FromStore(err, "account")
	}

	s.log.Info("account status changed",
		zap.String("account_id", id.String()),
		zap.String("status", status),
		zap.String("admin_id", admin.AccountID.String()))

	actor := admin.AccountID
	s.notifier.Notify(ctx, entity.Notification{
		AccountID:  id,
		ActorID:    &actor,
		EntityID:   id,
		EntityType: "account",
		Type:       entity.NotifyAccountStatus,
		Message:    fmt.Sprintf("Your account is now %s.", status),
	})

	account, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.FromStore(err, "account")
	}
	return account, nil
}

func (s *adminService) DeleteUser(ctx context.Context, admin authctx.Principal, id uuid.UUID) error {
	if err := notSelf(admin, id, "delete"); err != nil {
		return err
	}

	if err := s.userRepo.SoftDelete(ctx, id, s.now()); err != nil {
		return apperror.FromStore(err, "account")
	}

	s.log.Info("account deleted",
		zap.String("account_id", id.String()),
		zap.String("admin_id", admin.AccountID.String()))
	return nil
}
