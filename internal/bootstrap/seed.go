package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/entity"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/identity"
	userRepo "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/user/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.Account{},
		&entity.StudentProfile{},
		&entity.TutorProfile{},
		&entity.AdminProfile{},
		&entity.TuitionPost{},
		&entity.Application{},
		&entity.PaymentRecord{},
		&entity.Notification{},
	)
}

// SeedAdmin creates the first admin account unless one with email exists.
func SeedAdmin(ctx context.Context, repo userRepo.Repository, email, password string, log *zap.Logger) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return errors.New("admin email and password are required")
	}

	existing, err := repo.FindByEmail(ctx, email)
	if err == nil {
		if existing.Role != entity.RoleAdmin {
			return fmt.Errorf("%s is registered as %s", email, existing.Role)
		}
		log.Info("admin account already exists, skipping seed", zap.String("email", email))
		return nil
	}
	if !errors.Is(err, userRepo.ErrNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	externalID := identity.LocalExternalID(id)

	admin := &entity.Account{
		ID:           id,
		ExternalID:   &externalID,
		Email:        email,
		PasswordHash: string(hashed),
		Name:         "Administrator",
		Role:         entity.RoleAdmin,
		Status:       entity.AccountActive,
	}
	admin.SetProfile(&entity.AdminProfile{Designation: "Super administrator"})

	if err := repo.Create(ctx, admin); err != nil {
		return err
	}

	log.Info("admin account seeded", zap.String("email", email))
	return nil
}
