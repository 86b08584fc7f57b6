// Package store groups the repositories behind one handle so that a set of
// writes can share a database transaction.
package store

import (
	"context"
	"errors"

	applicationRepo "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/application/repository"
	notifRepo "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/notification/repository"
	paymentRepo "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/payment/repository"
	tuitionRepo "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/tuition/repository"
	userRepo "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/user/repository"
	"gorm.io/gorm"
)

type Store interface {
	Accounts() userRepo.Repository
	Tuitions() tuitionRepo.Repository
	Applications() applicationRepo.Repository
	Payments() paymentRepo.Repository
	Notifications() notifRepo.NotificationRepository

	// Transaction runs fn against a store bound to one database transaction.
	// fn's error rolls everything back.
	Transaction(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}

type gormStore struct {
	db            *gorm.DB
	accounts      userRepo.Repository
	tuitions      tuitionRepo.Repository
	applications  applicationRepo.Repository
	payments      paymentRepo.Repository
	notifications notifRepo.NotificationRepository
}

func New(db *gorm.DB) Store {
	return &gormStore{
		db:            db,
		accounts:      userRepo.NewRepository(db),
		tuitions:      tuitionRepo.NewRepository(db),
		applications:  applicationRepo.NewRepository(db),
		payments:      paymentRepo.NewRepository(db),
		notifications: notifRepo.NewNotificationRepository(db),
	}
}

func (s *gormStore) Accounts() userRepo.Repository { return s.accounts }
func (s *gormStore) Tuitions() tuitionRepo.Repository { return s.tuitions }
func (s *gormStore) Applications() applicationRepo.Repository { return s.applications }
func (s *gormStore) Payments() paymentRepo.Repository { return s.payments }
func (s *gormStore) Notifications() notifRepo.NotificationRepository { return s.notifications }

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
