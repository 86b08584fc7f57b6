package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/entity"
	notifRepo "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/notification/repository"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/apperror"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type NotificationService interface {
	CreateNotification(ctx context.Context, notification *entity.Notification) error
	// Notify stores and publishes n, logging instead of failing.
	Notify(ctx context.Context, n entity.Notification)
	GetNotifications(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]entity.Notification, error)
	MarkAsRead(ctx context.Context, id, accountID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, accountID uuid.UUID) error
	UnreadCount(ctx context.Context, accountID uuid.UUID) (int64, error)
}

// Channel is the redis pub/sub channel carrying live notifications of one account.
func Channel(accountID uuid.UUID) string {
	return fmt.Sprintf("account_notifications:%s", accountID.String())
}

type notificationService struct {
	repo        notifRepo.NotificationRepository
	redisClient *redis.Client
	log         *zap.Logger
}

func NewNotificationService(repo notifRepo.NotificationRepository, redisClient *redis.Client, log *zap.Logger) NotificationService {
	return &notificationService{
		repo:        repo,
		redisClient: redisClient,
		log:         log,
	}
}

func (s *notificationService) CreateNotification(ctx context.Context, notification *entity.Notification) error {
	if err := s.repo.Create(ctx, notification); err != nil {
		return apperror.FromStore(err, "notification")
	}

	if s.redisClient != nil {
		payload, err := json.Marshal(notification)
		if err == nil {
			if err := s.redisClient.Publish(ctx, Channel(notification.AccountID), payload).Err(); err != nil {
				s.log.Warn("publish notification", zap.Error(err))
			}
		}
	}

	return nil
}

func (s *notificationService) Notify(ctx context.Context, n entity.Notification) {
	if err := s.CreateNotification(ctx, &n); err != nil {
		s.log.Error("create notification",
			zap.String("account_id", n.AccountID.String()),
			zap.String("type", n.Type),
			zap.Error(err))
	}
}

func (s *notificationService) GetNotifications(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]entity.Notification, error) {
	items, err := s.repo.GetByAccountID(ctx, accountID, limit, offset)
	if err != nil {
		return nil, apperror.FromStore(err, "notification")
	}
	if items == nil {
		items = []entity.Notification{}
	}
	return items, nil
}

func (s *notificationService) MarkAsRead(ctx context.Context, id, accountID uuid.UUID) error {
	rows, err := s.repo.MarkAsRead(ctx, id, accountID)
	if err != nil {
		return apperror.FromStore(err, "notification")
	}
	if rows == 0 {
		return apperror.NotFound("notification not found")
	}
	return nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, accountID uuid.UUID) error {
	return apperror.FromStore(s.repo.MarkAllAsRead(ctx, accountID), "notification")
}

func (s *notificationService) UnreadCount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	count, err := s.repo.CountUnread(ctx, accountID)
	return count, apperror.FromStore(err, "notification")
}
