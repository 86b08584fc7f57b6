package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	tuitionRepo "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/tuition/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pendingKey = "pending:tuition_views"

type ViewService interface {
	// RecordView counts one view of a post per viewer per hour.
	RecordView(ctx context.Context, postID uuid.UUID, viewer string) error
	// SyncViews moves buffered counters into the database and returns the
	// number of posts updated.
	SyncViews(ctx context.Context) (int, error)
}

type viewService struct {
	redisClient *redis.Client
	tuitions    tuitionRepo.Repository
	log         *zap.Logger
}

// NewViewService writes views straight to the database when redisClient is nil.
func NewViewService(redisClient *redis.Client, tuitions tuitionRepo.Repository, log *zap.Logger) ViewService {
	return &viewService{
		redisClient: redisClient,
		tuitions:    tuitions,
		log:         log,
	}
}

func viewsKey(postID string) string {
	return fmt.Sprintf("tuition:views:%s", postID)
}

func (s *viewService) RecordView(ctx context.Context, postID uuid.UUID, viewer string) error {
	if s.redisClient == nil {
		return s.tuitions.IncrementViews(ctx, postID, 1)
	}

	viewerKey := fmt.Sprintf("tuition:viewer:%s:%s", postID, viewer)
	fresh, err := s.redisClient.SetNX(ctx, viewerKey, "viewed", time.Hour).Result()
	if err != nil {
		return fmt.Errorf("failed to mark viewer: %w", err)
	}
	if !fresh {
		return nil
	}

	pipe := s.redisClient.TxPipeline()
	pipe.Incr(ctx, viewsKey(postID.String()))
	pipe.SAdd(ctx, pendingKey, postID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to buffer view: %w", err)
	}
	return nil
}

func (s *viewService) SyncViews(ctx context.Context) (int, error) {
	if s.redisClient == nil {
		return 0, nil
	}

	postIDs, err := s.redisClient.SMembers(ctx, pendingKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read pending views: %w", err)
	}

	synced := 0
	for _, raw := range postIDs {
		postID, err := uuid.Parse(raw)
		if err != nil {
			s.redisClient.SRem(ctx, pendingKey, raw)
			continue
		}

		// Leave the pending set before GETDEL so a concurrent view re-adds it.
		s.redisClient.SRem(ctx, pendingKey, raw)
		count, err := s.redisClient.GetDel(ctx, viewsKey(raw)).Int()
		if err != nil && !errors.Is(err, redis.Nil) {
			s.log.Warn("read view counter", zap.String("tuition_id", raw), zap.Error(err))
			s.redisClient.SAdd(ctx, pendingKey, raw)
			continue
		}
		if count <= 0 {
			continue
		}

		if err := s.tuitions.IncrementViews(ctx, postID, count); err != nil {
			s.log.Warn("sync views", zap.String("tuition_id", raw), zap.Error(err))
			s.redisClient.IncrBy(ctx, viewsKey(raw), int64(count))
			s.redisClient.SAdd(ctx, pendingKey, raw)
			continue
		}
		synced++
	}

	return synced, nil
}
