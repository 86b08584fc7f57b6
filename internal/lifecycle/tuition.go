package lifecycle

import (
	"context"
	"fmt"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/authctx"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/entity"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/store"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/apperror"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func validateTuition(post *entity.TuitionPost) error {
	if post.BudgetMin.IsNegative() || post.BudgetMax.IsNegative() {
		return apperror.Invalid("budget cannot be negative")
	}
	if post.BudgetMax.LessThan(post.BudgetMin) {
		return apperror.Invalid("budget_max must be greater than or equal to budget_min")
	}
	switch post.LocationMode {
	case entity.ModeOnline, entity.ModeOffline, entity.ModeHybrid:
	default:
		return apperror.Invalid("location_mode must be one of online, offline, hybrid")
	}
	if post.Slots < 1 {
		return apperror.Invalid("slots must be at least 1")
	}
	return nil
}

// CreateTuition stores a new post owned by the caller in pending status.
func (e *Engine) CreateTuition(ctx context.Context, p authctx.Principal, post *entity.TuitionPost) (*entity.TuitionPost, error) {
	if post.Slots == 0 {
		post.Slots = 1
	}
	if post.LocationMode == "" {
		post.LocationMode = entity.ModeOffline
	}
	if err := validateTuition(post); err != nil {
		return nil, err
	}

	owner, err := e.store.Accounts().FindByID(ctx, p.AccountID)
	if err != nil {
		return nil, apperror.FromStore(err, "account")
	}

	post.ID = uuid.Nil
	post.StudentID = owner.ID
	post.StudentName = owner.Name
	post.StudentEmail = owner.Email
	post.Status = entity.TuitionPending
	post.RejectionReason = nil
	post.AssignedTutorID = nil
	post.AssignedAt = nil
	post.Applicants, post.Views, post.Saves = 0, 0, 0
	post.DeletedAt = nil

	if err := e.store.Tuitions().Create(ctx, post); err != nil {
		return nil, apperror.FromStore(err, "tuition post")
	}
	return post, nil
}

// lockOwnedPost loads the post under a row lock and checks the caller owns it.
func lockOwnedPost(ctx context.Context, tx store.Store, p authctx.Principal, id uuid.UUID) (*entity.TuitionPost, error) {
	post, err := tx.Tuitions().FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, apperror.FromStore(err, "tuition post")
	}
	if post.Status == entity.TuitionDeleted {
		return nil, apperror.NotFound("tuition post not found")
	}
	if post.StudentID != p.AccountID {
		return nil, apperror.Forbidden(apperror.CodeForbidden, "you do not own this tuition post")
	}
	return post, nil
}

// EditTuition applies edit to the caller's post. Ownership, status and
// counters cannot be changed through an edit. Editing a rejected post sends
// it back to review.
func (e *Engine) EditTuition(ctx context.Context, p authctx.Principal, id uuid.UUID, edit func(*entity.TuitionPost)) (*entity.TuitionPost, error) {
	var updated *entity.TuitionPost
	err := e.store.Transaction(ctx, func(tx store.Store) error {
		post, err := lockOwnedPost(ctx, tx, p, id)
		if err != nil {
			return err
		}
		if post.Committed() {
			return apperror.Conflict(fmt.Sprintf("tuition post is %s and can no longer be edited", post.Status))
		}

		next := *post
		edit(&next)
		next.ID = post.ID
		next.StudentID = post.StudentID
		next.StudentName = post.StudentName
		next.StudentEmail = post.StudentEmail
		next.Status = post.Status
		next.RejectionReason = post.RejectionReason
		next.AssignedTutorID = post.AssignedTutorID
		next.AssignedAt = post.AssignedAt
		next.Applicants, next.Views, next.Saves = post.Applicants, post.Views, post.Saves
		next.CreatedAt = post.CreatedAt
		next.DeletedAt = post.DeletedAt
		next.UpdatedAt = e.now()
		if err := validateTuition(&next); err != nil {
			return err
		}

		rows, err := tx.Tuitions().UpdateDetails(ctx, &next)
		if err != nil {
			return apperror.FromStore(err, "tuition post")
		}
		if rows == 0 {
			return apperror.Conflict("tuition post changed state, please reload")
		}

		if post.Status == entity.TuitionRejected {
			if _, err := tx.Tuitions().TransitionStatus(ctx, post.ID,
				[]string{entity.TuitionRejected}, entity.TuitionPending,
				map[string]any{"rejection_reason": nil}); err != nil {
				return apperror.FromStore(err, "tuition post")
			}
			next.Status = entity.TuitionPending
			next.RejectionReason = nil
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteTuition removes the caller's post. Posts that received applications
// are only marked deleted. It reports whether the delete was soft.
func (e *Engine) DeleteTuition(ctx context.Context, p authctx.Principal, id uuid.UUID) (bool, error) {
	soft := false
	err := e.store.Transaction(ctx, func(tx store.Store) error {
		post, err := lockOwnedPost(ctx, tx, p, id)
		if err != nil {
			return err
		}
		if post.Committed() {
			return apperror.Conflict(fmt.Sprintf("tuition post is %s and cannot be deleted", post.Status))
		}

		count, err := tx.Applications().CountByPost(ctx, post.ID)
		if err != nil {
			return apperror.FromStore(err, "application")
		}
		if count == 0 {
			return apperror.FromStore(tx.Tuitions().Delete(ctx, post.ID), "tuition post")
		}

		soft = true
		rows, err := tx.Tuitions().TransitionStatus(ctx, post.ID, entity.EditableTuitionStatuses,
			entity.TuitionDeleted, map[string]any{"deleted_at": e.now()})
		if err != nil {
			return apperror.FromStore(err, "tuition post")
		}
		if rows == 0 {
			return apperror.Conflict("tuition post changed state, please reload")
		}
		return nil
	})
	return soft, err
}

// ReviewTuition is the admin decision on a pending post.
func (e *Engine) ReviewTuition(ctx context.Context, admin authctx.Principal, id uuid.UUID, approve bool, reason string) (*entity.TuitionPost, error) {
	to := entity.TuitionActive
	changes := map[string]any{"rejection_reason": nil}
	if !approve {
		if reason == "" {
			reason = "Your tuition post did not meet our guidelines."
		}
		to = entity.TuitionRejected
		changes["rejection_reason"] = reason
	}

	rows, err := e.store.Tuitions().TransitionStatus(ctx, id, []string{entity.TuitionPending}, to, changes)
	if err != nil {
		return nil, apperror.FromStore(err, "tuition post")
	}

	post, err := e.store.Tuitions().FindByID(ctx, id)
	if err != nil || post.Status == entity.TuitionDeleted {
		return nil, apperror.NotFound("tuition post not found")
	}
	if rows == 0 {
		return nil, apperror.Conflict(fmt.Sprintf("tuition post is %s, only pending posts can be reviewed", post.Status))
	}

	e.log.Info("tuition reviewed",
		zap.String("tuition_id", post.ID.String()),
		zap.String("status", post.Status),
		zap.String("admin_id", admin.AccountID.String()))

	message := fmt.Sprintf("Your tuition post %q was approved and is now visible to tutors.", post.Title)
	if !approve {
		message = fmt.Sprintf("Your tuition post %q was rejected: %s", post.Title, reason)
	}
	actor := admin.AccountID
	e.notify(ctx, entity.Notification{
		AccountID:  post.StudentID,
		ActorID:    &actor,
		EntityID:   post.ID,
		EntityType: "tuition",
		Type:       entity.NotifyTuitionReviewed,
		Message:    message,
	})
	return post, nil
}

// CompleteTuition closes an ongoing post and optionally rates the assigned
// tutor from 1 to 5.
func (e *Engine) CompleteTuition(ctx context.Context, p authctx.Principal, id uuid.UUID, rating *int) (*entity.TuitionPost, error) {
	if rating != nil && (*rating < 1 || *rating > 5) {
		return nil, apperror.Invalid("rating must be between 1 and 5")
	}

	var completed *entity.TuitionPost
	err := e.store.Transaction(ctx, func(tx store.Store) error {
		post, err := lockOwnedPost(ctx, tx, p, id)
		if err != nil {
			return err
		}
		if post.Status != entity.TuitionOngoing {
			return apperror.Conflict(fmt.Sprintf("tuition post is %s, only ongoing posts can be completed", post.Status))
		}

		rows, err := tx.Tuitions().TransitionStatus(ctx, post.ID,
			[]string{entity.TuitionOngoing}, entity.TuitionCompleted, nil)
		if err != nil {
			return apperror.FromStore(err, "tuition post")
		}
		if rows == 0 {
			return apperror.Conflict("tuition post changed state, please reload")
		}

		if rating != nil && post.AssignedTutorID != nil {
			if err := tx.Accounts().ApplyRating(ctx, *post.AssignedTutorID, *rating); err != nil {
				return apperror.FromStore(err, "tutor")
			}
		}

		post.Status = entity.TuitionCompleted
		completed = post
		return nil
	})
	if err != nil {
		return nil, err
	}
	return completed, nil
}
