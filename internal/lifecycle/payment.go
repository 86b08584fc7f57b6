package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/entity"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/store"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/apperror"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentConfirmation is a charge the payment provider reported as captured.
// StudentID is uuid.Nil when the confirmation arrives from the provider
// webhook instead of the paying student.
type PaymentConfirmation struct {
	ApplicationID  uuid.UUID
	TransactionRef string
	Amount         decimal.Decimal
	Currency       string
	StudentID      uuid.UUID
}

// Assignment is the result of a confirmed payment.
type Assignment struct {
	Payment     *entity.PaymentRecord `json:"payment"`
	Application *entity.Application   `json:"application"`
	TuitionPost *entity.TuitionPost   `json:"tuition_post"`
	Rejected    int                   `json:"rejected_applications"`
	Duplicate   bool                  `json:"duplicate"`
}

var errAlreadyRecorded = errors.New("payment already recorded")

// AssignOnPayment hires the tutor of the confirmed application. In one
// transaction holding the post row lock it approves the application, moves
// the post to ongoing, rejects every other pending application and appends
// the payment record.
//
// Repeating a confirmation with the same application and transaction
// reference returns the existing record and changes nothing.
func (e *Engine) AssignOnPayment(ctx context.Context, conf PaymentConfirmation) (*Assignment, error) {
	conf.TransactionRef = strings.TrimSpace(conf.TransactionRef)
	if conf.TransactionRef == "" || conf.ApplicationID == uuid.Nil {
		return nil, apperror.Invalid("application_id and transaction reference are required")
	}

	dup, err := e.findRecorded(ctx, e.store, conf)
	if err != nil {
		e.assignmentFailed(ctx, conf, uuid.Nil, err)
		return nil, err
	}
	if dup != nil {
		metrics.ObservePayment(metrics.OutcomeDuplicate)
		return dup, nil
	}

	var (
		result  Assignment
		postID  uuid.UUID
		pending []entity.Notification
	)
	err = e.store.Transaction(ctx, func(tx store.Store) error {
		app, err := tx.Applications().FindByID(ctx, conf.ApplicationID)
		if err != nil {
			return apperror.FromStore(err, "application")
		}
		post, err := tx.Tuitions().FindByIDForUpdate(ctx, app.TuitionPostID)
		if err != nil {
			return apperror.FromStore(err, "tuition post")
		}
		postID = post.ID
		if conf.StudentID != uuid.Nil && post.StudentID != conf.StudentID {
			return apperror.Forbidden(apperror.CodeForbidden, "you do not own this tuition post")
		}

		// A concurrent confirmation may have committed while we waited on the lock.
		if dup, err := e.findRecorded(ctx, tx, conf); err != nil {
			return err
		} else if dup != nil {
			result = *dup
			return errAlreadyRecorded
		}

		if app.Status != entity.ApplicationPending {
			return notPending(app)
		}
		if post.Status != entity.TuitionActive {
			return apperror.Conflict(fmt.Sprintf("tuition post is %s and cannot be assigned", post.Status))
		}
		if !conf.Amount.IsPositive() || !conf.Amount.Equal(app.ExpectedSalary) {
			return apperror.Conflict(fmt.Sprintf("charged amount %s does not match expected salary %s",
				conf.Amount.StringFixed(2), app.ExpectedSalary.StringFixed(2)))
		}
		if !strings.EqualFold(conf.Currency, post.Currency) {
			return apperror.Conflict(fmt.Sprintf("charged currency %q does not match tuition currency %q",
				conf.Currency, post.Currency))
		}

		now := e.now()
		rows, err := tx.Applications().TransitionStatus(ctx, app.ID, entity.ApplicationApproved, now)
		if err != nil {
			return apperror.FromStore(err, "application")
		}
		if rows == 0 {
			return apperror.Conflict("application is no longer pending")
		}

		rows, err = tx.Tuitions().TransitionStatus(ctx, post.ID, []string{entity.TuitionActive}, entity.TuitionOngoing,
			map[string]any{"assigned_tutor_id": app.TutorID, "assigned_at": now})
		if err != nil {
			return apperror.FromStore(err, "tuition post")
		}
		if rows == 0 {
			return apperror.Conflict("tuition post is no longer open for assignment")
		}

		rejected, err := tx.Applications().RejectPendingSiblings(ctx, post.ID, app.ID, now)
		if err != nil {
			return apperror.FromStore(err, "application")
		}
		if err := tx.Tuitions().AdjustApplicants(ctx, post.ID, -len(rejected)); err != nil {
			return apperror.FromStore(err, "tuition post")
		}

		record := &entity.PaymentRecord{
			ApplicationID:  app.ID,
			TuitionPostID:  post.ID,
			StudentID:      post.StudentID,
			TutorID:        app.TutorID,
			Amount:         conf.Amount,
			Currency:       strings.ToLower(post.Currency),
			Status:         entity.PaymentCompleted,
			TransactionRef: conf.TransactionRef,
		}
		if err := tx.Payments().Create(ctx, record); err != nil {
			return apperror.FromStore(err, "payment")
		}

		app.Status = entity.ApplicationApproved
		app.DecidedAt = &now
		post.Status = entity.TuitionOngoing
		post.AssignedTutorID = &app.TutorID
		post.AssignedAt = &now
		post.Applicants -= len(rejected)

		result = Assignment{Payment: record, Application: app, TuitionPost: post, Rejected: len(rejected)}
		pending = assignmentNotifications(post, app, rejected)
		return nil
	})

	switch {
	case errors.Is(err, errAlreadyRecorded):
		metrics.ObservePayment(metrics.OutcomeDuplicate)
		return &result, nil
	case err != nil:
		e.assignmentFailed(ctx, conf, postID, err)
		return nil, err
	}

	for _, n := range pending {
		e.notify(ctx, n)
	}

	metrics.ObservePayment(metrics.OutcomeAssigned)
	e.log.Info("tutor assigned",
		zap.String("application_id", result.Application.ID.String()),
		zap.String("tuition_id", result.TuitionPost.ID.String()),
		zap.String("tutor_id", result.Application.TutorID.String()),
		zap.String("transaction_ref", conf.TransactionRef),
		zap.Int("rejected", result.Rejected))
	return &result, nil
}

// findRecorded looks the confirmation up by its idempotency key. It returns
// the prior assignment for a duplicate, or a Conflict when either half of the
// key was already used with a different partner.
func (e *Engine) findRecorded(ctx context.Context, st store.Store, conf PaymentConfirmation) (*Assignment, error) {
	record, err := st.Payments().FindByTransactionRef(ctx, conf.TransactionRef)
	switch {
	case err == nil:
		if record.ApplicationID != conf.ApplicationID {
			return nil, apperror.Conflict("transaction reference was already used for another application")
		}
		if conf.StudentID != uuid.Nil && record.StudentID != conf.StudentID {
			return nil, apperror.Forbidden(apperror.CodeForbidden, "you do not own this payment")
		}
		return e.loadAssignment(ctx, st, record)
	case !store.IsNotFound(err):
		return nil, apperror.FromStore(err, "payment")
	}

	record, err = st.Payments().FindByApplicationID(ctx, conf.ApplicationID)
	switch {
	case err == nil:
		return nil, apperror.Conflict("application was already paid with a different transaction")
	case !store.IsNotFound(err):
		return nil, apperror.FromStore(err, "payment")
	}
	return nil, nil
}

func (e *Engine) loadAssignment(ctx context.Context, st store.Store, record *entity.PaymentRecord) (*Assignment, error) {
	app, err := st.Applications().FindByID(ctx, record.ApplicationID)
	if err != nil {
		return nil, apperror.FromStore(err, "application")
	}
	post, err := st.Tuitions().FindByID(ctx, record.TuitionPostID)
	if err != nil {
		return nil, apperror.FromStore(err, "tuition post")
	}
	return &Assignment{Payment: record, Application: app, TuitionPost: post, Duplicate: true}, nil
}

// assignmentFailed runs when money was captured but nobody got assigned.
// Refusals that leave the charge assignable by its owner are only logged.
func (e *Engine) assignmentFailed(ctx context.Context, conf PaymentConfirmation, postID uuid.UUID, err error) {
	metrics.ObservePayment(metrics.OutcomeFailed)

	if postID == uuid.Nil {
		if app, lookupErr := e.store.Applications().FindByID(ctx, conf.ApplicationID); lookupErr == nil {
			postID = app.TuitionPostID
		}
	}

	fields := map[string]string{
		"application_id":  conf.ApplicationID.String(),
		"tuition_id":      postID.String(),
		"transaction_ref": conf.TransactionRef,
		"amount":          conf.Amount.StringFixed(2),
	}
	logFields := []zap.Field{
		zap.Error(err),
		zap.String("application_id", fields["application_id"]),
		zap.String("tuition_id", fields["tuition_id"]),
		zap.String("transaction_ref", fields["transaction_ref"]),
		zap.String("amount", fields["amount"]),
	}
	if !needsReconciliation(err) {
		e.log.Warn("payment confirmation refused", logFields...)
		return
	}
	e.log.Error("payment captured but assignment failed", logFields...)
	e.alerter.Alert(ctx, err, fields)
}

// needsReconciliation reports whether a failed assignment may leave a
// captured charge without a hire.
func needsReconciliation(err error) bool {
	return !errors.Is(err, apperror.ErrForbidden) && !errors.Is(err, apperror.ErrInvalidInput)
}

func assignmentNotifications(post *entity.TuitionPost, winner *entity.Application, rejected []entity.Application) []entity.Notification {
	actor := post.StudentID
	pending := []entity.Notification{{
		AccountID:  winner.TutorID,
		ActorID:    &actor,
		EntityID:   post.ID,
		EntityType: "tuition",
		Type:       entity.NotifyAssigned,
		Message:    fmt.Sprintf("You were hired for %q.", post.Title),
	}}
	for _, app := range rejected {
		pending = append(pending, entity.Notification{
			AccountID:  app.TutorID,
			ActorID:    &actor,
			EntityID:   app.ID,
			EntityType: "application",
			Type:       entity.NotifyNotSelected,
			Message:    fmt.Sprintf("Another tutor was selected for %q.", post.Title),
		})
	}
	return pending
}
