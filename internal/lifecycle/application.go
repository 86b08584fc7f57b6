package lifecycle

import (
	"context"
	"fmt"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/authctx"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/entity"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/store"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/apperror"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// Decision is the outcome of a student's approve or reject action. An
// approval is provisional: the application stays pending until the charge
// for Amount is confirmed.
type Decision struct {
	Application     *entity.Application `json:"application"`
	RequiresPayment bool                `json:"requires_payment"`
	Amount          decimal.Decimal     `json:"amount,omitempty"`
	Currency        string              `json:"currency,omitempty"`
}

// Quote is what the student has to pay to hire the tutor of an application.
type Quote struct {
	ApplicationID uuid.UUID       `json:"application_id"`
	TuitionPostID uuid.UUID       `json:"tuition_post_id"`
	StudentID     uuid.UUID       `json:"student_id"`
	TutorID       uuid.UUID       `json:"tutor_id"`
	TutorName     string          `json:"tutor_name"`
	Title         string          `json:"title"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
}

// Apply files the caller's application against an active post and bumps the
// post's applicant counter in the same transaction.
func (e *Engine) Apply(ctx context.Context, p authctx.Principal, app *entity.Application) (*entity.Application, error) {
	if app.ExpectedSalary.IsNegative() {
		return nil, apperror.Invalid("expected_salary cannot be negative")
	}

	tutor, err := e.store.Accounts().FindByID(ctx, p.AccountID)
	if err != nil {
		return nil, apperror.FromStore(err, "account")
	}
	if tutor.Status != entity.AccountActive {
		return nil, apperror.Forbidden(apperror.CodeForbidden, "tutor account is awaiting activation")
	}

	var post *entity.TuitionPost
	err = e.store.Transaction(ctx, func(tx store.Store) error {
		locked, err := tx.Tuitions().FindByIDForUpdate(ctx, app.TuitionPostID)
		if err != nil {
			return apperror.FromStore(err, "tuition post")
		}
		post = locked
		if post.Status == entity.TuitionDeleted {
			return apperror.NotFound("tuition post not found")
		}
		if post.Status != entity.TuitionActive {
			return apperror.Conflict(fmt.Sprintf("tuition post is %s and not accepting applications", post.Status))
		}
		if post.ApplicationDeadline != nil && e.now().After(*post.ApplicationDeadline) {
			return apperror.Conflict("application deadline has passed")
		}

		if _, err := tx.Applications().FindByPostAndTutor(ctx, post.ID, tutor.ID); err == nil {
			return apperror.Conflict("you have already applied to this tuition")
		} else if !store.IsNotFound(err) {
			return apperror.FromStore(err, "application")
		}

		app.ID = uuid.Nil
		app.TutorID = tutor.ID
		app.TutorName = tutor.Name
		app.TutorEmail = tutor.Email
		app.TutorPhoto = tutor.PhotoURL
		app.Status = entity.ApplicationPending
		app.DecidedAt = nil
		app.TuitionPost = nil
		if err := tx.Applications().Create(ctx, app); err != nil {
			return apperror.FromStore(err, "application")
		}
		return apperror.FromStore(tx.Tuitions().AdjustApplicants(ctx, post.ID, 1), "tuition post")
	})
	if err != nil {
		return nil, err
	}

	actor := tutor.ID
	e.notify(ctx, entity.Notification{
		AccountID:  post.StudentID,
		ActorID:    &actor,
		EntityID:   post.ID,
		EntityType: "tuition",
		Type:       entity.NotifyApplicationReceived,
		Message:    fmt.Sprintf("%s applied to your tuition %q.", tutor.Name, post.Title),
	})
	return app, nil
}

func ownedApplication(ctx context.Context, st store.Store, p authctx.Principal, id uuid.UUID) (*entity.Application, error) {
	app, err := st.Applications().FindByID(ctx, id)
	if err != nil {
		return nil, apperror.FromStore(err, "application")
	}
	if app.TutorID != p.AccountID {
		return nil, apperror.Forbidden(apperror.CodeForbidden, "you do not own this application")
	}
	return app, nil
}

func notPending(app *entity.Application) error {
	return apperror.Conflict(fmt.Sprintf("application is %s and can no longer be changed", app.Status))
}

// EditApplication lets the tutor revise a pending application.
func (e *Engine) EditApplication(ctx context.Context, p authctx.Principal, id uuid.UUID, edit func(*entity.Application)) (*entity.Application, error) {
	app, err := ownedApplication(ctx, e.store, p, id)
	if err != nil {
		return nil, err
	}
	if app.Status != entity.ApplicationPending {
		return nil, notPending(app)
	}

	next := *app
	edit(&next)
	next.ID = app.ID
	next.TuitionPostID = app.TuitionPostID
	next.TutorID = app.TutorID
	next.Status = app.Status
	next.UpdatedAt = e.now()
	if next.ExpectedSalary.IsNegative() {
		return nil, apperror.Invalid("expected_salary cannot be negative")
	}

	rows, err := e.store.Applications().UpdateDetails(ctx, &next)
	if err != nil {
		return nil, apperror.FromStore(err, "application")
	}
	if rows == 0 {
		return nil, apperror.Conflict("application is no longer pending")
	}
	return &next, nil
}

// WithdrawApplication deletes a pending application and releases its slot
// in the applicant counter.
func (e *Engine) WithdrawApplication(ctx context.Context, p authctx.Principal, id uuid.UUID) error {
	return e.store.Transaction(ctx, func(tx store.Store) error {
		app, err := ownedApplication(ctx, tx, p, id)
		if err != nil {
			return err
		}
		if app.Status != entity.ApplicationPending {
			return notPending(app)
		}

		if _, err := tx.Tuitions().FindByIDForUpdate(ctx, app.TuitionPostID); err != nil {
			return apperror.FromStore(err, "tuition post")
		}
		rows, err := tx.Applications().DeleteIfPending(ctx, app.ID)
		if err != nil {
			return apperror.FromStore(err, "application")
		}
		if rows == 0 {
			return apperror.Conflict("application is no longer pending")
		}
		return apperror.FromStore(tx.Tuitions().AdjustApplicants(ctx, app.TuitionPostID, -1), "tuition post")
	})
}

// DecideApplication handles the owning student's approve or reject action.
func (e *Engine) DecideApplication(ctx context.Context, p authctx.Principal, id uuid.UUID, action string) (*Decision, error) {
	switch action {
	case ActionApprove:
		quote, app, err := e.quote(ctx, p, id)
		if err != nil {
			return nil, err
		}
		return &Decision{Application: app, RequiresPayment: true, Amount: quote.Amount, Currency: quote.Currency}, nil
	case ActionReject:
		return e.reject(ctx, p, id)
	}
	return nil, apperror.Invalid("action must be approve or reject")
}

// QuotePayment checks the caller may hire the tutor of application id and
// returns the amount to charge.
func (e *Engine) QuotePayment(ctx context.Context, p authctx.Principal, id uuid.UUID) (*Quote, error) {
	quote, _, err := e.quote(ctx, p, id)
	return quote, err
}

func (e *Engine) quote(ctx context.Context, p authctx.Principal, id uuid.UUID) (*Quote, *entity.Application, error) {
	app, err := e.store.Applications().FindByID(ctx, id)
	if err != nil {
		return nil, nil, apperror.FromStore(err, "application")
	}
	post, err := e.store.Tuitions().FindByID(ctx, app.TuitionPostID)
	if err != nil {
		return nil, nil, apperror.FromStore(err, "tuition post")
	}
	if post.Status == entity.TuitionDeleted {
		return nil, nil, apperror.NotFound("tuition post not found")
	}
	if post.StudentID != p.AccountID {
		return nil, nil, apperror.Forbidden(apperror.CodeForbidden, "you do not own this tuition post")
	}
	if app.Status != entity.ApplicationPending {
		return nil, nil, notPending(app)
	}
	if post.Status != entity.TuitionActive {
		return nil, nil, apperror.Conflict(fmt.Sprintf("tuition post is %s and cannot be assigned", post.Status))
	}

	return &Quote{
		ApplicationID: app.ID,
		TuitionPostID: post.ID,
		StudentID:     post.StudentID,
		TutorID:       app.TutorID,
		TutorName:     app.TutorName,
		Title:         post.Title,
		Amount:        app.ExpectedSalary,
		Currency:      post.Currency,
	}, app, nil
}

func (e *Engine) reject(ctx context.Context, p authctx.Principal, id uuid.UUID) (*Decision, error) {
	var rejected *entity.Application
	var post *entity.TuitionPost
	err := e.store.Transaction(ctx, func(tx store.Store) error {
		app, err := tx.Applications().FindByID(ctx, id)
		if err != nil {
			return apperror.FromStore(err, "application")
		}
		post, err = lockOwnedPost(ctx, tx, p, app.TuitionPostID)
		if err != nil {
			return err
		}
		if app.Status != entity.ApplicationPending {
			return notPending(app)
		}

		now := e.now()
		rows, err := tx.Applications().TransitionStatus(ctx, app.ID, entity.ApplicationRejected, now)
		if err != nil {
			return apperror.FromStore(err, "application")
		}
		if rows == 0 {
			return apperror.Conflict("application is no longer pending")
		}
		if err := tx.Tuitions().AdjustApplicants(ctx, post.ID, -1); err != nil {
			return apperror.FromStore(err, "tuition post")
		}

		app.Status = entity.ApplicationRejected
		app.DecidedAt = &now
		rejected = app
		return nil
	})
	if err != nil {
		return nil, err
	}

	actor := p.AccountID
	e.notify(ctx, entity.Notification{
		AccountID:  rejected.TutorID,
		ActorID:    &actor,
		EntityID:   rejected.ID,
		EntityType: "application",
		Type:       entity.NotifyApplicationRejected,
		Message:    fmt.Sprintf("Your application for %q was declined.", post.Title),
	})
	return &Decision{Application: rejected}, nil
}
