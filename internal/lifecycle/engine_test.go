package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/authctx"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/entity"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/store/memstore"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/apperror"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingAlerter struct {
	mu     sync.Mutex
	alerts []map[string]string
}

func (a *recordingAlerter) Alert(_ context.Context, _ error, fields map[string]string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, fields)
}

func (a *recordingAlerter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.alerts)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []entity.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, item entity.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, item)
}

func (n *recordingNotifier) ofType(t string) []entity.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []entity.Notification
	for _, item := range n.sent {
		if item.Type == t {
			out = append(out, item)
		}
	}
	return out
}

type fixture struct {
	ctx      context.Context
	store    *memstore.Store
	engine   *Engine
	alerter  *recordingAlerter
	notifier *recordingNotifier
	admin    authctx.Principal
	student  authctx.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	f := &fixture{
		ctx:      context.Background(),
		store:    st,
		alerter:  &recordingAlerter{},
		notifier: &recordingNotifier{},
	}
	f.engine = New(st, zap.NewNop(), f.alerter, WithNotifier(f.notifier))
	f.admin = f.account(t, entity.RoleAdmin, "admin@tutorate.test")
	f.student = f.account(t, entity.RoleStudent, "student@tutorate.test")
	return f
}

func (f *fixture) account(t *testing.T, role, email string) authctx.Principal {
	t.Helper()
	acc := &entity.Account{Email: email, Name: email, Role: role, Status: entity.AccountActive}
	require.NoError(t, f.store.Accounts().Create(f.ctx, acc))
	return authctx.Principal{Email: email, Role: role, AccountID: acc.ID, Status: acc.Status}
}

func (f *fixture) tutor(t *testing.T, n int) authctx.Principal {
	return f.account(t, entity.RoleTutor, fmt.Sprintf("tutor%d@tutorate.test", n))
}

func (f *fixture) activePost(t *testing.T) *entity.TuitionPost {
	t.Helper()
	post, err := f.engine.CreateTuition(f.ctx, f.student, &entity.TuitionPost{
		Title:      "Physics for grade 10",
		Subject:    "Physics",
		ClassLevel: "10",
		BudgetMin:  decimal.NewFromInt(100),
		BudgetMax:  decimal.NewFromInt(200),
		Currency:   "usd",
	})
	require.NoError(t, err)
	require.Equal(t, entity.TuitionPending, post.Status)

	post, err = f.engine.ReviewTuition(f.ctx, f.admin, post.ID, true, "")
	require.NoError(t, err)
	require.Equal(t, entity.TuitionActive, post.Status)
	return post
}

func (f *fixture) apply(t *testing.T, tutor authctx.Principal, postID uuid.UUID, salary int64) *entity.Application {
	t.Helper()
	app, err := f.engine.Apply(f.ctx, tutor, &entity.Application{
		TuitionPostID:  postID,
		Qualifications: "BSc",
		ExpectedSalary: decimal.NewFromInt(salary),
	})
	require.NoError(t, err)
	return app
}

func (f *fixture) post(t *testing.T, id uuid.UUID) entity.TuitionPost {
	t.Helper()
	p, ok := f.store.Tuition(id)
	require.True(t, ok)
	return p
}

func (f *fixture) application(t *testing.T, id uuid.UUID) entity.Application {
	t.Helper()
	a, ok := f.store.Application(id)
	require.True(t, ok)
	return a
}

// paid is the confirmation the post owner's successful charge produces.
func (f *fixture) paid(app *entity.Application, ref string) PaymentConfirmation {
	return PaymentConfirmation{
		ApplicationID:  app.ID,
		TransactionRef: ref,
		Amount:         app.ExpectedSalary,
		Currency:       "usd",
		StudentID:      f.student.AccountID,
	}
}

func assertKind(t *testing.T, err error, kind error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, kind), "expected %v, got %v", kind, err)
}

func TestScenarioA_ApplyApprovePay(t *testing.T) {
	f := newFixture(t)
	tutor := f.tutor(t, 1)
	post := f.activePost(t)

	app := f.apply(t, tutor, post.ID, 150)
	assert.Equal(t, entity.ApplicationPending, app.Status)
	assert.Equal(t, 1, f.post(t, post.ID).Applicants)
	assert.Len(t, f.notifier.ofType(entity.NotifyApplicationReceived), 1)

	decision, err := f.engine.DecideApplication(f.ctx, f.student, app.ID, ActionApprove)
	require.NoError(t, err)
	assert.True(t, decision.RequiresPayment)
	assert.True(t, decision.Amount.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, entity.ApplicationPending, f.application(t, app.ID).Status)

	result, err := f.engine.AssignOnPayment(f.ctx, PaymentConfirmation{
		ApplicationID:  app.ID,
		TransactionRef: "pi_123",
		Amount:         decimal.NewFromInt(150),
		Currency:       "usd",
		StudentID:      f.student.AccountID,
	})
	require.NoError(t, err)
	assert.False(t, result.Duplicate)

	stored := f.post(t, post.ID)
	assert.Equal(t, entity.TuitionOngoing, stored.Status)
	require.NotNil(t, stored.AssignedTutorID)
	assert.Equal(t, tutor.AccountID, *stored.AssignedTutorID)
	assert.Equal(t, entity.ApplicationApproved, f.application(t, app.ID).Status)
	assert.Equal(t, 1, f.store.PaymentCount())
	assert.True(t, result.Payment.Amount.Equal(app.ExpectedSalary))
	assert.Equal(t, f.store.CountedApplications(post.ID), stored.Applicants)
	assert.Len(t, f.notifier.ofType(entity.NotifyAssigned), 1)
}

func TestScenarioB_RejectThenPay(t *testing.T) {
	f := newFixture(t)
	t1, t2 := f.tutor(t, 1), f.tutor(t, 2)
	post := f.activePost(t)

	a1 := f.apply(t, t1, post.ID, 120)
	a2 := f.apply(t, t2, post.ID, 180)
	assert.Equal(t, 2, f.post(t, post.ID).Applicants)

	decision, err := f.engine.DecideApplication(f.ctx, f.student, a1.ID, ActionReject)
	require.NoError(t, err)
	assert.False(t, decision.RequiresPayment)
	assert.Equal(t, 1, f.post(t, post.ID).Applicants)
	rejectedAt := f.application(t, a1.ID).DecidedAt
	require.NotNil(t, rejectedAt)

	result, err := f.engine.AssignOnPayment(f.ctx, f.paid(a2, "pi_b"))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Rejected)
	assert.Equal(t, entity.ApplicationApproved, f.application(t, a2.ID).Status)
	assert.Equal(t, entity.ApplicationRejected, f.application(t, a1.ID).Status)
	assert.Equal(t, *rejectedAt, *f.application(t, a1.ID).DecidedAt)
	assert.Equal(t, entity.TuitionOngoing, f.post(t, post.ID).Status)
	assert.Equal(t, 1, f.post(t, post.ID).Applicants)
	assert.Empty(t, f.notifier.ofType(entity.NotifyNotSelected))
}

func TestScenarioC_EditAfterApprovalConflicts(t *testing.T) {
	f := newFixture(t)
	tutor := f.tutor(t, 1)
	post := f.activePost(t)
	app := f.apply(t, tutor, post.ID, 100)

	_, err := f.engine.AssignOnPayment(f.ctx, f.paid(app, "pi_c"))
	require.NoError(t, err)

	_, err = f.engine.EditApplication(f.ctx, tutor, app.ID, func(a *entity.Application) {
		a.CoverLetter = "changed"
	})
	assertKind(t, err, apperror.ErrConflict)

	err = f.engine.WithdrawApplication(f.ctx, tutor, app.ID)
	assertKind(t, err, apperror.ErrConflict)
}

func TestScenarioD_DeleteCommittedPostConflicts(t *testing.T) {
	f := newFixture(t)
	tutor := f.tutor(t, 1)
	post := f.activePost(t)
	app := f.apply(t, tutor, post.ID, 100)

	_, err := f.engine.AssignOnPayment(f.ctx, f.paid(app, "pi_d"))
	require.NoError(t, err)

	_, err = f.engine.DeleteTuition(f.ctx, f.student, post.ID)
	assertKind(t, err, apperror.ErrConflict)
	assert.Equal(t, apperror.CodeConflict, apperror.CodeOf(err))

	_, err = f.engine.EditTuition(f.ctx, f.student, post.ID, func(p *entity.TuitionPost) { p.Title = "new" })
	assertKind(t, err, apperror.ErrConflict)
}

func TestAssignOnPayment_Idempotent(t *testing.T) {
	f := newFixture(t)
	t1, t2 := f.tutor(t, 1), f.tutor(t, 2)
	post := f.activePost(t)
	a1 := f.apply(t, t1, post.ID, 100)
	a2 := f.apply(t, t2, post.ID, 100)

	conf := f.paid(a1, "pi_same")
	first, err := f.engine.AssignOnPayment(f.ctx, conf)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Rejected)

	postAfterFirst := f.post(t, post.ID)
	a2AfterFirst := f.application(t, a2.ID)

	second, err := f.engine.AssignOnPayment(f.ctx, conf)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Payment.ID, second.Payment.ID)
	assert.Equal(t, 1, f.store.PaymentCount())
	assert.Equal(t, postAfterFirst, f.post(t, post.ID))
	assert.Equal(t, a2AfterFirst, f.application(t, a2.ID))
	assert.Len(t, f.notifier.ofType(entity.NotifyNotSelected), 1)
	assert.Zero(t, f.alerter.count())
}

func TestAssignOnPayment_ReusedReferenceConflicts(t *testing.T) {
	f := newFixture(t)
	post := f.activePost(t)
	a1 := f.apply(t, f.tutor(t, 1), post.ID, 100)
	a2 := f.apply(t, f.tutor(t, 2), post.ID, 100)

	_, err := f.engine.AssignOnPayment(f.ctx, f.paid(a1, "pi_x"))
	require.NoError(t, err)

	_, err = f.engine.AssignOnPayment(f.ctx, f.paid(a2, "pi_x"))
	assertKind(t, err, apperror.ErrConflict)
	assert.Equal(t, 1, f.alerter.count())
}

func TestAssignOnPayment_SecondChargeForAssignedPostAlerts(t *testing.T) {
	f := newFixture(t)
	post := f.activePost(t)
	a1 := f.apply(t, f.tutor(t, 1), post.ID, 100)
	a2 := f.apply(t, f.tutor(t, 2), post.ID, 100)

	_, err := f.engine.AssignOnPayment(f.ctx, f.paid(a1, "pi_1"))
	require.NoError(t, err)

	_, err = f.engine.AssignOnPayment(f.ctx, f.paid(a2, "pi_2"))
	assertKind(t, err, apperror.ErrConflict)
	require.Equal(t, 1, f.alerter.count())
	assert.Equal(t, "pi_2", f.alerter.alerts[0]["transaction_ref"])
	assert.Equal(t, post.ID.String(), f.alerter.alerts[0]["tuition_id"])
	assert.Equal(t, 1, f.store.PaymentCount())
}

func TestAssignOnPayment_RollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	post := f.activePost(t)
	a1 := f.apply(t, f.tutor(t, 1), post.ID, 100)
	a2 := f.apply(t, f.tutor(t, 2), post.ID, 100)

	f.store.FailNext("payments.Create", errors.New("disk full"))
	_, err := f.engine.AssignOnPayment(f.ctx, f.paid(a1, "pi_fail"))
	assertKind(t, err, apperror.ErrInternal)

	assert.Equal(t, entity.ApplicationPending, f.application(t, a1.ID).Status)
	assert.Equal(t, entity.ApplicationPending, f.application(t, a2.ID).Status)
	stored := f.post(t, post.ID)
	assert.Equal(t, entity.TuitionActive, stored.Status)
	assert.Nil(t, stored.AssignedTutorID)
	assert.Equal(t, 2, stored.Applicants)
	assert.Zero(t, f.store.PaymentCount())

	require.Equal(t, 1, f.alerter.count())
	assert.Equal(t, a1.ID.String(), f.alerter.alerts[0]["application_id"])
	assert.Equal(t, "pi_fail", f.alerter.alerts[0]["transaction_ref"])

	_, err = f.engine.AssignOnPayment(f.ctx, f.paid(a1, "pi_fail"))
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.PaymentCount())
}

func TestAssignOnPayment_WrongStudentForbidden(t *testing.T) {
	f := newFixture(t)
	post := f.activePost(t)
	app := f.apply(t, f.tutor(t, 1), post.ID, 100)
	other := f.account(t, entity.RoleStudent, "other@tutorate.test")

	conf := f.paid(app, "pi_w")
	conf.StudentID = other.AccountID
	_, err := f.engine.AssignOnPayment(f.ctx, conf)
	assertKind(t, err, apperror.ErrForbidden)
	assert.Zero(t, f.store.PaymentCount())
	assert.Zero(t, f.alerter.count())
}

func TestAssignOnPayment_AmountMismatch(t *testing.T) {
	f := newFixture(t)
	post := f.activePost(t)
	app := f.apply(t, f.tutor(t, 1), post.ID, 100)

	conf := f.paid(app, "pi_m")
	conf.Amount = decimal.NewFromInt(99)
	_, err := f.engine.AssignOnPayment(f.ctx, conf)
	assertKind(t, err, apperror.ErrConflict)
	assert.Equal(t, entity.ApplicationPending, f.application(t, app.ID).Status)
	assert.Equal(t, 1, f.alerter.count())
}

func TestAssignOnPayment_ZeroAmountConflicts(t *testing.T) {
	f := newFixture(t)
	post := f.activePost(t)
	app := f.apply(t, f.tutor(t, 1), post.ID, 100)

	conf := f.paid(app, "pi_zero")
	conf.Amount = decimal.Zero
	_, err := f.engine.AssignOnPayment(f.ctx, conf)
	assertKind(t, err, apperror.ErrConflict)

	assert.Equal(t, entity.ApplicationPending, f.application(t, app.ID).Status)
	assert.Equal(t, entity.TuitionActive, f.post(t, post.ID).Status)
	assert.Zero(t, f.store.PaymentCount())
	require.Equal(t, 1, f.alerter.count())
	assert.Equal(t, "0.00", f.alerter.alerts[0]["amount"])
}

func TestAssignOnPayment_CurrencyMismatch(t *testing.T) {
	f := newFixture(t)
	post := f.activePost(t)
	app := f.apply(t, f.tutor(t, 1), post.ID, 150)

	conf := f.paid(app, "pi_jpy")
	conf.Currency = "jpy"
	_, err := f.engine.AssignOnPayment(f.ctx, conf)
	assertKind(t, err, apperror.ErrConflict)
	assert.Equal(t, entity.ApplicationPending, f.application(t, app.ID).Status)
	assert.Zero(t, f.store.PaymentCount())
	assert.Equal(t, 1, f.alerter.count())

	conf = f.paid(app, "pi_usd")
	conf.Currency = "USD"
	result, err := f.engine.AssignOnPayment(f.ctx, conf)
	require.NoError(t, err)
	assert.Equal(t, "usd", result.Payment.Currency)
	assert.True(t, result.Payment.Amount.Equal(decimal.NewFromInt(150)))
}

func TestAssignOnPayment_ConcurrentConfirmationsOneWinner(t *testing.T) {
	f := newFixture(t)
	post := f.activePost(t)

	const n = 8
	apps := make([]*entity.Application, n)
	for i := range apps {
		apps[i] = f.apply(t, f.tutor(t, i), post.ID, 100)
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range apps {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.engine.AssignOnPayment(f.ctx, f.paid(apps[i], fmt.Sprintf("pi_%d", i)))
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assertKind(t, err, apperror.ErrConflict)
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, 1, f.store.PaymentCount())

	approved := 0
	for _, app := range apps {
		switch f.application(t, app.ID).Status {
		case entity.ApplicationApproved:
			approved++
		case entity.ApplicationRejected:
		default:
			t.Fatalf("application %s left pending", app.ID)
		}
	}
	assert.Equal(t, 1, approved)
	assert.Equal(t, f.store.CountedApplications(post.ID), f.post(t, post.ID).Applicants)
}

func TestApplicantsCounterUnderConcurrency(t *testing.T) {
	f := newFixture(t)
	post := f.activePost(t)

	const n = 20
	tutors := make([]authctx.Principal, n)
	for i := range tutors {
		tutors[i] = f.tutor(t, i)
	}

	var wg sync.WaitGroup
	for i := range tutors {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			app, err := f.engine.Apply(f.ctx, tutors[i], &entity.Application{
				TuitionPostID: post.ID, ExpectedSalary: decimal.NewFromInt(100),
			})
			if err != nil {
				t.Errorf("apply: %v", err)
				return
			}
			switch i % 3 {
			case 0:
				if err := f.engine.WithdrawApplication(f.ctx, tutors[i], app.ID); err != nil {
					t.Errorf("withdraw: %v", err)
				}
			case 1:
				if _, err := f.engine.DecideApplication(f.ctx, f.student, app.ID, ActionReject); err != nil {
					t.Errorf("reject: %v", err)
				}
			}
		}(i)
	}
	wg.Wait()

	stored := f.post(t, post.ID)
	assert.Equal(t, f.store.CountedApplications(post.ID), stored.Applicants)
	assert.Equal(t, n/3, stored.Applicants)
}

func TestApply_Rules(t *testing.T) {
	f := newFixture(t)
	tutor := f.tutor(t, 1)
	post := f.activePost(t)
	f.apply(t, tutor, post.ID, 100)

	t.Run("duplicate", func(t *testing.T) {
		_, err := f.engine.Apply(f.ctx, tutor, &entity.Application{TuitionPostID: post.ID})
		assertKind(t, err, apperror.ErrConflict)
		assert.Equal(t, 1, f.post(t, post.ID).Applicants)
	})

	t.Run("pending post", func(t *testing.T) {
		pending, err := f.engine.CreateTuition(f.ctx, f.student, &entity.TuitionPost{
			Title: "Maths", Subject: "Maths", ClassLevel: "9",
			BudgetMin: decimal.NewFromInt(1), BudgetMax: decimal.NewFromInt(2),
		})
		require.NoError(t, err)
		_, err = f.engine.Apply(f.ctx, tutor, &entity.Application{TuitionPostID: pending.ID})
		assertKind(t, err, apperror.ErrConflict)
	})

	t.Run("missing post", func(t *testing.T) {
		_, err := f.engine.Apply(f.ctx, tutor, &entity.Application{TuitionPostID: uuid.New()})
		assertKind(t, err, apperror.ErrNotFound)
	})

	t.Run("deadline passed", func(t *testing.T) {
		other := f.activePost(t)
		past := time.Now().Add(-time.Hour)
		_, err := f.engine.EditTuition(f.ctx, f.student, other.ID, func(p *entity.TuitionPost) {
			p.ApplicationDeadline = &past
		})
		require.NoError(t, err)
		_, err = f.engine.Apply(f.ctx, tutor, &entity.Application{TuitionPostID: other.ID})
		assertKind(t, err, apperror.ErrConflict)
	})

	t.Run("inactive tutor", func(t *testing.T) {
		waiting := f.tutor(t, 99)
		require.NoError(t, f.store.Accounts().UpdateStatus(f.ctx, waiting.AccountID, entity.AccountPending))
		_, err := f.engine.Apply(f.ctx, waiting, &entity.Application{TuitionPostID: post.ID})
		assertKind(t, err, apperror.ErrForbidden)
	})
}

func TestOwnershipChecks(t *testing.T) {
	f := newFixture(t)
	tutor := f.tutor(t, 1)
	intruder := f.tutor(t, 2)
	otherStudent := f.account(t, entity.RoleStudent, "other@tutorate.test")
	post := f.activePost(t)
	app := f.apply(t, tutor, post.ID, 100)

	_, err := f.engine.EditApplication(f.ctx, intruder, app.ID, func(a *entity.Application) {})
	assertKind(t, err, apperror.ErrForbidden)

	err = f.engine.WithdrawApplication(f.ctx, intruder, app.ID)
	assertKind(t, err, apperror.ErrForbidden)

	_, err = f.engine.DecideApplication(f.ctx, otherStudent, app.ID, ActionReject)
	assertKind(t, err, apperror.ErrForbidden)

	_, err = f.engine.DecideApplication(f.ctx, otherStudent, app.ID, ActionApprove)
	assertKind(t, err, apperror.ErrForbidden)

	_, err = f.engine.EditTuition(f.ctx, otherStudent, post.ID, func(p *entity.TuitionPost) {})
	assertKind(t, err, apperror.ErrForbidden)

	_, err = f.engine.DeleteTuition(f.ctx, otherStudent, post.ID)
	assertKind(t, err, apperror.ErrForbidden)

	_, err = f.engine.DecideApplication(f.ctx, f.student, app.ID, "maybe")
	assertKind(t, err, apperror.ErrInvalidInput)

	assert.Equal(t, 1, f.post(t, post.ID).Applicants)
}

func TestEditTuition_PreservesOwnership(t *testing.T) {
	f := newFixture(t)
	post := f.activePost(t)
	intruder := uuid.New()

	updated, err := f.engine.EditTuition(f.ctx, f.student, post.ID, func(p *entity.TuitionPost) {
		p.Title = "Chemistry"
		p.StudentID = intruder
		p.StudentEmail = "evil@tutorate.test"
		p.Status = entity.TuitionOngoing
		p.Applicants = 42
	})
	require.NoError(t, err)
	assert.Equal(t, "Chemistry", updated.Title)

	stored := f.post(t, post.ID)
	assert.Equal(t, "Chemistry", stored.Title)
	assert.Equal(t, f.student.AccountID, stored.StudentID)
	assert.Equal(t, "student@tutorate.test", stored.StudentEmail)
	assert.Equal(t, entity.TuitionActive, stored.Status)
	assert.Zero(t, stored.Applicants)
	assert.False(t, stored.UpdatedAt.Before(post.UpdatedAt))
}

func TestEditTuition_ValidatesBudget(t *testing.T) {
	f := newFixture(t)
	post := f.activePost(t)

	_, err := f.engine.EditTuition(f.ctx, f.student, post.ID, func(p *entity.TuitionPost) {
		p.BudgetMax = decimal.NewFromInt(1)
	})
	assertKind(t, err, apperror.ErrInvalidInput)
}

func TestEditRejectedTuitionGoesBackToReview(t *testing.T) {
	f := newFixture(t)
	post, err := f.engine.CreateTuition(f.ctx, f.student, &entity.TuitionPost{
		Title: "Biology", Subject: "Biology", ClassLevel: "8",
		BudgetMin: decimal.NewFromInt(1), BudgetMax: decimal.NewFromInt(2),
	})
	require.NoError(t, err)

	rejected, err := f.engine.ReviewTuition(f.ctx, f.admin, post.ID, false, "too vague")
	require.NoError(t, err)
	assert.Equal(t, entity.TuitionRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)

	edited, err := f.engine.EditTuition(f.ctx, f.student, post.ID, func(p *entity.TuitionPost) {
		p.Description = "More detail"
	})
	require.NoError(t, err)
	assert.Equal(t, entity.TuitionPending, edited.Status)
	assert.Nil(t, f.post(t, post.ID).RejectionReason)
}

func TestReviewTuition_OnlyPending(t *testing.T) {
	f := newFixture(t)
	post := f.activePost(t)

	_, err := f.engine.ReviewTuition(f.ctx, f.admin, post.ID, false, "")
	assertKind(t, err, apperror.ErrConflict)

	_, err = f.engine.ReviewTuition(f.ctx, f.admin, uuid.New(), true, "")
	assertKind(t, err, apperror.ErrNotFound)

	assert.Len(t, f.notifier.ofType(entity.NotifyTuitionReviewed), 1)
}

func TestDeleteTuition_SoftAndHard(t *testing.T) {
	f := newFixture(t)

	empty := f.activePost(t)
	soft, err := f.engine.DeleteTuition(f.ctx, f.student, empty.ID)
	require.NoError(t, err)
	assert.False(t, soft)
	_, ok := f.store.Tuition(empty.ID)
	assert.False(t, ok)

	withApps := f.activePost(t)
	f.apply(t, f.tutor(t, 1), withApps.ID, 100)
	soft, err = f.engine.DeleteTuition(f.ctx, f.student, withApps.ID)
	require.NoError(t, err)
	assert.True(t, soft)
	stored := f.post(t, withApps.ID)
	assert.Equal(t, entity.TuitionDeleted, stored.Status)
	assert.NotNil(t, stored.DeletedAt)

	_, err = f.engine.DeleteTuition(f.ctx, f.student, withApps.ID)
	assertKind(t, err, apperror.ErrNotFound)
}

func TestCompleteTuition_RatesTutor(t *testing.T) {
	f := newFixture(t)
	tutor := f.tutor(t, 1)
	post := f.activePost(t)
	app := f.apply(t, tutor, post.ID, 100)

	rating := 4
	_, err := f.engine.CompleteTuition(f.ctx, f.student, post.ID, &rating)
	assertKind(t, err, apperror.ErrConflict)

	_, err = f.engine.AssignOnPayment(f.ctx, f.paid(app, "pi_r"))
	require.NoError(t, err)

	bad := 6
	_, err = f.engine.CompleteTuition(f.ctx, f.student, post.ID, &bad)
	assertKind(t, err, apperror.ErrInvalidInput)

	done, err := f.engine.CompleteTuition(f.ctx, f.student, post.ID, &rating)
	require.NoError(t, err)
	assert.Equal(t, entity.TuitionCompleted, done.Status)

	acc, err := f.store.Accounts().FindByID(f.ctx, tutor.AccountID)
	require.NoError(t, err)
	require.NotNil(t, acc.Tutor)
	assert.Equal(t, 1, acc.Tutor.RatingCount)
	assert.InDelta(t, 4.0, acc.Tutor.RatingAverage, 0.001)

	_, err = f.engine.CompleteTuition(f.ctx, f.student, post.ID, nil)
	assertKind(t, err, apperror.ErrConflict)
}

func TestQuotePayment(t *testing.T) {
	f := newFixture(t)
	post := f.activePost(t)
	app := f.apply(t, f.tutor(t, 1), post.ID, 175)

	quote, err := f.engine.QuotePayment(f.ctx, f.student, app.ID)
	require.NoError(t, err)
	assert.True(t, quote.Amount.Equal(decimal.NewFromInt(175)))
	assert.Equal(t, "usd", quote.Currency)
	assert.Equal(t, post.ID, quote.TuitionPostID)
}
