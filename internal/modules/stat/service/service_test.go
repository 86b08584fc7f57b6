package service

import (
	"context"
	"testing"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/authctx"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/entity"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/lifecycle"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/store/memstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type hired struct {
	svc     StatService
	student authctx.Principal
	tutor   authctx.Principal
}

// hire runs one post through review, application and payment.
func hire(t *testing.T) hired {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	engine := lifecycle.New(st, zap.NewNop(), nil)

	principal := func(role, email string) authctx.Principal {
		acc := &entity.Account{Email: email, Name: email, Role: role, Status: entity.AccountActive}
		require.NoError(t, st.Accounts().Create(ctx, acc))
		return authctx.Principal{Email: email, Role: role, AccountID: acc.ID, Status: acc.Status}
	}
	admin := principal(entity.RoleAdmin, "admin@tutorate.test")
	student := principal(entity.RoleStudent, "student@tutorate.test")
	tutor := principal(entity.RoleTutor, "tutor@tutorate.test")

	post, err := engine.CreateTuition(ctx, student, &entity.TuitionPost{
		Title:      "Physics",
		Subject:    "Physics",
		ClassLevel: "10",
		Currency:   "usd",
	})
	require.NoError(t, err)
	_, err = engine.ReviewTuition(ctx, admin, post.ID, true, "")
	require.NoError(t, err)

	// A second, still pending post.
	_, err = engine.CreateTuition(ctx, student, &entity.TuitionPost{
		Title:      "Geometry",
		Subject:    "Mathematics",
		ClassLevel: "9",
		Currency:   "usd",
	})
	require.NoError(t, err)

	app, err := engine.Apply(ctx, tutor, &entity.Application{
		TuitionPostID:  post.ID,
		Qualifications: "BSc Physics",
		ExpectedSalary: decimal.NewFromInt(80),
	})
	require.NoError(t, err)
	_, err = engine.AssignOnPayment(ctx, lifecycle.PaymentConfirmation{
		ApplicationID:  app.ID,
		TransactionRef: "pi_stats",
		Amount:         decimal.NewFromInt(80),
		Currency:       "usd",
		StudentID:      student.AccountID,
	})
	require.NoError(t, err)

	return hired{svc: NewStatService(st), student: student, tutor: tutor}
}

func TestStudentStats(t *testing.T) {
	h := hire(t)

	stats, err := h.svc.StudentStats(context.Background(), h.student)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TuitionsByStatus[entity.TuitionOngoing])
	assert.EqualValues(t, 1, stats.TuitionsByStatus[entity.TuitionPending])
	assert.EqualValues(t, 1, stats.ApplicationsReceived[entity.ApplicationApproved])
	assert.EqualValues(t, 1, stats.Payments.Count)
	assert.True(t, stats.Payments.Total.Equal(decimal.NewFromInt(80)))
}

func TestTutorStats(t *testing.T) {
	h := hire(t)

	stats, err := h.svc.TutorStats(context.Background(), h.tutor)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.ApplicationsByStatus[entity.ApplicationApproved])
	assert.True(t, stats.Earnings.Total.Equal(decimal.NewFromInt(80)))
	assert.Zero(t, stats.RatingCount)
}

func TestReport_Ranges(t *testing.T) {
	h := hire(t)
	ctx := context.Background()

	year, err := h.svc.Report(ctx, "year")
	require.NoError(t, err)
	assert.Equal(t, "month", year.Unit)
	assert.EqualValues(t, 1, year.Payments.Count)
	assert.EqualValues(t, 1, year.AccountsByRole[entity.RoleTutor])
	require.Len(t, year.Revenue, 1)
	assert.True(t, year.Revenue[0].Total.Equal(decimal.NewFromInt(80)))

	fallback, err := h.svc.Report(ctx, "decade")
	require.NoError(t, err)
	assert.Equal(t, "month", fallback.Range)
	assert.Equal(t, "day", fallback.Unit)
}

func TestExportReport(t *testing.T) {
	h := hire(t)

	f, err := h.svc.ExportReport(context.Background(), "week")
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "Signups", "Tuitions", "Revenue", "Payments"}, f.GetSheetList())

	ref, err := f.GetCellValue("Payments", "B2")
	require.NoError(t, err)
	assert.Equal(t, "pi_stats", ref)

	revenue, err := f.GetCellValue("Summary", "B5")
	require.NoError(t, err)
	assert.Equal(t, "80.00", revenue)
}
