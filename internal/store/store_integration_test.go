//go:build integration

package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/authctx"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/bootstrap"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/entity"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/lifecycle"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/store"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/database"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

func startPostgres(t *testing.T) store.Store {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("tutorate"),
		postgres.WithUsername("tutorate"),
		postgres.WithPassword("tutorate"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.Connect(database.Options{DSN: dsn, MaxOpenConns: 20}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, bootstrap.Migrate(db))
	return store.New(db)
}

func principal(t *testing.T, st store.Store, role, email string) authctx.Principal {
	t.Helper()
	acc := &entity.Account{Email: email, Name: email, Role: role, Status: entity.AccountActive}
	acc.SetProfile(entity.EmptyProfile(role))
	require.NoError(t, st.Accounts().Create(context.Background(), acc))
	return authctx.Principal{Email: email, Role: role, AccountID: acc.ID, Status: acc.Status}
}

func TestConcurrentPaymentsAssignOneTutor(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()
	engine := lifecycle.New(st, zap.NewNop(), nil)

	admin := principal(t, st, entity.RoleAdmin, "admin@tutorate.test")
	student := principal(t, st, entity.RoleStudent, "student@tutorate.test")

	post, err := engine.CreateTuition(ctx, student, &entity.TuitionPost{
		Title:      "Biology",
		Subject:    "Biology",
		ClassLevel: "12",
		BudgetMin:  decimal.NewFromInt(100),
		BudgetMax:  decimal.NewFromInt(300),
		Currency:   "usd",
	})
	require.NoError(t, err)
	_, err = engine.ReviewTuition(ctx, admin, post.ID, true, "")
	require.NoError(t, err)

	const tutors = 5
	apps := make([]*entity.Application, tutors)
	for i := range apps {
		tutor := principal(t, st, entity.RoleTutor, fmt.Sprintf("tutor%d@tutorate.test", i))
		apps[i], err = engine.Apply(ctx, tutor, &entity.Application{
			TuitionPostID:  post.ID,
			Qualifications: "BSc",
			ExpectedSalary: decimal.NewFromInt(200),
		})
		require.NoError(t, err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i, app := range apps {
		wg.Add(1)
		go func(i int, app *entity.Application) {
			defer wg.Done()
			_, err := engine.AssignOnPayment(ctx, lifecycle.PaymentConfirmation{
				ApplicationID:  app.ID,
				TransactionRef: fmt.Sprintf("pi_%d", i),
				Amount:         app.ExpectedSalary,
				Currency:       "usd",
				StudentID:      student.AccountID,
			})
			if err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i, app)
	}
	wg.Wait()

	assert.Equal(t, 1, winners)

	stored, err := st.Tuitions().FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TuitionOngoing, stored.Status)
	require.NotNil(t, stored.AssignedTutorID)

	approved := 0
	for _, app := range apps {
		got, err := st.Applications().FindByID(ctx, app.ID)
		require.NoError(t, err)
		if got.Status == entity.ApplicationApproved {
			approved++
			assert.Equal(t, *stored.AssignedTutorID, got.TutorID)
		}
	}
	assert.Equal(t, 1, approved)
	assert.Equal(t, 1, stored.Applicants)
}

func TestDuplicateConfirmationIsIdempotent(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()
	engine := lifecycle.New(st, zap.NewNop(), nil)

	admin := principal(t, st, entity.RoleAdmin, "admin@tutorate.test")
	student := principal(t, st, entity.RoleStudent, "student@tutorate.test")
	tutor := principal(t, st, entity.RoleTutor, "tutor@tutorate.test")

	post, err := engine.CreateTuition(ctx, student, &entity.TuitionPost{
		Title:      "History",
		Subject:    "History",
		ClassLevel: "8",
		Currency:   "usd",
	})
	require.NoError(t, err)
	_, err = engine.ReviewTuition(ctx, admin, post.ID, true, "")
	require.NoError(t, err)

	app, err := engine.Apply(ctx, tutor, &entity.Application{
		TuitionPostID:  post.ID,
		Qualifications: "MA",
		ExpectedSalary: decimal.NewFromInt(90),
	})
	require.NoError(t, err)

	conf := lifecycle.PaymentConfirmation{
		ApplicationID:  app.ID,
		TransactionRef: "pi_once",
		Amount:         decimal.NewFromInt(90),
		Currency:       "usd",
		StudentID:      student.AccountID,
	}
	first, err := engine.AssignOnPayment(ctx, conf)
	require.NoError(t, err)
	second, err := engine.AssignOnPayment(ctx, conf)
	require.NoError(t, err)

	assert.False(t, first.Duplicate)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Payment.ID, second.Payment.ID)
}
