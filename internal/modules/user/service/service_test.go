package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/authctx"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/entity"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/identity"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/modules/user/dto"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/store/memstore"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAuth(t *testing.T) (AuthService, *memstore.Store, *identity.JWTProvider) {
	t.Helper()
	st := memstore.New()
	jwt := identity.NewJWTProvider("test-secret", "tutorate", time.Hour)
	return NewAuthService(st.Accounts(), jwt, GoogleOptions{}, zap.NewNop()), st, jwt
}

func register(t *testing.T, svc AuthService, email, role string) *dto.AuthResponse {
	t.Helper()
	res, err := svc.Register(context.Background(), dto.RegisterInput{
		Email:    email,
		Password: "correct-horse",
		Name:     "  Test User ",
		Role:     role,
	})
	require.NoError(t, err)
	return res
}

func TestRegister_InitialStatusByRole(t *testing.T) {
	svc, _, jwt := newAuth(t)

	student := register(t, svc, "Student@Tutorate.test", entity.RoleStudent)
	assert.True(t, student.Created)
	assert.Equal(t, "student@tutorate.test", student.Account.Email)
	assert.Equal(t, "Test User", student.Account.Name)
	assert.Equal(t, entity.AccountActive, student.Account.Status)
	assert.NotNil(t, student.Account.Student)

	tutor := register(t, svc, "tutor@tutorate.test", entity.RoleTutor)
	assert.Equal(t, entity.AccountPending, tutor.Account.Status)
	assert.NotNil(t, tutor.Account.Tutor)

	id, err := jwt.Verify(context.Background(), tutor.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, identity.LocalExternalID(tutor.Account.ID), id.ExternalID)
	assert.Equal(t, "tutor@tutorate.test", id.Email)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _ := newAuth(t)
	register(t, svc, "dup@tutorate.test", entity.RoleStudent)

	_, err := svc.Register(context.Background(), dto.RegisterInput{
		Email:    "DUP@tutorate.test",
		Password: "another-pass",
		Name:     "Other",
		Role:     entity.RoleTutor,
	})
	assert.True(t, errors.Is(err, apperror.ErrConflict))
}

func TestLogin(t *testing.T) {
	svc, st, _ := newAuth(t)
	ctx := context.Background()
	created := register(t, svc, "login@tutorate.test", entity.RoleStudent)

	res, err := svc.Login(ctx, dto.LoginInput{Email: " LOGIN@tutorate.test", Password: "correct-horse"})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, "Bearer", res.TokenType)
	assert.Equal(t, created.Account.ID, res.Account.ID)

	_, err = svc.Login(ctx, dto.LoginInput{Email: "login@tutorate.test", Password: "wrong"})
	assert.True(t, errors.Is(err, apperror.ErrUnauthorized))

	_, err = svc.Login(ctx, dto.LoginInput{Email: "nobody@tutorate.test", Password: "correct-horse"})
	assert.True(t, errors.Is(err, apperror.ErrUnauthorized))

	require.NoError(t, st.Accounts().UpdateStatus(ctx, created.Account.ID, entity.AccountBlocked))
	_, err = svc.Login(ctx, dto.LoginInput{Email: "login@tutorate.test", Password: "correct-horse"})
	assert.Equal(t, apperror.CodeAccountBlocked, apperror.CodeOf(err))
}

func TestUpsertFederated_CreatesThenReuses(t *testing.T) {
	svc, _, _ := newAuth(t)
	ctx := context.Background()
	id := authctx.Identity{
		ExternalID: identity.GoogleExternalID("1234"),
		Email:      "Fed@tutorate.test",
		Name:       "Fed User",
		Picture:    "https://img.test/p.png",
	}

	first, err := svc.UpsertFederated(ctx, id, dto.FederatedInput{Role: entity.RoleTutor})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "fed@tutorate.test", first.Account.Email)
	assert.Equal(t, "Fed User", first.Account.Name)
	assert.Equal(t, entity.AccountPending, first.Account.Status)
	require.NotNil(t, first.Account.PhotoURL)

	second, err := svc.UpsertFederated(ctx, id, dto.FederatedInput{Role: entity.RoleStudent})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Account.ID, second.Account.ID)
	assert.Equal(t, entity.RoleTutor, second.Account.Role)
}

func TestUpsertFederated_DefaultsToStudent(t *testing.T) {
	svc, _, _ := newAuth(t)

	res, err := svc.UpsertFederated(context.Background(), authctx.Identity{
		ExternalID: identity.GoogleExternalID("99"),
		Email:      "noname@tutorate.test",
	}, dto.FederatedInput{})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleStudent, res.Account.Role)
	assert.Equal(t, "noname", res.Account.Name)
}

func TestGoogle_NotConfigured(t *testing.T) {
	svc, _, _ := newAuth(t)

	_, err := svc.GoogleLogin("state")
	assert.True(t, errors.Is(err, apperror.ErrServiceUnavailable))

	_, err = svc.GoogleCallback(context.Background(), "code")
	assert.True(t, errors.Is(err, apperror.ErrServiceUnavailable))
}

func TestTutorDirectory_ActiveOnly(t *testing.T) {
	auth, st, _ := newAuth(t)
	ctx := context.Background()
	tutors := NewTutorService(st.Accounts())

	pending := register(t, auth, "pending@tutorate.test", entity.RoleTutor)
	active := register(t, auth, "active@tutorate.test", entity.RoleTutor)
	require.NoError(t, st.Accounts().UpdateStatus(ctx, active.Account.ID, entity.AccountActive))
	register(t, auth, "student@tutorate.test", entity.RoleStudent)

	page, err := tutors.ListTutors(ctx, dto.TutorQuery{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, active.Account.ID, page.Items[0].ID)
	assert.NotNil(t, page.Items[0].Subjects)

	_, err = tutors.GetTutor(ctx, pending.Account.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	view, err := tutors.GetTutor(ctx, active.Account.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test User", view.Name)
}
