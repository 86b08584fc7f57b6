package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/authctx"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/charge"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/config"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/entity"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/identity"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/store/memstore"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/apperror"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAuthority struct {
	mu      sync.Mutex
	charges map[string]charge.Charge
}

func (a *fakeAuthority) CreateIntent(_ context.Context, req charge.IntentRequest) (*charge.Intent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ref := "pi_" + req.ApplicationID
	a.charges[ref] = charge.Charge{
		Ref:           ref,
		ApplicationID: req.ApplicationID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Succeeded:     true,
	}
	return &charge.Intent{Ref: ref, ClientSecret: ref + "_secret"}, nil
}

func (a *fakeAuthority) Confirm(_ context.Context, ref string) (*charge.Charge, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.charges[ref]
	if !ok {
		return &charge.Charge{Ref: ref}, nil
	}
	return &c, nil
}

func (a *fakeAuthority) ParseWebhook([]byte, string) (*charge.Charge, error) {
	return nil, charge.ErrInvalidSignature
}

type toggleHealth struct{ down atomic.Bool }

func (h *toggleHealth) Healthy() bool { return !h.down.Load() }

func (h *toggleHealth) MarkDown(error) { h.down.Store(true) }

type testEnv struct {
	t       *testing.T
	store   *memstore.Store
	handler http.Handler
	health  *toggleHealth
	tokens  *identity.JWTProvider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{
		AllowedOrigins:         "http://localhost:3000",
		StoreTimeout:           2 * time.Second,
		VerifyTimeout:          time.Second,
		PublicRPS:              1000,
		PublicBurst:            1000,
		Currency:               "usd",
		CloudinaryUploadFolder: "tutorate-test",
	}
	env := &testEnv{
		t:      t,
		store:  memstore.New(),
		health: &toggleHealth{},
		tokens: identity.NewJWTProvider("test-secret", "tutorate-test", time.Hour),
	}
	srv := NewServer(Deps{
		Config:   cfg,
		Store:    env.store,
		Charges:  &fakeAuthority{charges: map[string]charge.Charge{}},
		Verifier: env.tokens,
		Issuer:   env.tokens,
		Health:   env.health,
	})
	env.handler = srv.Handler()
	return env
}

// account creates an account and returns a bearer token for it.
func (e *testEnv) account(role, email, status string) (string, uuid.UUID) {
	e.t.Helper()
	acc := &entity.Account{Email: email, Name: email, Role: role, Status: status}
	acc.SetProfile(entity.EmptyProfile(role))
	require.NoError(e.t, e.store.Accounts().Create(context.Background(), acc))

	token, _, err := e.tokens.Issue(authctx.Identity{ExternalID: identity.LocalExternalID(acc.ID), Email: email})
	require.NoError(e.t, err)
	return token, acc.ID
}

func (e *testEnv) call(method, path, token string, body any) (int, response.Envelope) {
	e.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)

	var env response.Envelope
	require.NoError(e.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decode(t *testing.T, data any, out any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

const (
	studentEmail = "student@tutorate.test"
	tutorEmail   = "tutor@tutorate.test"
)

func TestRoleBoundaries(t *testing.T) {
	env := newTestEnv(t)
	student, _ := env.account(entity.RoleStudent, studentEmail, entity.AccountActive)
	tutor, _ := env.account(entity.RoleTutor, tutorEmail, entity.AccountActive)
	admin, _ := env.account(entity.RoleAdmin, "admin@tutorate.test", entity.AccountActive)
	blocked, _ := env.account(entity.RoleStudent, "blocked@tutorate.test", entity.AccountBlocked)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
		code   string
	}{
		{"no token", http.MethodGet, "/tuitions/my?email=" + studentEmail, "", http.StatusUnauthorized, apperror.CodeNoToken},
		{"bad token", http.MethodGet, "/tuitions/my?email=" + studentEmail, "garbage", http.StatusUnauthorized, apperror.CodeInvalidToken},
		{"blocked account", http.MethodGet, "/notifications", blocked, http.StatusForbidden, apperror.CodeAccountBlocked},
		{"tutor posts tuition", http.MethodPost, "/tuitions?email=" + tutorEmail, tutor, http.StatusForbidden, apperror.CodeInsufficientPermissions},
		{"student applies", http.MethodPost, "/applications?email=" + studentEmail, student, http.StatusForbidden, apperror.CodeInsufficientPermissions},
		{"student on admin", http.MethodGet, "/admin/users", student, http.StatusForbidden, apperror.CodeInsufficientPermissions},
		{"admin on student route", http.MethodGet, "/students/stats?email=admin@tutorate.test", admin, http.StatusForbidden, apperror.CodeInsufficientPermissions},
		{"foreign email", http.MethodGet, "/tuitions/my?email=" + tutorEmail, student, http.StatusForbidden, apperror.CodeUnauthorizedAccess},
		{"missing email", http.MethodGet, "/applications/my", tutor, http.StatusForbidden, apperror.CodeUnauthorizedAccess},
		{"own listing", http.MethodGet, "/tuitions/my?email=" + studentEmail, student, http.StatusOK, ""},
		{"admin listing", http.MethodGet, "/admin/users", admin, http.StatusOK, ""},
		{"public listing", http.MethodGet, "/tuitions", "", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.call(tt.method, tt.path, tt.token, nil)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body.Code)
		})
	}
}

func TestHireFlow(t *testing.T) {
	env := newTestEnv(t)
	student, _ := env.account(entity.RoleStudent, studentEmail, entity.AccountActive)
	tutor, tutorID := env.account(entity.RoleTutor, tutorEmail, entity.AccountActive)
	admin, _ := env.account(entity.RoleAdmin, "admin@tutorate.test", entity.AccountActive)
	studentQ := "?email=" + studentEmail
	tutorQ := "?email=" + tutorEmail

	status, body := env.call(http.MethodPost, "/tuitions"+studentQ, student, map[string]any{
		"title":       "Grade 9 algebra",
		"subject":     "Mathematics",
		"class_level": "9",
		"budget_min":  100,
		"budget_max":  200,
	})
	require.Equal(t, http.StatusCreated, status, body.Error)
	var post entity.TuitionPost
	decode(t, body.Data, &post)
	assert.Equal(t, entity.TuitionPending, post.Status)

	// Pending posts are invisible to the public.
	status, _ = env.call(http.MethodGet, "/tuitions/"+post.ID.String(), "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = env.call(http.MethodPatch, "/admin/tuitions/"+post.ID.String()+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, status, body.Error)

	status, _ = env.call(http.MethodGet, "/tuitions/"+post.ID.String(), "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = env.call(http.MethodPost, "/applications"+tutorQ, tutor, map[string]any{
		"tuition_post_id": post.ID,
		"qualifications":  "BSc Mathematics",
		"expected_salary": 150,
	})
	require.Equal(t, http.StatusCreated, status, body.Error)
	var app entity.Application
	decode(t, body.Data, &app)

	status, body = env.call(http.MethodPost, "/applications"+tutorQ, tutor, map[string]any{
		"tuition_post_id": post.ID,
		"qualifications":  "again",
	})
	assert.Equal(t, http.StatusConflict, status, body.Error)

	status, body = env.call(http.MethodPatch, "/applications/"+app.ID.String()+"/approve"+studentQ, student, nil)
	require.Equal(t, http.StatusOK, status, body.Error)
	var decision struct {
		RequiresPayment bool `json:"requires_payment"`
	}
	decode(t, body.Data, &decision)
	assert.True(t, decision.RequiresPayment)

	status, body = env.call(http.MethodPost, "/create-payment-intent"+studentQ, student, map[string]any{
		"application_id": app.ID,
	})
	require.Equal(t, http.StatusCreated, status, body.Error)
	var intent struct {
		Intent charge.Intent `json:"intent"`
	}
	decode(t, body.Data, &intent)
	require.NotEmpty(t, intent.Intent.Ref)

	success := map[string]any{"application_id": app.ID, "transaction_ref": intent.Intent.Ref}
	status, body = env.call(http.MethodPost, "/payment/success"+studentQ, student, success)
	require.Equal(t, http.StatusCreated, status, body.Error)

	status, body = env.call(http.MethodPost, "/payment/success"+studentQ, student, success)
	require.Equal(t, http.StatusOK, status, body.Error)
	var again struct {
		Duplicate bool `json:"duplicate"`
	}
	decode(t, body.Data, &again)
	assert.True(t, again.Duplicate)
	assert.Equal(t, 1, env.store.PaymentCount())

	stored, ok := env.store.Tuition(post.ID)
	require.True(t, ok)
	assert.Equal(t, entity.TuitionOngoing, stored.Status)
	require.NotNil(t, stored.AssignedTutorID)
	assert.Equal(t, tutorID, *stored.AssignedTutorID)

	// A committed post can no longer be edited or deleted.
	status, _ = env.call(http.MethodDelete, "/tuitions/"+post.ID.String()+studentQ, student, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, body = env.call(http.MethodGet, "/payments/my"+tutorQ, tutor, nil)
	require.Equal(t, http.StatusOK, status, body.Error)
	var payments struct {
		Items []entity.PaymentRecord `json:"items"`
	}
	decode(t, body.Data, &payments)
	require.Len(t, payments.Items, 1)
	assert.True(t, payments.Items[0].Amount.Equal(decimal.NewFromInt(150)))

	status, body = env.call(http.MethodGet, "/applications/my"+tutorQ, tutor, nil)
	require.Equal(t, http.StatusOK, status, body.Error)
	var mine struct {
		Items []entity.Application `json:"items"`
	}
	decode(t, body.Data, &mine)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, entity.ApplicationApproved, mine.Items[0].Status)

	status, body = env.call(http.MethodGet, "/admin/payments", admin, nil)
	require.Equal(t, http.StatusOK, status, body.Error)
	var all struct {
		Items   []entity.PaymentRecord `json:"items"`
		Summary struct {
			Count int64 `json:"count"`
		} `json:"summary"`
	}
	decode(t, body.Data, &all)
	assert.Len(t, all.Items, 1)
	assert.EqualValues(t, 1, all.Summary.Count)
}

func TestPaymentSuccess_UnknownChargeIsRefused(t *testing.T) {
	env := newTestEnv(t)
	student, _ := env.account(entity.RoleStudent, studentEmail, entity.AccountActive)

	status, body := env.call(http.MethodPost, "/payment/success?email="+studentEmail, student, map[string]any{
		"application_id":  uuid.New(),
		"transaction_ref": "pi_missing",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, apperror.CodePaymentNotConfirmed, body.Code)
	assert.Equal(t, 0, env.store.PaymentCount())
}

func TestAdminCannotDemoteSelf(t *testing.T) {
	env := newTestEnv(t)
	admin, adminID := env.account(entity.RoleAdmin, "admin@tutorate.test", entity.AccountActive)
	_, tutorID := env.account(entity.RoleTutor, tutorEmail, entity.AccountPending)

	status, _ := env.call(http.MethodPatch, "/admin/users/"+adminID.String()+"/role", admin, map[string]string{"role": entity.RoleStudent})
	assert.Equal(t, http.StatusForbidden, status)

	status, body := env.call(http.MethodPatch, "/admin/users/"+tutorID.String()+"/status", admin, map[string]string{"status": entity.AccountActive})
	require.Equal(t, http.StatusOK, status, body.Error)
	var acc entity.Account
	decode(t, body.Data, &acc)
	assert.Equal(t, entity.AccountActive, acc.Status)
}

func TestStoreGate(t *testing.T) {
	env := newTestEnv(t)
	env.health.down.Store(true)

	status, body := env.call(http.MethodGet, "/tuitions", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, apperror.CodeServiceUnavailable, body.Code)

	status, _ = env.call(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)

	env.health.down.Store(false)
	status, _ = env.call(http.MethodGet, "/tuitions", "", nil)
	assert.Equal(t, http.StatusOK, status)
}
