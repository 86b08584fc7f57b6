package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/authctx"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/entity"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/identity"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/apperror"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	identities map[string]authctx.Identity
	delay      time.Duration
}

func (v fakeVerifier) Verify(ctx context.Context, token string) (*authctx.Identity, error) {
	if v.delay > 0 {
		select {
		case <-time.After(v.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if token == "expired" {
		return nil, identity.ErrTokenExpired
	}
	id, ok := v.identities[token]
	if !ok {
		return nil, identity.ErrInvalidToken
	}
	return &id, nil
}

type fakeAccounts map[string]*entity.Account

func (f fakeAccounts) FindByEmail(_ context.Context, email string) (*entity.Account, error) {
	if acc, ok := f[email]; ok {
		return acc, nil
	}
	return nil, gorm.ErrRecordNotFound
}

var (
	studentAcc = &entity.Account{ID: uuid.New(), Email: "stu@tutorate.test", Role: entity.RoleStudent, Status: entity.AccountActive}
	tutorAcc   = &entity.Account{ID: uuid.New(), Email: "tut@tutorate.test", Role: entity.RoleTutor, Status: entity.AccountActive}
	blockedAcc = &entity.Account{ID: uuid.New(), Email: "bad@tutorate.test", Role: entity.RoleStudent, Status: entity.AccountBlocked}
)

func newTestAuth(delay time.Duration) *AuthMiddleware {
	verifier := fakeVerifier{
		delay: delay,
		identities: map[string]authctx.Identity{
			"student": {ExternalID: "local:1", Email: studentAcc.Email},
			"tutor":   {ExternalID: "local:2", Email: tutorAcc.Email},
			"blocked": {ExternalID: "local:3", Email: blockedAcc.Email},
			"ghost":   {ExternalID: "google:4", Email: "ghost@tutorate.test"},
		},
	}
	accounts := fakeAccounts{
		studentAcc.Email: studentAcc,
		tutorAcc.Email:   tutorAcc,
		blockedAcc.Email: blockedAcc,
	}
	return NewAuthMiddleware(verifier, accounts, 50*time.Millisecond, nil)
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		p, _ := authctx.GetPrincipal(c)
		id, _ := authctx.GetIdentity(c)
		response.Success(c, gin.H{"role": p.Role, "email": id.Email})
	})
	r.GET("/t", handlers...)
	return r
}

func do(t *testing.T, r http.Handler, token, query string) (int, response.Envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/t"+query, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestRequireAuth(t *testing.T) {
	router := newRouter(newTestAuth(0).RequireAuth())

	tests := []struct {
		name   string
		token  string
		status int
		code   string
	}{
		{"no token", "", http.StatusUnauthorized, apperror.CodeNoToken},
		{"invalid", "garbage", http.StatusUnauthorized, apperror.CodeInvalidToken},
		{"expired", "expired", http.StatusUnauthorized, apperror.CodeTokenExpired},
		{"unknown account", "ghost", http.StatusUnauthorized, apperror.CodeUserNotFound},
		{"blocked", "blocked", http.StatusForbidden, apperror.CodeAccountBlocked},
		{"ok", "student", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, router, tt.token, "")
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.status == http.StatusOK, body.Success)
		})
	}
}

func TestRequireAuth_VerifierTimeout(t *testing.T) {
	router := newRouter(newTestAuth(time.Second).RequireAuth())

	status, body := do(t, router, "student", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, apperror.CodeTokenExpired, body.Code)
}

func TestRequireAuth_QueryTokenFallback(t *testing.T) {
	router := newRouter(newTestAuth(0).RequireAuth())

	status, body := do(t, router, "", "?token=tutor")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, entity.RoleTutor, body.Data.(map[string]any)["role"])
}

func TestRequireIdentity_NoAccountNeeded(t *testing.T) {
	router := newRouter(newTestAuth(0).RequireIdentity())

	status, body := do(t, router, "ghost", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ghost@tutorate.test", body.Data.(map[string]any)["email"])

	status, body = do(t, router, "", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, apperror.CodeNoToken, body.Code)
}

func TestRequireRoles(t *testing.T) {
	auth := newTestAuth(0)
	adminOnly := newRouter(auth.RequireAuth(), RequireRoles(entity.RoleAdmin))
	studentOnly := newRouter(auth.RequireAuth(), RequireRoles(entity.RoleStudent))

	status, body := do(t, adminOnly, "tutor", "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, apperror.CodeInsufficientPermissions, body.Code)

	status, body = do(t, studentOnly, "tutor", "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, apperror.CodeInsufficientPermissions, body.Code)

	status, _ = do(t, studentOnly, "student", "")
	assert.Equal(t, http.StatusOK, status)
}

func TestRequireRoles_WithoutPrincipal(t *testing.T) {
	router := newRouter(RequireRoles(entity.RoleAdmin))

	status, body := do(t, router, "", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, apperror.CodeUnauthenticated, body.Code)
}

func TestRequireSelf(t *testing.T) {
	router := newRouter(newTestAuth(0).RequireAuth(), RequireSelf("email"))

	status, _ := do(t, router, "student", "?email=STU@tutorate.test")
	assert.Equal(t, http.StatusOK, status)

	for _, query := range []string{"", "?email=tut@tutorate.test", "?email="} {
		status, body := do(t, router, "student", query)
		assert.Equal(t, http.StatusForbidden, status, query)
		assert.Equal(t, apperror.CodeUnauthorizedAccess, body.Code, query)
	}
}

func TestOptionalAuth(t *testing.T) {
	router := newRouter(newTestAuth(0).OptionalAuth())

	status, body := do(t, router, "tutor", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, entity.RoleTutor, body.Data.(map[string]any)["role"])

	for _, token := range []string{"", "garbage", "blocked", "ghost"} {
		status, body := do(t, router, token, "")
		assert.Equal(t, http.StatusOK, status, token)
		assert.Equal(t, "", body.Data.(map[string]any)["role"], token)
	}
}
