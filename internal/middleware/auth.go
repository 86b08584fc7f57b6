package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/authctx"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/entity"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/identity"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/apperror"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AccountFinder resolves a verified email to its live account.
type AccountFinder interface {
	FindByEmail(ctx context.Context, email string) (*entity.Account, error)
}

type AuthMiddleware struct {
	verifier identity.Verifier
	accounts AccountFinder
	timeout  time.Duration
	log      *zap.Logger
}

func NewAuthMiddleware(verifier identity.Verifier, accounts AccountFinder, timeout time.Duration, log *zap.Logger) *AuthMiddleware {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthMiddleware{verifier: verifier, accounts: accounts, timeout: timeout, log: log}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	// Browsers cannot set headers on a websocket upgrade.
	return c.Query("token")
}

func (m *AuthMiddleware) verify(c *gin.Context) (*authctx.Identity, error) {
	token := bearerToken(c)
	if token == "" {
		return nil, apperror.Unauthenticated(apperror.CodeNoToken, "authorization token required")
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), m.timeout)
	defer cancel()

	id, err := m.verifier.Verify(ctx, token)
	switch {
	case err == nil:
		return id, nil
	case errors.Is(err, identity.ErrTokenExpired), errors.Is(err, context.DeadlineExceeded):
		return nil, apperror.Unauthenticated(apperror.CodeTokenExpired, "token expired, please sign in again")
	default:
		m.log.Debug("token rejected", zap.Error(err))
		return nil, apperror.Unauthenticated(apperror.CodeInvalidToken, "invalid token")
	}
}

// RequireIdentity only verifies the credential. The caller may not have an
// account yet.
func (m *AuthMiddleware) RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := m.verify(c)
		if err != nil {
			response.ResponseError(c, err)
			return
		}
		authctx.SetIdentity(c, *id)
		c.Next()
	}
}

// RequireAuth verifies the credential, loads the account behind it and
// refuses blocked accounts.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := m.verify(c)
		if err != nil {
			response.ResponseError(c, err)
			return
		}

		p, err := m.principal(c, id)
		if err != nil {
			response.ResponseError(c, err)
			return
		}

		authctx.SetIdentity(c, *id)
		authctx.SetPrincipal(c, *p)
		c.Next()
	}
}

// OptionalAuth attaches the principal when a usable credential is present
// and otherwise lets the request through anonymously.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if bearerToken(c) == "" {
			c.Next()
			return
		}
		id, err := m.verify(c)
		if err != nil {
			c.Next()
			return
		}
		if p, err := m.principal(c, id); err == nil {
			authctx.SetIdentity(c, *id)
			authctx.SetPrincipal(c, *p)
		}
		c.Next()
	}
}

func (m *AuthMiddleware) principal(c *gin.Context, id *authctx.Identity) (*authctx.Principal, error) {
	account, err := m.accounts.FindByEmail(c.Request.Context(), strings.ToLower(id.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Unauthenticated(apperror.CodeUserNotFound, "no account for this identity")
		}
		return nil, apperror.FromStore(err, "account")
	}

	if account.Status == entity.AccountBlocked {
		return nil, apperror.Forbidden(apperror.CodeAccountBlocked, "account is blocked")
	}

	return &authctx.Principal{
		ExternalID: id.ExternalID,
		Email:      account.Email,
		Role:       account.Role,
		AccountID:  account.ID,
		Status:     account.Status,
	}, nil
}

// RequireRoles lets the request through only for the listed roles.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := authctx.GetPrincipal(c)
		if !ok {
			response.ResponseError(c, apperror.Unauthenticated(apperror.CodeUnauthenticated, "authentication required"))
			return
		}
		for _, role := range roles {
			if p.Role == role {
				c.Next()
				return
			}
		}
		response.ResponseError(c, apperror.Forbidden(apperror.CodeInsufficientPermissions,
			"insufficient permissions for this action"))
	}
}

// RequireSelf checks that the identity named by query parameter param is
// the caller's own.
func RequireSelf(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := authctx.GetPrincipal(c)
		if !ok {
			response.ResponseError(c, apperror.Unauthenticated(apperror.CodeUnauthenticated, "authentication required"))
			return
		}
		value := strings.TrimSpace(c.Query(param))
		if value == "" || !strings.EqualFold(value, p.Email) {
			response.ResponseError(c, apperror.Forbidden(apperror.CodeUnauthorizedAccess,
				"you can only access your own resources"))
			return
		}
		c.Next()
	}
}
