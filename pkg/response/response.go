package response

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/authctx"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/apperror"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/ratelimiter"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Envelope is the body shape of every JSON response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// GetPrincipal retrieves the authenticated principal from the context
func GetPrincipal(c *gin.Context) (authctx.Principal, error) {
	p, ok := authctx.GetPrincipal(c)
	if !ok {
		return authctx.Principal{}, apperror.Unauthenticated(apperror.CodeUnauthenticated, "authentication required")
	}
	return p, nil
}

// ParamUUID parses the named path parameter.
func ParamUUID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperror.Invalid(fmt.Sprintf("invalid %s", name))
	}
	return id, nil
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	var rateLimitErr *ratelimiter.RateLimitError
	if errors.As(err, &rateLimitErr) {
		c.Header("Retry-After", fmt.Sprintf("%.0f", rateLimitErr.RetryAfter.Seconds()))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusAndBody(c, err))
}

// ValidationError reports a binding failure as a 400.
func ValidationError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Envelope{
		Success: false,
		Error:   validator.FormatValidationError(err),
		Code:    apperror.CodeValidation,
	})
}

func statusAndBody(c *gin.Context, err error) (int, Envelope) {
	status := apperror.MapErrorToStatus(err)
	body := Envelope{Success: false, Error: err.Error(), Code: apperror.CodeOf(err)}

	// Internal errors never leak their cause.
	if status == http.StatusInternalServerError {
		zap.L().Error("internal error",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		body.Error = "internal server error"
	}
	return status, body
}
