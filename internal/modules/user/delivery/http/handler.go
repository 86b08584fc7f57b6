package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/authctx"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/modules/user/dto"
	user "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/user/service"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/apperror"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const oauthStateCookie = "oauth_state"

type AuthHandler struct {
	authService  user.AuthService
	secureCookie bool
}

func NewAuthHandler(authService user.AuthService, secureCookie bool) *AuthHandler {
	return &AuthHandler{authService: authService, secureCookie: secureCookie}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var input dto.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err)
		return
	}

	res, err := h.authService.Login(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, res)
}

func (h *AuthHandler) Register(c *gin.Context) {
	var input dto.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err)
		return
	}

	res, err := h.authService.Register(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Created(c, res)
}

// UpsertFederated runs behind RequireIdentity: the caller has a verified
// token but possibly no account yet.
func (h *AuthHandler) UpsertFederated(c *gin.Context) {
	id, ok := authctx.GetIdentity(c)
	if !ok {
		response.ResponseError(c, apperror.Unauthenticated(apperror.CodeNoToken, "authentication required"))
		return
	}

	var input dto.FederatedInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			response.ValidationError(c, err)
			return
		}
	}

	res, err := h.authService.UpsertFederated(c.Request.Context(), id, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if res.Created {
		response.Created(c, res)
		return
	}
	response.Success(c, res)
}

func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	state := uuid.NewString()
	url, err := h.authService.GoogleLogin(state)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, 600, "/auth/google", "", h.secureCookie, true)
	c.Redirect(http.StatusTemporaryRedirect, url)
}

func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	state, err := c.Cookie(oauthStateCookie)
	if err != nil || subtle.ConstantTimeCompare([]byte(state), []byte(c.Query("state"))) != 1 {
		response.ResponseError(c, apperror.Unauthenticated(apperror.CodeInvalidToken, "invalid oauth state"))
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/auth/google", "", h.secureCookie, true)

	code := c.Query("code")
	if code == "" {
		response.ResponseError(c, apperror.Invalid("code is required"))
		return
	}

	res, err := h.authService.GoogleCallback(c.Request.Context(), code)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, res)
}

type TutorHandler struct {
	tutorService user.TutorService
}

func NewTutorHandler(tutorService user.TutorService) *TutorHandler {
	return &TutorHandler{tutorService: tutorService}
}

func (h *TutorHandler) GetTutors(c *gin.Context) {
	var query dto.TutorQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, err)
		return
	}

	page, err := h.tutorService.ListTutors(c.Request.Context(), query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, page)
}

func (h *TutorHandler) GetTutor(c *gin.Context) {
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	tutor, err := h.tutorService.GetTutor(c.Request.Context(), id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, tutor)
}
