package handler

import (
	"net/http"
	"strings"

	profileDto "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/profile/dto"
	profile "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/profile/service"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/apperror"
	commonDto "github.com/Ahmad-Hisham007/tutorate-server/pkg/dto"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const maxPhotoSize = 5 << 20

type ProfileHandler struct {
	profileService profile.ProfileService
}

func NewProfileHandler(profileService profile.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
	}
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	p, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	account, err := h.profileService.GetProfile(c.Request.Context(), p)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, account)
}

// UpdateProfile accepts JSON, or a multipart form carrying an optional
// "photo" file.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	p, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input profileDto.UpdateProfileInput
	if err := c.ShouldBind(&input); err != nil {
		response.ValidationError(c, err)
		return
	}

	var photo *commonDto.AvatarFile
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if raw := c.PostForm("expected_salary"); raw != "" {
			salary, err := decimal.NewFromString(raw)
			if err != nil {
				response.ResponseError(c, apperror.Invalid("expected_salary must be a number"))
				return
			}
			input.ExpectedSalary = &salary
		}

		if fileHeader, err := c.FormFile("photo"); err == nil && fileHeader != nil {
			if fileHeader.Size > maxPhotoSize {
				response.ResponseError(c, apperror.Invalid("photo must be at most 5MB"))
				return
			}
			if ct := fileHeader.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
				response.ResponseError(c, apperror.Invalid("photo must be an image"))
				return
			}

			file, err := fileHeader.Open()
			if err != nil {
				response.ResponseError(c, apperror.Invalid("failed to read photo"))
				return
			}
			defer file.Close()

			photo = &commonDto.AvatarFile{
				Reader:   file,
				FileName: fileHeader.Filename,
			}
		} else if err != nil && err != http.ErrMissingFile {
			response.ResponseError(c, apperror.Invalid("failed to read photo"))
			return
		}
	}

	account, err := h.profileService.UpdateProfile(c.Request.Context(), p, input, photo)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, account)
}

func (h *ProfileHandler) DeleteProfile(c *gin.Context) {
	p, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.profileService.DeleteProfile(c.Request.Context(), p); err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "account deleted"})
}
