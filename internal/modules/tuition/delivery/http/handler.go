package handler

import (
	"github.com/Ahmad-Hisham007/tutorate-server/internal/authctx"
	"github.com/Ahmad-Hisham007/tutorate-server/internal/modules/tuition/dto"
	tuition "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/tuition/service"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/response"
	"github.com/gin-gonic/gin"
)

type TuitionHandler struct {
	service tuition.TuitionService
}

func NewTuitionHandler(service tuition.TuitionService) *TuitionHandler {
	return &TuitionHandler{service: service}
}

func (h *TuitionHandler) CreateTuition(c *gin.Context) {
	p, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.CreateTuitionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	post, err := h.service.Create(c.Request.Context(), p, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Created(c, post)
}

func (h *TuitionHandler) UpdateTuition(c *gin.Context) {
	p, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.UpdateTuitionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	post, err := h.service.Update(c.Request.Context(), p, id, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, post)
}

func (h *TuitionHandler) DeleteTuition(c *gin.Context) {
	p, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	result, err := h.service.Delete(c.Request.Context(), p, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, result)
}

func (h *TuitionHandler) CompleteTuition(c *gin.Context) {
	p, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.CompleteTuitionInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ValidationError(c, err)
			return
		}
	}

	post, err := h.service.Complete(c.Request.Context(), p, id, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, post)
}

func (h *TuitionHandler) GetTuitions(c *gin.Context) {
	var query dto.TuitionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, err)
		return
	}

	page, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, page)
}

func (h *TuitionHandler) GetTuition(c *gin.Context) {
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	viewer := "ip:" + c.ClientIP()
	if p, ok := authctx.GetPrincipal(c); ok {
		viewer = "account:" + p.AccountID.String()
	}

	post, err := h.service.Get(c.Request.Context(), id, viewer)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, post)
}

func (h *TuitionHandler) GetMyTuitions(c *gin.Context) {
	p, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var query dto.MyTuitionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, err)
		return
	}

	page, err := h.service.ListMine(c.Request.Context(), p, query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, page)
}

func (h *TuitionHandler) SaveTuition(c *gin.Context) {
	p, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	result, err := h.service.Save(c.Request.Context(), p, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, result)
}

func (h *TuitionHandler) GetSearchToken(c *gin.Context) {
	role := ""
	if p, ok := authctx.GetPrincipal(c); ok {
		role = p.Role
	}

	token, err := h.service.SearchToken(role)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, token)
}

// Admin moderation

func (h *TuitionHandler) GetAdminTuitions(c *gin.Context) {
	var query dto.AdminTuitionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, err)
		return
	}

	page, err := h.service.ListAdmin(c.Request.Context(), query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, page)
}

func (h *TuitionHandler) ApproveTuition(c *gin.Context) {
	h.review(c, true)
}

func (h *TuitionHandler) RejectTuition(c *gin.Context) {
	h.review(c, false)
}

func (h *TuitionHandler) review(c *gin.Context, approve bool) {
	admin, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.RejectTuitionInput
	if !approve && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ValidationError(c, err)
			return
		}
	}

	post, err := h.service.Review(c.Request.Context(), admin, id, approve, req.Reason)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, post)
}
