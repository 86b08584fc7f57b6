package handler

import (
	"github.com/Ahmad-Hisham007/tutorate-server/internal/modules/application/dto"
	application "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/application/service"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/response"
	"github.com/gin-gonic/gin"
)

type ApplicationHandler struct {
	service application.ApplicationService
}

func NewApplicationHandler(service application.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{service: service}
}

func (h *ApplicationHandler) CreateApplication(c *gin.Context) {
	p, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.CreateApplicationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	app, err := h.service.Apply(c.Request.Context(), p, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Created(c, app)
}

func (h *ApplicationHandler) UpdateApplication(c *gin.Context) {
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

	var req dto.UpdateApplicationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	app, err := h.service.Update(c.Request.Context(), p, id, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, app)
}

func (h *ApplicationHandler) WithdrawApplication(c *gin.Context) {
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

	if err := h.service.Withdraw(c.Request.Context(), p, id); err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "application withdrawn"})
}

func (h *ApplicationHandler) GetMyApplications(c *gin.Context) {
	p, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var query dto.ApplicationQuery
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

func (h *ApplicationHandler) GetTuitionApplications(c *gin.Context) {
	p, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	postID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var query dto.ApplicationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, err)
		return
	}

	page, err := h.service.ListForPost(c.Request.Context(), p, postID, query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, page)
}

// DecideApplication handles PATCH /applications/:id/:action. Approval only
// quotes the payment; the assignment happens once the charge is confirmed.
func (h *ApplicationHandler) DecideApplication(c *gin.Context) {
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

	decision, err := h.service.Decide(c.Request.Context(), p, id, c.Param("action"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, decision)
}
