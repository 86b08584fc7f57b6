package handler

import (
	"github.com/Ahmad-Hisham007/tutorate-server/internal/modules/admin/dto"
	adminService "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/admin/service"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/response"
	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	adminService adminService.AdminService
}

func NewAdminHandler(adminService adminService.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

func (h *AdminHandler) GetAllUsers(c *gin.Context) {
	var query dto.AdminUserQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, err)
		return
	}

	res, err := h.adminService.GetAllUsers(c.Request.Context(), query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, res)
}

func (h *AdminHandler) UpdateUserRole(c *gin.Context) {
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

	var input dto.UpdateRoleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err)
		return
	}

	account, err := h.adminService.UpdateUserRole(c.Request.Context(), admin, id, input.Role)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, account)
}

func (h *AdminHandler) UpdateUserStatus(c *gin.Context) {
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

	var input dto.UpdateStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err)
		return
	}

	account, err := h.adminService.UpdateUserStatus(c.Request.Context(), admin, id, input.Status)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, account)
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
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

	if err := h.adminService.DeleteUser(c.Request.Context(), admin, id); err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "account deleted"})
}
