package dto

import commonDto "github.com/Ahmad-Hisham007/tutorate-server/pkg/dto"

type AdminUserQuery struct {
	commonDto.PageQuery
	Search         string `form:"search"`
	Role           string `form:"role" binding:"omitempty,oneof=student tutor admin"`
	Status         string `form:"status" binding:"omitempty,oneof=pending active blocked deleted"`
	SortBy         string `form:"sortBy" binding:"omitempty,oneof=newest oldest"`
	IncludeDeleted bool   `form:"include_deleted"`
}

type UpdateRoleInput struct {
	Role string `json:"role" binding:"required,oneof=student tutor admin"`
}

type UpdateStatusInput struct {
	Status string `json:"status" binding:"required,oneof=pending active blocked"`
}
