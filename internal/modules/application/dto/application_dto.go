package dto

import (
	commonDto "github.com/Ahmad-Hisham007/tutorate-server/pkg/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateApplicationInput struct {
	TuitionPostID  uuid.UUID       `json:"tuition_post_id" binding:"required"`
	Qualifications string          `json:"qualifications" binding:"required"`
	Experience     string          `json:"experience"`
	ExpectedSalary decimal.Decimal `json:"expected_salary"`
	CoverLetter    string          `json:"cover_letter"`
}

// UpdateApplicationInput carries a partial edit; nil fields are left unchanged.
type UpdateApplicationInput struct {
	Qualifications *string          `json:"qualifications" binding:"omitempty,min=1"`
	Experience     *string          `json:"experience"`
	ExpectedSalary *decimal.Decimal `json:"expected_salary"`
	CoverLetter    *string          `json:"cover_letter"`
}

type ApplicationQuery struct {
	commonDto.PageQuery
	Status string `form:"status" binding:"omitempty,oneof=pending approved rejected"`
}
