package dto

import "github.com/shopspring/decimal"

// UpdateProfileInput is bound from JSON or multipart form; nil fields are
// left unchanged. Role specific fields only apply to the matching role.
type UpdateProfileInput struct {
	Name  *string `json:"name" form:"name" binding:"omitempty,min=1,max=120"`
	Phone *string `json:"phone" form:"phone" binding:"omitempty,max=32"`

	ClassLevel        *string  `json:"class_level" form:"class_level" binding:"omitempty,max=60"`
	Institution       *string  `json:"institution" form:"institution" binding:"omitempty,max=160"`
	PreferredSubjects []string `json:"preferred_subjects" form:"preferred_subjects"`

	Qualifications  *string          `json:"qualifications" form:"qualifications"`
	Subjects        []string         `json:"subjects" form:"subjects"`
	Experience      *string          `json:"experience" form:"experience"`
	ExperienceYears *int             `json:"experience_years" form:"experience_years" binding:"omitempty,min=0,max=80"`
	ExpectedSalary  *decimal.Decimal `json:"expected_salary" form:"-"`
	Availability    []string         `json:"availability" form:"availability"`
	Location        *string          `json:"location" form:"location" binding:"omitempty,max=160"`
	Bio             *string          `json:"bio" form:"bio"`

	Designation *string `json:"designation" form:"designation" binding:"omitempty,max=120"`
}
