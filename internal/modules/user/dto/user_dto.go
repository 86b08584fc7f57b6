package dto

import (
	"github.com/Ahmad-Hisham007/tutorate-server/internal/entity"
	commonDto "github.com/Ahmad-Hisham007/tutorate-server/pkg/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RegisterInput struct {
	Email    string  `json:"email" binding:"required,email,max=191"`
	Password string  `json:"password" binding:"required,min=8,max=72"`
	Name     string  `json:"name" binding:"required,max=120"`
	Phone    *string `json:"phone" binding:"omitempty,max=32"`
	Role     string  `json:"role" binding:"required,oneof=student tutor"`
}

// FederatedInput completes a federated sign-in for an identity the verifier
// already vouched for.
type FederatedInput struct {
	Name  string  `json:"name" binding:"max=120"`
	Phone *string `json:"phone" binding:"omitempty,max=32"`
	Role  string  `json:"role" binding:"omitempty,oneof=student tutor"`
}

type AuthResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   int64           `json:"expires_in"`
	Account     *entity.Account `json:"account,omitempty"`
	Created     bool            `json:"created,omitempty"`

	// RegistrationRequired is set when a federated identity has no account
	// yet; the token is then only good for POST /users/google.
	RegistrationRequired bool `json:"registration_required,omitempty"`
}

type TutorQuery struct {
	commonDto.PageQuery
	Search   string `form:"search"`
	Subject  string `form:"subject"`
	Location string `form:"location"`
	SortBy   string `form:"sortBy" binding:"omitempty,oneof=newest oldest top-rated experience"`
}

// TutorView is the public card of a tutor. It never carries contact data.
type TutorView struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	PhotoURL        *string         `json:"photo_url,omitempty"`
	Qualifications  string          `json:"qualifications"`
	Subjects        []string        `json:"subjects"`
	Experience      string          `json:"experience"`
	ExperienceYears int             `json:"experience_years"`
	ExpectedSalary  decimal.Decimal `json:"expected_salary"`
	Availability    []string        `json:"availability"`
	Location        string          `json:"location"`
	Bio             string          `json:"bio"`
	RatingAverage   float64         `json:"rating_average"`
	RatingCount     int             `json:"rating_count"`
}

func NewTutorView(a *entity.Account) TutorView {
	view := TutorView{ID: a.ID, Name: a.Name, PhotoURL: a.PhotoURL}
	if t := a.Tutor; t != nil {
		view.Qualifications = t.Qualifications
		view.Subjects = t.Subjects
		view.Experience = t.Experience
		view.ExperienceYears = t.ExperienceYears
		view.ExpectedSalary = t.ExpectedSalary
		view.Availability = t.Availability
		view.Location = t.Location
		view.Bio = t.Bio
		view.RatingAverage = t.RatingAverage
		view.RatingCount = t.RatingCount
	}
	if view.Subjects == nil {
		view.Subjects = []string{}
	}
	if view.Availability == nil {
		view.Availability = []string{}
	}
	return view
}
