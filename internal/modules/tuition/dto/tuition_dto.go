package dto

import (
	"time"

	commonDto "github.com/Ahmad-Hisham007/tutorate-server/pkg/dto"
	"github.com/shopspring/decimal"
)

type CreateTuitionInput struct {
	Title               string          `json:"title" binding:"required,max=200"`
	Subject             string          `json:"subject" binding:"required,max=120"`
	ClassLevel          string          `json:"class_level" binding:"required,max=60"`
	LocationMode        string          `json:"location_mode" binding:"omitempty,oneof=online offline hybrid"`
	City                string          `json:"city" binding:"max=120"`
	Area                string          `json:"area" binding:"max=120"`
	Address             string          `json:"address"`
	BudgetMin           decimal.Decimal `json:"budget_min"`
	BudgetMax           decimal.Decimal `json:"budget_max"`
	Currency            string          `json:"currency" binding:"omitempty,len=3"`
	ScheduleDays        []string        `json:"schedule_days"`
	ScheduleHours       string          `json:"schedule_hours" binding:"max=60"`
	ScheduleFlexible    bool            `json:"schedule_flexible"`
	StartDate           *time.Time      `json:"start_date"`
	Duration            string          `json:"duration" binding:"max=60"`
	Description         string          `json:"description"`
	Requirements        []string        `json:"requirements"`
	Qualifications      []string        `json:"qualifications"`
	Responsibilities    []string        `json:"responsibilities"`
	Benefits            []string        `json:"benefits"`
	Slots               int             `json:"slots" binding:"omitempty,min=1"`
	ApplicationDeadline *time.Time      `json:"application_deadline"`
}

// UpdateTuitionInput carries a partial edit; nil fields are left unchanged.
type UpdateTuitionInput struct {
	Title               *string          `json:"title" binding:"omitempty,min=1,max=200"`
	Subject             *string          `json:"subject" binding:"omitempty,min=1,max=120"`
	ClassLevel          *string          `json:"class_level" binding:"omitempty,min=1,max=60"`
	LocationMode        *string          `json:"location_mode" binding:"omitempty,oneof=online offline hybrid"`
	City                *string          `json:"city" binding:"omitempty,max=120"`
	Area                *string          `json:"area" binding:"omitempty,max=120"`
	Address             *string          `json:"address"`
	BudgetMin           *decimal.Decimal `json:"budget_min"`
	BudgetMax           *decimal.Decimal `json:"budget_max"`
	Currency            *string          `json:"currency" binding:"omitempty,len=3"`
	ScheduleDays        []string         `json:"schedule_days"`
	ScheduleHours       *string          `json:"schedule_hours" binding:"omitempty,max=60"`
	ScheduleFlexible    *bool            `json:"schedule_flexible"`
	StartDate           *time.Time       `json:"start_date"`
	Duration            *string          `json:"duration" binding:"omitempty,max=60"`
	Description         *string          `json:"description"`
	Requirements        []string         `json:"requirements"`
	Qualifications      []string         `json:"qualifications"`
	Responsibilities    []string         `json:"responsibilities"`
	Benefits            []string         `json:"benefits"`
	Slots               *int             `json:"slots" binding:"omitempty,min=1"`
	ApplicationDeadline *time.Time       `json:"application_deadline"`
}

type CompleteTuitionInput struct {
	Rating *int `json:"rating" binding:"omitempty,min=1,max=5"`
}

type RejectTuitionInput struct {
	Reason string `json:"reason" binding:"max=500"`
}

// TuitionQuery is bound from the public listing query string.
type TuitionQuery struct {
	commonDto.PageQuery
	Search   string `form:"search"`
	Location string `form:"location"`
	Subject  string `form:"subject"`
	Class    string `form:"class"`
	SortBy   string `form:"sortBy" binding:"omitempty,oneof=budget-low budget-high newest oldest top-rated"`
}

type AdminTuitionQuery struct {
	commonDto.PageQuery
	Search string `form:"search"`
	Status string `form:"status" binding:"omitempty,oneof=pending active rejected ongoing completed deleted"`
	SortBy string `form:"sortBy" binding:"omitempty,oneof=budget-low budget-high newest oldest top-rated"`
}

type MyTuitionQuery struct {
	commonDto.PageQuery
	Status string `form:"status" binding:"omitempty,oneof=pending active rejected ongoing completed deleted"`
}

type DeleteResult struct {
	ID   string `json:"id"`
	Soft bool   `json:"soft"`
}

type SaveResult struct {
	Saved bool `json:"saved"`
	Saves int  `json:"saves"`
}

type SearchTokenResponse struct {
	Token string `json:"token"`
	Index string `json:"index"`
}
