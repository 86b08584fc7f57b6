package dto

import (
	"time"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/entity"
	paymentRepo "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/payment/repository"
)

type ReportQuery struct {
	Range string `form:"range" binding:"omitempty,oneof=week month year"`
}

type StudentStats struct {
	TuitionsByStatus     map[string]int64    `json:"tuitions_by_status"`
	ApplicationsReceived map[string]int64    `json:"applications_received"`
	Payments             paymentRepo.Summary `json:"payments"`
}

type TutorStats struct {
	ApplicationsByStatus map[string]int64    `json:"applications_by_status"`
	Earnings             paymentRepo.Summary `json:"earnings"`
	RatingAverage        float64             `json:"rating_average"`
	RatingCount          int                 `json:"rating_count"`
}

type Report struct {
	Range                string              `json:"range"`
	Since                time.Time           `json:"since"`
	Unit                 string              `json:"unit"`
	AccountsByRole       map[string]int64    `json:"accounts_by_role"`
	TuitionsByStatus     map[string]int64    `json:"tuitions_by_status"`
	ApplicationsByStatus map[string]int64    `json:"applications_by_status"`
	Payments             paymentRepo.Summary `json:"payments"`
	Signups              []entity.TimeBucket `json:"signups"`
	TuitionsCreated      []entity.TimeBucket `json:"tuitions_created"`
	Revenue              []entity.TimeBucket `json:"revenue"`
}
