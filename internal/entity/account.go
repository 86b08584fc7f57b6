package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RoleStudent = "student"
	RoleTutor   = "tutor"
	RoleAdmin   = "admin"
)

const (
	AccountPending = "pending"
	AccountActive  = "active"
	AccountBlocked = "blocked"
	AccountDeleted = "deleted"
)

func ValidRole(role string) bool {
	return role == RoleStudent || role == RoleTutor || role == RoleAdmin
}

func ValidAccountStatus(status string) bool {
	switch status {
	case AccountPending, AccountActive, AccountBlocked, AccountDeleted:
		return true
	}
	return false
}

// InitialStatus is the status a self-registered account starts in.
// Tutors wait for an admin to activate them.
func InitialStatus(role string) string {
	if role == RoleTutor {
		return AccountPending
	}
	return AccountActive
}

// Account is the shared base of every user. Exactly one of the role
// profiles is populated, matching Role.
type Account struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ExternalID   *string    `gorm:"size:191;index:idx_accounts_external_live,unique,where:status <> 'deleted'" json:"external_id,omitempty"`
	Email        string     `gorm:"size:191;not null;index:idx_accounts_email_live,unique,where:status <> 'deleted'" json:"email"`
	PasswordHash string     `gorm:"size:255" json:"-"`
	Name         string     `gorm:"size:120;not null" json:"name"`
	Phone        *string    `gorm:"size:32" json:"phone,omitempty"`
	PhotoURL     *string    `gorm:"type:text" json:"photo_url,omitempty"`
	Role         string     `gorm:"size:20;not null;index" json:"role"`
	Status       string     `gorm:"size:20;not null;index" json:"status"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`

	Student *StudentProfile `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE" json:"student_profile,omitempty"`
	Tutor   *TutorProfile   `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE" json:"tutor_profile,omitempty"`
	Admin   *AdminProfile   `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE" json:"admin_profile,omitempty"`
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		a.ID = id
	}
	return nil
}

// RoleProfile is the role specific half of an account.
type RoleProfile interface {
	ProfileRole() string
}

// Profile returns the variant matching the account role, or nil when it was
// not loaded.
func (a *Account) Profile() RoleProfile {
	switch a.Role {
	case RoleStudent:
		if a.Student != nil {
			return a.Student
		}
	case RoleTutor:
		if a.Tutor != nil {
			return a.Tutor
		}
	case RoleAdmin:
		if a.Admin != nil {
			return a.Admin
		}
	}
	return nil
}

// SetProfile attaches p and clears the other variants.
func (a *Account) SetProfile(p RoleProfile) {
	a.Student, a.Tutor, a.Admin = nil, nil, nil
	switch v := p.(type) {
	case *StudentProfile:
		v.AccountID = a.ID
		a.Student = v
	case *TutorProfile:
		v.AccountID = a.ID
		a.Tutor = v
	case *AdminProfile:
		v.AccountID = a.ID
		a.Admin = v
	}
}

// EmptyProfile returns a blank profile for role.
func EmptyProfile(role string) RoleProfile {
	switch role {
	case RoleStudent:
		return &StudentProfile{}
	case RoleTutor:
		return &TutorProfile{}
	case RoleAdmin:
		return &AdminProfile{}
	}
	return nil
}

// Usable reports whether the account may act at all.
func (a *Account) Usable() bool {
	return a.Status == AccountActive || a.Status == AccountPending
}

type StudentProfile struct {
	AccountID         uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"-"`
	ClassLevel        string                      `gorm:"size:60" json:"class_level"`
	Institution       string                      `gorm:"size:160" json:"institution"`
	PreferredSubjects datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"preferred_subjects"`
	UpdatedAt         time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (*StudentProfile) ProfileRole() string { return RoleStudent }

type TutorProfile struct {
	AccountID       uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"-"`
	Qualifications  string                      `gorm:"type:text" json:"qualifications"`
	Subjects        datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"subjects"`
	Experience      string                      `gorm:"type:text" json:"experience"`
	ExperienceYears int                         `json:"experience_years"`
	ExpectedSalary  decimal.Decimal             `gorm:"type:numeric(12,2);default:0" json:"expected_salary"`
	Availability    datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"availability"`
	Location        string                      `gorm:"size:160;index" json:"location"`
	Bio             string                      `gorm:"type:text" json:"bio"`
	RatingAverage   float64                     `gorm:"not null;default:0" json:"rating_average"`
	RatingCount     int                         `gorm:"not null;default:0" json:"rating_count"`
	UpdatedAt       time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (*TutorProfile) ProfileRole() string { return RoleTutor }

type AdminProfile struct {
	AccountID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	Designation string    `gorm:"size:120" json:"designation"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (*AdminProfile) ProfileRole() string { return RoleAdmin }
