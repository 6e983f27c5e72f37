package users

import "time"

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// EducationLevels are the levels a user may declare on their profile.
var EducationLevels = []string{"+2", "Bachelor", "Master", "PhD"}

// Profile holds the academic facts a user declared themselves.
type Profile struct {
	EducationLevel     string   `json:"educationLevel,omitempty"`
	Major              string   `json:"major,omitempty"`
	GPA                *float64 `json:"gpa,omitempty"`
	PreferredCountries []string `json:"preferredCountries"`
	Country            string   `json:"country,omitempty"`
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Profile      Profile   `json:"profile"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ProfileUpdate is a partial update; nil fields are left unchanged.
type ProfileUpdate struct {
	Name               *string
	EducationLevel     *string
	Major              *string
	GPA                *float64
	PreferredCountries []string
	Country            *string
}

// ListFilter narrows the admin user listing. Search matches name or email.
type ListFilter struct {
	Role   string
	Search string
	Limit  int
	Offset int
}
