package scholarships

import "time"

const (
	StatusOpen     = "open"
	StatusUpcoming = "upcoming"
	StatusClosed   = "closed"
)

// Levels a scholarship may target.
var Levels = []string{"+2", "Bachelor", "Master", "PhD", "Undergraduate", "Graduate", "Short Course"}

// openWindow is how close a deadline must be for an upcoming scholarship to open.
const openWindow = 7 * 24 * time.Hour

type University struct {
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
	City    string `json:"city,omitempty"`
	Website string `json:"website,omitempty"`
}

// Eligibility holds the requirements the matching engine scores against.
// Nil or empty fields mean no requirement.
type Eligibility struct {
	MinGPA               *float64 `json:"minGPA,omitempty"`
	RequiredDocs         []string `json:"requiredDocs"`
	RequiredEnglishScore *float64 `json:"requiredEnglishScore,omitempty"`
	AgeLimit             *int     `json:"ageLimit,omitempty"`
	Nationality          []string `json:"nationality"`
}

type Scholarship struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Country       string      `json:"country"`
	University    University  `json:"university"`
	Levels        []string    `json:"levels"`
	Fields        []string    `json:"fields"`
	Deadline      time.Time   `json:"deadline"`
	Eligibility   Eligibility `json:"eligibility"`
	Benefits      string      `json:"benefits,omitempty"`
	Amount        string      `json:"amount,omitempty"`
	ExternalLink  string      `json:"externalLink,omitempty"`
	Status        string      `json:"status"`
	Verified      bool        `json:"verified"`
	CreatedBy     string      `json:"createdBy,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
	BookmarkCount int         `json:"bookmarkCount,omitempty"`
}

// Filter narrows a listing. Empty fields do not filter.
type Filter struct {
	Country           string
	Level             string
	Field             string
	Status            string
	Search            string
	IncludeUnverified bool
	Page              int
	Limit             int
}

func (f Filter) offset() int {
	return (f.Page - 1) * f.Limit
}

// DeriveStatus closes scholarships past their deadline and opens upcoming ones
// whose deadline is within a week.
func DeriveStatus(status string, deadline, now time.Time) string {
	if deadline.IsZero() {
		return status
	}
	if deadline.Before(now) {
		return StatusClosed
	}
	if status == StatusUpcoming && deadline.Sub(now) <= openWindow {
		return StatusOpen
	}
	return status
}
