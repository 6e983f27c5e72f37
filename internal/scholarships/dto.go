package scholarships

import (
	"fmt"
	"strings"
	"time"
)

type universityRequest struct {
	Name    string `json:"name" binding:"max=200"`
	Country string `json:"country" binding:"max=80"`
	City    string `json:"city" binding:"max=80"`
	Website string `json:"website" binding:"max=500"`
}

type eligibilityRequest struct {
	MinGPA               *float64 `json:"minGPA" binding:"omitempty,gte=0,lte=4"`
	RequiredDocs         []string `json:"requiredDocs"`
	RequiredEnglishScore *float64 `json:"requiredEnglishScore" binding:"omitempty,gte=0,lte=9"`
	AgeLimit             *int     `json:"ageLimit" binding:"omitempty,gt=0"`
	Nationality          []string `json:"nationality"`
}

// scholarshipRequest is the admin create/update body.
type scholarshipRequest struct {
	Title        string             `json:"title" binding:"required,max=300"`
	Description  string             `json:"description" binding:"max=10000"`
	Country      string             `json:"country" binding:"required,max=80"`
	University   universityRequest  `json:"university"`
	Levels       []string           `json:"levels"`
	Fields       []string           `json:"fields"`
	Deadline     string             `json:"deadline" binding:"required"`
	Eligibility  eligibilityRequest `json:"eligibility"`
	Benefits     string             `json:"benefits"`
	Amount       string             `json:"amount"`
	ExternalLink string             `json:"externalLink"`
	Status       string             `json:"status" binding:"omitempty,oneof=open upcoming closed"`
}

// deadlineLayouts are accepted in order; a bare date means end of that day UTC.
var deadlineLayouts = []string{time.RFC3339, "2006-01-02"}

func parseDeadline(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range deadlineLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if layout == "2006-01-02" {
			t = t.Add(24*time.Hour - time.Second)
		}
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: deadline must be RFC3339 or YYYY-MM-DD", ErrInvalidInput)
}

func (r scholarshipRequest) toModel() (Scholarship, error) {
	deadline, err := parseDeadline(r.Deadline)
	if err != nil {
		return Scholarship{}, err
	}
	amount := r.Amount
	if strings.TrimSpace(amount) == "" {
		amount = "Full Tuition"
	}
	return Scholarship{
		Title:       r.Title,
		Description: r.Description,
		Country:     r.Country,
		University: University{
			Name:    r.University.Name,
			Country: r.University.Country,
			City:    r.University.City,
			Website: r.University.Website,
		},
		Levels:   r.Levels,
		Fields:   r.Fields,
		Deadline: deadline,
		Eligibility: Eligibility{
			MinGPA:               r.Eligibility.MinGPA,
			RequiredDocs:         r.Eligibility.RequiredDocs,
			RequiredEnglishScore: r.Eligibility.RequiredEnglishScore,
			AgeLimit:             r.Eligibility.AgeLimit,
			Nationality:          r.Eligibility.Nationality,
		},
		Benefits:     r.Benefits,
		Amount:       amount,
		ExternalLink: strings.TrimSpace(r.ExternalLink),
		Status:       r.Status,
	}, nil
}
