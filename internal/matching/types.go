package matching

import "time"

// Criterion names reported in matchedCriteria / failedCriteria.
const (
	CriterionDegreeLevel = "Degree Level"
	CriterionGPA         = "GPA"
	CriterionField       = "Field of Study"
	CriterionEnglish     = "English Score"
	CriterionCountry     = "Country Preference"
)

// Category is the score tier a scholarship falls into.
type Category string

const (
	CategoryHighlyRecommended Category = "highly_recommended"
	CategoryPartiallySuitable Category = "partially_suitable"
	CategoryExploreAndPrepare Category = "explore_and_prepare"
)

// EnglishScore holds IELTS-style band scores. Nil fields are absent.
type EnglishScore struct {
	Listening *float64 `json:"listening,omitempty"`
	Reading   *float64 `json:"reading,omitempty"`
	Writing   *float64 `json:"writing,omitempty"`
	Speaking  *float64 `json:"speaking,omitempty"`
	Overall   *float64 `json:"overall,omitempty"`
}

// ParsedDocument is one completed, parsed upload as seen by the engine.
// Type is the academic category (+2, bachelor, ielts, ...); DocumentType is the
// kind of paper (transcript, certificate, ielts, ...).
type ParsedDocument struct {
	ID           string
	Type         string
	DocumentType string
	Level        string
	GPA          *float64
	Percentage   *float64
	Stream       string
	PassingYear  *int
	English      *EnglishScore
	UploadedAt   time.Time
}

// UserProfile carries the fields a user declared on their account.
type UserProfile struct {
	EducationLevel     string
	Major              string
	GPA                *float64
	PreferredCountries []string
	Country            string
}

// NormalizedProfile is the academic snapshot used for scoring. It is derived
// per request and never stored.
type NormalizedProfile struct {
	DegreeLevel        string        `json:"degreeLevel,omitempty"`
	GPA                *float64      `json:"gpa,omitempty"`
	Percentage         *float64      `json:"percentage,omitempty"`
	FieldOfStudy       string        `json:"fieldOfStudy,omitempty"`
	PassingYear        *int          `json:"passingYear,omitempty"`
	English            *EnglishScore `json:"englishScore,omitempty"`
	PreferredCountries []string      `json:"preferredCountries,omitempty"`
	// SourceDocumentID is the document the academic fields were taken from.
	SourceDocumentID string `json:"sourceDocumentId,omitempty"`
}

// UsableGPA returns the GPA, or percentage/25 when only a percentage is known.
func (p NormalizedProfile) UsableGPA() (float64, bool) {
	if p.GPA != nil {
		return *p.GPA, true
	}
	if p.Percentage != nil {
		return *p.Percentage / 25, true
	}
	return 0, false
}

// EnglishOverall returns the overall band if one is known.
func (p NormalizedProfile) EnglishOverall() (float64, bool) {
	if p.English == nil || p.English.Overall == nil {
		return 0, false
	}
	return *p.English.Overall, true
}

// Rule is a scholarship's eligibility requirements. Zero values mean "no requirement".
type Rule struct {
	ScholarshipID        string
	Levels               []string
	MinGPA               *float64
	RequiredFields       []string
	RequiredEnglishScore *float64
	RequiredDocs         []string
	Country              string
	Deadline             time.Time
}

// Details echoes the profile values the score was computed from.
type Details struct {
	UserGPA   *float64 `json:"userGPA,omitempty"`
	UserIELTS *float64 `json:"userIELTS,omitempty"`
	UserLevel string   `json:"userLevel,omitempty"`
	UserField string   `json:"userField,omitempty"`
}

// MatchResult is the outcome of scoring one rule against one profile.
type MatchResult struct {
	Score             int      `json:"score"`
	Eligible          bool     `json:"eligible"`
	Category          Category `json:"category"`
	MatchedCriteria   []string `json:"matchedCriteria"`
	FailedCriteria    []string `json:"failedCriteria"`
	WhyRecommended    []string `json:"whyRecommended"`
	WhyNot            []string `json:"whyNot"`
	PreparationSteps  []string `json:"preparationSteps"`
	DaysUntilDeadline int      `json:"daysUntilDeadline"`
	Details           Details  `json:"details"`
}
