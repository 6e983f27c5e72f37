package matching

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	defaultWhyRecommended = "General scholarship match"
	hoursPerDay           = 24
)

// Score evaluates one scholarship rule against a normalized profile. It is pure:
// the same inputs and now always produce the same result.
func Score(rule Rule, p NormalizedProfile, now time.Time, cfg Config) MatchResult {
	cfg = cfg.withDefaults()

	s := &scoring{
		res: MatchResult{
			MatchedCriteria:  []string{},
			FailedCriteria:   []string{},
			WhyRecommended:   []string{},
			WhyNot:           []string{},
			PreparationSteps: []string{},
		},
	}

	s.degreeLevel(rule, p, cfg)
	s.gpa(rule, p, cfg)
	s.field(rule, p, cfg)
	s.english(rule, p, cfg)
	s.country(rule, p, cfg)

	days := DaysUntil(rule.Deadline, now)
	bonus := 0
	if !rule.Deadline.IsZero() && days >= 0 {
		switch {
		case days <= cfg.UrgentDeadlineDays:
			bonus = cfg.UrgentDeadlineBonus
			s.why(fmt.Sprintf("⚡ URGENT: Deadline in %d days!", days))
		case days <= cfg.ApproachingDeadlineDays:
			bonus = cfg.ApproachingDeadlineBonus
			s.why(fmt.Sprintf("⏰ Deadline approaching in %d days", days))
		}
	}

	res := s.res
	res.Score = clamp(s.points+bonus, 0, 100)
	res.Eligible = len(res.FailedCriteria) == 0
	res.Category = cfg.Categorize(res.Score)
	res.DaysUntilDeadline = days
	if len(res.WhyRecommended) == 0 {
		res.WhyRecommended = []string{defaultWhyRecommended}
	}

	res.Details = Details{UserLevel: p.DegreeLevel, UserField: p.FieldOfStudy}
	if g, ok := p.UsableGPA(); ok {
		res.Details.UserGPA = &g
	}
	if e, ok := p.EnglishOverall(); ok {
		res.Details.UserIELTS = &e
	}
	return res
}

// DaysUntil is the number of whole days from now to deadline, rounded down.
// A missing deadline counts as 0 days; Score gives no bonus for it.
func DaysUntil(deadline, now time.Time) int {
	if deadline.IsZero() {
		return 0
	}
	return int(math.Floor(deadline.Sub(now).Hours() / hoursPerDay))
}

type scoring struct {
	res    MatchResult
	points int
}

func (s *scoring) pass(criterion string, points int, reason string) {
	s.points += points
	s.res.MatchedCriteria = append(s.res.MatchedCriteria, criterion)
	s.why(reason)
}

func (s *scoring) fail(criterion string, reasons ...string) {
	s.res.FailedCriteria = append(s.res.FailedCriteria, criterion)
	s.res.WhyNot = append(s.res.WhyNot, reasons...)
}

func (s *scoring) why(reason string) {
	s.res.WhyRecommended = append(s.res.WhyRecommended, reason)
}

func (s *scoring) prep(steps ...string) {
	s.res.PreparationSteps = append(s.res.PreparationSteps, steps...)
}

func (s *scoring) degreeLevel(rule Rule, p NormalizedProfile, cfg Config) {
	levels := cleanList(rule.Levels)
	if len(levels) == 0 {
		s.pass(CriterionDegreeLevel, cfg.WeightDegreeLevel, "✓ No specific degree level required")
		return
	}
	if p.DegreeLevel != "" && containsLevel(levels, p.DegreeLevel) {
		s.pass(CriterionDegreeLevel, cfg.WeightDegreeLevel,
			fmt.Sprintf("✓ Your %s level matches the scholarship requirement", p.DegreeLevel))
		return
	}

	have := p.DegreeLevel
	if have == "" {
		have = "Not specified"
		s.prep("Complete your education level in your profile")
	}
	s.fail(CriterionDegreeLevel, fmt.Sprintf("✗ Required: %s, You have: %s", strings.Join(levels, ", "), have))
}

func (s *scoring) gpa(rule Rule, p NormalizedProfile, cfg Config) {
	if rule.MinGPA == nil || *rule.MinGPA <= 0 {
		s.pass(CriterionGPA, cfg.WeightGPA, "✓ No minimum GPA requirement")
		return
	}
	minGPA := *rule.MinGPA

	gpa, ok := p.UsableGPA()
	if !ok {
		s.fail(CriterionGPA, "✗ GPA not found in your profile or documents")
		s.prep("Upload your transcript or add GPA to your profile")
		return
	}

	if gpa >= minGPA {
		s.pass(CriterionGPA, cfg.WeightGPA,
			fmt.Sprintf("✓ Your GPA (%s) exceeds the minimum requirement (%s)", fixed(gpa, 2), num(minGPA)))
		if margin := gpa - minGPA; margin >= GPAMarginStrong {
			s.why(fmt.Sprintf("  Strong candidate - GPA is %s points above minimum", fixed(margin, 2)))
		}
		return
	}

	s.fail(CriterionGPA, fmt.Sprintf("✗ Your GPA (%s) is below the minimum (%s)", fixed(gpa, 2), num(minGPA)))
	s.prep(
		fmt.Sprintf("Work on improving your GPA by %s points", fixed(minGPA-gpa, 2)),
		"Consider scholarships with lower GPA requirements",
	)
}

func (s *scoring) field(rule Rule, p NormalizedProfile, cfg Config) {
	required := cleanList(rule.RequiredFields)
	if len(required) == 0 {
		s.pass(CriterionField, cfg.WeightField, "✓ Open to all fields of study")
		return
	}
	if p.FieldOfStudy == "" {
		s.fail(CriterionField, "✗ Field of study not specified in your profile")
		s.prep("Add your major/field of study to your profile")
		return
	}
	if fieldMatches(required, p.FieldOfStudy) {
		s.pass(CriterionField, cfg.WeightField,
			fmt.Sprintf("✓ Your field (%s) matches the scholarship requirements", p.FieldOfStudy))
		return
	}
	s.fail(CriterionField,
		fmt.Sprintf("✗ Required fields: %s", strings.Join(required, ", ")),
		fmt.Sprintf("  Your field: %s", p.FieldOfStudy),
	)
	s.prep(fmt.Sprintf("Consider scholarships in %s", p.FieldOfStudy))
}

func (s *scoring) english(rule Rule, p NormalizedProfile, cfg Config) {
	hasMin := rule.RequiredEnglishScore != nil && *rule.RequiredEnglishScore > 0
	if !hasMin && !requiresIELTS(rule.RequiredDocs) {
		s.pass(CriterionEnglish, cfg.WeightEnglish, "✓ No English proficiency test required")
		return
	}
	required := cfg.DefaultEnglishScore
	if hasMin {
		required = *rule.RequiredEnglishScore
	}

	overall, ok := p.EnglishOverall()
	if !ok {
		s.fail(CriterionEnglish, "✗ IELTS score not found in your documents")
		s.prep("Upload your IELTS scorecard or take the IELTS exam")
		return
	}
	if overall >= required {
		s.pass(CriterionEnglish, cfg.WeightEnglish,
			fmt.Sprintf("✓ Your IELTS (%s) meets the requirement (%s)", num(overall), num(required)))
		return
	}
	s.fail(CriterionEnglish, fmt.Sprintf("✗ Your IELTS (%s) is below the requirement (%s)", num(overall), num(required)))
	s.prep(
		fmt.Sprintf("Improve your IELTS score by %s points", fixed(required-overall, 1)),
		"Consider taking IELTS preparation courses",
	)
}

// country never fails: an unpreferred country earns half credit and a warning.
func (s *scoring) country(rule Rule, p NormalizedProfile, cfg Config) {
	country := strings.TrimSpace(rule.Country)
	switch {
	case country == "":
		s.pass(CriterionCountry, cfg.WeightCountry, "✓ No country restriction")
	case len(p.PreferredCountries) == 0:
		s.pass(CriterionCountry, cfg.WeightCountry, fmt.Sprintf("✓ Scholarship is in %s", country))
	case containsFold(p.PreferredCountries, country):
		s.pass(CriterionCountry, cfg.WeightCountry, fmt.Sprintf("✓ %s is one of your preferred countries", country))
	default:
		s.points += cfg.WeightCountry / 2
		s.res.WhyNot = append(s.res.WhyNot, fmt.Sprintf("⚠ %s is not in your preferred countries", country))
	}
}

func containsLevel(levels []string, level string) bool {
	want := strings.ToLower(CanonicalLevel(level))
	for _, l := range levels {
		if strings.ToLower(CanonicalLevel(l)) == want {
			return true
		}
	}
	return false
}

// fieldMatches is a case-insensitive substring test in either direction.
func fieldMatches(required []string, field string) bool {
	f := strings.ToLower(field)
	for _, r := range required {
		rl := strings.ToLower(r)
		if strings.Contains(f, rl) || strings.Contains(rl, f) {
			return true
		}
	}
	return false
}

func requiresIELTS(docs []string) bool {
	for _, d := range docs {
		if strings.Contains(strings.ToLower(d), "ielts") {
			return true
		}
	}
	return false
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), v) {
			return true
		}
	}
	return false
}

func fixed(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
