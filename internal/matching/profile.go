package matching

import (
	"strings"
)

// Missing-data labels surfaced in recommendation stats.
const (
	MissingEducationLevel     = "Education Level"
	MissingGPA                = "GPA"
	MissingFieldOfStudy       = "Field of Study"
	MissingIELTSScore         = "IELTS Score"
	MissingPreferredCountries = "Preferred Countries"
)

var canonicalLevels = map[string]string{
	"+2":            "+2",
	"plus two":      "+2",
	"high school":   "+2",
	"bachelor":      "Bachelor",
	"bachelors":     "Bachelor",
	"bachelor's":    "Bachelor",
	"undergraduate": "Bachelor",
	"master":        "Master",
	"masters":       "Master",
	"master's":      "Master",
	"graduate":      "Master",
	"postgraduate":  "Master",
	"phd":           "PhD",
	"ph.d":          "PhD",
	"ph.d.":         "PhD",
	"doctorate":     "PhD",
	"doctoral":      "PhD",
}

// CanonicalLevel maps case variants and common aliases of a degree level onto
// its canonical spelling. "Graduate" is read as Master. Unknown levels are
// returned trimmed.
func CanonicalLevel(level string) string {
	trimmed := strings.TrimSpace(level)
	if canon, ok := canonicalLevels[strings.ToLower(trimmed)]; ok {
		return canon
	}
	return trimmed
}

// ExtractProfile builds the normalized profile from a user's completed documents.
// The document with the highest academic figure (gpa, else percentage/25) supplies
// level, gpa, percentage, stream and passing year. The English score comes from the
// first English-test document independently. Fields still absent afterwards fall
// back to the declared profile; the English score never does.
func ExtractProfile(docs []ParsedDocument, fallback UserProfile) NormalizedProfile {
	var p NormalizedProfile

	best := 0.0
	for _, d := range docs {
		gpa := validGPA(d.GPA)
		pct := validPercentage(d.Percentage)

		figure := 0.0
		switch {
		case gpa != nil:
			figure = *gpa
		case pct != nil:
			figure = *pct / 25
		}
		if figure <= best {
			continue
		}
		best = figure

		p.DegreeLevel = CanonicalLevel(d.Level)
		if p.DegreeLevel == "" {
			p.DegreeLevel = levelFromDocumentType(d.Type)
		}
		p.GPA = gpa
		p.Percentage = pct
		p.FieldOfStudy = strings.TrimSpace(d.Stream)
		p.PassingYear = copyInt(d.PassingYear)
		p.SourceDocumentID = d.ID
	}

	for _, d := range docs {
		if !isEnglishTestDocument(d) {
			continue
		}
		if eng := sanitizeEnglish(d.English); eng != nil {
			p.English = eng
			break
		}
	}

	if p.DegreeLevel == "" {
		p.DegreeLevel = CanonicalLevel(fallback.EducationLevel)
	}
	if p.GPA == nil && p.Percentage == nil {
		p.GPA = validGPA(fallback.GPA)
	}
	if p.FieldOfStudy == "" {
		p.FieldOfStudy = strings.TrimSpace(fallback.Major)
	}
	p.PreferredCountries = cleanList(fallback.PreferredCountries)
	return p
}

// MissingData lists the profile facts the user has not supplied anywhere.
func MissingData(p NormalizedProfile) []string {
	missing := []string{}
	if p.DegreeLevel == "" {
		missing = append(missing, MissingEducationLevel)
	}
	if _, ok := p.UsableGPA(); !ok {
		missing = append(missing, MissingGPA)
	}
	if p.FieldOfStudy == "" {
		missing = append(missing, MissingFieldOfStudy)
	}
	if _, ok := p.EnglishOverall(); !ok {
		missing = append(missing, MissingIELTSScore)
	}
	if len(p.PreferredCountries) == 0 {
		missing = append(missing, MissingPreferredCountries)
	}
	return missing
}

func isEnglishTestDocument(d ParsedDocument) bool {
	return strings.EqualFold(d.Type, "ielts") ||
		strings.EqualFold(d.DocumentType, "ielts") ||
		d.English != nil
}

// levelFromDocumentType accepts the upload category as a level only when it
// names an academic level.
func levelFromDocumentType(docType string) string {
	if canon, ok := canonicalLevels[strings.ToLower(strings.TrimSpace(docType))]; ok {
		return canon
	}
	return ""
}

func sanitizeEnglish(in *EnglishScore) *EnglishScore {
	if in == nil {
		return nil
	}
	out := &EnglishScore{
		Listening: validBand(in.Listening),
		Reading:   validBand(in.Reading),
		Writing:   validBand(in.Writing),
		Speaking:  validBand(in.Speaking),
		Overall:   validBand(in.Overall),
	}
	if out.Overall == nil {
		return nil
	}
	return out
}

func validGPA(v *float64) *float64 {
	return inRange(v, 0, 4)
}

func validPercentage(v *float64) *float64 {
	return inRange(v, 0, 100)
}

func validBand(v *float64) *float64 {
	return inRange(v, 0, 9)
}

// inRange returns a copy of v when it lies in [lo, hi]; out-of-range values are treated as absent.
func inRange(v *float64, lo, hi float64) *float64 {
	if v == nil || *v < lo || *v > hi {
		return nil
	}
	c := *v
	return &c
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
