package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MaxRawText caps the extracted text kept alongside parsed fields.
const MaxRawText = 5000

// EnglishScore holds IELTS band scores read from a certificate.
type EnglishScore struct {
	Listening *float64 `json:"listening,omitempty"`
	Reading   *float64 `json:"reading,omitempty"`
	Writing   *float64 `json:"writing,omitempty"`
	Speaking  *float64 `json:"speaking,omitempty"`
	Overall   *float64 `json:"overall,omitempty"`
}

// ParsedData is the structured result of parsing one academic document.
type ParsedData struct {
	Level                string        `json:"level,omitempty"`
	GPA                  *float64      `json:"gpa,omitempty"`
	Percentage           *float64      `json:"percentage,omitempty"`
	Stream               string        `json:"stream,omitempty"`
	PassingYear          *int          `json:"passingYear,omitempty"`
	DegreeName           string        `json:"degreeName,omitempty"`
	EnglishScore         *EnglishScore `json:"englishScore,omitempty"`
	RawText              string        `json:"rawText,omitempty"`
	ExtractionConfidence int           `json:"extractionConfidence"`
}

var (
	gpaPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:GPA|CGPA|Grade Point Average)[\s:]*([0-9]+\.[0-9]+)\s*(?:/|\s*out\s*of)?\s*4\.?0?`),
		regexp.MustCompile(`(?i)([0-9]+\.[0-9]+)\s*(?:/|\s*out\s*of)?\s*4\.?0?\s*(?:GPA|CGPA)`),
		regexp.MustCompile(`(?i)(?:GPA|CGPA)[\s:]*([0-9]+\.[0-9]+)`),
	}

	percentagePatterns = []*regexp.Regexp{
		regexp.MustCompile(`([0-9]+\.?[0-9]*)\s*%`),
		regexp.MustCompile(`(?i)([0-9]+\.?[0-9]*)\s*percent`),
		regexp.MustCompile(`Percentage[:\s]+([0-9]+\.?[0-9]*)`),
	}

	yearLabelled   = regexp.MustCompile(`(?i)(?:year|passed|completed|graduated)[:\s]*([0-9]{4})`)
	yearStandalone = regexp.MustCompile(`\b(20[0-9]{2})\b`)

	degreeNamePattern = regexp.MustCompile(`(?i)(?:degree|program|course)[:\s]+([A-Z][a-zA-Z\s]+)`)

	// Single-letter band labels must stand alone so words like "level 7" do not match.
	bandPatterns = []struct {
		name string
		re   *regexp.Regexp
	}{
		{"listening", regexp.MustCompile(`\b(?:listening|l)\b[\s:]*([0-9](?:\.[0-9]+)?)`)},
		{"reading", regexp.MustCompile(`\b(?:reading|r)\b[\s:]*([0-9](?:\.[0-9]+)?)`)},
		{"writing", regexp.MustCompile(`\b(?:writing|w)\b[\s:]*([0-9](?:\.[0-9]+)?)`)},
		{"speaking", regexp.MustCompile(`\b(?:speaking|s)\b[\s:]*([0-9](?:\.[0-9]+)?)`)},
		{"overall", regexp.MustCompile(`\b(?:overall|total|band|score)\b[\s:]*([0-9](?:\.[0-9]+)?)`)},
	}

	levelRules = []struct {
		level string
		re    *regexp.Regexp
	}{
		{"+2", regexp.MustCompile(`\+2|12th|higher secondary`)},
		{"Bachelor", regexp.MustCompile(`bachelor|bsc|\bba\b|b\.tech`)},
		{"Master", regexp.MustCompile(`master|msc|\bma\b|m\.tech`)},
		{"PhD", regexp.MustCompile(`phd|ph\.d|doctorate`)},
	}

	streamRules = []struct {
		stream   string
		keywords []string
	}{
		{"Science", []string{"science", "physics", "chemistry", "biology", "mathematics", "math"}},
		{"Management", []string{"management", "business", "commerce", "accounting", "finance"}},
		{"Arts", []string{"arts", "humanities", "english", "sociology", "psychology"}},
		{"Engineering", []string{"engineering", "computer", "electrical", "mechanical", "civil"}},
		{"Medical", []string{"medical", "medicine", "mbbs", "nursing"}},
		{"Law", []string{"law", "legal", "llb"}},
	}
)

// ParseAcademic reads academic fields out of extracted document text.
// IELTS bands are only looked for on ielts documents or text that mentions IELTS.
func ParseAcademic(text, documentType string) ParsedData {
	return parseAt(text, documentType, time.Now())
}

func parseAt(text, documentType string, now time.Time) ParsedData {
	lower := strings.ToLower(text)
	out := ParsedData{
		RawText:     truncate(text, MaxRawText),
		Level:       parseLevel(lower),
		GPA:         firstInRange(gpaPatterns, text, 0, 4),
		Percentage:  firstInRange(percentagePatterns, text, 0, 100),
		Stream:      parseStream(lower),
		PassingYear: parseYear(text, now.Year()+1),
	}
	if strings.EqualFold(documentType, "ielts") || strings.Contains(lower, "ielts") {
		out.EnglishScore = parseEnglish(lower)
	}
	if m := degreeNamePattern.FindStringSubmatch(text); m != nil {
		out.DegreeName = strings.TrimSpace(m[1])
	}
	return out
}

// firstInRange tries each pattern in order and keeps the first capture that parses into [lo, hi].
func firstInRange(patterns []*regexp.Regexp, text string, lo, hi float64) *float64 {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil || v < lo || v > hi {
			continue
		}
		return &v
	}
	return nil
}

func parseLevel(lower string) string {
	for _, r := range levelRules {
		if r.re.MatchString(lower) {
			return r.level
		}
	}
	return ""
}

func parseStream(lower string) string {
	for _, r := range streamRules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.stream
			}
		}
	}
	return ""
}

func parseYear(text string, maxYear int) *int {
	for _, re := range []*regexp.Regexp{yearLabelled, yearStandalone} {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		year, err := strconv.Atoi(m[1])
		if err != nil || year < 2000 || year > maxYear {
			continue
		}
		return &year
	}
	return nil
}

func parseEnglish(lower string) *EnglishScore {
	var score EnglishScore
	slots := map[string]**float64{
		"listening": &score.Listening,
		"reading":   &score.Reading,
		"writing":   &score.Writing,
		"speaking":  &score.Speaking,
		"overall":   &score.Overall,
	}
	found := false
	for _, p := range bandPatterns {
		m := p.re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil || v < 0 || v > 9 {
			continue
		}
		*slots[p.name] = &v
		found = true
	}
	if !found {
		return nil
	}
	if score.Overall == nil {
		var sum float64
		var n int
		for _, b := range []*float64{score.Listening, score.Reading, score.Writing, score.Speaking} {
			if b != nil {
				sum += *b
				n++
			}
		}
		avg := math.Round(sum/float64(n)*10) / 10
		score.Overall = &avg
	}
	return &score
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
