package matching

import "time"

const (
	WeightDegreeLevel = 30
	WeightGPA         = 25
	WeightField       = 20
	WeightEnglish     = 15
	WeightCountry     = 10

	DefaultEnglishScore = 6.0
	DefaultTierLimit    = 10
	DefaultCandidateCap = 30

	HighlyRecommendedThreshold = 80
	PartiallySuitableThreshold = 60

	UrgentDeadlineDays       = 7
	UrgentDeadlineBonus      = 5
	ApproachingDeadlineDays  = 30
	ApproachingDeadlineBonus = 3

	// GPAMarginStrong is the margin above minGPA that earns the "strong candidate" note.
	GPAMarginStrong = 0.5
)

// Config carries every threshold the scorer and orchestrator use. It is passed
// explicitly so tests can override values.
type Config struct {
	WeightDegreeLevel int
	WeightGPA         int
	WeightField       int
	WeightEnglish     int
	WeightCountry     int

	DefaultEnglishScore float64

	HighlyRecommendedThreshold int
	PartiallySuitableThreshold int

	UrgentDeadlineDays       int
	UrgentDeadlineBonus      int
	ApproachingDeadlineDays  int
	ApproachingDeadlineBonus int

	TierLimit int
	// Timeout bounds the store fetches of a single request.
	Timeout time.Duration
}

// DefaultConfig returns the canonical 30/25/20/15/10 weighting.
func DefaultConfig() Config {
	return Config{
		WeightDegreeLevel:          WeightDegreeLevel,
		WeightGPA:                  WeightGPA,
		WeightField:                WeightField,
		WeightEnglish:              WeightEnglish,
		WeightCountry:              WeightCountry,
		DefaultEnglishScore:        DefaultEnglishScore,
		HighlyRecommendedThreshold: HighlyRecommendedThreshold,
		PartiallySuitableThreshold: PartiallySuitableThreshold,
		UrgentDeadlineDays:         UrgentDeadlineDays,
		UrgentDeadlineBonus:        UrgentDeadlineBonus,
		ApproachingDeadlineDays:    ApproachingDeadlineDays,
		ApproachingDeadlineBonus:   ApproachingDeadlineBonus,
		TierLimit:                  DefaultTierLimit,
		Timeout:                    10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WeightDegreeLevel == 0 && c.WeightGPA == 0 && c.WeightField == 0 && c.WeightEnglish == 0 && c.WeightCountry == 0 {
		c.WeightDegreeLevel, c.WeightGPA, c.WeightField, c.WeightEnglish, c.WeightCountry =
			d.WeightDegreeLevel, d.WeightGPA, d.WeightField, d.WeightEnglish, d.WeightCountry
	}
	if c.DefaultEnglishScore <= 0 {
		c.DefaultEnglishScore = d.DefaultEnglishScore
	}
	if c.HighlyRecommendedThreshold == 0 {
		c.HighlyRecommendedThreshold = d.HighlyRecommendedThreshold
	}
	if c.PartiallySuitableThreshold == 0 {
		c.PartiallySuitableThreshold = d.PartiallySuitableThreshold
	}
	if c.UrgentDeadlineDays == 0 && c.UrgentDeadlineBonus == 0 {
		c.UrgentDeadlineDays, c.UrgentDeadlineBonus = d.UrgentDeadlineDays, d.UrgentDeadlineBonus
	}
	if c.ApproachingDeadlineDays == 0 && c.ApproachingDeadlineBonus == 0 {
		c.ApproachingDeadlineDays, c.ApproachingDeadlineBonus = d.ApproachingDeadlineDays, d.ApproachingDeadlineBonus
	}
	if c.TierLimit <= 0 {
		c.TierLimit = d.TierLimit
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	return c
}
