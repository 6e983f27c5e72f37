package matching

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"applybro-backend/internal/shared/metrics"
	"applybro-backend/internal/shared/telemetry"
)

const (
	DefaultRecommendLimit = DefaultCandidateCap
	DefaultLegacyLimit    = 10
	MaxRecommendLimit     = 100

	variantTiered = "tiered"
	variantLegacy = "legacy"
	variantMatch  = "match"
	variantSingle = "explain"

	MessageNoDocuments       = "No documents found. Please upload your documents first."
	MessageNoScholarships    = "No scholarships available for matching."
	MessageProfileOnlyScores = "No parsed documents yet. Results use your profile only; upload your transcripts and IELTS scorecard for more accurate matches."
)

// Candidate is a scholarship offered to the engine: its rule, a short summary
// for match listings, and the full record echoed back to clients.
type Candidate struct {
	Rule        Rule
	Summary     ScholarshipSummary
	Scholarship any
}

// ScholarshipSummary is the subset of a scholarship shown in match listings.
type ScholarshipSummary struct {
	Title      string    `json:"title"`
	Country    string    `json:"country,omitempty"`
	Levels     []string  `json:"levels"`
	Deadline   time.Time `json:"deadline"`
	Amount     string    `json:"amount,omitempty"`
	University string    `json:"university,omitempty"`
}

// ScholarshipSource supplies scoring candidates.
type ScholarshipSource interface {
	// ListMatchCandidates returns open, verified scholarships whose deadline is
	// after now, soonest deadline first, at most limit of them.
	ListMatchCandidates(ctx context.Context, now time.Time, limit int) ([]Candidate, error)
	// ListMatchable returns every open or upcoming verified scholarship.
	ListMatchable(ctx context.Context) ([]Candidate, error)
	// GetCandidate returns ErrScholarshipNotFound when id is unknown.
	GetCandidate(ctx context.Context, id string) (Candidate, error)
}

// DocumentSource supplies a user's documents whose parsing has completed, newest first.
type DocumentSource interface {
	ListCompletedByUser(ctx context.Context, userID string) ([]ParsedDocument, error)
}

// ProfileSource returns ErrUserNotFound when the user does not exist.
type ProfileSource interface {
	GetProfile(ctx context.Context, userID string) (UserProfile, error)
}

// Service orchestrates profile extraction, scoring and ranking for a user.
type Service struct {
	Scholarships ScholarshipSource
	Documents    DocumentSource
	Profiles     ProfileSource
	Config       Config
	Now          func() time.Time
}

// NewService constructs a Service with the given collaborators.
func NewService(scholarships ScholarshipSource, docs DocumentSource, profiles ProfileSource, cfg Config) *Service {
	return &Service{
		Scholarships: scholarships,
		Documents:    docs,
		Profiles:     profiles,
		Config:       cfg.withDefaults(),
		Now:          func() time.Time { return time.Now().UTC() },
	}
}

// Stats summarizes a tiered run.
type Stats struct {
	TotalAnalyzed int      `json:"totalAnalyzed"`
	EligibleCount int      `json:"eligibleCount"`
	MissingData   []string `json:"missingData"`
	HasDocuments  bool     `json:"hasDocuments"`
	DocumentCount int      `json:"documentCount"`
}

// Recommendations is the tiered result.
type Recommendations struct {
	Tiers
	Stats   Stats             `json:"stats"`
	Profile NormalizedProfile `json:"profile"`
	Message string            `json:"message,omitempty"`
}

// Recommend scores up to limit*2 upcoming candidates and returns them tiered.
// A user without parsed documents is scored on profile fields alone.
func (s *Service) Recommend(ctx context.Context, userID string, limit int) (out Recommendations, err error) {
	started := time.Now()
	defer func() { metrics.ObserveRecommendation(variantTiered, started, err) }()

	limit = clampLimit(limit, DefaultRecommendLimit)
	cfg := s.Config.withDefaults()
	now := s.now()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	profile, docs, err := s.loadProfile(ctx, userID)
	if err != nil {
		return Recommendations{}, err
	}
	candidates, err := s.Scholarships.ListMatchCandidates(ctx, now, limit*2)
	if err != nil {
		return Recommendations{}, fmt.Errorf("list scholarships: %w", err)
	}

	ranked, eligible := scoreAll(candidates, profile, now, cfg)
	Rank(ranked)

	out = Recommendations{
		Tiers:   SplitTiers(ranked, cfg.TierLimit),
		Profile: profile,
		Stats: Stats{
			TotalAnalyzed: len(candidates),
			EligibleCount: eligible,
			MissingData:   MissingData(profile),
			HasDocuments:  len(docs) > 0,
			DocumentCount: len(docs),
		},
	}
	if len(docs) == 0 {
		out.Message = MessageProfileOnlyScores
	}

	telemetry.Info("recommendations.generated", map[string]any{
		"user_id":        userID,
		"analyzed":       len(candidates),
		"eligible":       eligible,
		"highly":         len(out.HighlyRecommended),
		"partially":      len(out.PartiallySuitable),
		"explore":        len(out.ExploreAndPrepare),
		"document_count": len(docs),
		"duration_ms":    time.Since(started).Milliseconds(),
	})
	return out, nil
}

// LegacyRecommendation is the flat recommendation shape: the scholarship's own
// fields merged with score, matchedBy and daysUntilDeadline.
type LegacyRecommendation struct {
	Scholarship       any
	Score             int
	MatchedBy         []string
	DaysUntilDeadline int
}

// MarshalJSON flattens the scholarship record into the top-level object.
func (l LegacyRecommendation) MarshalJSON() ([]byte, error) {
	fields := map[string]any{}
	if l.Scholarship != nil {
		raw, err := json.Marshal(l.Scholarship)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("scholarship must encode as an object: %w", err)
		}
	}
	matchedBy := l.MatchedBy
	if matchedBy == nil {
		matchedBy = []string{}
	}
	fields["score"] = l.Score
	fields["matchedBy"] = matchedBy
	fields["daysUntilDeadline"] = l.DaysUntilDeadline
	return json.Marshal(fields)
}

// Legacy returns the tiered ranking flattened to at most limit entries.
func (s *Service) Legacy(ctx context.Context, userID string, limit int) (out []LegacyRecommendation, err error) {
	started := time.Now()
	defer func() { metrics.ObserveRecommendation(variantLegacy, started, err) }()

	limit = clampLimit(limit, DefaultLegacyLimit)
	cfg := s.Config.withDefaults()
	now := s.now()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	profile, _, err := s.loadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	candidates, err := s.Scholarships.ListMatchCandidates(ctx, now, limit*2)
	if err != nil {
		return nil, fmt.Errorf("list scholarships: %w", err)
	}

	ranked, _ := scoreAll(candidates, profile, now, cfg)
	Rank(ranked)
	flat := SplitTiers(ranked, cfg.TierLimit).Flatten()
	if len(flat) > limit {
		flat = flat[:limit]
	}

	out = make([]LegacyRecommendation, 0, len(flat))
	for _, r := range flat {
		out = append(out, LegacyRecommendation{
			Scholarship:       r.Scholarship,
			Score:             r.Score,
			MatchedBy:         r.MatchedCriteria,
			DaysUntilDeadline: r.DaysUntilDeadline,
		})
	}
	return out, nil
}

// MatchEntry is one row of the match listing.
type MatchEntry struct {
	ScholarshipID string             `json:"scholarshipId"`
	Scholarship   ScholarshipSummary `json:"scholarship"`
	MatchResult
}

// MatchResponse is the match listing across every matchable scholarship.
type MatchResponse struct {
	Matches            []MatchEntry `json:"matches"`
	TotalScholarships  int          `json:"totalScholarships"`
	EligibleCount      int          `json:"eligibleCount"`
	UserDocumentsCount int          `json:"userDocumentsCount"`
	Message            string       `json:"message,omitempty"`
}

// Match scores every open or upcoming scholarship, eligible ones first. It
// requires at least one parsed document.
func (s *Service) Match(ctx context.Context, userID string) (out MatchResponse, err error) {
	started := time.Now()
	defer func() { metrics.ObserveRecommendation(variantMatch, started, err) }()

	cfg := s.Config.withDefaults()
	now := s.now()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	profile, docs, err := s.loadProfile(ctx, userID)
	if err != nil {
		return MatchResponse{}, err
	}
	if len(docs) == 0 {
		return MatchResponse{Matches: []MatchEntry{}, Message: MessageNoDocuments}, nil
	}

	candidates, err := s.Scholarships.ListMatchable(ctx)
	if err != nil {
		return MatchResponse{}, fmt.Errorf("list scholarships: %w", err)
	}
	if len(candidates) == 0 {
		return MatchResponse{
			Matches:            []MatchEntry{},
			UserDocumentsCount: len(docs),
			Message:            MessageNoScholarships,
		}, nil
	}

	out = MatchResponse{
		Matches:            make([]MatchEntry, 0, len(candidates)),
		TotalScholarships:  len(candidates),
		UserDocumentsCount: len(docs),
	}
	for _, cand := range candidates {
		res := Score(cand.Rule, profile, now, cfg)
		if res.Eligible {
			out.EligibleCount++
		}
		out.Matches = append(out.Matches, MatchEntry{
			ScholarshipID: cand.Rule.ScholarshipID,
			Scholarship:   cand.Summary,
			MatchResult:   res,
		})
	}
	metrics.ScholarshipsScored.Add(float64(len(candidates)))

	sort.SliceStable(out.Matches, func(i, j int) bool {
		a, b := out.Matches[i], out.Matches[j]
		if a.Eligible != b.Eligible {
			return a.Eligible
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.ScholarshipID < b.ScholarshipID
	})
	return out, nil
}

// Explanation is the detailed result for a single scholarship.
type Explanation struct {
	ScholarshipID string            `json:"scholarshipId"`
	Scholarship   any               `json:"scholarship"`
	Profile       NormalizedProfile `json:"profile"`
	MissingData   []string          `json:"missingData"`
	MatchResult
}

// Explain scores one scholarship for the user regardless of its status.
func (s *Service) Explain(ctx context.Context, userID, scholarshipID string) (out Explanation, err error) {
	started := time.Now()
	defer func() { metrics.ObserveRecommendation(variantSingle, started, err) }()

	cfg := s.Config.withDefaults()
	now := s.now()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	cand, err := s.Scholarships.GetCandidate(ctx, scholarshipID)
	if err != nil {
		return Explanation{}, err
	}
	profile, _, err := s.loadProfile(ctx, userID)
	if err != nil {
		return Explanation{}, err
	}
	metrics.ScholarshipsScored.Inc()

	return Explanation{
		ScholarshipID: cand.Rule.ScholarshipID,
		Scholarship:   cand.Scholarship,
		Profile:       profile,
		MissingData:   MissingData(profile),
		MatchResult:   Score(cand.Rule, profile, now, cfg),
	}, nil
}

func (s *Service) loadProfile(ctx context.Context, userID string) (NormalizedProfile, []ParsedDocument, error) {
	declared, err := s.Profiles.GetProfile(ctx, userID)
	if err != nil {
		return NormalizedProfile{}, nil, err
	}
	docs, err := s.Documents.ListCompletedByUser(ctx, userID)
	if err != nil {
		return NormalizedProfile{}, nil, fmt.Errorf("list documents: %w", err)
	}
	return ExtractProfile(docs, declared), docs, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func scoreAll(candidates []Candidate, profile NormalizedProfile, now time.Time, cfg Config) ([]Recommendation, int) {
	out := make([]Recommendation, 0, len(candidates))
	eligible := 0
	for _, cand := range candidates {
		res := Score(cand.Rule, profile, now, cfg)
		if res.Eligible {
			eligible++
		}
		out = append(out, Recommendation{
			ScholarshipID: cand.Rule.ScholarshipID,
			Scholarship:   cand.Scholarship,
			MatchResult:   res,
		})
	}
	metrics.ScholarshipsScored.Add(float64(len(candidates)))
	return out, eligible
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > MaxRecommendLimit {
		return MaxRecommendLimit
	}
	return limit
}
