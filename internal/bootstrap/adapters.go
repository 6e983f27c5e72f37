package bootstrap

import (
	"context"
	"errors"
	"time"

	"applybro-backend/internal/documents"
	"applybro-backend/internal/matching"
	"applybro-backend/internal/scholarships"
	"applybro-backend/internal/users"
)

// profileAdapter exposes users as the engine's profile source.
type profileAdapter struct {
	repo users.Repo
}

func (a profileAdapter) GetProfile(ctx context.Context, userID string) (matching.UserProfile, error) {
	user, err := a.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return matching.UserProfile{}, matching.ErrUserNotFound
		}
		return matching.UserProfile{}, err
	}
	return matching.UserProfile{
		EducationLevel:     user.Profile.EducationLevel,
		Major:              user.Profile.Major,
		GPA:                user.Profile.GPA,
		PreferredCountries: user.Profile.PreferredCountries,
		Country:            user.Profile.Country,
	}, nil
}

// ownerAdapter names document uploaders in the admin review queue.
type ownerAdapter struct {
	repo users.Repo
}

func (a ownerAdapter) Owner(ctx context.Context, userID string) (string, string, error) {
	user, err := a.repo.GetByID(ctx, userID)
	if err != nil {
		return "", "", err
	}
	return user.Name, user.Email, nil
}

// scholarshipAdapter exposes the scholarship store as scoring candidates.
type scholarshipAdapter struct {
	repo scholarships.Repo
}

func (a scholarshipAdapter) ListMatchCandidates(ctx context.Context, now time.Time, limit int) ([]matching.Candidate, error) {
	list, err := a.repo.ListOpen(ctx, now, limit)
	if err != nil {
		return nil, err
	}
	return toCandidates(list), nil
}

func (a scholarshipAdapter) ListMatchable(ctx context.Context) ([]matching.Candidate, error) {
	list, err := a.repo.ListMatchable(ctx)
	if err != nil {
		return nil, err
	}
	return toCandidates(list), nil
}

// GetCandidate hides unverified records the same way the public listing does.
func (a scholarshipAdapter) GetCandidate(ctx context.Context, id string) (matching.Candidate, error) {
	s, err := a.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, scholarships.ErrNotFound) {
			return matching.Candidate{}, matching.ErrScholarshipNotFound
		}
		return matching.Candidate{}, err
	}
	if !s.Verified {
		return matching.Candidate{}, matching.ErrScholarshipNotFound
	}
	return toCandidate(s), nil
}

func toCandidates(list []scholarships.Scholarship) []matching.Candidate {
	out := make([]matching.Candidate, 0, len(list))
	for _, s := range list {
		out = append(out, toCandidate(s))
	}
	return out
}

func toCandidate(s scholarships.Scholarship) matching.Candidate {
	return matching.Candidate{
		Rule: matching.Rule{
			ScholarshipID:        s.ID,
			Levels:               s.Levels,
			MinGPA:               s.Eligibility.MinGPA,
			RequiredFields:       s.Fields,
			RequiredEnglishScore: s.Eligibility.RequiredEnglishScore,
			RequiredDocs:         s.Eligibility.RequiredDocs,
			Country:              s.Country,
			Deadline:             s.Deadline,
		},
		Summary: matching.ScholarshipSummary{
			Title:      s.Title,
			Country:    s.Country,
			Levels:     s.Levels,
			Deadline:   s.Deadline,
			Amount:     s.Amount,
			University: s.University.Name,
		},
		Scholarship: s,
	}
}

// documentAdapter exposes completed parses as engine input.
type documentAdapter struct {
	repo documents.Repo
}

func (a documentAdapter) ListCompletedByUser(ctx context.Context, userID string) ([]matching.ParsedDocument, error) {
	docs, err := a.repo.ListCompletedByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]matching.ParsedDocument, 0, len(docs))
	for _, d := range docs {
		out = append(out, toParsedDocument(d))
	}
	return out, nil
}

func toParsedDocument(d documents.Document) matching.ParsedDocument {
	pd := matching.ParsedDocument{
		ID:           d.ID,
		Type:         d.Type,
		DocumentType: d.DocumentType,
		UploadedAt:   d.UploadedAt,
	}
	data := d.ParsedData
	if data == nil {
		return pd
	}
	pd.Level = data.Level
	pd.GPA = data.GPA
	pd.Percentage = data.Percentage
	pd.Stream = data.Stream
	pd.PassingYear = data.PassingYear
	if e := data.EnglishScore; e != nil {
		pd.English = &matching.EnglishScore{
			Listening: e.Listening,
			Reading:   e.Reading,
			Writing:   e.Writing,
			Speaking:  e.Speaking,
			Overall:   e.Overall,
		}
	}
	return pd
}
