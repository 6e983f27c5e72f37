package scholarships

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const foreignKeyViolation = "23503"

const scholarshipColumns = `s.id, s.title, s.description, s.country, s.university, s.levels, s.fields, s.deadline,
  s.min_gpa, s.required_docs, s.required_english_score, s.age_limit, s.nationality,
  s.benefits, s.amount, s.external_link, s.status, s.verified, s.created_by, s.created_at, s.updated_at`

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, s Scholarship) error {
	const query = `
INSERT INTO scholarships (id, title, description, country, university, levels, fields, deadline,
  min_gpa, required_docs, required_english_score, age_limit, nationality,
  benefits, amount, external_link, status, verified, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, now(), now())`
	args, err := writeArgs(s)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query, append(args, s.CreatedBy)...)
	return err
}

func (r *PGRepo) Update(ctx context.Context, s Scholarship) error {
	const query = `
UPDATE scholarships SET
  title = $2, description = $3, country = $4, university = $5, levels = $6, fields = $7, deadline = $8,
  min_gpa = $9, required_docs = $10, required_english_score = $11, age_limit = $12, nationality = $13,
  benefits = $14, amount = $15, external_link = $16, status = $17, verified = $18, updated_at = now()
WHERE id = $1`
	args, err := writeArgs(s)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM scholarships WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Scholarship, error) {
	query := `SELECT ` + scholarshipColumns + ` FROM scholarships s WHERE s.id = $1 LIMIT 1`
	s, err := scanScholarship(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Scholarship{}, ErrNotFound
		}
		return Scholarship{}, err
	}
	return s, nil
}

func (r *PGRepo) List(ctx context.Context, f Filter) ([]Scholarship, int, error) {
	where, args, err := buildWhere(f)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM scholarships s`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM scholarships s%s ORDER BY s.deadline ASC, s.id ASC LIMIT $%d OFFSET $%d`,
		scholarshipColumns, where, len(args)+1, len(args)+2)
	rows, err := r.DB.QueryContext(ctx, query, append(args, f.Limit, f.offset())...)
	if err != nil {
		return nil, 0, err
	}
	list, err := scanAll(rows)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *PGRepo) ListOpen(ctx context.Context, now time.Time, limit int) ([]Scholarship, error) {
	query := `SELECT ` + scholarshipColumns + `
FROM scholarships s
WHERE s.status = 'open' AND s.verified = TRUE AND s.deadline > $1
ORDER BY s.deadline ASC, s.id ASC
LIMIT $2`
	rows, err := r.DB.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	return scanAll(rows)
}

func (r *PGRepo) ListMatchable(ctx context.Context) ([]Scholarship, error) {
	query := `SELECT ` + scholarshipColumns + `
FROM scholarships s
WHERE s.status IN ('open', 'upcoming') AND s.verified = TRUE
ORDER BY s.deadline ASC, s.id ASC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return scanAll(rows)
}

func (r *PGRepo) Popular(ctx context.Context, now time.Time, limit int) ([]Scholarship, error) {
	query := `SELECT ` + scholarshipColumns + `, COUNT(b.user_id) AS bookmark_count
FROM scholarships s
LEFT JOIN scholarship_bookmarks b ON b.scholarship_id = s.id
WHERE s.status = 'open' AND s.verified = TRUE AND s.deadline > $1
GROUP BY s.id
ORDER BY bookmark_count DESC, s.deadline ASC
LIMIT $2`
	rows, err := r.DB.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Scholarship, 0)
	for rows.Next() {
		var count int
		s, err := scanScholarship(rows, &count)
		if err != nil {
			return nil, err
		}
		s.BookmarkCount = count
		out = append(out, s)
	}
	return out, rows.Err()
}

// ToggleBookmark removes an existing bookmark or adds a missing one and
// reports whether the scholarship is bookmarked afterwards.
func (r *PGRepo) ToggleBookmark(ctx context.Context, userID, scholarshipID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM scholarship_bookmarks WHERE user_id = $1 AND scholarship_id = $2`, userID, scholarshipID)
	if err != nil {
		return false, err
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if removed > 0 {
		return false, nil
	}

	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO scholarship_bookmarks (user_id, scholarship_id, created_at) VALUES ($1, $2, now())
ON CONFLICT (user_id, scholarship_id) DO NOTHING`, userID, scholarshipID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return false, ErrNotFound
		}
		return false, err
	}
	return true, nil
}

func (r *PGRepo) IsBookmarked(ctx context.Context, userID, scholarshipID string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM scholarship_bookmarks WHERE user_id = $1 AND scholarship_id = $2)`,
		userID, scholarshipID).Scan(&exists)
	return exists, err
}

func (r *PGRepo) ListBookmarked(ctx context.Context, userID string) ([]Scholarship, error) {
	query := `SELECT ` + scholarshipColumns + `
FROM scholarship_bookmarks b
JOIN scholarships s ON s.id = b.scholarship_id
WHERE b.user_id = $1
ORDER BY b.created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	return scanAll(rows)
}

func buildWhere(f Filter) (string, []any, error) {
	var clauses []string
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Status != "" {
		clauses = append(clauses, "s.status = "+next(f.Status))
	} else {
		clauses = append(clauses, "s.status IN ('open', 'upcoming')")
	}
	if !f.IncludeUnverified {
		clauses = append(clauses, "s.verified = TRUE")
	}
	if f.Country != "" {
		clauses = append(clauses, "LOWER(s.country) = LOWER("+next(f.Country)+")")
	}
	if f.Level != "" {
		raw, err := json.Marshal([]string{f.Level})
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, "s.levels @> "+next(string(raw))+"::jsonb")
	}
	if f.Field != "" {
		clauses = append(clauses,
			"EXISTS (SELECT 1 FROM jsonb_array_elements_text(s.fields) AS fld WHERE fld ILIKE "+next(likePattern(f.Field))+")")
	}
	if f.Search != "" {
		p := next(likePattern(f.Search))
		clauses = append(clauses, "(s.title ILIKE "+p+" OR s.description ILIKE "+p+" OR s.country ILIKE "+p+")")
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(v string) string {
	return "%" + likeEscaper.Replace(v) + "%"
}

// writeArgs returns $1..$18 shared by insert and update.
func writeArgs(s Scholarship) ([]any, error) {
	university, err := json.Marshal(s.University)
	if err != nil {
		return nil, err
	}
	lists := make([]string, 0, 4)
	for _, l := range [][]string{s.Levels, s.Fields, s.Eligibility.RequiredDocs, s.Eligibility.Nationality} {
		if l == nil {
			l = []string{}
		}
		raw, err := json.Marshal(l)
		if err != nil {
			return nil, err
		}
		lists = append(lists, string(raw))
	}
	return []any{
		s.ID,
		s.Title,
		s.Description,
		s.Country,
		string(university),
		lists[0],
		lists[1],
		s.Deadline,
		nullableFloat(s.Eligibility.MinGPA),
		lists[2],
		nullableFloat(s.Eligibility.RequiredEnglishScore),
		nullableInt(s.Eligibility.AgeLimit),
		lists[3],
		s.Benefits,
		s.Amount,
		s.ExternalLink,
		s.Status,
		s.Verified,
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScholarship(row rowScanner, extra ...any) (Scholarship, error) {
	var s Scholarship
	var university, levels, fields, requiredDocs, nationality []byte
	var minGPA, englishScore sql.NullFloat64
	var ageLimit sql.NullInt64
	dest := []any{
		&s.ID,
		&s.Title,
		&s.Description,
		&s.Country,
		&university,
		&levels,
		&fields,
		&s.Deadline,
		&minGPA,
		&requiredDocs,
		&englishScore,
		&ageLimit,
		&nationality,
		&s.Benefits,
		&s.Amount,
		&s.ExternalLink,
		&s.Status,
		&s.Verified,
		&s.CreatedBy,
		&s.CreatedAt,
		&s.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return Scholarship{}, err
	}

	if len(university) > 0 {
		if err := json.Unmarshal(university, &s.University); err != nil {
			return Scholarship{}, fmt.Errorf("decode university: %w", err)
		}
	}
	var err error
	if s.Levels, err = decodeList(levels); err != nil {
		return Scholarship{}, fmt.Errorf("decode levels: %w", err)
	}
	if s.Fields, err = decodeList(fields); err != nil {
		return Scholarship{}, fmt.Errorf("decode fields: %w", err)
	}
	if s.Eligibility.RequiredDocs, err = decodeList(requiredDocs); err != nil {
		return Scholarship{}, fmt.Errorf("decode required_docs: %w", err)
	}
	if s.Eligibility.Nationality, err = decodeList(nationality); err != nil {
		return Scholarship{}, fmt.Errorf("decode nationality: %w", err)
	}
	if minGPA.Valid {
		v := minGPA.Float64
		s.Eligibility.MinGPA = &v
	}
	if englishScore.Valid {
		v := englishScore.Float64
		s.Eligibility.RequiredEnglishScore = &v
	}
	if ageLimit.Valid {
		v := int(ageLimit.Int64)
		s.Eligibility.AgeLimit = &v
	}
	return s, nil
}

func scanAll(rows *sql.Rows) ([]Scholarship, error) {
	defer rows.Close()
	out := make([]Scholarship, 0)
	for rows.Next() {
		s, err := scanScholarship(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func decodeList(raw []byte) ([]string, error) {
	out := []string{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func expectOneRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
