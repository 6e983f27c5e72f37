package users

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

const uniqueViolation = "23505"

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, user User) error {
	const query = `
INSERT INTO users (id, name, email, password_hash, role, education_level, major, gpa, preferred_countries, country, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())`
	countries, err := encodeCountries(user.Profile.PreferredCountries)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		user.ID,
		user.Name,
		strings.ToLower(user.Email),
		user.PasswordHash,
		user.Role,
		nullableString(user.Profile.EducationLevel),
		nullableString(user.Profile.Major),
		nullableFloat(user.Profile.GPA),
		countries,
		nullableString(user.Profile.Country),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

const selectColumns = `id, name, email, password_hash, role, education_level, major, gpa, preferred_countries, country, created_at, updated_at`

func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	query := `SELECT ` + selectColumns + ` FROM users WHERE id = $1 LIMIT 1`
	return scanUser(r.DB.QueryRowContext(ctx, query, userID))
}

func (r *PGRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	query := `SELECT ` + selectColumns + ` FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1`
	return scanUser(r.DB.QueryRowContext(ctx, query, strings.TrimSpace(email)))
}

func (r *PGRepo) UpdateProfile(ctx context.Context, user User) error {
	const query = `
UPDATE users SET
  name = $2,
  education_level = $3,
  major = $4,
  gpa = $5,
  preferred_countries = $6,
  country = $7,
  updated_at = now()
WHERE id = $1`
	countries, err := encodeCountries(user.Profile.PreferredCountries)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query,
		user.ID,
		user.Name,
		nullableString(user.Profile.EducationLevel),
		nullableString(user.Profile.Major),
		nullableFloat(user.Profile.GPA),
		countries,
		nullableString(user.Profile.Country),
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// List searches users for the admin console. Search is a case-insensitive
// substring match on name or email.
func (r *PGRepo) List(ctx context.Context, f ListFilter) ([]User, int, error) {
	where := []string{"1=1"}
	args := []any{}
	if f.Role != "" {
		args = append(args, f.Role)
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+escapeLike(f.Search)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", n, n))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY created_at DESC, id ASC LIMIT $%d OFFSET $%d`,
		selectColumns, cond, len(args)-1, len(args))

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *PGRepo) UpdateRole(ctx context.Context, userID, role string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET role = $2, updated_at = now() WHERE id = $1`, userID, role)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var user User
	var educationLevel sql.NullString
	var major sql.NullString
	var gpa sql.NullFloat64
	var countries []byte
	var country sql.NullString
	var updatedAt sql.NullTime
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&educationLevel,
		&major,
		&gpa,
		&countries,
		&country,
		&user.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	user.Profile.EducationLevel = educationLevel.String
	user.Profile.Major = major.String
	user.Profile.Country = country.String
	if gpa.Valid {
		v := gpa.Float64
		user.Profile.GPA = &v
	}
	user.Profile.PreferredCountries = []string{}
	if len(countries) > 0 {
		if err := json.Unmarshal(countries, &user.Profile.PreferredCountries); err != nil {
			return User{}, fmt.Errorf("decode preferred_countries: %w", err)
		}
	}
	if updatedAt.Valid {
		user.UpdatedAt = updatedAt.Time
	} else {
		user.UpdatedAt = time.Now().UTC()
	}
	return user, nil
}

func encodeCountries(countries []string) (string, error) {
	if countries == nil {
		countries = []string{}
	}
	raw, err := json.Marshal(countries)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}
