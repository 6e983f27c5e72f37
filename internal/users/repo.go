package users

import "context"

type Repo interface {
	// Create returns ErrEmailTaken when the email is already registered (case-insensitive).
	Create(ctx context.Context, user User) error
	GetByID(ctx context.Context, userID string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	UpdateProfile(ctx context.Context, user User) error
	// List returns matching users newest first and the total number of matches.
	List(ctx context.Context, f ListFilter) ([]User, int, error)
	UpdateRole(ctx context.Context, userID, role string) error
}
