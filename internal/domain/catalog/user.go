package catalog

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrUserNotFound is returned when a requested user does not exist.
var ErrUserNotFound = errors.New("user not found")

// User is the purchasing account referenced by orders and invoices.
// Registration, login and 2FA live in a separate service; the order engine
// only ever resolves users by ID.
type User struct {
	ID    string
	Name  string
	Email string
}

// UserRepository defines read operations for user accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
}
