package storage

import (
	"context"
	"errors"
	"time"

	"github.com/gesturelab/gesturelab/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// ErrProtected indicates the record may not be removed through this path.
var ErrProtected = errors.New("record is protected")

// AccountStore captures account persistence needed by the auth service.
// Username and email uniqueness is case-insensitive.
type AccountStore interface {
	CreateAccount(ctx context.Context, account models.Account) (models.Account, error)
	FindByID(ctx context.Context, id int64) (models.Account, error)
	FindByUsername(ctx context.Context, username string) (models.Account, error)
	FindAdmin(ctx context.Context) (models.Account, error)
	ListAccounts(ctx context.Context, role models.Role) ([]models.Account, error)
	UpdateAccount(ctx context.Context, id int64, upd models.AccountUpdate) (models.Account, error)
	DeleteAccount(ctx context.Context, id int64) error
}

// SessionStore persists server-side sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, session models.Session) error
	GetSession(ctx context.Context, id string) (models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteAccountSessions(ctx context.Context, accountID int64) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
