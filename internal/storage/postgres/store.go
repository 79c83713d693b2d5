package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gesturelab/gesturelab/internal/models"
	"github.com/gesturelab/gesturelab/internal/storage"
)

// Ensure Store satisfies the storage interfaces at compile time.
var (
	_ storage.AccountStore = (*Store)(nil)
	_ storage.SessionStore = (*Store)(nil)
)

const uniqueViolation = "23505"

// Store provides Postgres-backed persistence for accounts and sessions.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to Postgres and runs migrations.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := ping(ctx, pool, 3*time.Second); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool}, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks that a pooled connection can be acquired.
func (s *Store) Ping(ctx context.Context) error {
	return ping(ctx, s.pool, 2*time.Second)
}

func ping(parent context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	conn.Release()
	return nil
}

const accountColumns = `id, email, username, password_hash, role, created_at`

// CreateAccount inserts a new account row.
func (s *Store) CreateAccount(ctx context.Context, account models.Account) (models.Account, error) {
	const query = `
		INSERT INTO accounts (email, username, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + accountColumns
	row := s.pool.QueryRow(ctx, query, account.Email, account.Username, account.PasswordHash, string(account.Role))
	created, err := scanAccount(row)
	if err != nil {
		return models.Account{}, mapWriteErr("create account", err)
	}
	return created, nil
}

// FindByID fetches an account by primary key.
func (s *Store) FindByID(ctx context.Context, id int64) (models.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(s.pool.QueryRow(ctx, query, id))
}

// FindByUsername fetches an account by username, ignoring case.
func (s *Store) FindByUsername(ctx context.Context, username string) (models.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE lower(username) = lower($1)`
	return scanAccount(s.pool.QueryRow(ctx, query, username))
}

// FindAdmin fetches the single admin account.
func (s *Store) FindAdmin(ctx context.Context) (models.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE role = 'admin' LIMIT 1`
	return scanAccount(s.pool.QueryRow(ctx, query))
}

// ListAccounts returns every account with the given role ordered by id.
func (s *Store) ListAccounts(ctx context.Context, role models.Role) ([]models.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE role = $1 ORDER BY id`
	rows, err := s.pool.Query(ctx, query, string(role))
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("list accounts: %w", err)
		}
		out = append(out, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return out, nil
}

// UpdateAccount applies the non-nil fields of upd.
func (s *Store) UpdateAccount(ctx context.Context, id int64, upd models.AccountUpdate) (models.Account, error) {
	const query = `
		UPDATE accounts SET
			email = COALESCE($2, email),
			username = COALESCE($3, username),
			password_hash = COALESCE($4, password_hash)
		WHERE id = $1
		RETURNING ` + accountColumns
	row := s.pool.QueryRow(ctx, query, id, upd.Email, upd.Username, upd.PasswordHash)
	updated, err := scanAccount(row)
	if err != nil {
		return models.Account{}, mapWriteErr("update account", err)
	}
	return updated, nil
}

// DeleteAccount removes a non-admin account. Its sessions go with it.
func (s *Store) DeleteAccount(ctx context.Context, id int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("delete account: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var role string
	err = tx.QueryRow(ctx, `SELECT role FROM accounts WHERE id = $1 FOR UPDATE`, id).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("delete account: %w", err)
	}
	if models.Role(role) == models.RoleAdmin {
		return storage.ErrProtected
	}

	if _, err := tx.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return tx.Commit(ctx)
}

func scanAccount(row pgx.Row) (models.Account, error) {
	var account models.Account
	var role string
	if err := row.Scan(&account.ID, &account.Email, &account.Username, &account.PasswordHash, &role, &account.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, storage.ErrNotFound
		}
		return models.Account{}, err
	}
	account.Role = models.Role(role)
	return account, nil
}

func mapWriteErr(op string, err error) error {
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr) && pgErr.Code == uniqueViolation:
		return storage.ErrAlreadyExists
	case errors.Is(err, storage.ErrNotFound):
		return err
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
