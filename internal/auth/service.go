package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/gesturelab/gesturelab/internal/models"
	"github.com/gesturelab/gesturelab/internal/models/dto"
	"github.com/gesturelab/gesturelab/internal/storage"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 50
	maxEmailLength    = 255
	maxPasswordLength = 256
)

// PasswordHasher hashes and verifies credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) bool
}

// AdminSeed holds the credentials used to create the admin on first boot.
type AdminSeed struct {
	Username string
	Email    string
	Password string
}

// Service implements registration, login, and admin account management.
type Service struct {
	accounts          storage.AccountStore
	hasher            PasswordHasher
	minPasswordLength int
	log               *slog.Logger
}

// NewService constructs the service.
func NewService(accounts storage.AccountStore, hasher PasswordHasher, minPasswordLength int, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if minPasswordLength <= 0 {
		minPasswordLength = 6
	}
	return &Service{accounts: accounts, hasher: hasher, minPasswordLength: minPasswordLength, log: log}
}

// EnsureAdmin returns the admin account, creating it from seed if none exists.
func (s *Service) EnsureAdmin(ctx context.Context, seed AdminSeed) (models.Account, error) {
	admin, err := s.accounts.FindAdmin(ctx)
	if err == nil {
		return admin, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return models.Account{}, fmt.Errorf("find admin: %w", err)
	}

	if seed.Password == "" {
		return models.Account{}, errors.New("ADMIN_PASSWORD is required to create the admin account")
	}
	if err := s.validateIdentity(seed.Username, seed.Email); err != nil {
		return models.Account{}, fmt.Errorf("admin seed: %w", err)
	}
	if err := s.validatePassword(seed.Password); err != nil {
		return models.Account{}, fmt.Errorf("admin seed: %w", err)
	}

	hash, err := s.hasher.Hash(seed.Password)
	if err != nil {
		return models.Account{}, fmt.Errorf("hash admin password: %w", err)
	}
	admin, err = s.accounts.CreateAccount(ctx, models.Account{
		Email:        strings.TrimSpace(seed.Email),
		Username:     strings.TrimSpace(seed.Username),
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	})
	if errors.Is(err, storage.ErrAlreadyExists) {
		// Another instance may have won the bootstrap race.
		if existing, findErr := s.accounts.FindAdmin(ctx); findErr == nil {
			return existing, nil
		}
		return models.Account{}, fmt.Errorf("admin identity %q is taken by another account", seed.Username)
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("create admin: %w", err)
	}

	s.log.InfoContext(ctx, "admin account created", "account_id", admin.ID, "username", admin.Username)
	return admin, nil
}

// Register validates the form and creates a user account. Attempts to take the
// admin's username or email surface as storage.ErrAlreadyExists.
func (s *Service) Register(ctx context.Context, form dto.RegisterForm) (models.Account, error) {
	if err := s.validateIdentity(form.Username, form.Email); err != nil {
		return models.Account{}, err
	}
	if err := s.validatePassword(form.Password); err != nil {
		return models.Account{}, err
	}
	if form.Password != form.ConfirmPassword {
		return models.Account{}, ValidationError{Field: "confirm_password", Msg: "Passwords do not match"}
	}
	if err := s.checkReserved(ctx, form.Username, form.Email); err != nil {
		return models.Account{}, err
	}

	hash, err := s.hasher.Hash(form.Password)
	if err != nil {
		return models.Account{}, fmt.Errorf("hash password: %w", err)
	}
	return s.accounts.CreateAccount(ctx, models.Account{
		Email:        form.Email,
		Username:     form.Username,
		PasswordHash: hash,
		Role:         models.RoleUser,
	})
}

// Authenticate checks credentials. It returns storage.ErrNotFound for an
// unknown username and ErrUnauthorized for a wrong password.
func (s *Service) Authenticate(ctx context.Context, form dto.LoginForm) (models.Account, error) {
	if form.Username == "" || form.Password == "" {
		return models.Account{}, ValidationError{Msg: "Username and password are required"}
	}
	account, err := s.accounts.FindByUsername(ctx, form.Username)
	if err != nil {
		return models.Account{}, err
	}
	if !s.hasher.Verify(form.Password, account.PasswordHash) {
		return models.Account{}, ErrUnauthorized
	}
	return account, nil
}

// Account returns the account with id.
func (s *Service) Account(ctx context.Context, id int64) (models.Account, error) {
	return s.accounts.FindByID(ctx, id)
}

// ListUsers returns every non-admin account.
func (s *Service) ListUsers(ctx context.Context) ([]models.Account, error) {
	return s.accounts.ListAccounts(ctx, models.RoleUser)
}

// UpdateUser edits a learner account from the admin console. The admin account
// and any account sharing its identity are off limits here.
func (s *Service) UpdateUser(ctx context.Context, id int64, form dto.AccountForm) (models.Account, error) {
	if _, err := s.protectedTarget(ctx, id); err != nil {
		return models.Account{}, err
	}
	if err := s.checkReserved(ctx, form.Username, form.Email); err != nil {
		return models.Account{}, err
	}
	upd, err := s.buildUpdate(form)
	if err != nil {
		return models.Account{}, err
	}
	return s.accounts.UpdateAccount(ctx, id, upd)
}

// UpdateAdminProfile edits the admin account itself.
func (s *Service) UpdateAdminProfile(ctx context.Context, adminID int64, form dto.AccountForm) (models.Account, error) {
	admin, err := s.accounts.FindByID(ctx, adminID)
	if err != nil {
		return models.Account{}, err
	}
	if !admin.IsAdmin() {
		return models.Account{}, ErrUnauthorized
	}
	upd, err := s.buildUpdate(form)
	if err != nil {
		return models.Account{}, err
	}
	return s.accounts.UpdateAccount(ctx, adminID, upd)
}

// DeleteUser removes a learner account. The admin account and any account
// sharing its username or email are refused.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if _, err := s.protectedTarget(ctx, id); err != nil {
		return err
	}
	err := s.accounts.DeleteAccount(ctx, id)
	if errors.Is(err, storage.ErrProtected) {
		return ErrProtectedAccount
	}
	return err
}

// protectedTarget loads id and refuses it when it is, or impersonates, the admin.
func (s *Service) protectedTarget(ctx context.Context, id int64) (models.Account, error) {
	target, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return models.Account{}, err
	}
	if target.IsAdmin() {
		return models.Account{}, ErrProtectedAccount
	}
	admin, err := s.accounts.FindAdmin(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return target, nil
	case err != nil:
		return models.Account{}, fmt.Errorf("find admin: %w", err)
	}
	if admin.SharesIdentity(target.Username, target.Email) {
		return models.Account{}, ErrProtectedAccount
	}
	return target, nil
}

// checkReserved rejects a username or email belonging to the admin.
func (s *Service) checkReserved(ctx context.Context, username, email string) error {
	if username == "" && email == "" {
		return nil
	}
	admin, err := s.accounts.FindAdmin(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("find admin: %w", err)
	}
	if admin.SharesIdentity(username, email) {
		return storage.ErrAlreadyExists
	}
	return nil
}

func (s *Service) buildUpdate(form dto.AccountForm) (models.AccountUpdate, error) {
	var upd models.AccountUpdate
	if form.Username != "" {
		if err := validateUsername(form.Username); err != nil {
			return upd, err
		}
		upd.Username = &form.Username
	}
	if form.Email != "" {
		if err := validateEmail(form.Email); err != nil {
			return upd, err
		}
		upd.Email = &form.Email
	}
	if form.Password != "" {
		if err := s.validatePassword(form.Password); err != nil {
			return upd, err
		}
		hash, err := s.hasher.Hash(form.Password)
		if err != nil {
			return upd, fmt.Errorf("hash password: %w", err)
		}
		upd.PasswordHash = &hash
	}
	if upd.Empty() {
		return upd, ValidationError{Msg: "Nothing to update"}
	}
	return upd, nil
}

func (s *Service) validateIdentity(username, email string) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	return validateUsername(username)
}

func (s *Service) validatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if !utf8.ValidString(password) || n < s.minPasswordLength {
		return ValidationError{Field: "password", Msg: fmt.Sprintf("Password must be at least %d characters", s.minPasswordLength)}
	}
	if len(password) > maxPasswordLength {
		return ValidationError{Field: "password", Msg: "Password is too long"}
	}
	return nil
}

func validateUsername(username string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(username))
	if n < minUsernameLength || n > maxUsernameLength {
		return ValidationError{Field: "username", Msg: fmt.Sprintf("Username must be %d to %d characters", minUsernameLength, maxUsernameLength)}
	}
	return nil
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Msg: "Email is required"}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || len(email) > maxEmailLength {
		return ValidationError{Field: "email", Msg: "Email is not valid"}
	}
	return nil
}
